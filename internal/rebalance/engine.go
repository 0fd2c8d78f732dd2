// Package rebalance diffs target weights against current holdings and turns
// the difference into paper orders.
package rebalance

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/metrics"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/portfolio"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/risk"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/strategy"
)

// Engine generates and applies rebalancing orders.
//
// Execution order is the load-bearing part: every SELL runs before any BUY so
// liquidation proceeds are in the cash balance before new positions are sized
// against it, SELLs run largest quantity first, and BUYs run largest target
// value first so the highest-conviction positions fill before cash runs out.
type Engine struct {
	limits risk.Limits
	log    zerolog.Logger
}

// NewEngine builds a rebalance engine with the given order guard-rails.
func NewEngine(limits risk.Limits, log zerolog.Logger) *Engine {
	return &Engine{limits: limits, log: log}
}

type action struct {
	symbol       string
	side         portfolio.Side
	quantity     int64
	price        decimal.Decimal
	desiredValue decimal.Decimal
}

// Rebalance moves the portfolio toward the target weights using the supplied
// prices, applying each order immediately as it is generated. An order the
// ledger rejects (cash or shares short) is skipped and logged, never fatal.
// The whole rebalance fails only when the portfolio cannot be valued.
func (e *Engine) Rebalance(p *portfolio.Portfolio, weights strategy.Weights, prices map[string]decimal.Decimal, now time.Time) ([]portfolio.TradeRecord, error) {
	total, err := p.MarketValue(prices)
	if err != nil {
		return nil, err
	}

	sells, buys := e.plan(p, weights, prices, total)

	// largest liquidations first, then largest targets first
	sort.Slice(sells, func(i, j int) bool {
		if sells[i].quantity != sells[j].quantity {
			return sells[i].quantity > sells[j].quantity
		}
		return sells[i].symbol < sells[j].symbol
	})
	sort.Slice(buys, func(i, j int) bool {
		if !buys[i].desiredValue.Equal(buys[j].desiredValue) {
			return buys[i].desiredValue.GreaterThan(buys[j].desiredValue)
		}
		return buys[i].symbol < buys[j].symbol
	})

	records := make([]portfolio.TradeRecord, 0, len(sells)+len(buys))
	for _, act := range append(sells, buys...) {
		record, ok := e.apply(p, act, now)
		if ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// plan computes the share delta for every symbol in the union of targets and
// holdings. Positions whose symbol is absent from the targets get weight zero
// and are exited in full.
func (e *Engine) plan(p *portfolio.Portfolio, weights strategy.Weights, prices map[string]decimal.Decimal, total decimal.Decimal) (sells, buys []action) {
	holdings := p.Holdings()

	symbols := make(map[string]struct{}, len(weights)+len(holdings))
	for symbol := range weights {
		symbols[symbol] = struct{}{}
	}
	for symbol := range holdings {
		symbols[symbol] = struct{}{}
	}

	for symbol := range symbols {
		price, ok := prices[symbol]
		if !ok || price.Sign() <= 0 {
			// target without a live quote; held symbols always have one or
			// MarketValue would have failed already
			e.log.Warn().Str("symbol", symbol).Msg("no price, skipping symbol")
			continue
		}

		desiredValue := total.Mul(decimal.NewFromFloat(weights[symbol]))
		desiredShares := desiredValue.Div(price).Floor().IntPart() // truncate, never round up
		delta := desiredShares - holdings[symbol]

		switch {
		case delta < 0:
			sells = append(sells, action{
				symbol:       symbol,
				side:         portfolio.Sell,
				quantity:     -delta,
				price:        price,
				desiredValue: desiredValue,
			})
		case delta > 0:
			buys = append(buys, action{
				symbol:       symbol,
				side:         portfolio.Buy,
				quantity:     delta,
				price:        price,
				desiredValue: desiredValue,
			})
		}
		// delta == 0 emits nothing: no no-op trades
	}
	return sells, buys
}

func (e *Engine) apply(p *portfolio.Portfolio, act action, now time.Time) (portfolio.TradeRecord, bool) {
	notional := act.price.Mul(decimal.NewFromInt(act.quantity))
	if !e.limits.Allow(notional) {
		metrics.OrdersSkipped.WithLabelValues("risk_limit").Inc()
		e.log.Warn().Str("symbol", act.symbol).Str("side", string(act.side)).
			Str("notional", notional.StringFixed(2)).Msg("order exceeds risk limit, skipping")
		return portfolio.TradeRecord{}, false
	}

	order := portfolio.Order{Symbol: act.symbol, Side: act.side, Quantity: act.quantity, Price: act.price}
	record, err := p.ApplyOrder(order, now)
	if err != nil {
		metrics.OrdersSkipped.WithLabelValues("ledger_reject").Inc()
		e.log.Warn().Str("symbol", act.symbol).Str("side", string(act.side)).
			Int64("qty", act.quantity).Err(err).Msg("order rejected, skipping")
		return portfolio.TradeRecord{}, false
	}

	metrics.OrdersTotal.WithLabelValues(act.symbol, string(act.side)).Inc()
	e.log.Info().Str("symbol", act.symbol).Str("side", string(act.side)).
		Int64("qty", act.quantity).Str("px", act.price.StringFixed(2)).
		Str("cash", record.ResultingCash.StringFixed(2)).Msg("order filled")
	return record, true
}
