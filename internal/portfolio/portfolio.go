// Package portfolio is the paper-trading ledger: virtual cash, whole-share
// positions, and the append-only trade history. All mutation goes through
// ApplyOrder so the ledger invariants hold after every trade: cash never goes
// negative, share counts never go negative, and a symbol disappears from the
// holdings map the moment its count hits zero.
package portfolio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Side enumerates order directions.
type Side string

const (
	// Buy acquires shares for cash.
	Buy Side = "BUY"
	// Sell liquidates shares into cash.
	Sell Side = "SELL"
)

// Order is a transient placement request produced by the rebalance engine and
// consumed immediately by ApplyOrder. Orders themselves are never persisted;
// only the resulting TradeRecord is.
type Order struct {
	Symbol   string
	Side     Side
	Quantity int64
	Price    decimal.Decimal
}

// TradeRecord is the immutable, append-only record of one executed paper fill.
type TradeRecord struct {
	Time          time.Time       `json:"timestamp"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Quantity      int64           `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	ResultingCash decimal.Decimal `json:"resulting_cash"`
}

// ValuePoint is one observation on the equity curve.
type ValuePoint struct {
	Time      time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
	ReturnPct float64         `json:"return_pct"`
}

// State is the deep, serializable snapshot of a portfolio.
type State struct {
	InitialCapital decimal.Decimal  `json:"initial_capital"`
	Cash           decimal.Decimal  `json:"cash"`
	Holdings       map[string]int64 `json:"holdings"`
	TradeHistory   []TradeRecord    `json:"trade_history"`
	ValueHistory   []ValuePoint     `json:"value_history"`
}

// Portfolio tracks virtual cash and whole-share positions while trading in
// paper mode. Methods are safe for concurrent use, though the orchestrator
// serializes cycles so contention only appears in tests.
type Portfolio struct {
	mu             sync.Mutex
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	holdings       map[string]int64
	trades         []TradeRecord
	valueHistory   []ValuePoint
}

// New creates a fresh portfolio holding only cash.
func New(initialCapital decimal.Decimal) (*Portfolio, error) {
	if initialCapital.Sign() <= 0 {
		return nil, fmt.Errorf("initial capital must be positive, got %s", initialCapital)
	}
	return &Portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		holdings:       make(map[string]int64),
	}, nil
}

// Restore rebuilds a portfolio from a persisted snapshot, enforcing the ledger
// invariants and normalizing every timestamp to UTC.
func Restore(state State) (*Portfolio, error) {
	if state.InitialCapital.Sign() <= 0 {
		return nil, fmt.Errorf("restored initial capital must be positive, got %s", state.InitialCapital)
	}
	if state.Cash.Sign() < 0 {
		return nil, fmt.Errorf("restored cash is negative: %s", state.Cash)
	}
	holdings := make(map[string]int64, len(state.Holdings))
	for symbol, shares := range state.Holdings {
		if shares < 0 {
			return nil, fmt.Errorf("restored holding %s is negative: %d", symbol, shares)
		}
		if shares > 0 {
			holdings[symbol] = shares
		}
	}
	trades := make([]TradeRecord, len(state.TradeHistory))
	for i, tr := range state.TradeHistory {
		tr.Time = tr.Time.UTC()
		trades[i] = tr
	}
	values := make([]ValuePoint, len(state.ValueHistory))
	for i, vp := range state.ValueHistory {
		vp.Time = vp.Time.UTC()
		values[i] = vp
	}
	return &Portfolio{
		initialCapital: state.InitialCapital,
		cash:           state.Cash,
		holdings:       holdings,
		trades:         trades,
		valueHistory:   values,
	}, nil
}

// InitialCapital returns the immutable starting bankroll.
func (p *Portfolio) InitialCapital() decimal.Decimal { return p.initialCapital }

// Cash returns the free cash balance.
func (p *Portfolio) Cash() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// Position returns the share count held for a symbol, zero if none.
func (p *Portfolio) Position(symbol string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holdings[symbol]
}

// Holdings returns a copy of the holdings map.
func (p *Portfolio) Holdings() map[string]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int64, len(p.holdings))
	for symbol, shares := range p.holdings {
		out[symbol] = shares
	}
	return out
}

// MarketValue returns cash plus the mark-to-market value of every position.
// Every held symbol must be present in prices; a missing mark fails with
// StalePriceError rather than valuing the position at zero.
func (p *Portfolio) MarketValue(prices map[string]decimal.Decimal) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marketValueLocked(prices)
}

func (p *Portfolio) marketValueLocked(prices map[string]decimal.Decimal) (decimal.Decimal, error) {
	var missing []string
	total := p.cash
	for symbol, shares := range p.holdings {
		price, ok := prices[symbol]
		if !ok {
			missing = append(missing, symbol)
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(shares)))
	}
	if len(missing) > 0 {
		return decimal.Zero, &StalePriceError{Symbols: missing}
	}
	return total, nil
}

// ApplyOrder executes one paper fill atomically: cash and the position move in
// a single step, and the resulting TradeRecord is appended to the history.
// BUYs that do not fit in cash and SELLs larger than the position are rejected
// whole; there are no partial fills.
func (p *Portfolio) ApplyOrder(order Order, ts time.Time) (TradeRecord, error) {
	if order.Quantity <= 0 {
		return TradeRecord{}, errors.New("order quantity must be positive")
	}
	if order.Price.Sign() <= 0 {
		return TradeRecord{}, errors.New("order price must be positive")
	}
	if ts.IsZero() {
		return TradeRecord{}, errors.New("order timestamp required")
	}
	ts = ts.UTC()

	p.mu.Lock()
	defer p.mu.Unlock()

	notional := order.Price.Mul(decimal.NewFromInt(order.Quantity))
	switch order.Side {
	case Buy:
		if notional.GreaterThan(p.cash) {
			return TradeRecord{}, &InsufficientCashError{Symbol: order.Symbol, Cost: notional, Cash: p.cash}
		}
		p.cash = p.cash.Sub(notional)
		p.holdings[order.Symbol] += order.Quantity
	case Sell:
		held := p.holdings[order.Symbol]
		if order.Quantity > held {
			return TradeRecord{}, &InsufficientSharesError{Symbol: order.Symbol, Quantity: order.Quantity, Held: held}
		}
		p.cash = p.cash.Add(notional)
		if held == order.Quantity {
			delete(p.holdings, order.Symbol)
		} else {
			p.holdings[order.Symbol] = held - order.Quantity
		}
	default:
		return TradeRecord{}, fmt.Errorf("unknown order side %q", order.Side)
	}

	record := TradeRecord{
		Time:          ts,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Quantity:      order.Quantity,
		Price:         order.Price,
		ResultingCash: p.cash,
	}
	p.trades = append(p.trades, record)
	return record, nil
}

// RecordValuation appends a point to the equity curve and returns it.
func (p *Portfolio) RecordValuation(ts time.Time, value decimal.Decimal) ValuePoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	returnPct := value.Div(p.initialCapital).InexactFloat64()*100 - 100
	point := ValuePoint{Time: ts.UTC(), Value: value, ReturnPct: returnPct}
	p.valueHistory = append(p.valueHistory, point)
	return point
}

// Trades returns a copy of the trade history.
func (p *Portfolio) Trades() []TradeRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TradeRecord, len(p.trades))
	copy(out, p.trades)
	return out
}

// ValueHistory returns a copy of the equity curve.
func (p *Portfolio) ValueHistory() []ValuePoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ValuePoint, len(p.valueHistory))
	copy(out, p.valueHistory)
	return out
}

// LastRebalance returns the time of the newest equity-curve point; the zero
// time when the portfolio has never rebalanced.
func (p *Portfolio) LastRebalance() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.valueHistory) == 0 {
		return time.Time{}
	}
	return p.valueHistory[len(p.valueHistory)-1].Time
}

// Snapshot returns a deep, timestamp-preserving copy of the portfolio state
// suitable for persistence.
func (p *Portfolio) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	holdings := make(map[string]int64, len(p.holdings))
	for symbol, shares := range p.holdings {
		holdings[symbol] = shares
	}
	trades := make([]TradeRecord, len(p.trades))
	copy(trades, p.trades)
	values := make([]ValuePoint, len(p.valueHistory))
	copy(values, p.valueHistory)

	return State{
		InitialCapital: p.initialCapital,
		Cash:           p.cash,
		Holdings:       holdings,
		TradeHistory:   trades,
		ValueHistory:   values,
	}
}
