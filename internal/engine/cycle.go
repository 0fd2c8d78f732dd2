// Package engine sequences one full trading cycle: fetch, signal, rebalance,
// persist, report. The scheduler only ever calls RunCycle; all timing and
// looping lives outside this package.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/market"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/metrics"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/portfolio"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/rebalance"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/store"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/strategy"
)

// Status is the terminal outcome of one cycle.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Report summarizes one cycle for logging and metrics. Transient: never
// persisted.
type Report struct {
	Time        time.Time
	Status      Status
	Reason      string // populated when Status is failed, or "cadence" when no rebalance was due
	ValueBefore decimal.Decimal
	ValueAfter  decimal.Decimal
	Orders      []portfolio.TradeRecord
	Rebalanced  bool
}

// Recorder receives executed fills for archival. Satisfied by
// *store.TradeArchive; failures are logged and never fail the cycle.
type Recorder interface {
	Record([]portfolio.TradeRecord) error
}

// Config carries the per-cycle knobs the orchestrator needs.
type Config struct {
	Symbols         []string
	HistoryPeriod   string
	HistoryInterval string
	Frequency       Frequency
	Clock           func() time.Time
}

// Orchestrator owns the cycle state machine. One orchestrator serializes its
// cycles: RunCycle is never invoked concurrently by the scheduler, so the
// portfolio sees strictly ordered mutations.
type Orchestrator struct {
	source    market.Source
	signals   *strategy.Momentum
	rebalance *rebalance.Engine
	book      *portfolio.Portfolio
	state     *store.StateStore
	recorder  Recorder
	log       zerolog.Logger
	cfg       Config

	lastRebalance time.Time
}

// New wires an orchestrator. recorder may be nil. The last-rebalance marker is
// recovered from the portfolio's equity curve so cadence survives restarts.
func New(source market.Source, signals *strategy.Momentum, reb *rebalance.Engine,
	book *portfolio.Portfolio, state *store.StateStore, recorder Recorder,
	cfg Config, log zerolog.Logger) *Orchestrator {

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Frequency == "" {
		cfg.Frequency = Monthly
	}
	return &Orchestrator{
		source:        source,
		signals:       signals,
		rebalance:     reb,
		book:          book,
		state:         state,
		recorder:      recorder,
		log:           log,
		cfg:           cfg,
		lastRebalance: book.LastRebalance(),
	}
}

// Portfolio exposes the ledger for read-only reporting.
func (o *Orchestrator) Portfolio() *portfolio.Portfolio { return o.book }

// EquityCurve exports the ordered (timestamp, value) series.
func (o *Orchestrator) EquityCurve() []portfolio.ValuePoint { return o.book.ValueHistory() }

// RunCycle executes one full cycle and never lets an error escape to the
// scheduler: every failure is caught here, logged, and reflected in the
// report. Persisted state is only touched when fetch, signal, and rebalance
// all completed.
func (o *Orchestrator) RunCycle(ctx context.Context) Report {
	now := o.cfg.Clock().UTC()
	report := Report{Time: now, Status: StatusFailed}
	o.log.Info().Time("at", now).Msg("running trading cycle")

	// FETCH
	prices, err := o.source.LivePrices(ctx, o.cfg.Symbols)
	if err != nil {
		return o.finish(o.failFetch(report, err))
	}
	o.log.Info().Int("priced", len(prices)).Msg("fetched live prices")

	valueBefore, err := o.book.MarketValue(prices)
	if err != nil {
		// a held symbol has no quote this cycle: skip valuation and trading,
		// the last persisted state stays authoritative
		report.Reason = "stale_prices"
		o.log.Warn().Err(err).Msg("cannot value portfolio, skipping cycle")
		return o.finish(report)
	}
	report.ValueBefore = valueBefore
	report.ValueAfter = valueBefore
	pnl := valueBefore.Div(o.book.InitialCapital()).InexactFloat64()*100 - 100
	o.log.Info().Str("value", valueBefore.StringFixed(2)).Float64("pnl_pct", pnl).Msg("portfolio valued")

	if !o.cfg.Frequency.Due(o.lastRebalance, now) {
		report.Status = StatusSuccess
		report.Reason = "cadence"
		o.log.Info().Str("frequency", string(o.cfg.Frequency)).Msg("no rebalancing due")
		return o.finish(report)
	}

	// SIGNAL
	history, err := o.source.HistoricalData(ctx, o.cfg.Symbols, o.cfg.HistoryPeriod, o.cfg.HistoryInterval)
	if err != nil {
		metrics.FetchFailures.WithLabelValues("historical").Inc()
		report.Reason = "no_history"
		o.log.Error().Err(err).Msg("historical fetch failed")
		return o.finish(report)
	}
	weights := o.signals.ComputeWeights(history)
	o.log.Info().Int("selected", len(weights)).Msg("signals calculated")

	// REBALANCE
	if len(weights) == 0 {
		// data too sparse to score anything; trading on an empty signal would
		// liquidate the book, so hold positions as-is this cycle
		o.log.Warn().Msg("no eligible symbols, holding current positions")
	} else {
		records, err := o.rebalance.Rebalance(o.book, weights, prices, now)
		if err != nil {
			report.Reason = "rebalance_failed"
			o.log.Error().Err(err).Msg("rebalance failed")
			return o.finish(report)
		}
		report.Orders = records
		report.Rebalanced = true
		o.lastRebalance = now

		valueAfter, err := o.book.MarketValue(prices)
		if err == nil {
			report.ValueAfter = valueAfter
		}
		o.book.RecordValuation(now, report.ValueAfter)
	}

	// PERSIST
	if err := o.state.Save(o.book.Snapshot()); err != nil {
		// previous persisted state remains authoritative
		report.Reason = "persist_failed"
		o.log.Error().Err(err).Msg("state save failed")
		return o.finish(report)
	}
	if o.recorder != nil && len(report.Orders) > 0 {
		if err := o.recorder.Record(report.Orders); err != nil {
			o.log.Warn().Err(err).Msg("trade archive write failed")
		}
	}

	// REPORT
	report.Status = StatusSuccess
	return o.finish(report)
}

func (o *Orchestrator) failFetch(report Report, err error) Report {
	switch {
	case errors.Is(err, market.ErrMarketClosed):
		report.Reason = "market_closed"
		o.log.Info().Msg("market is closed, skipping cycle")
	default:
		var unavailable *market.DataUnavailableError
		if errors.As(err, &unavailable) {
			report.Reason = "data_unavailable"
		} else {
			report.Reason = "fetch_failed"
		}
		metrics.FetchFailures.WithLabelValues("live").Inc()
		o.log.Error().Err(err).Msg("live price fetch failed")
	}
	return report
}

func (o *Orchestrator) finish(report Report) Report {
	status := string(report.Status)
	if report.Reason == "market_closed" {
		status = "market_closed"
	}
	metrics.CyclesTotal.WithLabelValues(status).Inc()
	if report.ValueAfter.Sign() > 0 {
		metrics.PortfolioValue.Set(report.ValueAfter.InexactFloat64())
	}
	o.log.Info().Str("status", string(report.Status)).Str("reason", report.Reason).
		Int("orders", len(report.Orders)).Str("value", report.ValueAfter.StringFixed(2)).
		Msg("cycle complete")
	return report
}
