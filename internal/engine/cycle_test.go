package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/market"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/portfolio"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/rebalance"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/risk"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/store"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/strategy"
)

var cycleTime = time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}

// fakeSource serves canned prices and history and can be told to fail.
type fakeSource struct {
	prices     map[string]decimal.Decimal
	history    map[string]market.PriceSeries
	liveErr    error
	historyErr error
}

func (f *fakeSource) LivePrices(context.Context, []string) (map[string]decimal.Decimal, error) {
	if f.liveErr != nil {
		return nil, f.liveErr
	}
	return f.prices, nil
}

func (f *fakeSource) HistoricalData(context.Context, []string, string, string) (map[string]market.PriceSeries, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

type captureRecorder struct {
	trades []portfolio.TradeRecord
}

func (c *captureRecorder) Record(trades []portfolio.TradeRecord) error {
	c.trades = append(c.trades, trades...)
	return nil
}

// risingSeries ends today with the given return over the lookback window.
func risingSeries(lookback int, totalReturn float64) market.PriceSeries {
	start := cycleTime.AddDate(0, 0, -lookback)
	series := make(market.PriceSeries, 0, lookback+1)
	for i := 0; i <= lookback; i++ {
		price := 100 * (1 + totalReturn*float64(i)/float64(lookback))
		series = append(series, market.Point{Time: start.AddDate(0, 0, i), Close: decimal.NewFromFloat(price)})
	}
	return series
}

type fixture struct {
	orch   *Orchestrator
	source *fakeSource
	state  *store.StateStore
	rec    *captureRecorder
	book   *portfolio.Portfolio
}

func newFixture(t *testing.T, freq Frequency) *fixture {
	t.Helper()
	source := &fakeSource{
		prices: map[string]decimal.Decimal{
			"AAPL": decimal.NewFromInt(100),
			"MSFT": decimal.NewFromInt(200),
		},
		history: map[string]market.PriceSeries{
			"AAPL": risingSeries(30, 0.20),
			"MSFT": risingSeries(30, 0.05),
		},
	}
	book, err := portfolio.New(decimal.NewFromInt(10000))
	if err != nil {
		t.Fatalf("portfolio.New: %v", err)
	}
	state := store.NewStateStore(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
	rec := &captureRecorder{}
	orch := New(
		source,
		strategy.NewMomentum(30, 0),
		rebalance.NewEngine(risk.Limits{}, zerolog.Nop()),
		book,
		state,
		rec,
		Config{
			Symbols:         []string{"AAPL", "MSFT"},
			HistoryPeriod:   "1y",
			HistoryInterval: "1d",
			Frequency:       freq,
			Clock:           func() time.Time { return cycleTime },
		},
		zerolog.Nop(),
	)
	return &fixture{orch: orch, source: source, state: state, rec: rec, book: book}
}

func TestRunCycleSuccess(t *testing.T) {
	fx := newFixture(t, Daily)

	report := fx.orch.RunCycle(context.Background())
	if report.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", report.Status, report.Reason)
	}
	if !report.Rebalanced || len(report.Orders) == 0 {
		t.Fatalf("expected orders on first cycle, got %+v", report)
	}
	if fx.book.Position("AAPL") == 0 {
		t.Fatalf("expected an AAPL position after rebalance")
	}
	// momentum: AAPL (+20%) outweighs MSFT (+5%)
	aaplValue := decimal.NewFromInt(fx.book.Position("AAPL")).Mul(decimal.NewFromInt(100))
	msftValue := decimal.NewFromInt(fx.book.Position("MSFT")).Mul(decimal.NewFromInt(200))
	if aaplValue.LessThanOrEqual(msftValue) {
		t.Fatalf("higher momentum symbol should carry more value: AAPL=%s MSFT=%s", aaplValue, msftValue)
	}

	// PERSIST ran: state round-trips
	loaded, err := fx.state.Load()
	if err != nil || loaded == nil {
		t.Fatalf("expected persisted state, got %v / %v", loaded, err)
	}
	if loaded.Holdings["AAPL"] != fx.book.Position("AAPL") {
		t.Fatalf("persisted holdings mismatch")
	}
	if len(fx.rec.trades) != len(report.Orders) {
		t.Fatalf("recorder should capture every fill")
	}
	if len(fx.orch.EquityCurve()) != 1 {
		t.Fatalf("expected one equity point, got %d", len(fx.orch.EquityCurve()))
	}
}

func TestRunCycleIdempotentReentry(t *testing.T) {
	fx := newFixture(t, Daily)

	first := fx.orch.RunCycle(context.Background())
	if len(first.Orders) == 0 {
		t.Fatalf("first cycle should trade")
	}
	second := fx.orch.RunCycle(context.Background())
	if second.Status != StatusSuccess {
		t.Fatalf("second cycle failed: %+v", second)
	}
	if len(second.Orders) != 0 {
		t.Fatalf("unchanged market data must produce zero additional orders, got %+v", second.Orders)
	}
}

func TestRunCycleMarketClosed(t *testing.T) {
	fx := newFixture(t, Daily)
	fx.source.liveErr = market.ErrMarketClosed

	report := fx.orch.RunCycle(context.Background())
	if report.Status != StatusFailed || report.Reason != "market_closed" {
		t.Fatalf("expected market_closed failure, got %+v", report)
	}
	// prior persisted state untouched (none was ever written)
	loaded, err := fx.state.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Fatalf("no state should be persisted on a failed fetch")
	}
}

func TestRunCycleDataUnavailable(t *testing.T) {
	fx := newFixture(t, Daily)
	fx.source.liveErr = &market.DataUnavailableError{Reason: "provider down"}

	report := fx.orch.RunCycle(context.Background())
	if report.Status != StatusFailed || report.Reason != "data_unavailable" {
		t.Fatalf("expected data_unavailable failure, got %+v", report)
	}
}

func TestRunCycleCadenceGate(t *testing.T) {
	fx := newFixture(t, Monthly)

	first := fx.orch.RunCycle(context.Background())
	if !first.Rebalanced {
		t.Fatalf("first ever cycle must rebalance")
	}
	second := fx.orch.RunCycle(context.Background())
	if second.Status != StatusSuccess || second.Reason != "cadence" {
		t.Fatalf("expected cadence skip, got %+v", second)
	}
	if second.Rebalanced || len(second.Orders) != 0 {
		t.Fatalf("cadence-gated cycle must not trade: %+v", second)
	}
}

func TestRunCycleDegradesOnPartialPrices(t *testing.T) {
	fx := newFixture(t, Daily)
	// one of the requested symbols has no quote; nothing is held yet so the
	// cycle simply trades the priced one
	delete(fx.source.prices, "MSFT")

	report := fx.orch.RunCycle(context.Background())
	if report.Status != StatusSuccess {
		t.Fatalf("partial prices must still produce a valid cycle, got %+v", report)
	}
	for _, order := range report.Orders {
		if order.Symbol == "MSFT" {
			t.Fatalf("unpriced symbol must not trade")
		}
	}
}

func TestRunCycleStalePricesSkipsCycle(t *testing.T) {
	fx := newFixture(t, Daily)
	first := fx.orch.RunCycle(context.Background())
	if first.Status != StatusSuccess {
		t.Fatalf("setup cycle failed: %+v", first)
	}

	// now a held symbol loses its quote
	delete(fx.source.prices, "AAPL")
	report := fx.orch.RunCycle(context.Background())
	if report.Status != StatusFailed || report.Reason != "stale_prices" {
		t.Fatalf("expected stale_prices failure, got %+v", report)
	}
}

func TestRunCycleNoEligibleSymbolsHoldsPositions(t *testing.T) {
	fx := newFixture(t, Daily)
	first := fx.orch.RunCycle(context.Background())
	if first.Status != StatusSuccess {
		t.Fatalf("setup cycle failed: %+v", first)
	}
	held := fx.book.Position("AAPL")

	// history evaporates below the lookback requirement
	fx.source.history = map[string]market.PriceSeries{
		"AAPL": risingSeries(2, 0.01),
		"MSFT": risingSeries(2, 0.01),
	}
	report := fx.orch.RunCycle(context.Background())
	if report.Status != StatusSuccess {
		t.Fatalf("sparse data must not fail the cycle: %+v", report)
	}
	if len(report.Orders) != 0 {
		t.Fatalf("sparse data must not trade: %+v", report.Orders)
	}
	if fx.book.Position("AAPL") != held {
		t.Fatalf("positions must be held as-is on empty signal")
	}
}

func TestRunCycleHistoryFetchFails(t *testing.T) {
	fx := newFixture(t, Daily)
	fx.source.historyErr = &market.DataUnavailableError{Reason: "no history"}

	report := fx.orch.RunCycle(context.Background())
	if report.Status != StatusFailed || report.Reason != "no_history" {
		t.Fatalf("expected no_history failure, got %+v", report)
	}
	loaded, _ := fx.state.Load()
	if loaded != nil {
		t.Fatalf("nothing may be persisted when the cycle failed before rebalance")
	}
}

func TestRunCyclePersistFailureMarksFailed(t *testing.T) {
	fx := newFixture(t, Daily)
	// point the store at a path whose parent is a file, so Save must fail
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := writeFile(blocker, "x"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	broken := store.NewStateStore(filepath.Join(blocker, "state.json"), zerolog.Nop())
	fx.orch.state = broken

	report := fx.orch.RunCycle(context.Background())
	if report.Status != StatusFailed || report.Reason != "persist_failed" {
		t.Fatalf("expected persist_failed, got %+v", report)
	}
}
