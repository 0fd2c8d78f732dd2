package portfolio

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testTime = time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)

func newTestPortfolio(t *testing.T, capital int64) *Portfolio {
	t.Helper()
	p, err := New(decimal.NewFromInt(capital))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return p
}

func mustApply(t *testing.T, p *Portfolio, order Order) TradeRecord {
	t.Helper()
	record, err := p.ApplyOrder(order, testTime)
	if err != nil {
		t.Fatalf("ApplyOrder(%+v) returned error: %v", order, err)
	}
	return record
}

func TestNewRejectsNonPositiveCapital(t *testing.T) {
	if _, err := New(decimal.Zero); err == nil {
		t.Fatalf("expected error for zero capital")
	}
	if _, err := New(decimal.NewFromInt(-5)); err == nil {
		t.Fatalf("expected error for negative capital")
	}
}

func TestApplyOrderBuySell(t *testing.T) {
	p := newTestPortfolio(t, 10000)

	record := mustApply(t, p, Order{Symbol: "AAPL", Side: Buy, Quantity: 10, Price: decimal.NewFromInt(150)})
	if !record.ResultingCash.Equal(decimal.NewFromInt(8500)) {
		t.Fatalf("expected resulting cash 8500, got %s", record.ResultingCash)
	}
	if p.Position("AAPL") != 10 {
		t.Fatalf("expected 10 shares, got %d", p.Position("AAPL"))
	}

	record = mustApply(t, p, Order{Symbol: "AAPL", Side: Sell, Quantity: 4, Price: decimal.NewFromInt(160)})
	if !record.ResultingCash.Equal(decimal.NewFromInt(9140)) {
		t.Fatalf("expected resulting cash 9140, got %s", record.ResultingCash)
	}
	if p.Position("AAPL") != 6 {
		t.Fatalf("expected 6 shares, got %d", p.Position("AAPL"))
	}

	trades := p.Trades()
	if len(trades) != 2 {
		t.Fatalf("expected 2 trade records, got %d", len(trades))
	}
	if trades[0].Side != Buy || trades[1].Side != Sell {
		t.Fatalf("unexpected trade sides: %+v", trades)
	}
}

func TestApplyOrderFullExitRemovesHolding(t *testing.T) {
	p := newTestPortfolio(t, 10000)
	mustApply(t, p, Order{Symbol: "MSFT", Side: Buy, Quantity: 5, Price: decimal.NewFromInt(100)})
	mustApply(t, p, Order{Symbol: "MSFT", Side: Sell, Quantity: 5, Price: decimal.NewFromInt(110)})

	holdings := p.Holdings()
	if _, ok := holdings["MSFT"]; ok {
		t.Fatalf("zero-share holding must be removed from the map: %+v", holdings)
	}
}

func TestApplyOrderInsufficientCash(t *testing.T) {
	p := newTestPortfolio(t, 100)
	_, err := p.ApplyOrder(Order{Symbol: "AAPL", Side: Buy, Quantity: 1, Price: decimal.NewFromInt(150)}, testTime)
	var insufficient *InsufficientCashError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientCashError, got %v", err)
	}
	// rejected whole: no partial fill, no state change
	if !p.Cash().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("cash must be untouched after rejection, got %s", p.Cash())
	}
	if len(p.Trades()) != 0 {
		t.Fatalf("no trade record should exist after rejection")
	}
}

func TestApplyOrderInsufficientShares(t *testing.T) {
	p := newTestPortfolio(t, 10000)
	mustApply(t, p, Order{Symbol: "AAPL", Side: Buy, Quantity: 3, Price: decimal.NewFromInt(100)})

	_, err := p.ApplyOrder(Order{Symbol: "AAPL", Side: Sell, Quantity: 4, Price: decimal.NewFromInt(100)}, testTime)
	var insufficient *InsufficientSharesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientSharesError, got %v", err)
	}
	if p.Position("AAPL") != 3 {
		t.Fatalf("position must be untouched after rejection")
	}
}

func TestApplyOrderValidation(t *testing.T) {
	p := newTestPortfolio(t, 1000)
	if _, err := p.ApplyOrder(Order{Symbol: "AAPL", Side: Buy, Quantity: 0, Price: decimal.NewFromInt(10)}, testTime); err == nil {
		t.Fatalf("expected error for zero quantity")
	}
	if _, err := p.ApplyOrder(Order{Symbol: "AAPL", Side: Buy, Quantity: 1, Price: decimal.Zero}, testTime); err == nil {
		t.Fatalf("expected error for zero price")
	}
	if _, err := p.ApplyOrder(Order{Symbol: "AAPL", Side: "HOLD", Quantity: 1, Price: decimal.NewFromInt(10)}, testTime); err == nil {
		t.Fatalf("expected error for unknown side")
	}
	if _, err := p.ApplyOrder(Order{Symbol: "AAPL", Side: Buy, Quantity: 1, Price: decimal.NewFromInt(10)}, time.Time{}); err == nil {
		t.Fatalf("expected error for zero timestamp")
	}
}

func TestMarketValue(t *testing.T) {
	p := newTestPortfolio(t, 10000)
	mustApply(t, p, Order{Symbol: "AAPL", Side: Buy, Quantity: 10, Price: decimal.NewFromInt(150)})
	mustApply(t, p, Order{Symbol: "MSFT", Side: Buy, Quantity: 5, Price: decimal.NewFromInt(300)})

	prices := map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(155),
		"MSFT": decimal.NewFromInt(310),
	}
	value, err := p.MarketValue(prices)
	if err != nil {
		t.Fatalf("MarketValue returned error: %v", err)
	}
	// cash 7000 + 10*155 + 5*310
	if !value.Equal(decimal.NewFromInt(10100)) {
		t.Fatalf("expected 10100, got %s", value)
	}
}

func TestMarketValueStalePrice(t *testing.T) {
	p := newTestPortfolio(t, 10000)
	mustApply(t, p, Order{Symbol: "AAPL", Side: Buy, Quantity: 1, Price: decimal.NewFromInt(100)})

	_, err := p.MarketValue(map[string]decimal.Decimal{})
	var stale *StalePriceError
	if !errors.As(err, &stale) {
		t.Fatalf("expected StalePriceError, got %v", err)
	}
	if len(stale.Symbols) != 1 || stale.Symbols[0] != "AAPL" {
		t.Fatalf("expected AAPL reported stale, got %+v", stale.Symbols)
	}
}

// Conservation: applying any order sequence never creates or destroys value
// when positions are priced at each order's own reference price.
func TestApplyOrderConservesValue(t *testing.T) {
	p := newTestPortfolio(t, 50000)
	orders := []Order{
		{Symbol: "AAPL", Side: Buy, Quantity: 100, Price: decimal.NewFromFloat(151.25)},
		{Symbol: "MSFT", Side: Buy, Quantity: 40, Price: decimal.NewFromFloat(310.10)},
		{Symbol: "AAPL", Side: Sell, Quantity: 30, Price: decimal.NewFromFloat(151.25)},
		{Symbol: "NVDA", Side: Buy, Quantity: 25, Price: decimal.NewFromFloat(480.00)},
		{Symbol: "MSFT", Side: Sell, Quantity: 40, Price: decimal.NewFromFloat(310.10)},
	}
	for _, order := range orders {
		before := p.Cash().Add(decimal.NewFromInt(p.Position(order.Symbol)).Mul(order.Price))
		mustApply(t, p, order)
		after := p.Cash().Add(decimal.NewFromInt(p.Position(order.Symbol)).Mul(order.Price))
		if !before.Equal(after) {
			t.Fatalf("value not conserved across %+v: %s -> %s", order, before, after)
		}
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	p := newTestPortfolio(t, 25000)
	mustApply(t, p, Order{Symbol: "AAPL", Side: Buy, Quantity: 10, Price: decimal.NewFromFloat(150.55)})
	p.RecordValuation(testTime, decimal.NewFromInt(25010))

	restored, err := Restore(p.Snapshot())
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if !restored.Cash().Equal(p.Cash()) {
		t.Fatalf("cash mismatch: %s vs %s", restored.Cash(), p.Cash())
	}
	if restored.Position("AAPL") != 10 {
		t.Fatalf("holding mismatch")
	}
	origTrades, newTrades := p.Trades(), restored.Trades()
	if len(newTrades) != len(origTrades) {
		t.Fatalf("trade history length mismatch")
	}
	if !newTrades[0].Time.Equal(origTrades[0].Time) {
		t.Fatalf("timestamp not preserved: %s vs %s", newTrades[0].Time, origTrades[0].Time)
	}
	if restored.LastRebalance() != testTime {
		t.Fatalf("expected last rebalance %s, got %s", testTime, restored.LastRebalance())
	}
}

func TestRestoreRejectsNegativeState(t *testing.T) {
	base := State{
		InitialCapital: decimal.NewFromInt(1000),
		Cash:           decimal.NewFromInt(-1),
		Holdings:       map[string]int64{},
	}
	if _, err := Restore(base); err == nil {
		t.Fatalf("expected error for negative cash")
	}

	base.Cash = decimal.NewFromInt(10)
	base.Holdings = map[string]int64{"AAPL": -5}
	if _, err := Restore(base); err == nil {
		t.Fatalf("expected error for negative holding")
	}
}

func TestRestoreDropsZeroShareEntries(t *testing.T) {
	state := State{
		InitialCapital: decimal.NewFromInt(1000),
		Cash:           decimal.NewFromInt(1000),
		Holdings:       map[string]int64{"AAPL": 0, "MSFT": 2},
	}
	p, err := Restore(state)
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	holdings := p.Holdings()
	if _, ok := holdings["AAPL"]; ok {
		t.Fatalf("zero-share entry should be dropped on restore")
	}
	if holdings["MSFT"] != 2 {
		t.Fatalf("expected MSFT holding preserved")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	p := newTestPortfolio(t, 1000)
	mustApply(t, p, Order{Symbol: "AAPL", Side: Buy, Quantity: 1, Price: decimal.NewFromInt(100)})

	snap := p.Snapshot()
	snap.Holdings["AAPL"] = 999
	snap.TradeHistory[0].Quantity = 999

	if p.Position("AAPL") != 1 {
		t.Fatalf("mutating snapshot leaked into portfolio holdings")
	}
	if p.Trades()[0].Quantity != 1 {
		t.Fatalf("mutating snapshot leaked into trade history")
	}
}

func TestRecordValuationReturnPct(t *testing.T) {
	p := newTestPortfolio(t, 10000)
	point := p.RecordValuation(testTime, decimal.NewFromInt(11000))
	if point.ReturnPct < 9.999 || point.ReturnPct > 10.001 {
		t.Fatalf("expected ~10%% return, got %f", point.ReturnPct)
	}
	if len(p.ValueHistory()) != 1 {
		t.Fatalf("expected one equity point")
	}
}
