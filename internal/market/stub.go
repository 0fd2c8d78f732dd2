package market

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/shopspring/decimal"
)

// stubAnchor pins synthetic prices to a fixed epoch so a symbol's price on a
// given day is identical across runs.
var stubAnchor = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// StubSource emits deterministic synthetic prices so the trader and its tests
// can run without network access. Each symbol gets a stable base price and a
// stable daily drift derived from its name, so momentum rankings are
// reproducible across runs.
type StubSource struct {
	clock func() time.Time
}

// NewStubSource builds the synthetic provider. A nil clock means time.Now.
func NewStubSource(clock func() time.Time) *StubSource {
	if clock == nil {
		clock = time.Now
	}
	return &StubSource{clock: clock}
}

// LivePrices returns today's synthetic close for every symbol.
func (s *StubSource) LivePrices(_ context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	day := s.clock().UTC().Truncate(24 * time.Hour)
	prices := make(map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		prices[symbol] = syntheticClose(symbol, day)
	}
	return prices, nil
}

// HistoricalData returns one synthetic daily bar per calendar day covering the
// requested period. The interval parameter is accepted for interface parity
// but bars are always daily.
func (s *StubSource) HistoricalData(_ context.Context, symbols []string, period, _ string) (map[string]PriceSeries, error) {
	days := periodDays(period)
	end := s.clock().UTC().Truncate(24 * time.Hour)
	history := make(map[string]PriceSeries, len(symbols))
	for _, symbol := range symbols {
		series := make(PriceSeries, 0, days)
		for i := days - 1; i >= 0; i-- {
			day := end.AddDate(0, 0, -i)
			series = append(series, Point{Time: day, Close: syntheticClose(symbol, day)})
		}
		history[symbol] = series
	}
	return history, nil
}

// syntheticClose prices a symbol on a given day: a hashed base price with a
// hashed linear daily drift, floored well above zero.
func syntheticClose(symbol string, day time.Time) decimal.Decimal {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	seed := h.Sum32()

	base := 50.0 + float64(seed%200)
	driftPerDay := -0.02 + float64(seed%7)*0.01 // -0.02 .. +0.04 per day
	days := day.Sub(stubAnchor).Hours() / 24

	price := base + driftPerDay*days
	if price < 1 {
		price = 1
	}
	return decimal.NewFromFloat(price).Round(4)
}

func periodDays(period string) int {
	switch period {
	case "1mo":
		return 30
	case "3mo":
		return 91
	case "6mo":
		return 182
	case "2y":
		return 730
	default: // "1y"
		return 365
	}
}
