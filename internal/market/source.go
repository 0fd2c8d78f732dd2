package market

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// ProviderYahoo polls the Yahoo Finance v8 chart API over HTTPS.
	ProviderYahoo = "yahoo"
	// ProviderStub emits deterministic synthetic prices (useful for tests/offline work).
	ProviderStub = "stub"
)

// Source is a pluggable market-data provider. Implementations normalize
// whatever shape the venue returns into uniform per-symbol maps; symbols with
// no usable data are left out rather than reported as errors.
type Source interface {
	// LivePrices returns the latest close for each symbol it can price.
	// Returns ErrMarketClosed outside trading hours and DataUnavailableError
	// when no symbol could be priced at all.
	LivePrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)

	// HistoricalData returns an ordered close series per symbol for the given
	// period ("1y", "6mo", ...) and bar interval ("1d", "1h", ...).
	HistoricalData(ctx context.Context, symbols []string, period, interval string) (map[string]PriceSeries, error)
}

// Options tunes provider construction.
type Options struct {
	BaseURL         string
	RequestTimeout  time.Duration
	IgnoreMarketHrs bool
	Clock           func() time.Time
}

// NewSource builds the provider named by the config.
func NewSource(provider string, opts Options, log zerolog.Logger) (Source, error) {
	switch provider {
	case ProviderYahoo:
		return NewYahooSource(opts, log), nil
	case ProviderStub:
		return NewStubSource(opts.Clock), nil
	default:
		return nil, fmt.Errorf("unknown market provider %q", provider)
	}
}
