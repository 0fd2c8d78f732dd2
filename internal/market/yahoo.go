package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var defaultYahooBases = []string{
	"https://query1.finance.yahoo.com",
	"https://query2.finance.yahoo.com",
}

var yahooBackoffs = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}

type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// YahooSource fetches quotes and daily history from the Yahoo Finance v8
// chart endpoint, rotating across query hosts with backoff on failure.
type YahooSource struct {
	client          *http.Client
	bases           []string
	log             zerolog.Logger
	ignoreMarketHrs bool
	clock           func() time.Time
}

// NewYahooSource builds a Yahoo-backed provider.
func NewYahooSource(opts Options, log zerolog.Logger) *YahooSource {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	bases := defaultYahooBases
	if opts.BaseURL != "" {
		bases = []string{strings.TrimSuffix(opts.BaseURL, "/")}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &YahooSource{
		client:          &http.Client{Timeout: timeout},
		bases:           bases,
		log:             log,
		ignoreMarketHrs: opts.IgnoreMarketHrs,
		clock:           clock,
	}
}

// LivePrices fetches the latest 5m close for each symbol. Symbols that cannot
// be priced are excluded from the result; the fetch only fails outright when
// the market is closed or nothing could be priced at all.
func (y *YahooSource) LivePrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	if !y.ignoreMarketHrs && !IsMarketOpen(y.clock()) {
		return nil, ErrMarketClosed
	}

	prices := make(map[string]decimal.Decimal, len(symbols))
	var lastErr error
	for _, symbol := range symbols {
		_, closes, err := y.fetchChart(ctx, symbol, "1d", "5m")
		if err != nil {
			lastErr = err
			y.log.Warn().Str("symbol", symbol).Err(err).Msg("no live price")
			continue
		}
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] > 0 {
				prices[symbol] = decimal.NewFromFloat(closes[i])
				break
			}
		}
	}
	if len(prices) == 0 {
		return nil, &DataUnavailableError{Reason: "no symbol could be priced", Err: lastErr}
	}
	return prices, nil
}

// HistoricalData fetches an ordered close series per symbol. Symbols with no
// usable bars are excluded rather than failing the whole fetch.
func (y *YahooSource) HistoricalData(ctx context.Context, symbols []string, period, interval string) (map[string]PriceSeries, error) {
	history := make(map[string]PriceSeries, len(symbols))
	var lastErr error
	for _, symbol := range symbols {
		timestamps, closes, err := y.fetchChart(ctx, symbol, period, interval)
		if err != nil {
			lastErr = err
			y.log.Warn().Str("symbol", symbol).Err(err).Msg("no historical data")
			continue
		}
		series := make(PriceSeries, 0, len(timestamps))
		for i, ts := range timestamps {
			if i >= len(closes) || closes[i] <= 0 {
				continue
			}
			point := time.Unix(ts, 0).UTC()
			if last, ok := series.Last(); ok && !point.After(last.Time) {
				continue
			}
			series = append(series, Point{Time: point, Close: decimal.NewFromFloat(closes[i])})
		}
		if len(series) > 0 {
			history[symbol] = series
		}
	}
	if len(history) == 0 {
		return nil, &DataUnavailableError{Reason: "no historical series available", Err: lastErr}
	}
	return history, nil
}

// fetchChart pulls raw bars for one symbol, retrying across hosts with backoff.
func (y *YahooSource) fetchChart(ctx context.Context, symbol, rng, interval string) ([]int64, []float64, error) {
	var lastErr error
	for attempt := 0; attempt <= len(yahooBackoffs); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(yahooBackoffs[attempt-1]):
			}
		}
		for _, base := range y.bases {
			timestamps, closes, err := y.fetchChartOnce(ctx, base, symbol, rng, interval)
			if err == nil {
				return timestamps, closes, nil
			}
			lastErr = err
		}
	}
	return nil, nil, lastErr
}

func (y *YahooSource) fetchChartOnce(ctx context.Context, base, symbol, rng, interval string) ([]int64, []float64, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s&includePrePost=false", base, symbol, rng, interval)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, nil, fmt.Errorf("read yahoo response: %w", readErr)
	}
	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 120 {
			preview = preview[:120]
		}
		return nil, nil, fmt.Errorf("yahoo returned %d: %s", resp.StatusCode, preview)
	}
	if strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:") {
		return nil, nil, fmt.Errorf("yahoo returned non-json body")
	}

	var yc yahooChartResp
	if err := json.Unmarshal(body, &yc); err != nil {
		return nil, nil, fmt.Errorf("decode yahoo response: %w", err)
	}
	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil, fmt.Errorf("no data for %s", symbol)
	}
	result := yc.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote[0].Close) == 0 {
		return nil, nil, fmt.Errorf("empty bars for %s", symbol)
	}
	return result.Timestamp, result.Indicators.Quote[0].Close, nil
}
