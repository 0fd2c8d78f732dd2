// Package report derives read-only performance views from persisted state.
// Nothing here mutates the ledger.
package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vicanso/go-charts/v2"

	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/portfolio"
)

// ErrNoHistory means the portfolio has never recorded a valuation.
var ErrNoHistory = errors.New("no portfolio history available")

// Performance aggregates the headline numbers for one portfolio.
type Performance struct {
	InitialCapital decimal.Decimal
	CurrentValue   decimal.Decimal
	TotalReturnPct float64
	MaxValue       decimal.Decimal
	MinValue       decimal.Decimal
	TradeCount     int
}

// Summarize computes performance from a snapshot.
func Summarize(state portfolio.State) (Performance, error) {
	if len(state.ValueHistory) == 0 {
		return Performance{}, ErrNoHistory
	}

	perf := Performance{
		InitialCapital: state.InitialCapital,
		TradeCount:     len(state.TradeHistory),
		MaxValue:       state.ValueHistory[0].Value,
		MinValue:       state.ValueHistory[0].Value,
	}
	for _, point := range state.ValueHistory {
		if point.Value.GreaterThan(perf.MaxValue) {
			perf.MaxValue = point.Value
		}
		if point.Value.LessThan(perf.MinValue) {
			perf.MinValue = point.Value
		}
	}
	last := state.ValueHistory[len(state.ValueHistory)-1]
	perf.CurrentValue = last.Value
	perf.TotalReturnPct = last.ReturnPct
	return perf, nil
}

// String renders the metrics as a fixed-width console block.
func (p Performance) String() string {
	var b strings.Builder
	line := strings.Repeat("=", 60)
	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "PERFORMANCE METRICS")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "Initial Capital: $%s\n", p.InitialCapital.StringFixed(2))
	fmt.Fprintf(&b, "Current Value:   $%s\n", p.CurrentValue.StringFixed(2))
	fmt.Fprintf(&b, "Total Return:    %+.2f%%\n", p.TotalReturnPct)
	fmt.Fprintf(&b, "Max Value:       $%s\n", p.MaxValue.StringFixed(2))
	fmt.Fprintf(&b, "Min Value:       $%s\n", p.MinValue.StringFixed(2))
	fmt.Fprintf(&b, "Total Trades:    %d\n", p.TradeCount)
	fmt.Fprint(&b, line)
	return b.String()
}

// EquityCurvePNG renders the portfolio value series as a line chart.
func EquityCurvePNG(points []portfolio.ValuePoint, title string) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoHistory
	}

	xAxis := make([]string, 0, len(points))
	values := make([]float64, 0, len(points))
	for _, point := range points {
		xAxis = append(xAxis, point.Time.Format("2006-01-02"))
		values = append(values, point.Value.InexactFloat64())
	}

	painter, err := charts.LineRender([][]float64{values},
		charts.TitleTextOptionFunc(title),
		charts.XAxisDataOptionFunc(xAxis),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("render equity curve: %w", err)
	}
	img, err := painter.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode equity curve: %w", err)
	}
	return img, nil
}
