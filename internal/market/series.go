// Package market hosts quote providers and the series types consumed by the signal layer.
package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Point is a single close observation in a price series.
type Point struct {
	Time  time.Time
	Close decimal.Decimal
}

// PriceSeries is an ordered run of close prices for one symbol. Timestamps are
// strictly increasing and always carry a UTC offset.
type PriceSeries []Point

// Last returns the most recent observation.
func (s PriceSeries) Last() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[len(s)-1], true
}

// At returns the observation n periods before the most recent one.
func (s PriceSeries) At(periodsAgo int) (Point, bool) {
	idx := len(s) - 1 - periodsAgo
	if idx < 0 || idx >= len(s) {
		return Point{}, false
	}
	return s[idx], true
}

// Append adds an observation, normalizing the timestamp to UTC. Out-of-order
// or duplicate timestamps are rejected so a series can never go backwards.
func (s PriceSeries) Append(ts time.Time, close decimal.Decimal) (PriceSeries, error) {
	ts = ts.UTC()
	if last, ok := s.Last(); ok && !ts.After(last.Time) {
		return s, fmt.Errorf("timestamp %s not after %s", ts, last.Time)
	}
	return append(s, Point{Time: ts, Close: close}), nil
}
