package engine

import (
	"fmt"
	"time"
)

// Frequency is how often the strategy is allowed to rebalance. Cycles still
// fire on every scheduler tick; the frequency only gates order generation.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// ParseFrequency validates a config string.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case Daily, Weekly, Monthly:
		return Frequency(s), nil
	default:
		return "", fmt.Errorf("unknown rebalance frequency %q", s)
	}
}

// Due reports whether a rebalance should run now given the last one. A zero
// last time always rebalances (first run).
func (f Frequency) Due(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	last, now = last.UTC(), now.UTC()
	switch f {
	case Daily:
		return true
	case Weekly:
		return now.Sub(last) >= 7*24*time.Hour
	case Monthly:
		return now.Month() != last.Month() || now.Year() != last.Year()
	default:
		return false
	}
}
