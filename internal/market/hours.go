package market

import "time"

// IsMarketOpen reports whether US equities are trading at the given instant.
// Approximate regular session: 14:30-21:00 UTC, weekdays only. Holidays are
// not modeled; a holiday fetch simply returns stale closes.
func IsMarketOpen(now time.Time) bool {
	now = now.UTC()
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	open := time.Date(now.Year(), now.Month(), now.Day(), 14, 30, 0, 0, time.UTC)
	end := time.Date(now.Year(), now.Month(), now.Day(), 21, 0, 0, 0, time.UTC)
	return !now.Before(open) && !now.After(end)
}
