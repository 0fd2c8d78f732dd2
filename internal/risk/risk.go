// Package risk holds guard-rails applied to every generated order.
package risk

import "github.com/shopspring/decimal"

// Limits caps how much size a single order may take on. A zero limit disables
// the check.
type Limits struct {
	MaxNotionalPerTrade decimal.Decimal
}

// Allow reports whether an order of the given notional may be placed.
func (l Limits) Allow(notional decimal.Decimal) bool {
	if l.MaxNotionalPerTrade.Sign() <= 0 {
		return true
	}
	return notional.LessThanOrEqual(l.MaxNotionalPerTrade)
}
