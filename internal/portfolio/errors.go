package portfolio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// InsufficientCashError rejects a BUY whose full cost exceeds available cash.
// Orders are never partially filled.
type InsufficientCashError struct {
	Symbol string
	Cost   decimal.Decimal
	Cash   decimal.Decimal
}

func (e *InsufficientCashError) Error() string {
	return fmt.Sprintf("insufficient cash for %s buy: need %s, have %s", e.Symbol, e.Cost, e.Cash)
}

// InsufficientSharesError rejects a SELL larger than the held position.
type InsufficientSharesError struct {
	Symbol   string
	Quantity int64
	Held     int64
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares for %s sell: need %d, hold %d", e.Symbol, e.Quantity, e.Held)
}

// StalePriceError means a held symbol was missing from the valuation prices.
// Holdings are never silently priced at zero.
type StalePriceError struct {
	Symbols []string
}

func (e *StalePriceError) Error() string {
	symbols := append([]string(nil), e.Symbols...)
	sort.Strings(symbols)
	return fmt.Sprintf("no current price for held symbols: %s", strings.Join(symbols, ", "))
}
