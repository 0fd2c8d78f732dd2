package market

import (
	"errors"
	"fmt"
)

// ErrMarketClosed indicates the venue is outside trading hours. The caller is
// expected to skip the cycle and retry on the next tick.
var ErrMarketClosed = errors.New("market closed")

// DataUnavailableError indicates the provider could not supply any usable data
// for a fetch. Single-symbol gaps are not reported this way; those symbols are
// simply absent from the result maps.
type DataUnavailableError struct {
	Reason string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("market data unavailable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("market data unavailable: %s", e.Reason)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }
