// Package market defines the market-data provider contract.
package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/carteira/internal/frame"
)

// Request asks for daily bars of one symbol over [Start, End).
type Request struct {
	Symbol     string
	Start      time.Time
	End        time.Time // exclusive
	AutoAdjust bool      // false requests raw, unadjusted prices
}

// Validate checks the request before it goes on the wire.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return fmt.Errorf("market: missing symbol")
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("market: missing date range")
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("market: start %s must be before end %s",
			r.Start.Format(frame.DateLayout), r.End.Format(frame.DateLayout))
	}
	return nil
}

// Provider returns the daily price series for a request. A symbol with no
// data in range yields an empty frame and a nil error.
type Provider interface {
	Download(ctx context.Context, req Request) (*frame.Frame, error)
	Name() string
}
