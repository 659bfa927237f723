// Package quote defines the upstream price provider consumed by the metric
// service.
package quote

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the per-troy-ounce price of the tracked metal on one UTC day.
type Quote struct {
	Date time.Time
	Rate decimal.Decimal
}

type Provider interface {
	// Configured reports whether the provider holds an API credential.
	Configured() bool
	Latest(ctx context.Context) (decimal.Decimal, error)
	Timeframe(ctx context.Context, from, to time.Time) ([]Quote, error)
}
