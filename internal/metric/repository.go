package metric

import (
	"context"
	"errors"
	"time"
)

// ErrBulkUnsupported may be returned by InsertValuesBulk when the store has
// no set-based write. Reconcile then writes rows one at a time.
var ErrBulkUnsupported = errors.New("bulk insert not supported")

type Repository interface {
	// FindActiveSource returns nil, nil when no active source has the code.
	FindActiveSource(ctx context.Context, code string) (*Source, error)
	// FindValuesInRange returns values with from <= recorded_at <= to,
	// ascending by recorded_at.
	FindValuesInRange(ctx context.Context, sourceID int64, from, to time.Time) ([]Value, error)
	// InsertValue reports false when the row was skipped as a duplicate day.
	InsertValue(ctx context.Context, v *Value) (bool, error)
	// InsertValuesBulk skips duplicate days and returns the number of rows written.
	InsertValuesBulk(ctx context.Context, values []Value) (int64, error)
}
