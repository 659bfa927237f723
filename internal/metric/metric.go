package metric

import (
	"time"

	"github.com/shopspring/decimal"
)

// Origin tells live polling rows apart from backfilled daily rows. Only
// daily rows are unique per (source, day).
type Origin string

const (
	OriginLive  Origin = "live"
	OriginDaily Origin = "daily"
)

// Series provenance reported by Reconcile.
const (
	SourcePersisted         = "persisted"
	SourcePersistedUpstream = "persisted+upstream"
)

type Source struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type Value struct {
	ID         int64
	SourceID   int64
	Value      decimal.Decimal
	BasePrice  decimal.NullDecimal
	RecordedAt time.Time
	Origin     Origin
}

// Day returns the UTC day key the value belongs to.
func (v Value) Day() string { return DayKey(v.RecordedAt) }

func (v Value) Record() Record {
	return Record{
		Date:          v.Day(),
		OunceUnit:     v.BasePrice,
		ConvertedUnit: v.Value,
	}
}

// Record is one day of a reconciled series.
type Record struct {
	Date          string
	OunceUnit     decimal.NullDecimal
	ConvertedUnit decimal.Decimal
}
