package metric

import (
	"fmt"
	"time"

	"github.com/ahmethakanbesel/metal-tracker/internal/apperror"
)

// MaxRangeDays is the longest inclusive range a reconcile request may span.
// It matches the upstream timeframe limit, so a valid request never costs
// more than one upstream call.
const MaxRangeDays = 365

type ReconcileRequest struct {
	Start          string
	End            string
	PersistMissing bool
}

func (r ReconcileRequest) Validate() *apperror.AppError {
	_, _, err := r.parse()
	return err
}

func (r ReconcileRequest) parse() (time.Time, time.Time, *apperror.AppError) {
	start, err := ParseDay(r.Start)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.New(apperror.BadRequest, "invalid start date, expected YYYY-MM-DD")
	}
	end, err := ParseDay(r.End)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.New(apperror.BadRequest, "invalid end date, expected YYYY-MM-DD")
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, apperror.New(apperror.BadRequest, "start date must not be after end date")
	}
	if end.Sub(start) >= MaxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, apperror.New(apperror.BadRequest,
			fmt.Sprintf("date range must not exceed %d days", MaxRangeDays))
	}
	return start, end, nil
}

// ReconcileResult is a partial-success response: when OK is false, Err holds
// the upstream failure and Data still carries every persisted day.
type ReconcileResult struct {
	OK     bool
	Source string
	Data   []Record
	Err    error

	// Inserted counts rows written by this call. WriteErrors lists rows the
	// per-row fallback could not store; they are still present in Data.
	Inserted    int64
	WriteErrors []error
}
