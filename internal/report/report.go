// Package report computes the day-over-day change of the tracked series.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/metal-tracker/internal/metric"
)

type ValueReader interface {
	FindActiveSource(ctx context.Context, code string) (*metric.Source, error)
	// LastValueBefore returns the latest value with from <= recorded_at < to.
	LastValueBefore(ctx context.Context, sourceID int64, from, to time.Time) (*metric.Value, error)
}

// Daily compares the last value of the previous UTC day with the last value
// of the current one.
type Daily struct {
	SourceName  string          `json:"sourceName"`
	Yesterday   decimal.Decimal `json:"yesterday"`
	Today       decimal.Decimal `json:"today"`
	Change      decimal.Decimal `json:"change"`
	Pct         decimal.Decimal `json:"pct"`
	YesterdayAt time.Time       `json:"yesterdayAt"`
	TodayAt     time.Time       `json:"todayAt"`
}

type Service struct {
	repo ValueReader
	code string
	now  func() time.Time
}

func NewService(repo ValueReader, code string) *Service {
	return &Service{repo: repo, code: code, now: time.Now}
}

// Today is Daily for the current instant.
func (s *Service) Today(ctx context.Context) (*Daily, error) {
	return s.Daily(ctx, s.now())
}

// Daily returns nil without error when either day has no value or no source
// is active.
func (s *Service) Daily(ctx context.Context, at time.Time) (*Daily, error) {
	src, err := s.repo.FindActiveSource(ctx, s.code)
	if err != nil {
		return nil, fmt.Errorf("find source: %w", err)
	}
	if src == nil {
		return nil, nil
	}

	todayStart := metric.StartOfDay(at)
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	tomorrowStart := todayStart.AddDate(0, 0, 1)

	yesterday, err := s.repo.LastValueBefore(ctx, src.ID, yesterdayStart, todayStart)
	if err != nil {
		return nil, fmt.Errorf("yesterday value: %w", err)
	}
	today, err := s.repo.LastValueBefore(ctx, src.ID, todayStart, tomorrowStart)
	if err != nil {
		return nil, fmt.Errorf("today value: %w", err)
	}
	if yesterday == nil || today == nil {
		return nil, nil
	}

	change := today.Value.Sub(yesterday.Value)
	pct := decimal.Zero
	if !yesterday.Value.IsZero() {
		pct = change.Div(yesterday.Value).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return &Daily{
		SourceName:  src.Name,
		Yesterday:   yesterday.Value,
		Today:       today.Value,
		Change:      change,
		Pct:         pct,
		YesterdayAt: yesterday.RecordedAt,
		TodayAt:     today.RecordedAt,
	}, nil
}

// NoDataMessage is sent when Daily returns nil.
const NoDataMessage = "⚠️ No price data available for today or yesterday."

// Format renders d as a chat message with the record time shown in loc.
func Format(d *Daily, currency string, loc *time.Location) string {
	if d == nil {
		return NoDataMessage
	}
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s - Daily Update\n\n", d.SourceName)
	fmt.Fprintf(&b, "Yesterday: %s %s\n", d.Yesterday.StringFixed(2), currency)
	fmt.Fprintf(&b, "Today:     %s %s\n\n", d.Today.StringFixed(2), currency)
	fmt.Fprintf(&b, "Change: %s %s (%s%%)\n", signed(d.Change), currency, signed(d.Pct))
	fmt.Fprintf(&b, "Recorded at: %s", d.TodayAt.In(loc).Format("02 Jan 2006 15:04 MST"))
	return b.String()
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}
