package metric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/metal-tracker/internal/apperror"
	"github.com/ahmethakanbesel/metal-tracker/internal/quote"
)

//go:generate mockgen -package=metric -destination=mock_provider_test.go -source=../quote/quote.go Provider

type Service struct {
	repo     Repository
	provider quote.Provider
	code     string
	now      func() time.Time
}

// NewService builds the service for the source identified by code.
func NewService(repo Repository, provider quote.Provider, code string) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		code:     code,
		now:      time.Now,
	}
}

// SourceCode returns the code of the tracked source.
func (s *Service) SourceCode() string { return s.code }

// FetchLatest reads the latest quote, converts it and appends it to the
// active source's series. A nil value with a nil error means nothing was
// stored: either the API key is missing or no source is active.
func (s *Service) FetchLatest(ctx context.Context) (*Value, error) {
	if !s.provider.Configured() {
		slog.Error("metal price API key missing, skipping live fetch", "code", s.code)
		return nil, nil
	}

	ounce, err := s.provider.Latest(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.Upstream, "fetch latest price", err)
	}
	price := OunceToTenGrams(ounce)

	src, err := s.repo.FindActiveSource(ctx, s.code)
	if err != nil {
		return nil, fmt.Errorf("find source: %w", err)
	}
	if src == nil {
		slog.Warn("no active source, latest price not stored", "code", s.code, "price", price.String())
		return nil, nil
	}

	v := &Value{
		SourceID:   src.ID,
		Value:      price,
		BasePrice:  decimal.NewNullDecimal(ounce),
		RecordedAt: s.now().UTC(),
		Origin:     OriginLive,
	}
	if _, err := s.repo.InsertValue(ctx, v); err != nil {
		return nil, fmt.Errorf("store latest price: %w", err)
	}

	slog.Info("stored latest price", "code", s.code, "price", price.String(), "ounce", ounce.String())
	return v, nil
}

// Reconcile returns the daily series for the inclusive range, fetching and
// persisting only days that are not stored yet. Validation, configuration and
// source lookup failures are returned as errors. An upstream failure is not:
// it is reported through ReconcileResult.OK and Err with the persisted days
// still in Data.
func (s *Service) Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResult, error) {
	from, to, appErr := req.parse()
	if appErr != nil {
		return nil, appErr
	}
	if !s.provider.Configured() {
		return nil, apperror.New(apperror.Config, "metal price API key is not configured")
	}

	days := ExpandDays(from, to)

	src, err := s.repo.FindActiveSource(ctx, s.code)
	if err != nil {
		return nil, fmt.Errorf("find source: %w", err)
	}
	if src == nil {
		return nil, apperror.New(apperror.NotFound, fmt.Sprintf("no active source configured for %s", s.code))
	}

	rows, err := s.repo.FindValuesInRange(ctx, src.ID, StartOfDay(from), EndOfDay(to))
	if err != nil {
		return nil, fmt.Errorf("find values: %w", err)
	}

	// Rows come back ascending, so the last row of a day wins.
	existing := make(map[string]Record, len(rows))
	for _, r := range rows {
		existing[r.Day()] = r.Record()
	}

	missing := missingDays(days, existing)
	if len(missing) == 0 {
		return &ReconcileResult{OK: true, Source: SourcePersisted, Data: assemble(days, existing)}, nil
	}

	slog.Info("backfilling missing days", "code", s.code,
		"from", DayKey(from), "to", DayKey(to), "missing", len(missing), "total", len(days))

	quotes, err := s.provider.Timeframe(ctx, from, to)
	if err != nil {
		slog.Error("timeframe fetch failed, returning persisted days only", "code", s.code, "error", err)
		return &ReconcileResult{
			OK:     false,
			Source: SourcePersisted,
			Data:   assemble(days, existing),
			Err:    apperror.Wrap(apperror.Upstream, "fetch timeframe", err),
		}, nil
	}

	inRange := make(map[string]bool, len(days))
	for _, d := range days {
		inRange[d] = true
	}

	merged := maps.Clone(existing)
	fresh := make([]Value, 0, len(missing))
	for _, q := range quotes {
		key := DayKey(q.Date)
		if !inRange[key] {
			continue
		}
		if _, ok := merged[key]; ok {
			continue
		}
		v := Value{
			SourceID:   src.ID,
			Value:      OunceToTenGrams(q.Rate),
			BasePrice:  decimal.NewNullDecimal(q.Rate),
			RecordedAt: StartOfDay(q.Date),
			Origin:     OriginDaily,
		}
		merged[key] = v.Record()
		fresh = append(fresh, v)
	}

	res := &ReconcileResult{OK: true, Source: SourcePersistedUpstream}
	if req.PersistMissing && len(fresh) > 0 {
		res.Inserted, res.WriteErrors = s.persist(ctx, fresh)
		slog.Info("persisted backfilled days", "code", s.code,
			"new", res.Inserted, "fetched", len(fresh), "failed", len(res.WriteErrors))
	}
	res.Data = assemble(days, merged)
	return res, nil
}

// persist writes values with the set-based insert first and degrades to one
// insert per row when that fails for any reason other than duplicates, which
// the repository already skips. Rows that still fail are returned.
func (s *Service) persist(ctx context.Context, values []Value) (int64, []error) {
	n, err := s.repo.InsertValuesBulk(ctx, values)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, ErrBulkUnsupported) {
		slog.Debug("bulk insert unsupported, inserting rows one by one", "rows", len(values))
	} else {
		slog.Warn("bulk insert failed, inserting rows one by one", "rows", len(values), "error", err)
	}

	var errs []error
	for i := range values {
		ok, err := s.repo.InsertValue(ctx, &values[i])
		if err != nil {
			slog.Error("insert value", "day", values[i].Day(), "error", err)
			errs = append(errs, fmt.Errorf("insert %s: %w", values[i].Day(), err))
			continue
		}
		if ok {
			n++
		}
	}
	return n, errs
}

func missingDays(days []string, have map[string]Record) []string {
	var missing []string
	for _, d := range days {
		if _, ok := have[d]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}

// assemble orders records by days and drops days with no data.
func assemble(days []string, records map[string]Record) []Record {
	out := make([]Record, 0, len(days))
	for _, d := range days {
		if r, ok := records[d]; ok {
			out = append(out, r)
		}
	}
	return out
}
