package metric

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/ahmethakanbesel/metal-tracker/internal/metric"
)

// instantFormat is fixed width so recorded_at sorts and compares as text.
const instantFormat = "2006-01-02T15:04:05.000000000Z"

const valueColumns = `id, source_id, value, base_price, recorded_at, origin`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSource creates the source if its code is unknown and returns the
// stored row either way. An existing row is left untouched.
func (r *Repository) EnsureSource(ctx context.Context, code, name string) (*domain.Source, error) {
	const query = `INSERT INTO metric_sources (code, name) VALUES (?, ?)
		ON CONFLICT(code) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, code, name); err != nil {
		return nil, fmt.Errorf("ensure source: %w", err)
	}
	return r.findSource(ctx, `WHERE code = ?`, code)
}

// SetSourceActive flips the active flag and reports whether the code exists.
func (r *Repository) SetSourceActive(ctx context.Context, code string, active bool) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE metric_sources SET is_active = ? WHERE code = ?`, active, code)
	if err != nil {
		return false, fmt.Errorf("set source active: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repository) FindActiveSource(ctx context.Context, code string) (*domain.Source, error) {
	return r.findSource(ctx, `WHERE code = ? AND is_active = 1`, code)
}

func (r *Repository) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, code, name, is_active, created_at
		FROM metric_sources WHERE is_active = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := []domain.Source{}
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *s)
	}
	return sources, rows.Err()
}

func (r *Repository) findSource(ctx context.Context, where string, args ...any) (*domain.Source, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, code, name, is_active, created_at
		FROM metric_sources `+where+` LIMIT 1`, args...)

	s, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *Repository) FindValuesInRange(ctx context.Context, sourceID int64, from, to time.Time) ([]domain.Value, error) {
	return r.listValues(ctx, `WHERE source_id = ? AND recorded_at >= ? AND recorded_at <= ?
		ORDER BY recorded_at ASC, id ASC`,
		sourceID, formatInstant(from), formatInstant(to))
}

// LastValueBefore returns the latest value with from <= recorded_at < to,
// or nil when there is none.
func (r *Repository) LastValueBefore(ctx context.Context, sourceID int64, from, to time.Time) (*domain.Value, error) {
	values, err := r.listValues(ctx, `WHERE source_id = ? AND recorded_at >= ? AND recorded_at < ?
		ORDER BY recorded_at DESC, id DESC LIMIT 1`,
		sourceID, formatInstant(from), formatInstant(to))
	if err != nil || len(values) == 0 {
		return nil, err
	}
	return &values[0], nil
}

func (r *Repository) LatestValue(ctx context.Context, sourceID int64) (*domain.Value, error) {
	values, err := r.listValues(ctx, `WHERE source_id = ? ORDER BY recorded_at DESC, id DESC LIMIT 1`, sourceID)
	if err != nil || len(values) == 0 {
		return nil, err
	}
	return &values[0], nil
}

// History returns the oldest limit values of the source, ascending.
func (r *Repository) History(ctx context.Context, sourceID int64, limit int) ([]domain.Value, error) {
	return r.listValues(ctx, `WHERE source_id = ? ORDER BY recorded_at ASC, id ASC LIMIT ?`, sourceID, limit)
}

func (r *Repository) InsertValue(ctx context.Context, v *domain.Value) (bool, error) {
	const query = `INSERT OR IGNORE INTO metric_values
		(source_id, value, base_price, recorded_at, day, origin)
		VALUES (?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, valueArgs(*v)...)
	if err != nil {
		return false, fmt.Errorf("insert value: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}
	v.ID, _ = res.LastInsertId()
	return true, nil
}

func (r *Repository) InsertValuesBulk(ctx context.Context, values []domain.Value) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}

	const batchSize = 500
	var total int64

	for i := 0; i < len(values); i += batchSize {
		end := min(i+batchSize, len(values))
		batch := values[i:end]

		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*6)
		for j, v := range batch {
			placeholders[j] = "(?, ?, ?, ?, ?, ?)"
			args = append(args, valueArgs(v)...)
		}

		query := fmt.Sprintf( //nolint:gosec // placeholders are not user input
			"INSERT OR IGNORE INTO metric_values (source_id, value, base_price, recorded_at, day, origin) VALUES %s",
			strings.Join(placeholders, ", "),
		)

		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("insert values: %w", err)
		}

		n, _ := res.RowsAffected()
		total += n
	}

	return total, nil
}

func (r *Repository) listValues(ctx context.Context, tail string, args ...any) ([]domain.Value, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+valueColumns+` FROM metric_values `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("list values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var values []domain.Value
	for rows.Next() {
		var v domain.Value
		var recordedStr, origin string
		if err := rows.Scan(&v.ID, &v.SourceID, &v.Value, &v.BasePrice, &recordedStr, &origin); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		v.RecordedAt, err = time.Parse(instantFormat, recordedStr)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at %q: %w", recordedStr, err)
		}
		v.Origin = domain.Origin(origin)
		values = append(values, v)
	}

	return values, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(s scanner) (*domain.Source, error) {
	var src domain.Source
	var createdStr string
	if err := s.Scan(&src.ID, &src.Code, &src.Name, &src.Active, &createdStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return &src, nil
}

func valueArgs(v domain.Value) []any {
	return []any{
		v.SourceID,
		v.Value,
		v.BasePrice,
		formatInstant(v.RecordedAt),
		domain.DayKey(v.RecordedAt),
		string(v.Origin),
	}
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(instantFormat)
}
