package metric

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/ahmethakanbesel/metal-tracker/internal/metric"
	"github.com/ahmethakanbesel/metal-tracker/internal/platform/sqlite"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func setupSource(t *testing.T, repo *Repository) *domain.Source {
	t.Helper()
	src, err := repo.EnsureSource(context.Background(), "GOLD_INR", "Gold Price in INR")
	if err != nil {
		t.Fatalf("ensure source: %v", err)
	}
	return src
}

func daily(sourceID int64, y, m, d int, price int64) domain.Value {
	return domain.Value{
		SourceID:   sourceID,
		Value:      decimal.NewFromInt(price),
		BasePrice:  decimal.NewNullDecimal(decimal.RequireFromString("250000.125")),
		RecordedAt: time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC),
		Origin:     domain.OriginDaily,
	}
}

func countValues(t *testing.T, db *sqlite.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM metric_values`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestEnsureSource_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()

	first := setupSource(t, repo)
	second, err := repo.EnsureSource(ctx, "GOLD_INR", "renamed")
	if err != nil {
		t.Fatalf("ensure source: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same id, got %d and %d", first.ID, second.ID)
	}
	if second.Name != "Gold Price in INR" {
		t.Errorf("existing source must not be modified, got name %q", second.Name)
	}
	if !second.Active {
		t.Error("new source should be active")
	}
}

func TestFindActiveSource_Deactivated(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	setupSource(t, repo)

	ok, err := repo.SetSourceActive(ctx, "GOLD_INR", false)
	if err != nil || !ok {
		t.Fatalf("deactivate: ok=%v err=%v", ok, err)
	}

	src, err := repo.FindActiveSource(ctx, "GOLD_INR")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if src != nil {
		t.Errorf("expected no active source, got %+v", src)
	}

	sources, err := repo.ListActiveSources(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("expected 0 active sources, got %d", len(sources))
	}

	ok, err = repo.SetSourceActive(ctx, "SILVER_INR", false)
	if err != nil || ok {
		t.Errorf("unknown code: ok=%v err=%v", ok, err)
	}
}

func TestInsertValuesBulk_And_FindValuesInRange(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	src := setupSource(t, repo)

	values := []domain.Value{
		daily(src.ID, 2025, 1, 3, 80300),
		daily(src.ID, 2025, 1, 1, 80100),
		daily(src.ID, 2025, 1, 2, 80200),
	}
	n, err := repo.InsertValuesBulk(ctx, values)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows inserted, got %d", n)
	}

	got, err := repo.FindValuesInRange(ctx, src.ID,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 2, 23, 59, 59, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 values, got %d", len(got))
	}
	if got[0].Day() != "2025-01-01" || got[1].Day() != "2025-01-02" {
		t.Errorf("expected ascending days, got %s, %s", got[0].Day(), got[1].Day())
	}
	if !got[0].Value.Equal(decimal.NewFromInt(80100)) {
		t.Errorf("expected 80100, got %s", got[0].Value)
	}
	if !got[0].BasePrice.Valid || got[0].BasePrice.Decimal.String() != "250000.125" {
		t.Errorf("base price not preserved exactly: %+v", got[0].BasePrice)
	}
	if got[0].Origin != domain.OriginDaily {
		t.Errorf("expected daily origin, got %s", got[0].Origin)
	}
}

func TestInsertValuesBulk_SkipsDuplicateDays(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	src := setupSource(t, repo)

	values := []domain.Value{daily(src.ID, 2025, 1, 1, 80100), daily(src.ID, 2025, 1, 2, 80200)}

	n1, err := repo.InsertValuesBulk(ctx, values)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if n1 != 2 {
		t.Errorf("expected 2 rows, got %d", n1)
	}

	// Same days again, plus a new one.
	values = append(values, daily(src.ID, 2025, 1, 3, 80300))
	n2, err := repo.InsertValuesBulk(ctx, values)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if n2 != 1 {
		t.Errorf("expected 1 new row, got %d", n2)
	}
	if c := countValues(t, db); c != 3 {
		t.Errorf("expected 3 stored rows, got %d", c)
	}
}

func TestInsertValue_DuplicateDaySkipped(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	src := setupSource(t, repo)

	v := daily(src.ID, 2025, 1, 1, 80100)
	ok, err := repo.InsertValue(ctx, &v)
	if err != nil || !ok {
		t.Fatalf("first insert: ok=%v err=%v", ok, err)
	}
	if v.ID == 0 {
		t.Error("expected id to be set")
	}

	dup := daily(src.ID, 2025, 1, 1, 99999)
	ok, err = repo.InsertValue(ctx, &dup)
	if err != nil {
		t.Fatalf("duplicate insert must not error: %v", err)
	}
	if ok {
		t.Error("expected duplicate to be skipped")
	}
}

func TestInsertValue_LiveRowsAreNotUnique(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	src := setupSource(t, repo)

	base := daily(src.ID, 2025, 1, 1, 80100)
	if _, err := repo.InsertValue(ctx, &base); err != nil {
		t.Fatal(err)
	}
	for _, hour := range []int{6, 12} {
		v := domain.Value{
			SourceID:   src.ID,
			Value:      decimal.NewFromInt(int64(80000 + hour)),
			RecordedAt: time.Date(2025, 1, 1, hour, 0, 0, 0, time.UTC),
			Origin:     domain.OriginLive,
		}
		ok, err := repo.InsertValue(ctx, &v)
		if err != nil || !ok {
			t.Fatalf("live insert at %d: ok=%v err=%v", hour, ok, err)
		}
	}
	if c := countValues(t, db); c != 3 {
		t.Errorf("expected 3 rows, got %d", c)
	}

	latest, err := repo.LatestValue(ctx, src.ID)
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || !latest.Value.Equal(decimal.NewFromInt(80012)) {
		t.Errorf("unexpected latest %+v", latest)
	}
	if latest.BasePrice.Valid {
		t.Error("expected null base price")
	}
}

func TestConcurrentBackfillsKeepOneRowPerDay(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	src := setupSource(t, repo)

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			values := []domain.Value{daily(src.ID, 2025, 2, 1, int64(i)), daily(src.ID, 2025, 2, 2, int64(i))}
			if _, err := repo.InsertValuesBulk(ctx, values); err != nil {
				t.Errorf("writer %d: %v", i, err)
			}
		}()
	}
	wg.Wait()

	if c := countValues(t, db); c != 2 {
		t.Errorf("expected 2 rows after concurrent writers, got %d", c)
	}
}

func TestLastValueBefore_And_History(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	src := setupSource(t, repo)

	for _, v := range []domain.Value{
		daily(src.ID, 2025, 1, 1, 100),
		{SourceID: src.ID, Value: decimal.NewFromInt(110), RecordedAt: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), Origin: domain.OriginLive},
		{SourceID: src.ID, Value: decimal.NewFromInt(120), RecordedAt: time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC), Origin: domain.OriginLive},
	} {
		if _, err := repo.InsertValue(ctx, &v); err != nil {
			t.Fatal(err)
		}
	}

	last, err := repo.LastValueBefore(ctx, src.ID,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatal(err)
	}
	if last == nil || !last.Value.Equal(decimal.NewFromInt(110)) {
		t.Errorf("expected last value of 2025-01-01 to be 110, got %+v", last)
	}

	none, err := repo.LastValueBefore(ctx, src.ID,
		time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	)
	if err != nil || none != nil {
		t.Errorf("expected nil, got %+v err=%v", none, err)
	}

	hist, err := repo.History(ctx, src.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 || !hist[0].Value.Equal(decimal.NewFromInt(100)) {
		t.Errorf("unexpected history %+v", hist)
	}
}

func TestInsertValuesBulk_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	n, err := repo.InsertValuesBulk(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}
