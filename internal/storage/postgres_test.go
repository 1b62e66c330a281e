package storage

import (
	"context"
	"testing"
	"time"

	"sitewatch/internal/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewPostgresStoreWithDB(mock), mock
}

func testRecord() *domain.URLRecord {
	return &domain.URLRecord{
		Site:          "ex.com",
		URL:           "https://ex.com/a",
		LastModified:  "2024-01-01",
		FirstAppeared: "2024-01-01",
		RunCount:      0,
		RelativePath:  "/a",
	}
}

func TestUpsertURLUsesSingleConditionalWrite(t *testing.T) {
	store, mock := newMockStore(t)
	rec := testRecord()

	// The insert and the conflict increment must be one statement so that
	// concurrent same-key upserts cannot lose updates.
	mock.ExpectExec(`INSERT INTO urls .* ON CONFLICT \(url\) DO UPDATE SET\s+last_modified = EXCLUDED\.last_modified, run_count = urls\.run_count \+ 1`).
		WithArgs(rec.Site, rec.URL, rec.LastModified, rec.FirstAppeared, rec.RunCount, rec.RelativePath).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertURL(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertURLPropagatesStorageError(t *testing.T) {
	store, mock := newMockStore(t)
	rec := testRecord()

	mock.ExpectExec(`INSERT INTO urls`).
		WithArgs(rec.Site, rec.URL, rec.LastModified, rec.FirstAppeared, rec.RunCount, rec.RelativePath).
		WillReturnError(assert.AnError)

	assert.Error(t, store.UpsertURL(context.Background(), rec))
}

func TestCountNewSince(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM urls WHERE first_appeared >= \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(5)))

	count, err := store.CountNewSince(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestSumRunCount(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(run_count\), 0\) FROM urls`).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(int64(1234)))

	total, err := store.SumRunCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1234), total)
}

func TestTopByRunCountNullChangePercent(t *testing.T) {
	store, mock := newMockStore(t)

	change := 25.0
	rows := pgxmock.NewRows([]string{"relative_path", "run_count", "change_percent"}).
		AddRow("/m/a", int64(500), &change).
		AddRow("/m/b", int64(400), (*float64)(nil)). // next count is zero
		AddRow("/m/c", int64(0), (*float64)(nil))    // last row has no successor

	// Both the window and the outer sort carry the url tiebreaker so equal
	// run counts cannot make the comparison row disagree with the display.
	mock.ExpectQuery(`LEAD\(run_count\) OVER \(ORDER BY run_count DESC, url\)[\s\S]*ORDER BY run_count DESC, url`).
		WithArgs(10).
		WillReturnRows(rows)

	models, err := store.TopByRunCount(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, models, 3)

	require.NotNil(t, models[0].ChangePercent)
	assert.InDelta(t, 25.0, *models[0].ChangePercent, 0.001)
	assert.Nil(t, models[1].ChangePercent, "zero next count must yield null, not a division error")
	assert.Nil(t, models[2].ChangePercent)
}

func TestTrendingOrdersByChangePercent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`LEAD\(run_count\) OVER \(ORDER BY first_appeared DESC, url\)[\s\S]*ORDER BY change_percent DESC NULLS LAST`).
		WithArgs(pgxmock.AnyArg(), 10).
		WillReturnRows(pgxmock.NewRows([]string{"relative_path", "run_count", "change_percent"}))

	models, err := store.Trending(context.Background(), 7*24*time.Hour, 10)
	require.NoError(t, err)
	assert.Empty(t, models)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBucketedCounts(t *testing.T) {
	store, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{"bucket", "count"}).
		AddRow("2024-03", int64(12)).
		AddRow("2024-02", int64(7))

	mock.ExpectQuery(`SELECT to_char\(first_appeared, \$1\)`).
		WithArgs(domain.TimeframeMonthly.BucketFormat(), 30).
		WillReturnRows(rows)

	buckets, err := store.BucketedCounts(context.Background(), domain.TimeframeMonthly, 30)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "2024-03", buckets[0].Bucket)
	assert.Equal(t, int64(12), buckets[0].Count)
}

func TestClearURLs(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM urls`).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	require.NoError(t, store.ClearURLs(context.Background()))
}

func TestSeedURLWritesAbsoluteRunCount(t *testing.T) {
	store, mock := newMockStore(t)
	rec := testRecord()
	rec.RunCount = 9000

	mock.ExpectExec(`ON CONFLICT \(url\) DO UPDATE SET[\s\S]*run_count = EXCLUDED\.run_count`).
		WithArgs(rec.Site, rec.URL, rec.LastModified, rec.FirstAppeared, rec.RunCount, rec.RelativePath).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SeedURL(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}
