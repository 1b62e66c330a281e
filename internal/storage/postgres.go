package storage

import (
	"context"
	"fmt"
	"time"

	"sitewatch/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the store uses. Tests substitute a mock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore handles interactions with the PostgreSQL database.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an existing connection, used by tests.
func NewPostgresStoreWithDB(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// EnsureSchema creates the urls table if it does not exist yet. The schema
// is fixed; there is no migration machinery.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS urls (
			id             BIGSERIAL PRIMARY KEY,
			site           TEXT NOT NULL,
			url            TEXT NOT NULL UNIQUE,
			last_modified  DATE NOT NULL,
			first_appeared DATE NOT NULL,
			run_count      BIGINT NOT NULL DEFAULT 0,
			relative_path  TEXT NOT NULL
		)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_urls_first_appeared ON urls (first_appeared)`)
	return err
}

// UpsertURL inserts a new row or, when the URL already exists, bumps its
// run counter and refreshes last_modified. first_appeared and the supplied
// run count only take effect on first insert. The single conditional write
// keeps concurrent same-key upserts free of lost updates.
func (s *PostgresStore) UpsertURL(ctx context.Context, rec *domain.URLRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO urls (site, url, last_modified, first_appeared, run_count, relative_path)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (url) DO UPDATE SET
		   last_modified = EXCLUDED.last_modified, run_count = urls.run_count + 1`,
		rec.Site, rec.URL, rec.LastModified, rec.FirstAppeared, rec.RunCount, rec.RelativePath,
	)
	return err
}

// SeedURL writes a row with an absolute run count, replacing any existing
// row for the URL. Used only for demo-data population.
func (s *PostgresStore) SeedURL(ctx context.Context, rec *domain.URLRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO urls (site, url, last_modified, first_appeared, run_count, relative_path)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (url) DO UPDATE SET
		   last_modified = EXCLUDED.last_modified, first_appeared = EXCLUDED.first_appeared,
		   run_count = EXCLUDED.run_count`,
		rec.Site, rec.URL, rec.LastModified, rec.FirstAppeared, rec.RunCount, rec.RelativePath,
	)
	return err
}

// ClearURLs deletes every row. Used only before demo-data population.
func (s *PostgresStore) ClearURLs(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM urls`)
	return err
}

// CountNewSince returns the number of URLs first seen at or after since.
func (s *PostgresStore) CountNewSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM urls WHERE first_appeared >= $1`, since,
	).Scan(&count)
	return count, err
}

// SumRunCount returns the total run count across all URLs.
func (s *PostgresStore) SumRunCount(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(run_count), 0) FROM urls`,
	).Scan(&total)
	return total, err
}

// TopByRunCount returns the highest-run URLs. Each row's change percent is
// computed against the next-ranked row's run count; it is NULL for the last
// row and whenever the next count is zero. Ties break on url so the window
// and the displayed ordering always agree.
func (s *PostgresStore) TopByRunCount(ctx context.Context, limit int) ([]domain.RankedModel, error) {
	rows, err := s.db.Query(ctx,
		`SELECT relative_path, run_count,
		        (run_count - next_count) * 100.0 / NULLIF(next_count, 0) AS change_percent
		 FROM (
		   SELECT relative_path, url, run_count,
		          LEAD(run_count) OVER (ORDER BY run_count DESC, url) AS next_count
		   FROM urls
		 ) ranked
		 ORDER BY run_count DESC, url
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRanked(rows)
}

// Trending returns URLs first seen within the window, with change percent
// computed over recency ordering and the result sorted by change percent.
func (s *PostgresStore) Trending(ctx context.Context, window time.Duration, limit int) ([]domain.RankedModel, error) {
	cutoff := time.Now().UTC().Add(-window)
	rows, err := s.db.Query(ctx,
		`SELECT relative_path, run_count,
		        (run_count - next_count) * 100.0 / NULLIF(next_count, 0) AS change_percent
		 FROM (
		   SELECT relative_path, run_count,
		          LEAD(run_count) OVER (ORDER BY first_appeared DESC, url) AS next_count
		   FROM urls
		   WHERE first_appeared >= $1
		 ) recent
		 ORDER BY change_percent DESC NULLS LAST
		 LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRanked(rows)
}

// BucketedCounts groups first sightings by the timeframe's calendar bucket
// and returns the most recent limit buckets, newest first.
func (s *PostgresStore) BucketedCounts(ctx context.Context, tf domain.Timeframe, limit int) ([]domain.BucketCount, error) {
	rows, err := s.db.Query(ctx,
		`SELECT to_char(first_appeared, $1) AS bucket, COUNT(*) AS count
		 FROM urls
		 GROUP BY 1
		 ORDER BY 1 DESC
		 LIMIT $2`, tf.BucketFormat(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []domain.BucketCount
	for rows.Next() {
		var b domain.BucketCount
		if err := rows.Scan(&b.Bucket, &b.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func scanRanked(rows pgx.Rows) ([]domain.RankedModel, error) {
	var models []domain.RankedModel
	for rows.Next() {
		var m domain.RankedModel
		if err := rows.Scan(&m.Name, &m.RunCount, &m.ChangePercent); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}
