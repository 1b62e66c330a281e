package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"sitewatch/internal/config"
	"sitewatch/internal/domain"
	"sitewatch/internal/monitoring"

	"go.uber.org/zap"
)

// EntrySource yields sitemap entries for a sitemap URL. A failed or empty
// fetch yields a nil slice, never an error.
type EntrySource interface {
	Parse(ctx context.Context, sitemapURL string) []domain.SitemapEntry
}

// URLStore is the single write operation the ingestor needs: an atomic
// insert-or-increment keyed by record URL.
type URLStore interface {
	UpsertURL(ctx context.Context, rec *domain.URLRecord) error
}

// Ingestor drives one sitemap ingestion run: fetch, cap, batch, upsert.
type Ingestor struct {
	source  EntrySource
	store   URLStore
	metrics *monitoring.Metrics
	logger  *zap.Logger

	budget    time.Duration
	maxURLs   int
	batchSize int
}

func NewIngestor(cfg *config.Config, source EntrySource, store URLStore, m *monitoring.Metrics, l *zap.Logger) *Ingestor {
	batchSize := cfg.IngestBatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	return &Ingestor{
		source:    source,
		store:     store,
		metrics:   m,
		logger:    l,
		budget:    time.Duration(cfg.IngestTimeoutSeconds) * time.Second,
		maxURLs:   cfg.MaxURLsPerRun,
		batchSize: batchSize,
	}
}

// Ingest fetches sitemapURL, parses its entries and upserts them in
// concurrent fixed-size batches. The returned result is non-nil except on
// an invalid URL; on deadline expiry it carries the partial processed count
// alongside domain.ErrTimeout. Per-entry storage failures are logged and
// excluded from the processed count but never abort the run.
func (ing *Ingestor) Ingest(ctx context.Context, sitemapURL string) (*domain.IngestResult, error) {
	parsed, err := url.Parse(sitemapURL)
	if err != nil || parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidURL, sitemapURL)
	}
	host := parsed.Hostname()

	ctx, cancel := context.WithTimeout(ctx, ing.budget)
	defer cancel()

	start := time.Now()
	defer func() {
		ing.metrics.ObserveIngestDuration(time.Since(start).Seconds())
	}()

	entries := ing.source.Parse(ctx, sitemapURL)
	total := len(entries)

	result := &domain.IngestResult{Total: total}
	if ctx.Err() != nil {
		// The fetch itself outlived the budget.
		return ing.timedOut(result, total)
	}
	if total > ing.maxURLs {
		entries = entries[:ing.maxURLs]
		result.Message = fmt.Sprintf("processed first %d of %d URLs; re-run to continue", ing.maxURLs, total)
	}

	today := time.Now().UTC().Format("2006-01-02")

	for len(entries) > 0 {
		select {
		case <-ctx.Done():
			return ing.timedOut(result, total)
		default:
		}

		n := ing.batchSize
		if n > len(entries) {
			n = len(entries)
		}
		batch := entries[:n]
		entries = entries[n:]

		result.Processed += ing.processBatch(ctx, host, today, batch)
	}

	if ctx.Err() != nil {
		// Expired during the last batch; its members already failed with a
		// context error, so classify the run instead of reporting success.
		return ing.timedOut(result, total)
	}

	ing.logger.Info("sitemap ingested",
		zap.String("sitemap", sitemapURL),
		zap.Int("processed", result.Processed),
		zap.Int("total", total))
	return result, nil
}

// timedOut stamps the result with the partial-progress message and returns
// it alongside the timeout classification.
func (ing *Ingestor) timedOut(result *domain.IngestResult, total int) (*domain.IngestResult, error) {
	ing.metrics.IncErrorsTotal("timeout")
	result.Message = fmt.Sprintf("timed out after %d of %d URLs; try a smaller sitemap or re-run", result.Processed, total)
	return result, domain.ErrTimeout
}

// processBatch upserts one batch concurrently and returns the number of
// entries that committed. Each member records its own outcome; the sum
// happens after the fan-in so no counter is shared across goroutines.
func (ing *Ingestor) processBatch(ctx context.Context, host, today string, batch []domain.SitemapEntry) int {
	committed := make([]bool, len(batch))

	var wg sync.WaitGroup
	for i, entry := range batch {
		wg.Add(1)
		go func(i int, entry domain.SitemapEntry) {
			defer wg.Done()

			rec := newRecord(host, today, entry)
			if err := ing.store.UpsertURL(ctx, rec); err != nil {
				ing.logger.Warn("entry upsert failed", zap.String("url", entry.Loc), zap.Error(err))
				ing.metrics.IncErrorsTotal("entry_upsert_failed")
				return
			}
			ing.metrics.IncProcessedTotal()
			committed[i] = true
		}(i, entry)
	}
	wg.Wait()

	n := 0
	for _, ok := range committed {
		if ok {
			n++
		}
	}
	return n
}

// newRecord maps a sitemap entry onto the row shape the store upserts.
// FirstAppeared and RunCount only take effect on first insert; the store's
// conflict path ignores them.
func newRecord(host, today string, entry domain.SitemapEntry) *domain.URLRecord {
	lastModified := entry.LastMod
	if lastModified == "" {
		lastModified = today
	}

	rel := strings.TrimPrefix(entry.Loc, "https://"+host)
	rel = strings.TrimPrefix(rel, "http://"+host)

	return &domain.URLRecord{
		Site:          host,
		URL:           entry.Loc,
		LastModified:  lastModified,
		FirstAppeared: today,
		RunCount:      0,
		RelativePath:  rel,
	}
}
