package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"sitewatch/internal/config"
	"sitewatch/internal/domain"

	"go.uber.org/zap"
)

// Ingestor runs one sitemap ingestion to completion or timeout.
type Ingestor interface {
	Ingest(ctx context.Context, sitemapURL string) (*domain.IngestResult, error)
}

// Store is the read/aggregate (plus demo-seeding) surface the API serves.
type Store interface {
	CountNewSince(ctx context.Context, since time.Time) (int64, error)
	SumRunCount(ctx context.Context) (int64, error)
	TopByRunCount(ctx context.Context, limit int) ([]domain.RankedModel, error)
	Trending(ctx context.Context, window time.Duration, limit int) ([]domain.RankedModel, error)
	BucketedCounts(ctx context.Context, tf domain.Timeframe, limit int) ([]domain.BucketCount, error)
	SeedURL(ctx context.Context, rec *domain.URLRecord) error
	ClearURLs(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Cache fronts the analytics and model-info reads. Misses and errors fall
// through to the underlying store or scraper.
type Cache interface {
	GetAnalytics(ctx context.Context, timeframe string) ([]byte, bool)
	SetAnalytics(ctx context.Context, timeframe string, payload []byte, ttl time.Duration) error
	GetModelInfo(ctx context.Context, pageURL string) ([]byte, bool)
	SetModelInfo(ctx context.Context, pageURL string, payload []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// Scraper fetches live page data for a single model URL.
type Scraper interface {
	ModelInfo(ctx context.Context, pageURL string) (*domain.ModelInfo, error)
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	ingestor   Ingestor
	store      Store
	cache      Cache
	scraper    Scraper
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, ing Ingestor, st Store, c Cache, sc Scraper, l *zap.Logger) *Server {
	s := &Server{
		config:   cfg,
		ingestor: ing,
		store:    st,
		cache:    c,
		scraper:  sc,
		logger:   l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
