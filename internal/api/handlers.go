package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"sitewatch/internal/domain"

	"go.uber.org/zap"
)

const (
	topLimit       = 10
	trendingWindow = 7 * 24 * time.Hour
	bucketLimit    = 30
	modelInfoTTL   = time.Hour
)

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req domain.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SitemapURL == "" {
		s.respondWithError(w, http.StatusBadRequest, "Missing sitemapUrl")
		return
	}

	result, err := s.ingestor.Ingest(r.Context(), req.SitemapURL)
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		s.respondWithError(w, http.StatusBadRequest, "Invalid sitemapUrl: "+req.SitemapURL)
		return
	case errors.Is(err, domain.ErrTimeout):
		// Partial progress stays committed; report it with the timeout.
		s.respondWithJSON(w, http.StatusGatewayTimeout, map[string]any{
			"error":         "ingestion timed out",
			"processedUrls": result.Processed,
			"totalUrls":     result.Total,
			"message":       result.Message,
		})
		return
	case err != nil:
		s.logger.Error("ingestion failed", zap.String("sitemap", req.SitemapURL), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not process sitemap")
		return
	}

	s.respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	tf := domain.Timeframe(r.URL.Query().Get("timeframe"))
	if tf == "" {
		tf = domain.TimeframeDaily
	}
	if !tf.Valid() {
		s.respondWithError(w, http.StatusBadRequest, "timeframe must be daily, weekly or monthly")
		return
	}

	if payload, ok := s.cache.GetAnalytics(r.Context(), string(tf)); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(payload)
		return
	}

	payload, err := s.buildAnalytics(r.Context(), tf)
	if err != nil {
		s.logger.Error("analytics query failed", zap.String("timeframe", string(tf)), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not compute analytics")
		return
	}

	ttl := time.Duration(s.config.AnalyticsCacheTTL) * time.Second
	if err := s.cache.SetAnalytics(r.Context(), string(tf), payload, ttl); err != nil {
		s.logger.Warn("analytics cache write failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (s *Server) buildAnalytics(ctx context.Context, tf domain.Timeframe) ([]byte, error) {
	newModels, err := s.store.CountNewSince(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	totalRuns, err := s.store.SumRunCount(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.store.TopByRunCount(ctx, topLimit)
	if err != nil {
		return nil, err
	}
	trending, err := s.store.Trending(ctx, trendingWindow, topLimit)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.BucketedCounts(ctx, tf, bucketLimit)
	if err != nil {
		return nil, err
	}

	if top == nil {
		top = []domain.RankedModel{}
	}
	if trending == nil {
		trending = []domain.RankedModel{}
	}
	if stats == nil {
		stats = []domain.BucketCount{}
	}

	// The stats key is named after the timeframe, e.g. "dailyStats".
	return json.Marshal(map[string]any{
		"newModels":          newModels,
		"totalRunCount":      totalRuns,
		"topModels":          top,
		"trendingModels":     trending,
		string(tf) + "Stats": stats,
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		s.respondWithError(w, http.StatusBadRequest, "URL query parameter is required")
		return
	}
	if _, err := url.ParseRequestURI(pageURL); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid URL format")
		return
	}

	if payload, ok := s.cache.GetModelInfo(r.Context(), pageURL); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(payload)
		return
	}

	info, err := s.scraper.ModelInfo(r.Context(), pageURL)
	if err != nil {
		s.logger.Warn("model page scrape failed", zap.String("url", pageURL), zap.Error(err))
		s.respondWithError(w, http.StatusBadGateway, "Could not fetch model page")
		return
	}

	payload, _ := json.Marshal(info)
	if err := s.cache.SetModelInfo(r.Context(), pageURL, payload, modelInfoTTL); err != nil {
		s.logger.Warn("model info cache write failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)

	if err := s.store.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		s.logger.Error("health check failed for postgres", zap.Error(err))
	} else {
		healthStatus["postgres"] = "healthy"
	}

	if err := s.cache.Ping(ctx); err != nil {
		healthStatus["redis"] = "unhealthy"
		s.logger.Error("health check failed for redis", zap.Error(err))
	} else {
		healthStatus["redis"] = "healthy"
	}

	isHealthy := healthStatus["postgres"] == "healthy" && healthStatus["redis"] == "healthy"
	if !isHealthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}

	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
