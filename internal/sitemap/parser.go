package sitemap

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"sitewatch/internal/domain"
	"sitewatch/internal/monitoring"

	"go.uber.org/zap"
)

type xmlURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []xmlURL `xml:"url"`
}

// Parser retrieves and decodes sitemap XML documents.
type Parser struct {
	httpClient *http.Client
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

func NewParser(fetchTimeout time.Duration, m *monitoring.Metrics, logger *zap.Logger) *Parser {
	return &Parser{
		httpClient: &http.Client{Timeout: fetchTimeout},
		metrics:    m,
		logger:     logger,
	}
}

// Parse fetches sitemapURL and extracts its <url> entries. Failures of any
// kind (transport, non-2xx status, undecodable XML) yield an empty slice:
// the caller treats zero entries as a valid outcome. Each call performs a
// fresh network read; the result is not cached.
func (p *Parser) Parse(ctx context.Context, sitemapURL string) []domain.SitemapEntry {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		p.logger.Warn("invalid sitemap request", zap.String("url", sitemapURL), zap.Error(err))
		p.metrics.IncErrorsTotal("fetch_failed")
		return nil
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("sitemap fetch failed", zap.String("url", sitemapURL), zap.Error(err))
		p.metrics.IncErrorsTotal("fetch_failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Warn("sitemap fetch returned non-success status",
			zap.String("url", sitemapURL), zap.Int("status", resp.StatusCode))
		p.metrics.IncErrorsTotal("fetch_failed")
		return nil
	}

	entries, err := decodeEntries(resp.Body)
	if err != nil {
		p.logger.Warn("sitemap XML decode failed", zap.String("url", sitemapURL), zap.Error(err))
		p.metrics.IncErrorsTotal("parse_failed")
		return nil
	}
	return entries
}

// decodeEntries decodes a <urlset> document, transparently unwrapping
// gzip-compressed bodies (some hosts serve sitemap.xml.gz without a
// Content-Encoding header).
func decodeEntries(body io.Reader) ([]domain.SitemapEntry, error) {
	buffered := bufio.NewReader(body)
	if magic, err := buffered.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return decodeURLSet(gz)
	}
	return decodeURLSet(buffered)
}

func decodeURLSet(r io.Reader) ([]domain.SitemapEntry, error) {
	var set xmlURLSet
	if err := xml.NewDecoder(r).Decode(&set); err != nil {
		return nil, err
	}

	entries := make([]domain.SitemapEntry, 0, len(set.URLs))
	for _, u := range set.URLs {
		loc := strings.TrimSpace(u.Loc)
		if loc == "" {
			continue
		}
		entries = append(entries, domain.SitemapEntry{
			Loc:     loc,
			LastMod: strings.TrimSpace(u.LastMod),
		})
	}
	return entries, nil
}
