package enrich

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sitewatch/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Scraper fetches a model's page and extracts its display name and run
// count from the HTML.
type Scraper struct {
	httpClient *http.Client
	logger     *zap.Logger
}

func NewScraper(fetchTimeout time.Duration, logger *zap.Logger) *Scraper {
	return &Scraper{
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logger,
	}
}

// ModelInfo fetches pageURL and scrapes the first <h1> as the model name
// and the first element mentioning "runs" for the run count. A page without
// a run counter yields zero, not an error.
func (s *Scraper) ModelInfo(ctx context.Context, pageURL string) (*domain.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("page fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("page fetch returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("page parse failed: %w", err)
	}

	info := &domain.ModelInfo{
		URL:  pageURL,
		Name: strings.TrimSpace(doc.Find("h1").First().Text()),
	}

	found := false
	doc.Find("span, p, div").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := sel.Text()
		if !strings.Contains(strings.ToLower(text), "runs") {
			return true
		}
		if n, ok := parseRunCount(text); ok {
			info.RunCount = n
			found = true
			return false
		}
		return true
	})
	if !found {
		s.logger.Debug("no run counter on page", zap.String("url", pageURL))
	}

	return info, nil
}

// parseRunCount pulls the digits out of a string like "1,234,567 runs".
func parseRunCount(text string) (int64, bool) {
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
