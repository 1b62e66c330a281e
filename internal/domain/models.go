package domain

// SitemapEntry is a single <url> element extracted from a sitemap.
// LastMod is empty when the sitemap omits <lastmod>.
type SitemapEntry struct {
	Loc     string
	LastMod string
}

// URLRecord is one persisted row in the urls table.
type URLRecord struct {
	Site          string `json:"site"`
	URL           string `json:"url"`
	LastModified  string `json:"last_modified"`  // date-only, YYYY-MM-DD
	FirstAppeared string `json:"first_appeared"` // date-only, set once on first sighting
	RunCount      int64  `json:"run_count"`
	RelativePath  string `json:"relative_path"`
}

// IngestRequest is the payload for the ingest API.
type IngestRequest struct {
	SitemapURL string `json:"sitemapUrl"`
}

// IngestResult reports the outcome of one ingestion run.
type IngestResult struct {
	Processed int    `json:"processedUrls"`
	Total     int    `json:"totalUrls"`
	Message   string `json:"message,omitempty"`
}

// RankedModel is one row of a top/trending ranking. ChangePercent is nil
// when the comparison row's run count is zero.
type RankedModel struct {
	Name          string   `json:"modelName"`
	RunCount      int64    `json:"runCount"`
	ChangePercent *float64 `json:"changePercent"`
}

// BucketCount is the number of first sightings in one time bucket.
type BucketCount struct {
	Bucket string `json:"date"`
	Count  int64  `json:"count"`
}

// ModelInfo is live data scraped from a model's page.
type ModelInfo struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	RunCount int64  `json:"runCount"`
}
