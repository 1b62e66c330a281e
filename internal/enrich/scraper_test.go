package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const modelPage = `<html><body>
<h1> stability-ai/sdxl </h1>
<p>A text-to-image model.</p>
<span class="text-gray-500">1,234,567 runs</span>
</body></html>`

func newTestScraper() *Scraper {
	return NewScraper(5*time.Second, zap.NewNop())
}

func TestModelInfoExtractsNameAndRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(modelPage))
	}))
	defer srv.Close()

	info, err := newTestScraper().ModelInfo(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "stability-ai/sdxl", info.Name)
	assert.Equal(t, int64(1234567), info.RunCount)
}

func TestModelInfoWithoutRunCounter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>bare-model</h1></body></html>`))
	}))
	defer srv.Close()

	info, err := newTestScraper().ModelInfo(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "bare-model", info.Name)
	assert.Equal(t, int64(0), info.RunCount)
}

func TestModelInfoNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestScraper().ModelInfo(context.Background(), srv.URL)
	assert.Error(t, err)
}
