package api

import (
	"math/rand"
	"net/http"
	"time"

	"sitewatch/internal/domain"

	"go.uber.org/zap"
)

// demoModels are the well-known model slugs used for demo-data population.
var demoModels = []string{
	"stability-ai/sdxl",
	"stability-ai/stable-diffusion",
	"meta/llama-2-70b",
	"meta/llama-2-13b",
	"anthropic/claude-2",
	"openai/whisper",
	"midjourney/midjourney",
	"google/gemini-pro",
	"deepmind/alphafold",
	"runway/gen-2",
	"stability-ai/stable-diffusion-xl",
	"anthropic/claude-instant",
	"meta/segment-anything",
	"openai/dall-e-3",
	"mistral/mistral-7b",
}

// handleSeedDemoData wipes the table and repopulates it with synthetic
// rows: one per model, first seen a random number of days back with a run
// count trending up toward the present. Demo/ops only.
func (s *Server) handleSeedDemoData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.store.ClearURLs(ctx); err != nil {
		s.logger.Error("failed to clear urls for demo seed", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Could not reset data")
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()
	today := now.Format("2006-01-02")

	seeded := 0
	for _, model := range demoModels {
		daysAgo := rng.Intn(30)
		baseRuns := int64(rng.Intn(10000) + 1000)
		variation := int64(rng.Intn(200) - 100)
		runCount := baseRuns + variation*int64(30-daysAgo)
		if runCount < 0 {
			runCount = 0
		}

		rec := &domain.URLRecord{
			Site:          "replicate.com",
			URL:           "https://replicate.com/" + model,
			LastModified:  today,
			FirstAppeared: now.AddDate(0, 0, -daysAgo).Format("2006-01-02"),
			RunCount:      runCount,
			RelativePath:  "/" + model,
		}
		if err := s.store.SeedURL(ctx, rec); err != nil {
			s.logger.Warn("failed to seed demo row", zap.String("model", model), zap.Error(err))
			continue
		}
		seeded++
	}

	s.respondWithJSON(w, http.StatusOK, map[string]int{"seeded": seeded})
}
