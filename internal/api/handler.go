package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verbalia/qasmith/internal/enhance"
	"github.com/verbalia/qasmith/internal/job"
	"github.com/verbalia/qasmith/internal/pipeline"
	"github.com/verbalia/qasmith/internal/qagen"
	"github.com/verbalia/qasmith/internal/storage"
)

const maxRequestBodySize = 10 << 20 // 10MB, conversation exports can be large

// Deps holds everything the HTTP surface needs.
type Deps struct {
	Enhance *enhance.Service
	QAGen   *qagen.Service
	Jobs    *job.Manager
	Exec    *pipeline.Executor
	Store   *storage.Store // optional; nil disables dataset persistence and lookup
	Token   string
	Version string

	// MaxContextLength caps each generation context block, in runes.
	// Zero means the package default.
	MaxContextLength int
}

// NewHandler builds the full HTTP surface: health endpoints at the root and
// the versioned API behind bearer auth.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/", handleRoot(deps))
	r.Get("/health", handleHealth(deps))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/answer/enhance", handleEnhance(deps))
		r.Post("/answer/async/enhance", handleEnhanceAsync(deps))

		r.Post("/qa/sync/generate_from_body", handleGenerateFromBody(deps))
		r.Post("/qa/sync/generate_from_file", handleGenerateFromFile(deps))
		r.Post("/qa/async/generate_from_body", handleGenerateFromBodyAsync(deps))
		r.Post("/qa/async/generate_from_file", handleGenerateFromFileAsync(deps))

		r.Get("/jobs/{jobID}", handleGetJob(deps))

		r.Get("/qa/datasets", handleListDatasets(deps))
		r.Get("/qa/datasets/{datasetID}", handleGetDataset(deps))
	})

	return r
}

func handleRoot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"name":    "qasmith",
			"version": deps.Version,
			"status":  "running",
		})
	}
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"status":   "healthy",
			"app_name": "qasmith",
			"version":  deps.Version,
		})
	}
}
