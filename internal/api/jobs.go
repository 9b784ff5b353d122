package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/verbalia/qasmith/internal/job"
	"github.com/verbalia/qasmith/internal/storage"
)

func handleGetJob(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "jobID")

		j, err := deps.Jobs.Get(id)
		if err == nil {
			respondData(w, j)
			return
		}
		if !errors.Is(err, job.ErrJobNotFound) {
			httpError(w, http.StatusInternalServerError, "looking up job: %v", err)
			return
		}

		// Fall back to the archive: terminal jobs from previous runs.
		if deps.Store != nil {
			archived, archErr := deps.Store.GetArchivedJob(id)
			if archErr == nil {
				respondData(w, archivedJobView(archived))
				return
			}
			if !errors.Is(archErr, storage.ErrNotFound) {
				httpError(w, http.StatusInternalServerError, "looking up archived job: %v", archErr)
				return
			}
		}

		httpError(w, http.StatusNotFound, "job not found")
	}
}

func archivedJobView(a storage.ArchivedJob) map[string]any {
	view := map[string]any{
		"job_id":     a.ID,
		"type":       a.Type,
		"status":     a.Status,
		"progress":   a.Progress,
		"created_at": a.CreatedAt.Format(time.RFC3339),
		"updated_at": a.FinishedAt.Format(time.RFC3339),
	}
	if a.ResultJSON != "" {
		view["result"] = json.RawMessage(a.ResultJSON)
	}
	if a.Error != "" {
		view["error"] = a.Error
	}
	return view
}

func handleListDatasets(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusNotFound, "dataset persistence is disabled")
			return
		}

		limit := parseIntParam(r, "limit", 20, 100)
		datasets, err := deps.Store.ListDatasets(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "listing datasets: %v", err)
			return
		}

		type datasetSummary struct {
			ID        string `json:"id"`
			Source    string `json:"source"`
			QACount   int    `json:"qa_count"`
			CreatedAt string `json:"created_at"`
		}
		summaries := make([]datasetSummary, len(datasets))
		for i, d := range datasets {
			summaries[i] = datasetSummary{
				ID:        d.ID,
				Source:    d.Source,
				QACount:   d.QACount,
				CreatedAt: d.CreatedAt.Format(time.RFC3339),
			}
		}
		respondData(w, summaries)
	}
}

func handleGetDataset(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusNotFound, "dataset persistence is disabled")
			return
		}

		id := chi.URLParam(r, "datasetID")
		d, err := deps.Store.GetDataset(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "dataset not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "looking up dataset: %v", err)
			return
		}

		respondData(w, map[string]any{
			"id":         d.ID,
			"source":     d.Source,
			"qa_count":   d.QACount,
			"created_at": d.CreatedAt.Format(time.RFC3339),
			"result":     json.RawMessage(d.PayloadJSON),
		})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
