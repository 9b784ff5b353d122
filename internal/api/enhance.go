package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/verbalia/qasmith/internal/enhance"
	"github.com/verbalia/qasmith/internal/pipeline"
)

// decodeEnhanceItems accepts either a single {question, answer} object or a
// list of them, the way the original intake contract works.
func decodeEnhanceItems(body io.Reader) ([]enhance.Item, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []enhance.Item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var item enhance.Item
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return nil, err
	}
	return []enhance.Item{item}, nil
}

func validateEnhanceItems(items []enhance.Item) string {
	if len(items) == 0 {
		return "at least one question/answer item is required"
	}
	for _, it := range items {
		if it.Question == "" || it.Answer == "" {
			return "question and answer are required on every item"
		}
	}
	return ""
}

func handleEnhance(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		items, err := decodeEnhanceItems(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if msg := validateEnhanceItems(items); msg != "" {
			httpError(w, http.StatusBadRequest, "%s", msg)
			return
		}

		result, err := pipeline.RunEnhancement(r.Context(), deps.Enhance, items, nil)
		if err != nil {
			httpError(w, http.StatusBadGateway, "enhancement failed: %v", err)
			return
		}

		respondData(w, result)
	}
}

func handleEnhanceAsync(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		items, err := decodeEnhanceItems(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if msg := validateEnhanceItems(items); msg != "" {
			httpError(w, http.StatusBadRequest, "%s", msg)
			return
		}

		jobID, err := deps.Exec.EnhanceAsync(deps.Enhance, items)
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, "scheduling job: %v", err)
			return
		}

		respondData(w, map[string]string{"job_id": jobID})
	}
}
