package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verbalia/qasmith/internal/pipeline"
	"github.com/verbalia/qasmith/internal/qagen"
	"github.com/verbalia/qasmith/internal/storage"
)

type qaGenerationBody struct {
	Data     qaGenerationData `json:"data"`
	Metadata map[string]any   `json:"metadata"`
}

type qaGenerationData struct {
	Records []qagen.Record `json:"RECORDS"`
}

func decodeGenerationBody(deps Deps, body io.Reader) ([]string, map[string]any, error) {
	var req qaGenerationBody
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, nil, fmt.Errorf("invalid request body: %w", err)
	}

	meta := req.Metadata
	if len(meta) == 0 {
		meta = qagen.NewMetadata("http request")
	}
	return qagen.BuildContexts(req.Data.Records, deps.MaxContextLength), meta, nil
}

// decodeGenerationUpload reads the multipart "file" part: either a JSON
// export carrying RECORDS or a PDF transcript, which becomes one context.
func decodeGenerationUpload(deps Deps, r *http.Request) ([]string, map[string]any, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("missing file upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxRequestBodySize))
	if err != nil {
		return nil, nil, fmt.Errorf("reading upload: %w", err)
	}

	meta := qagen.NewMetadata(header.Filename)

	if isPDF(header.Filename, data) {
		text, err := qagen.ExtractPDFText(data)
		if err != nil {
			return nil, nil, err
		}
		block := qagen.ContextFromText(text, deps.MaxContextLength)
		if block == "" {
			return nil, meta, nil
		}
		return []string{block}, meta, nil
	}

	var payload qaGenerationData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, fmt.Errorf("invalid records file: %w", err)
	}
	return qagen.BuildContexts(payload.Records, deps.MaxContextLength), meta, nil
}

func isPDF(filename string, data []byte) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf") || bytes.HasPrefix(data, []byte("%PDF"))
}

func handleGenerateFromBody(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		contexts, meta, err := decodeGenerationBody(deps, r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}
		runGenerationSync(deps, w, r, contexts, meta)
	}
}

func handleGenerateFromFile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		contexts, meta, err := decodeGenerationUpload(deps, r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}
		runGenerationSync(deps, w, r, contexts, meta)
	}
}

func runGenerationSync(deps Deps, w http.ResponseWriter, r *http.Request, contexts []string, meta map[string]any) {
	result, err := pipeline.RunGeneration(r.Context(), deps.QAGen, contexts, meta, nil)
	if err != nil {
		httpError(w, http.StatusBadGateway, "generation failed: %v", err)
		return
	}

	persistDataset(deps, result, meta)

	if returnFile(r) {
		content, err := json.Marshal(envelope{Code: http.StatusOK, Message: "success", Data: result})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "serializing result: %v", err)
			return
		}
		filename := fmt.Sprintf("qa_%s.json", time.Now().Format("20060102-150405"))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Write(content)
		return
	}

	respondData(w, result)
}

func returnFile(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("return_file"))
	return err == nil && v
}

func persistDataset(deps Deps, result qagen.Result, meta map[string]any) {
	if deps.Store == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		slog.Warn("serializing dataset failed", "error", err)
		return
	}
	source := ""
	if s, ok := meta["source"].(string); ok {
		source = s
	}
	d := storage.Dataset{
		ID:          uuid.New().String(),
		Source:      source,
		QACount:     result.Total,
		PayloadJSON: string(payload),
	}
	if err := deps.Store.SaveDataset(d); err != nil {
		slog.Warn("saving dataset failed", "error", err)
	}
}

func handleGenerateFromBodyAsync(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		contexts, meta, err := decodeGenerationBody(deps, r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}
		scheduleGeneration(deps, w, contexts, meta)
	}
}

func handleGenerateFromFileAsync(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		contexts, meta, err := decodeGenerationUpload(deps, r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}
		scheduleGeneration(deps, w, contexts, meta)
	}
}

func scheduleGeneration(deps Deps, w http.ResponseWriter, contexts []string, meta map[string]any) {
	jobID, err := deps.Exec.GenerateAsync(deps.QAGen, contexts, meta)
	if err != nil {
		httpError(w, http.StatusServiceUnavailable, "scheduling job: %v", err)
		return
	}
	respondData(w, map[string]string{"job_id": jobID})
}
