package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/verbalia/qasmith/internal/enhance"
	"github.com/verbalia/qasmith/internal/job"
	"github.com/verbalia/qasmith/internal/pipeline"
	"github.com/verbalia/qasmith/internal/qagen"
	"github.com/verbalia/qasmith/internal/storage"
	"github.com/verbalia/qasmith/internal/strategy"
)

// --- fakes ---

type stubDecider struct {
	s   strategy.Strategy
	err error
}

func (d stubDecider) Decide(context.Context, string, string) (strategy.Strategy, error) {
	return d.s, d.err
}

type stubTransformer struct {
	fn func(q, a string) (string, error)
}

func (t stubTransformer) Transform(_ context.Context, q, a string, _ strategy.Strategy) (string, error) {
	return t.fn(q, a)
}

type stubGenerator struct {
	fn func(block string) ([]qagen.Pair, error)
}

func (g stubGenerator) Generate(_ context.Context, block string) ([]qagen.Pair, error) {
	return g.fn(block)
}

type keepAllFilter struct{}

func (keepAllFilter) Keep(context.Context, qagen.Pair) (bool, error) { return true, nil }

// --- helpers ---

func newTestDeps(t *testing.T) Deps {
	t.Helper()

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jobs, err := job.NewManager(2, job.WithArchiver(store))
	if err != nil {
		t.Fatalf("creating job manager: %v", err)
	}
	t.Cleanup(jobs.Close)

	enhanceSvc := enhance.NewService(
		stubDecider{s: strategy.Direct},
		stubTransformer{fn: func(_, a string) (string, error) { return a + " [enhanced]", nil }},
	)
	qaSvc := qagen.NewService(
		stubGenerator{fn: func(block string) ([]qagen.Pair, error) {
			return []qagen.Pair{{Question: "What is discussed?", Answer: block}}, nil
		}},
		keepAllFilter{},
		&qagen.DedupePostProcessor{},
	)

	return Deps{
		Enhance: enhanceSvc,
		QAGen:   qaSvc,
		Jobs:    jobs,
		Exec:    pipeline.NewExecutor(jobs, pipeline.WithDatasetSaver(store)),
		Store:   store,
		Version: "test",
	}
}

type testEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, h http.Handler, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding envelope: %v (body: %s)", err, rr.Body.String())
	}
	return env
}

func waitJob(t *testing.T, jobs *job.Manager, id string) job.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := jobs.Get(id)
		if err != nil {
			t.Fatalf("job lookup: %v", err)
		}
		if j.Status.Terminal() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return job.Job{}
}

// --- tests ---

func TestHealth(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := doRequest(t, h, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %q, want %q", body["status"], "healthy")
	}
	if body["app_name"] != "qasmith" {
		t.Errorf("app_name = %q, want %q", body["app_name"], "qasmith")
	}
}

func TestRoot(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := doRequest(t, h, http.MethodGet, "/", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "running" {
		t.Errorf("status = %q, want %q", body["status"], "running")
	}
	if body["version"] != "test" {
		t.Errorf("version = %q, want %q", body["version"], "test")
	}
}

func TestEnhance_SingleObject(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	body := []byte(`{"question": "How do I reset?", "answer": "Press the button."}`)
	rr := doRequest(t, h, http.MethodPost, "/api/v1/answer/enhance", "application/json", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}

	env := decodeEnvelope(t, rr)
	if env.Code != 200 || env.Message != "success" {
		t.Errorf("envelope = %d/%q, want 200/success", env.Code, env.Message)
	}

	var result pipeline.EnhancementResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("total = %d, want 1", result.Total)
	}
	if len(result.EnhancedAnswers) != 1 || result.EnhancedAnswers[0] != "Press the button. [enhanced]" {
		t.Errorf("enhanced_answers = %v", result.EnhancedAnswers)
	}
}

func TestEnhance_List(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	body := []byte(`[
		{"question": "q1", "answer": "a1"},
		{"question": "q2", "answer": "a2"}
	]`)
	rr := doRequest(t, h, http.MethodPost, "/api/v1/answer/enhance", "application/json", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}

	var result pipeline.EnhancementResult
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &result); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("total = %d, want 2", result.Total)
	}
	want := []string{"a1 [enhanced]", "a2 [enhanced]"}
	for i, w := range want {
		if result.EnhancedAnswers[i] != w {
			t.Errorf("enhanced_answers[%d] = %q, want %q", i, result.EnhancedAnswers[i], w)
		}
	}
}

func TestEnhance_InvalidBody(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := doRequest(t, h, http.MethodPost, "/api/v1/answer/enhance", "application/json", []byte(`{notjson`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Code != http.StatusBadRequest {
		t.Errorf("envelope code = %d, want 400", env.Code)
	}
}

func TestEnhance_MissingFields(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := doRequest(t, h, http.MethodPost, "/api/v1/answer/enhance", "application/json", []byte(`{"question": "q"}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestEnhance_UpstreamFault(t *testing.T) {
	deps := newTestDeps(t)
	deps.Enhance = enhance.NewService(
		stubDecider{s: strategy.Direct},
		stubTransformer{fn: func(string, string) (string, error) {
			return "", &enhance.TransformError{Err: errors.New("model unreachable")}
		}},
	)
	h := NewHandler(deps)

	body := []byte(`{"question": "q", "answer": "a"}`)
	rr := doRequest(t, h, http.MethodPost, "/api/v1/answer/enhance", "application/json", body)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
}

func TestEnhanceAsync_CompletesAndPollable(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(deps)

	body := []byte(`[{"question": "q1", "answer": "a1"}, {"question": "q2", "answer": "a2"}]`)
	rr := doRequest(t, h, http.MethodPost, "/api/v1/answer/async/enhance", "application/json", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}

	var data map[string]string
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &data); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	jobID := data["job_id"]
	if jobID == "" {
		t.Fatal("no job_id in response")
	}

	waitJob(t, deps.Jobs, jobID)

	rr = doRequest(t, h, http.MethodGet, "/api/v1/jobs/"+jobID, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("job status = %d, want 200", rr.Code)
	}

	var polled struct {
		Status   string `json:"status"`
		Progress int    `json:"progress"`
		Result   struct {
			Total int `json:"total"`
		} `json:"result"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &polled); err != nil {
		t.Fatalf("decoding job: %v", err)
	}
	if polled.Status != "completed" {
		t.Errorf("status = %q, want completed", polled.Status)
	}
	if polled.Progress != 100 {
		t.Errorf("progress = %d, want 100", polled.Progress)
	}
	if polled.Result.Total != 2 {
		t.Errorf("result total = %d, want 2", polled.Result.Total)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := doRequest(t, h, http.MethodGet, "/api/v1/jobs/nope", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestGetJob_ArchiveFallback(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(deps)

	now := time.Now().UTC().Truncate(time.Second)
	archived := job.Job{
		ID:        "archived-1",
		Type:      "qa_generation",
		Status:    job.StatusCompleted,
		Progress:  100,
		Result:    map[string]any{"total": 3},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := deps.Store.ArchiveJob(archived); err != nil {
		t.Fatalf("archiving: %v", err)
	}

	rr := doRequest(t, h, http.MethodGet, "/api/v1/jobs/archived-1", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}

	var polled struct {
		Status string `json:"status"`
		Result struct {
			Total int `json:"total"`
		} `json:"result"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &polled); err != nil {
		t.Fatalf("decoding job: %v", err)
	}
	if polled.Status != "completed" {
		t.Errorf("status = %q, want completed", polled.Status)
	}
	if polled.Result.Total != 3 {
		t.Errorf("result total = %d, want 3", polled.Result.Total)
	}
}

const sampleRecordsBody = `{
	"data": {
		"RECORDS": [
			{
				"消息内容": [
					{"sender": "用户", "content": "你好"},
					{"sender": "客服", "content": "您好，请问有什么可以帮您？"}
				]
			}
		]
	},
	"metadata": {"source": "test"}
}`

func TestGenerateFromBody(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(deps)

	rr := doRequest(t, h, http.MethodPost, "/api/v1/qa/sync/generate_from_body", "application/json", []byte(sampleRecordsBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}

	var result qagen.Result
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &result); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("total = %d, want 1", result.Total)
	}
	if len(result.QAs) != 1 {
		t.Fatalf("qas = %d, want 1", len(result.QAs))
	}
	if result.QAs[0].Metadata["source"] != "test" {
		t.Errorf("metadata source = %v, want %q", result.QAs[0].Metadata["source"], "test")
	}

	// Successful sync generation persists a dataset.
	datasets, err := deps.Store.ListDatasets(10)
	if err != nil {
		t.Fatalf("listing datasets: %v", err)
	}
	if len(datasets) != 1 {
		t.Fatalf("datasets = %d, want 1", len(datasets))
	}
	if datasets[0].Source != "test" {
		t.Errorf("dataset source = %q, want %q", datasets[0].Source, "test")
	}
}

func TestGenerateFromBody_ReturnFile(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := doRequest(t, h, http.MethodPost, "/api/v1/qa/sync/generate_from_body?return_file=true", "application/json", []byte(sampleRecordsBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	cd := rr.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "attachment") || !strings.Contains(cd, "qa_") {
		t.Errorf("Content-Disposition = %q, want attachment with qa_ filename", cd)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Content-Type = %q, want application/octet-stream", ct)
	}

	env := decodeEnvelope(t, rr)
	if env.Code != 200 {
		t.Errorf("envelope code = %d, want 200", env.Code)
	}
}

func TestGenerateFromBody_DefaultMetadata(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	body := `{"data": {"RECORDS": [{"messages": [{"sender": "a", "content": "hello"}]}]}}`
	rr := doRequest(t, h, http.MethodPost, "/api/v1/qa/sync/generate_from_body", "application/json", []byte(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}

	var result qagen.Result
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &result); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if len(result.QAs) != 1 {
		t.Fatalf("qas = %d, want 1", len(result.QAs))
	}
	if result.QAs[0].Metadata["source"] != "http request" {
		t.Errorf("metadata source = %v, want %q", result.QAs[0].Metadata["source"], "http request")
	}
}

func TestGenerateFromBody_UpstreamFault(t *testing.T) {
	deps := newTestDeps(t)
	deps.QAGen = qagen.NewService(
		stubGenerator{fn: func(string) ([]qagen.Pair, error) {
			return nil, &qagen.GenerateError{Err: errors.New("model unreachable")}
		}},
		keepAllFilter{},
		&qagen.DedupePostProcessor{},
	)
	h := NewHandler(deps)

	rr := doRequest(t, h, http.MethodPost, "/api/v1/qa/sync/generate_from_body", "application/json", []byte(sampleRecordsBody))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}

	// Failed generations persist nothing.
	datasets, err := deps.Store.ListDatasets(10)
	if err != nil {
		t.Fatalf("listing datasets: %v", err)
	}
	if len(datasets) != 0 {
		t.Errorf("datasets = %d, want 0", len(datasets))
	}
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestGenerateFromFile_JSONRecords(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	fileContent := []byte(`{"RECORDS": [{"消息内容": [{"sender": "用户", "content": "咨询一下"}, {"sender": "客服", "content": "好的，请说。"}]}]}`)
	body, contentType := multipartUpload(t, "export.json", fileContent)

	rr := doRequest(t, h, http.MethodPost, "/api/v1/qa/sync/generate_from_file", contentType, body.Bytes())
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}

	var result qagen.Result
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &result); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("total = %d, want 1", result.Total)
	}
	if result.QAs[0].Metadata["source"] != "export.json" {
		t.Errorf("metadata source = %v, want filename", result.QAs[0].Metadata["source"])
	}
}

func TestGenerateFromFile_MissingFile(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	rr := doRequest(t, h, http.MethodPost, "/api/v1/qa/sync/generate_from_file", mw.FormDataContentType(), buf.Bytes())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestGenerateFromBodyAsync(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(deps)

	rr := doRequest(t, h, http.MethodPost, "/api/v1/qa/async/generate_from_body", "application/json", []byte(sampleRecordsBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}

	var data map[string]string
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &data); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	j := waitJob(t, deps.Jobs, data["job_id"])
	if j.Status != job.StatusCompleted {
		t.Fatalf("status = %q, want completed (error: %s)", j.Status, j.Error)
	}

	// Async completion persists the dataset too.
	datasets, err := deps.Store.ListDatasets(10)
	if err != nil {
		t.Fatalf("listing datasets: %v", err)
	}
	if len(datasets) != 1 {
		t.Errorf("datasets = %d, want 1", len(datasets))
	}
}

func TestDatasets_ListAndGet(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(deps)

	payload := `{"generated_count":2,"filtered_count":2,"post_processed_count":2,"total":2,"qas":[]}`
	for i := 0; i < 3; i++ {
		d := storage.Dataset{
			ID:          fmt.Sprintf("ds-%d", i),
			Source:      "seed",
			QACount:     2,
			PayloadJSON: payload,
			CreatedAt:   time.Date(2026, 5, 1, i, 0, 0, 0, time.UTC),
		}
		if err := deps.Store.SaveDataset(d); err != nil {
			t.Fatalf("seeding dataset: %v", err)
		}
	}

	rr := doRequest(t, h, http.MethodGet, "/api/v1/qa/datasets?limit=2", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var list []map[string]any
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &list); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %d entries, want 2", len(list))
	}
	if list[0]["id"] != "ds-2" {
		t.Errorf("first dataset = %v, want ds-2", list[0]["id"])
	}

	rr = doRequest(t, h, http.MethodGet, "/api/v1/qa/datasets/ds-1", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var detail struct {
		ID     string `json:"id"`
		Result struct {
			Total int `json:"total"`
		} `json:"result"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &detail); err != nil {
		t.Fatalf("decoding detail: %v", err)
	}
	if detail.ID != "ds-1" || detail.Result.Total != 2 {
		t.Errorf("detail = %+v", detail)
	}

	rr = doRequest(t, h, http.MethodGet, "/api/v1/qa/datasets/nope", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	deps := newTestDeps(t)
	deps.Token = "secret-token"
	h := NewHandler(deps)

	body := []byte(`{"question": "q", "answer": "a"}`)

	rr := doRequest(t, h, http.MethodPost, "/api/v1/answer/enhance", "application/json", body)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/answer/enhance", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with token = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	// Health stays open.
	rr = doRequest(t, h, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rr.Code)
	}
}

func TestBearerAuth_DisabledWhenEmpty(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	body := []byte(`{"question": "q", "answer": "a"}`)
	rr := doRequest(t, h, http.MethodPost, "/api/v1/answer/enhance", "application/json", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with auth disabled", rr.Code)
	}
}
