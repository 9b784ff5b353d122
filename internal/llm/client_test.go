package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func completionResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func TestComplete_Success(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.Write([]byte(completionResponse("  enhanced answer \n")))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "gpt-test", srv.URL)
	got, err := c.Complete(context.Background(), "system instruction", "user payload")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "enhanced answer" {
		t.Errorf("Complete() = %q, want trimmed %q", got, "enhanced answer")
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotReq.Model != "gpt-test" {
		t.Errorf("model = %q, want gpt-test", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("messages = %+v, want [system, user]", gotReq.Messages)
	}
}

func TestComplete_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(completionResponse("ok")))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("k", "m", srv.URL)
	got, err := c.Complete(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("Complete() = %q, want ok", got)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2 (429 then success)", calls.Load())
	}
}

func TestComplete_NoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("k", "m", srv.URL)
	_, err := c.Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("Complete() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %v, want status 500 mentioned", err)
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1 (no retry on 5xx)", calls.Load())
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("k", "m", srv.URL)
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("Complete() error = nil, want error on empty choices")
	}
}

func TestComplete_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("late")))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClientWithBaseURL("k", "m", srv.URL)
	if _, err := c.Complete(ctx, "s", "u"); err == nil {
		t.Fatal("Complete() error = nil, want context error")
	}
}
