package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type fakeBackend struct {
	t *testing.T
	// handler decides the response for each chat completion request.
	handler func(w http.ResponseWriter, model, prompt string)
	calls   atomic.Int64
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("decode request: %v", err)
		writeAPIError(w, 400, "bad request")
		return
	}
	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}
	f.handler(w, req.Model, prompt)
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "test_error"},
	})
}

func newTestClient(t *testing.T, backend *fakeBackend, candidates ...string) *Client {
	t.Helper()
	backend.t = t
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/v1", "test-key", candidates)
}

func TestGenerateMissingCredential(t *testing.T) {
	backend := &fakeBackend{handler: func(w http.ResponseWriter, model, prompt string) {
		writeCompletion(w, "should never be called")
	}}
	backend.t = t
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	c := New(srv.URL+"/v1", "", nil)
	_, err := c.Generate(context.Background(), "hello", 0.3)
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("got %v, want ErrMissingCredential", err)
	}
	if backend.calls.Load() != 0 {
		t.Errorf("made %d network calls, want 0", backend.calls.Load())
	}
}

func TestProbeSelectsFirstWorkingModel(t *testing.T) {
	backend := &fakeBackend{handler: func(w http.ResponseWriter, model, prompt string) {
		if model == "broken-model" {
			writeAPIError(w, 404, "model not found")
			return
		}
		writeCompletion(w, "OK")
	}}
	c := newTestClient(t, backend, "broken-model", "working-model")

	got, err := c.Generate(context.Background(), "2+2?", 0.3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "OK" {
		t.Errorf("got %q", got)
	}

	// Probe (x2) plus the real call; a second call reuses the cache.
	before := backend.calls.Load()
	if _, err := c.Generate(context.Background(), "again", 0.3); err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if backend.calls.Load() != before+1 {
		t.Errorf("cache miss: %d extra calls, want 1", backend.calls.Load()-before)
	}
}

func TestGenerateClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		wantErr error
	}{
		{"invalid key", 401, "invalid api key", ErrInvalidCredential},
		{"rate limited", 429, "quota exceeded", ErrRateLimited},
		{"unavailable", 503, "overloaded", ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probed := false
			backend := &fakeBackend{handler: func(w http.ResponseWriter, model, prompt string) {
				if !probed && prompt == "Say OK" {
					probed = true
					writeCompletion(w, "OK")
					return
				}
				writeAPIError(w, tt.status, tt.message)
			}}
			c := newTestClient(t, backend, "m1")

			_, err := c.Generate(context.Background(), "prompt", 0.3)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateNoContent(t *testing.T) {
	backend := &fakeBackend{handler: func(w http.ResponseWriter, model, prompt string) {
		if prompt == "Say OK" {
			writeCompletion(w, "OK")
			return
		}
		writeCompletion(w, "   ")
	}}
	c := newTestClient(t, backend, "m1")

	_, err := c.Generate(context.Background(), "prompt", 0.3)
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("got %v, want ErrNoContent", err)
	}
}

func TestUnknownFailureInvalidatesModel(t *testing.T) {
	var failNext atomic.Bool
	backend := &fakeBackend{handler: func(w http.ResponseWriter, model, prompt string) {
		if failNext.Load() && prompt != "Say OK" {
			failNext.Store(false)
			writeAPIError(w, 500, "internal wobble")
			return
		}
		writeCompletion(w, "fine")
	}}
	c := newTestClient(t, backend, "m1")

	if _, err := c.Generate(context.Background(), "warm up", 0.3); err != nil {
		t.Fatalf("warm up: %v", err)
	}

	failNext.Store(true)
	if _, err := c.Generate(context.Background(), "boom", 0.3); err == nil {
		t.Fatal("expected an error")
	}

	// The failure should have dropped the cached model: the next call
	// re-probes before generating.
	before := backend.calls.Load()
	if _, err := c.Generate(context.Background(), "recovered", 0.3); err != nil {
		t.Fatalf("recovery: %v", err)
	}
	if backend.calls.Load() != before+2 {
		t.Errorf("got %d calls after failure, want 2 (probe + generate)", backend.calls.Load()-before)
	}
}

func TestRemediation(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrMissingCredential, "STUDIUM_LLM_KEY"},
		{ErrRateLimited, "Wait"},
		{ErrUnavailable, "temporarily unavailable"},
		{errors.New("weird"), "unexpectedly"},
	}
	for _, tt := range tests {
		if got := Remediation(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("Remediation(%v) = %q, want substring %q", tt.err, got, tt.want)
		}
	}
}
