package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func geminiSuccessBody(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	}
}

func TestGeminiGenerateText(t *testing.T) {
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.5-flash") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(geminiSuccessBody("hello there"))
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key", WithGeminiBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	got, err := client.GenerateText(context.Background(), "models/gemini-2.5-flash", "be friendly", "say hi")
	if err != nil {
		t.Fatalf("generate text: %v", err)
	}
	if got != "hello there" {
		t.Fatalf("got %q, want %q", got, "hello there")
	}
	if gotBody.SystemInstruction == nil || gotBody.SystemInstruction.Parts[0].Text != "be friendly" {
		t.Fatalf("system instruction not forwarded: %+v", gotBody.SystemInstruction)
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Parts[0].Text != "say hi" {
		t.Fatalf("user prompt not forwarded: %+v", gotBody.Contents)
	}
}

func TestGeminiRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(geminiSuccessBody("recovered"))
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key", WithGeminiBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.maxRetries = 2

	got, err := client.GenerateText(context.Background(), "gemini-2.5-flash", "", "hi")
	if err != nil {
		t.Fatalf("generate text after retry: %v", err)
	}
	if got != "recovered" {
		t.Fatalf("got %q, want %q", got, "recovered")
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}
}

func TestGeminiDoesNotRetryAuthFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "bad key"}})
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key", WithGeminiBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.GenerateText(context.Background(), "gemini-2.5-flash", "", "hi")
	if err == nil {
		t.Fatalf("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("error should carry provider message, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("auth failure must not be retried, got %d attempts", n)
	}
}

func TestGeminiEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	client, err := NewGeminiClient("test-key", WithGeminiBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.GenerateText(context.Background(), "gemini-2.5-flash", "", "hi"); err == nil {
		t.Fatalf("expected error for empty candidates")
	}
}

func TestGeminiClientRequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiClient("  "); err == nil {
		t.Fatalf("expected error for blank api key")
	}
}
