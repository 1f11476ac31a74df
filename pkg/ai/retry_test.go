package ai

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := &apiError{provider: "gemini", status: http.StatusBadRequest, message: "bad request"}
	err := withRetry(context.Background(), 3, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("permanent errors must not be retried, got %d calls", calls)
	}
}

func TestWithRetryExhaustsTransientError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 1, func() error {
		calls++
		return &apiError{provider: "gemini", status: http.StatusTooManyRequests}
	})
	if err == nil {
		t.Fatalf("expected error after retries exhausted")
	}
	if calls != 2 {
		t.Fatalf("expected initial attempt plus one retry, got %d calls", calls)
	}
}

func TestWithRetryHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 3, func() error {
		return &apiError{provider: "ollama", status: http.StatusBadGateway}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
