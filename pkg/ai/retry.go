package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultMaxRetries     = 2
	defaultInitialBackoff = 500 * time.Millisecond
)

// apiError carries the HTTP status of a failed provider call so the retry
// loop can tell transient failures from permanent ones.
type apiError struct {
	provider string
	status   int
	message  string
}

func (e *apiError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("%s api error: %s", e.provider, e.message)
	}
	return fmt.Sprintf("%s api error: status %d", e.provider, e.status)
}

func retryable(err error) bool {
	var provErr *apiError
	if errors.As(err, &provErr) {
		return provErr.status == http.StatusTooManyRequests || provErr.status >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// withRetry runs fn with bounded exponential backoff on transient failures.
// Auth and other client errors are returned immediately.
func withRetry(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt < maxRetries {
			backoff := time.Duration(1<<uint(attempt)) * defaultInitialBackoff
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
