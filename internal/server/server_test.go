package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"feedbackhub/internal/admintoken"
	"feedbackhub/internal/app"
	"feedbackhub/pkg/domain"
	"feedbackhub/pkg/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type scriptedGenerator struct {
	calls atomic.Int32
}

func (g *scriptedGenerator) GenerateText(_ context.Context, _, userPrompt string) (string, error) {
	g.calls.Add(1)
	return "reply to: " + userPrompt[:min(12, len(userPrompt))], nil
}

func newTestServer(t *testing.T) (*httptest.Server, *scriptedGenerator, *store.MemoryStore) {
	t.Helper()
	gen := &scriptedGenerator{}
	memStore := store.NewMemoryStore()
	appCore, err := app.New(app.Config{Store: memStore, Generator: gen})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	verifier, err := admintoken.NewVerifier(admintoken.VerifierOptions{
		Secret:   testSecret,
		Issuer:   "feedbackhub",
		Audience: "feedbackhub-admin",
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	srv, err := New(Config{App: appCore, AdminTokens: verifier})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, gen, memStore
}

func adminToken(t *testing.T) string {
	t.Helper()
	signer, err := admintoken.NewSigner(admintoken.SignerOptions{
		Secret:   testSecret,
		Issuer:   "feedbackhub",
		Audience: "feedbackhub-admin",
	})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	token, err := signer.Sign("tests")
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func submitReview(t *testing.T, ts *httptest.Server, rating int, body string) domain.Review {
	t.Helper()
	payload, _ := json.Marshal(map[string]any{"rating": rating, "review": body})
	resp, err := http.Post(ts.URL+"/reviews", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("submit request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit expected 201, got %d", resp.StatusCode)
	}
	var review domain.Review
	if err := json.NewDecoder(resp.Body).Decode(&review); err != nil {
		t.Fatalf("decode review: %v", err)
	}
	return review
}

func TestSubmitReview(t *testing.T) {
	ts, _, _ := newTestServer(t)
	review := submitReview(t, ts, 5, "excellent service")
	if review.ID == 0 {
		t.Fatalf("id not assigned")
	}
	if review.Rating != 5 || review.Body != "excellent service" {
		t.Fatalf("record fields wrong: %+v", review)
	}
	if review.UserResponse == nil || *review.UserResponse == "" {
		t.Fatalf("user_response must be non-empty")
	}
	if review.Summary != nil || review.RecommendedAction != nil {
		t.Fatalf("analysis fields must be null at creation")
	}
	if review.CreatedAt.IsZero() {
		t.Fatalf("created_at missing")
	}
}

func TestSubmitReviewRejectsOutOfRangeRating(t *testing.T) {
	ts, gen, memStore := newTestServer(t)
	payload := []byte(`{"rating":6,"review":"impossible"}`)
	resp, err := http.Post(ts.URL+"/reviews", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("submit request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if gen.calls.Load() != 0 {
		t.Fatalf("gateway must not run for rejected input")
	}
	listed, _ := memStore.ListReviews(1, 10)
	if len(listed) != 0 {
		t.Fatalf("rejected submission must not be persisted")
	}
}

func TestSubmitReviewRejectsBadJSON(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/reviews", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("submit request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListReviews(t *testing.T) {
	ts, _, _ := newTestServer(t)
	submitReview(t, ts, 1, "one star")
	submitReview(t, ts, 3, "three stars")
	submitReview(t, ts, 5, "five stars")

	resp, err := http.Get(ts.URL + "/reviews?min_rating=3")
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list expected 200, got %d", resp.StatusCode)
	}
	var reviews []domain.Review
	if err := json.NewDecoder(resp.Body).Decode(&reviews); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(reviews))
	}
	for _, review := range reviews {
		if review.Rating < 3 {
			t.Fatalf("min_rating filter leaked rating %d", review.Rating)
		}
	}
	if reviews[0].ID < reviews[1].ID {
		t.Fatalf("list must be newest-id first")
	}
}

func TestListReviewsLimit(t *testing.T) {
	ts, _, _ := newTestServer(t)
	first := submitReview(t, ts, 4, "one")
	second := submitReview(t, ts, 4, "two")
	third := submitReview(t, ts, 4, "three")
	_ = first

	resp, err := http.Get(ts.URL + "/reviews?min_rating=1&limit=2")
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	defer resp.Body.Close()
	var reviews []domain.Review
	if err := json.NewDecoder(resp.Body).Decode(&reviews); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(reviews) != 2 || reviews[0].ID != third.ID || reviews[1].ID != second.ID {
		t.Fatalf("expected [%d,%d], got %+v", third.ID, second.ID, reviews)
	}
}

func TestListReviewsRejectsBadParams(t *testing.T) {
	ts, _, _ := newTestServer(t)
	for _, query := range []string{"min_rating=abc", "limit=x", "min_rating=9", "limit=-1"} {
		resp, err := http.Get(ts.URL + "/reviews?" + query)
		if err != nil {
			t.Fatalf("list request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("query %q expected 400, got %d", query, resp.StatusCode)
		}
	}
}

func TestGetReview(t *testing.T) {
	ts, _, _ := newTestServer(t)
	created := submitReview(t, ts, 4, "nice")

	resp, err := http.Get(fmt.Sprintf("%s/reviews/%d", ts.URL, created.ID))
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var review domain.Review
	if err := json.NewDecoder(resp.Body).Decode(&review); err != nil {
		t.Fatalf("decode review: %v", err)
	}
	if review.ID != created.ID {
		t.Fatalf("wrong review returned: %+v", review)
	}
}

func TestGetReviewNotFound(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/reviews/999")
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func analyzeRequest(t *testing.T, ts *httptest.Server, id int64, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/admin/reviews/%d/analyze", ts.URL, id), nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("analyze request: %v", err)
	}
	return resp
}

func TestAnalyzeEndpoint(t *testing.T) {
	ts, gen, _ := newTestServer(t)
	created := submitReview(t, ts, 2, "slow shipping")
	token := adminToken(t)
	gen.calls.Store(0)

	resp := analyzeRequest(t, ts, created.ID, token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var review domain.Review
	if err := json.NewDecoder(resp.Body).Decode(&review); err != nil {
		t.Fatalf("decode review: %v", err)
	}
	if !review.HasAnalysis() {
		t.Fatalf("analysis fields not populated: %+v", review)
	}
	if gen.calls.Load() != 2 {
		t.Fatalf("expected 2 gateway calls, got %d", gen.calls.Load())
	}

	// Second trigger is an idempotent no-op.
	resp2 := analyzeRequest(t, ts, created.ID, token)
	defer resp2.Body.Close()
	var again domain.Review
	if err := json.NewDecoder(resp2.Body).Decode(&again); err != nil {
		t.Fatalf("decode review: %v", err)
	}
	if gen.calls.Load() != 2 {
		t.Fatalf("repeat analyze must not call the gateway, got %d calls", gen.calls.Load())
	}
	if *again.Summary != *review.Summary || *again.RecommendedAction != *review.RecommendedAction {
		t.Fatalf("repeat analyze changed the analysis")
	}
}

func TestAnalyzeRequiresAdminToken(t *testing.T) {
	ts, _, _ := newTestServer(t)
	created := submitReview(t, ts, 3, "fine")

	resp := analyzeRequest(t, ts, created.ID, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token expected 401, got %d", resp.StatusCode)
	}

	resp = analyzeRequest(t, ts, created.ID, "not-a-token")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token expected 401, got %d", resp.StatusCode)
	}
}

func TestAnalyzeUnknownReview(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp := analyzeRequest(t, ts, 4242, adminToken(t))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
