package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"feedbackhub/internal/util"
	"feedbackhub/pkg/ai"
	"feedbackhub/pkg/domain"
	"feedbackhub/pkg/events"
	"feedbackhub/pkg/store"
)

const (
	defaultGatewayTimeout = 45 * time.Second
	defaultListLimit      = 200
	defaultListMinRating  = domain.MinRating
	maxListLimit          = 1000
)

// FallbackReply is stored as the user response when the gateway cannot
// produce one at submission time. The review itself is always persisted;
// customer feedback is never dropped because the model was down.
const FallbackReply = "Thank you for your review! Our team reads every piece of feedback and will follow up if needed."

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL      string
	Store            store.Store
	Generator        ai.TextGenerator
	Events           events.Publisher
	GatewayTimeout   time.Duration
	ListDefaultLimit int
}

// App is the core application service wiring together storage, the
// text-generation gateway, and event publishing.
type App struct {
	store            store.Store
	generator        ai.TextGenerator
	events           events.Publisher
	gatewayTimeout   time.Duration
	listDefaultLimit int

	// analyses collapses concurrent Analyze calls for the same review id so
	// at most one gateway round-trip pair runs per id in this process.
	analyses singleflight.Group
}

// New constructs the application with database-backed storage for reviews.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("text generator required")
	}
	gatewayTimeout := cfg.GatewayTimeout
	if gatewayTimeout <= 0 {
		gatewayTimeout = defaultGatewayTimeout
	}
	listDefaultLimit := cfg.ListDefaultLimit
	if listDefaultLimit <= 0 {
		listDefaultLimit = defaultListLimit
	}
	return &App{
		store:            dataStore,
		generator:        cfg.Generator,
		events:           cfg.Events,
		gatewayTimeout:   gatewayTimeout,
		listDefaultLimit: listDefaultLimit,
	}, nil
}

// SubmitReview validates and persists a new review. The auto-reply is
// generated synchronously; when the gateway fails the review is stored with
// FallbackReply instead so the submission never silently loses feedback.
func (a *App) SubmitReview(ctx context.Context, rating int, body string) (domain.Review, error) {
	if !domain.ValidRating(rating) {
		return domain.Review{}, ErrInvalidRating
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Review{}, ErrEmptyReview
	}

	reply, err := a.generate(ctx, replySystemPrompt, autoReplyPrompt(rating, body))
	if err != nil {
		util.LoggerFromContext(ctx).Warn("auto reply generation failed", "err", err)
		reply = FallbackReply
	}

	review := domain.Review{
		Rating:       rating,
		Body:         body,
		UserResponse: &reply,
		CreatedAt:    time.Now().UTC(),
	}
	created, err := a.store.CreateReview(review)
	if err != nil {
		return domain.Review{}, fmt.Errorf("save review: %w", err)
	}
	a.publish(ctx, events.ReviewSubmitted, created)
	return created, nil
}

// ListReviews returns reviews with rating >= minRating, newest first.
// Zero values select the defaults (minRating 1, configured list limit).
func (a *App) ListReviews(_ context.Context, minRating, limit int) ([]domain.Review, error) {
	if minRating == 0 {
		minRating = defaultListMinRating
	}
	if !domain.ValidRating(minRating) {
		return nil, ErrInvalidRating
	}
	if limit == 0 {
		limit = a.listDefaultLimit
	}
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	reviews, err := a.store.ListReviews(minRating, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// GetReview returns one review by id.
func (a *App) GetReview(_ context.Context, id int64) (domain.Review, error) {
	review, ok, err := a.store.GetReview(id)
	if err != nil {
		return domain.Review{}, fmt.Errorf("load review: %w", err)
	}
	if !ok {
		return domain.Review{}, ErrReviewNotFound
	}
	return review, nil
}

// Analyze fills in summary and recommended action for a review. The call is
// idempotent: an existing analysis is returned unchanged without touching
// the gateway. Gateway failures leave both fields unset so a later retry
// can succeed.
func (a *App) Analyze(ctx context.Context, id int64) (domain.Review, error) {
	review, ok, err := a.store.GetReview(id)
	if err != nil {
		return domain.Review{}, fmt.Errorf("load review: %w", err)
	}
	if !ok {
		return domain.Review{}, ErrReviewNotFound
	}
	if review.HasAnalysis() {
		return review, nil
	}
	result, err, _ := a.analyses.Do(strconv.FormatInt(id, 10), func() (any, error) {
		return a.runAnalysis(ctx, review)
	})
	if err != nil {
		return domain.Review{}, err
	}
	return result.(domain.Review), nil
}

func (a *App) runAnalysis(ctx context.Context, review domain.Review) (domain.Review, error) {
	summary, err := a.generate(ctx, analysisSystemPrompt, summaryPrompt(review.Body))
	if err != nil {
		return domain.Review{}, err
	}
	action, err := a.generate(ctx, analysisSystemPrompt, actionPrompt(review.Body))
	if err != nil {
		return domain.Review{}, err
	}
	won, err := a.store.SetAnalysis(review.ID, summary, action)
	if err != nil {
		return domain.Review{}, fmt.Errorf("save analysis: %w", err)
	}
	if !won {
		// Another writer finished first; its analysis stands.
		current, ok, err := a.store.GetReview(review.ID)
		if err != nil {
			return domain.Review{}, fmt.Errorf("load review: %w", err)
		}
		if !ok {
			return domain.Review{}, ErrReviewNotFound
		}
		return current, nil
	}
	review.Summary = &summary
	review.RecommendedAction = &action
	a.publish(ctx, events.ReviewAnalyzed, review)
	return review, nil
}

func (a *App) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.gatewayTimeout)
	defer cancel()
	text, err := a.generator.GenerateText(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty model output", ErrGatewayUnavailable)
	}
	return text, nil
}

func (a *App) publish(ctx context.Context, eventType string, review domain.Review) {
	if a.events == nil {
		return
	}
	if err := a.events.Publish(ctx, eventType, review); err != nil {
		util.LoggerFromContext(ctx).Warn("publish review event failed", "type", eventType, "review_id", review.ID, "err", err)
	}
}
