package app

import "errors"

var (
	// ErrInvalidRating indicates a rating outside the accepted 1..5 range.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrEmptyReview indicates a submission without review text.
	ErrEmptyReview = errors.New("review text is required")
	// ErrInvalidLimit indicates a non-positive list limit.
	ErrInvalidLimit = errors.New("limit must be a positive integer")
	// ErrReviewNotFound indicates an operation addressed a nonexistent review.
	ErrReviewNotFound = errors.New("review not found")
	// ErrGatewayUnavailable indicates the text-generation service failed.
	ErrGatewayUnavailable = errors.New("text generation unavailable")
)
