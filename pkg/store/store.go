package store

import "feedbackhub/pkg/domain"

// Store defines persistence operations for reviews.
type Store interface {
	// CreateReview persists a new review, assigns the next id, and returns
	// the stored record.
	CreateReview(domain.Review) (domain.Review, error)

	// ListReviews returns reviews with rating >= minRating, newest id first,
	// truncated to limit records.
	ListReviews(minRating, limit int) ([]domain.Review, error)

	// GetReview returns a review by id with a found flag.
	GetReview(id int64) (domain.Review, bool, error)

	// SetAnalysis writes summary and recommended action together for a review
	// that has neither yet. It reports false when another writer got there
	// first or the review does not exist; a stored analysis is never
	// overwritten.
	SetAnalysis(id int64, summary, action string) (bool, error)
}
