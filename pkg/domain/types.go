package domain

import "time"

// Rating bounds for a submitted review.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a customer-submitted star rating with free text, plus the
// AI-derived fields filled in over its lifecycle. UserResponse is written
// once at submission time; Summary and RecommendedAction are written
// together, at most once, when analysis is requested.
type Review struct {
	ID                int64     `json:"id"`
	Rating            int       `json:"rating"`
	Body              string    `json:"review"`
	UserResponse      *string   `json:"user_response"`
	Summary           *string   `json:"summary"`
	RecommendedAction *string   `json:"recommended_action"`
	CreatedAt         time.Time `json:"created_at"`
}

// HasAnalysis reports whether summary and recommended action are both set.
func (r Review) HasAnalysis() bool {
	return r.Summary != nil && r.RecommendedAction != nil
}

// ValidRating reports whether the rating is inside the accepted 1..5 range.
func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
