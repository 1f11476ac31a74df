package store

import (
	"sync"

	"feedbackhub/pkg/domain"
)

// MemoryStore keeps reviews in-process. It backs tests and single-node
// deployments that do not need Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	reviews map[int64]domain.Review
	order   []int64
	nextID  int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reviews: make(map[int64]domain.Review),
		nextID:  1,
	}
}

// CreateReview assigns the next id and stores the review.
func (m *MemoryStore) CreateReview(r domain.Review) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextID
	m.nextID++
	m.reviews[r.ID] = r
	m.order = append(m.order, r.ID)
	return r, nil
}

// ListReviews returns reviews at or above minRating, newest id first.
func (m *MemoryStore) ListReviews(minRating, limit int) ([]domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Review, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(res) < limit; i-- {
		r, ok := m.reviews[m.order[i]]
		if !ok || r.Rating < minRating {
			continue
		}
		res = append(res, r)
	}
	return res, nil
}

// GetReview retrieves a review by id.
func (m *MemoryStore) GetReview(id int64) (domain.Review, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reviews[id]
	return r, ok, nil
}

// SetAnalysis fills summary and recommended action together, only when the
// review exists and has no analysis yet.
func (m *MemoryStore) SetAnalysis(id int64, summary, action string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok || r.HasAnalysis() {
		return false, nil
	}
	r.Summary = &summary
	r.RecommendedAction = &action
	m.reviews[id] = r
	return true, nil
}
