package store

import "time"

// GORM model used for persistence.
type ReviewModel struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	Rating            int       `gorm:"not null;index"`
	Body              string    `gorm:"type:text;not null"`
	UserResponse      *string   `gorm:"type:text"`
	Summary           *string   `gorm:"type:text"`
	RecommendedAction *string   `gorm:"type:text"`
	CreatedAt         time.Time `gorm:"not null"`
}

// TableName keeps the table name aligned with the public API vocabulary.
func (ReviewModel) TableName() string { return "reviews" }
