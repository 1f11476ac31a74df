package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"feedbackhub/pkg/domain"
)

const migrateLockID int64 = 48121620

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&ReviewModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateReview inserts a new review and returns it with the assigned id.
func (s *GormStore) CreateReview(r domain.Review) (domain.Review, error) {
	model := reviewToModel(r)
	model.ID = 0
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Review{}, err
	}
	return reviewFromModel(model), nil
}

// ListReviews returns reviews at or above minRating, newest id first.
func (s *GormStore) ListReviews(minRating, limit int) ([]domain.Review, error) {
	var models []ReviewModel
	if err := s.db.Where("rating >= ?", minRating).
		Order("id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Review, 0, len(models))
	for _, m := range models {
		res = append(res, reviewFromModel(m))
	}
	return res, nil
}

// GetReview retrieves a review by id.
func (s *GormStore) GetReview(id int64) (domain.Review, bool, error) {
	var model ReviewModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Review{}, false, nil
		}
		return domain.Review{}, false, err
	}
	return reviewFromModel(model), true, nil
}

// SetAnalysis fills summary and recommended action in a single conditional
// update. The WHERE clause keeps the write atomic per id: a review that
// already carries an analysis is left untouched and the caller learns it
// lost the race via the false return.
func (s *GormStore) SetAnalysis(id int64, summary, action string) (bool, error) {
	tx := s.db.Model(&ReviewModel{}).
		Where("id = ? AND summary IS NULL AND recommended_action IS NULL", id).
		Updates(map[string]any{
			"summary":            summary,
			"recommended_action": action,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func reviewToModel(r domain.Review) ReviewModel {
	return ReviewModel{
		ID:                r.ID,
		Rating:            r.Rating,
		Body:              r.Body,
		UserResponse:      r.UserResponse,
		Summary:           r.Summary,
		RecommendedAction: r.RecommendedAction,
		CreatedAt:         r.CreatedAt,
	}
}

func reviewFromModel(m ReviewModel) domain.Review {
	return domain.Review{
		ID:                m.ID,
		Rating:            m.Rating,
		Body:              m.Body,
		UserResponse:      m.UserResponse,
		Summary:           m.Summary,
		RecommendedAction: m.RecommendedAction,
		CreatedAt:         m.CreatedAt,
	}
}
