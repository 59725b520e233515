package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iRatG/rasprav-bot/internal/models"
	"gorm.io/gorm"
)

// BlackoutRepository provides data access for master blackout windows.
type BlackoutRepository struct {
	db *gorm.DB
}

// NewBlackoutRepository creates a new blackout repository.
func NewBlackoutRepository(db *gorm.DB) *BlackoutRepository {
	return &BlackoutRepository{db: db}
}

// Create inserts a new blackout window.
func (r *BlackoutRepository) Create(ctx context.Context, blackout *models.Blackout) error {
	if err := r.db.WithContext(ctx).Create(blackout).Error; err != nil {
		return fmt.Errorf("failed to create blackout: %w", err)
	}
	return nil
}

// ListOverlapping returns blackout windows for a master overlapping [from, to).
func (r *BlackoutRepository) ListOverlapping(ctx context.Context, masterID int64, from, to time.Time) ([]models.Blackout, error) {
	var blackouts []models.Blackout
	err := r.db.WithContext(ctx).
		Where("master_id = ?", masterID).
		Where("start_time < ? AND end_time > ?", to, from).
		Find(&blackouts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list blackouts: %w", err)
	}
	return blackouts, nil
}
