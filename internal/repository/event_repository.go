package repository

import (
	"context"
	"fmt"

	"github.com/iRatG/rasprav-bot/internal/models"
	"gorm.io/gorm"
)

// EventRepository provides append-only access to the audit log. There is
// deliberately no Update or Delete method — events are never edited.
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Record inserts an event, optionally within a caller-supplied transaction
// (pass nil to use the repository's own db).
func (r *EventRepository) Record(ctx context.Context, tx *gorm.DB, event *models.Event) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	if err := db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}
