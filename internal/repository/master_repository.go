package repository

import (
	"context"
	"fmt"

	"github.com/iRatG/rasprav-bot/internal/models"
	"gorm.io/gorm"
)

// MasterRepository provides data access for masters.
type MasterRepository struct {
	db *gorm.DB
}

// NewMasterRepository creates a new master repository.
func NewMasterRepository(db *gorm.DB) *MasterRepository {
	return &MasterRepository{db: db}
}

// GetSole returns the single master row this deployment serves (the row
// with the lowest id). The schema allows more than one row, but the client
// booking flow and the admin profile handlers resolve "the master" this
// way — there is exactly one active deployment per master, per the
// single-tenant scope.
func (r *MasterRepository) GetSole(ctx context.Context) (*models.Master, error) {
	var master models.Master
	if err := r.db.WithContext(ctx).Order("id ASC").First(&master).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get master: %w", err)
	}
	return &master, nil
}

// GetByExternalChatUserID looks up a master by their chat-platform user id,
// used to decide whether an inbound update should be routed to the
// master-role handlers.
func (r *MasterRepository) GetByExternalChatUserID(ctx context.Context, externalID int64) (*models.Master, error) {
	var master models.Master
	err := r.db.WithContext(ctx).Where("external_chat_user_id = ?", externalID).First(&master).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get master by external chat user id: %w", err)
	}
	return &master, nil
}

// Update persists changes to an existing master row (timezone, work
// window, buffer).
func (r *MasterRepository) Update(ctx context.Context, master *models.Master) error {
	if err := r.db.WithContext(ctx).Save(master).Error; err != nil {
		return fmt.Errorf("failed to update master: %w", err)
	}
	return nil
}
