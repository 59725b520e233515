package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iRatG/rasprav-bot/internal/models"
	"gorm.io/gorm"
)

// ClientRepository provides data access for clients.
type ClientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository.
func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// GetByExternalUserID fetches a client by chat-platform user id, returning
// (nil, nil) if they have never been seen before.
func (r *ClientRepository) GetByExternalUserID(ctx context.Context, externalID int64) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).Where("external_user_id = ?", externalID).First(&client).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client by external user id: %w", err)
	}
	return &client, nil
}

// GetByID fetches a client by primary key, returning (nil, nil) if it
// does not exist — used when a master-initiated action needs to notify
// the client on the other end of an appointment.
func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).First(&client, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client %d: %w", id, err)
	}
	return &client, nil
}

// Create inserts a new client.
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	if err := r.db.WithContext(ctx).Create(client).Error; err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// Update persists changes to an existing client.
func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	if err := r.db.WithContext(ctx).Save(client).Error; err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return nil
}

// ListSleepingCandidates returns active clients whose last visit (or, if
// they have never visited, creation) is older than the threshold and who
// have not received a reactivation message within the cooldown window.
func (r *ClientRepository) ListSleepingCandidates(ctx context.Context, olderThan time.Time, cooldownCutoff time.Time) ([]models.Client, error) {
	var clients []models.Client
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ClientStatusActive).
		Where("(last_visit_at IS NULL AND created_at < ?) OR last_visit_at < ?", olderThan, olderThan).
		Where("last_reactivation_sent_at IS NULL OR last_reactivation_sent_at < ?", cooldownCutoff).
		Find(&clients).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sleeping candidates: %w", err)
	}
	return clients, nil
}
