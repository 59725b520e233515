package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iRatG/rasprav-bot/internal/models"
	"gorm.io/gorm"
)

// ServiceRepository provides data access for bookable services and their prices.
type ServiceRepository struct {
	db *gorm.DB
}

// NewServiceRepository creates a new service repository.
func NewServiceRepository(db *gorm.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// GetByID fetches a service by id, returning (nil, nil) if it does not exist.
func (r *ServiceRepository) GetByID(ctx context.Context, id int64) (*models.Service, error) {
	var svc models.Service
	err := r.db.WithContext(ctx).First(&svc, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get service %d: %w", id, err)
	}
	return &svc, nil
}

// ListActive returns every active, non-deleted service, ordered by name.
func (r *ServiceRepository) ListActive(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("name ASC").Find(&services).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active services: %w", err)
	}
	return services, nil
}

// Create inserts a new service.
func (r *ServiceRepository) Create(ctx context.Context, svc *models.Service) error {
	if err := r.db.WithContext(ctx).Create(svc).Error; err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

// Update persists changes to an existing service.
func (r *ServiceRepository) Update(ctx context.Context, svc *models.Service) error {
	if err := r.db.WithContext(ctx).Save(svc).Error; err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}
	return nil
}

// CurrentPrice returns the price row in effect for (masterID, serviceID) as
// of now — the row with the latest ActiveFrom that is not in the future.
func (r *ServiceRepository) CurrentPrice(ctx context.Context, masterID, serviceID int64) (*models.Price, error) {
	var price models.Price
	err := r.db.WithContext(ctx).
		Where("master_id = ? AND service_id = ? AND active_from <= ?", masterID, serviceID, time.Now()).
		Order("active_from DESC").
		First(&price).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get current price: %w", err)
	}
	return &price, nil
}

// SetPrice inserts a new price row effective from the given date. Existing
// appointments keep their PriceSnapshotCents untouched — prices are never
// retroactively edited, only superseded going forward.
func (r *ServiceRepository) SetPrice(ctx context.Context, price *models.Price) error {
	if err := r.db.WithContext(ctx).Create(price).Error; err != nil {
		return fmt.Errorf("failed to set price: %w", err)
	}
	return nil
}
