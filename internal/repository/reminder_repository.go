package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iRatG/rasprav-bot/internal/models"
	"gorm.io/gorm"
)

// ReminderRepository provides data access for reminders.
type ReminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository creates a new reminder repository.
func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// CreateBatch inserts the reminders planned for a freshly booked appointment,
// within the caller's transaction.
func (r *ReminderRepository) CreateBatch(ctx context.Context, tx *gorm.DB, reminders []models.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	if err := tx.WithContext(ctx).Create(&reminders).Error; err != nil {
		return fmt.Errorf("failed to create reminders: %w", err)
	}
	return nil
}

// CancelPendingForAppointment flips every pending reminder for an
// appointment to cancelled, within the caller's transaction.
func (r *ReminderRepository) CancelPendingForAppointment(ctx context.Context, tx *gorm.DB, appointmentID int64) error {
	err := tx.WithContext(ctx).
		Model(&models.Reminder{}).
		Where("appointment_id = ? AND status = ?", appointmentID, models.ReminderStatusPending).
		Update("status", models.ReminderStatusCancelled).Error
	if err != nil {
		return fmt.Errorf("failed to cancel pending reminders: %w", err)
	}
	return nil
}

// DueWithAppointment returns every pending reminder whose fire time has
// passed, eagerly loading its parent appointment — the dispatcher needs the
// appointment's status and client/master to classify each reminder.
func (r *ReminderRepository) DueWithAppointment(ctx context.Context, asOf time.Time) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := r.db.WithContext(ctx).
		Preload("Appointment").
		Where("status = ? AND fire_at <= ?", models.ReminderStatusPending, asOf).
		Order("fire_at ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return reminders, nil
}

// Update persists changes to an existing reminder within the caller's transaction.
func (r *ReminderRepository) Update(ctx context.Context, tx *gorm.DB, reminder *models.Reminder) error {
	if err := tx.WithContext(ctx).Save(reminder).Error; err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	return nil
}
