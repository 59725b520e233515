package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iRatG/rasprav-bot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppointmentRepository provides data access for appointments.
type AppointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create inserts a new appointment within the caller's transaction.
func (r *AppointmentRepository) Create(ctx context.Context, tx *gorm.DB, apt *models.Appointment) error {
	if err := tx.WithContext(ctx).Create(apt).Error; err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

// GetByID fetches an appointment by id, returning (nil, nil) if it does not exist.
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	var apt models.Appointment
	err := r.db.WithContext(ctx).First(&apt, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get appointment %d: %w", id, err)
	}
	return &apt, nil
}

// LockConflicting takes a row-level lock on and returns any active
// appointment for masterID whose window overlaps [start, end). This is the
// application-level first line of defense against double-booking; the
// range-exclusion constraint on the appointments table is the backstop that
// holds even if two transactions race past this check.
func (r *AppointmentRepository) LockConflicting(ctx context.Context, tx *gorm.DB, masterID int64, start, end time.Time) ([]models.Appointment, error) {
	var conflicts []models.Appointment
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("master_id = ?", masterID).
		Where("status NOT IN ?", []models.AppointmentStatus{models.AppointmentStatusCancelled, models.AppointmentStatusLateCancel}).
		Where("start_time < ? AND end_time > ?", end, start).
		Find(&conflicts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock conflicting appointments: %w", err)
	}
	return conflicts, nil
}

// ListActiveForMasterInWindow returns a master's non-cancelled appointments
// (any status except cancelled/late_cancel) whose [start, end) overlaps
// [from, to), used by the slot engine to compute availability.
func (r *AppointmentRepository) ListActiveForMasterInWindow(ctx context.Context, masterID int64, from, to time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Where("master_id = ?", masterID).
		Where("status NOT IN ?", []models.AppointmentStatus{models.AppointmentStatusCancelled, models.AppointmentStatusLateCancel}).
		Where("start_time < ? AND end_time > ?", to, from).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active appointments: %w", err)
	}
	return appointments, nil
}

// ListUpcomingForClient returns a client's active, future appointments, soonest first.
func (r *AppointmentRepository) ListUpcomingForClient(ctx context.Context, clientID int64, now time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Where("status NOT IN ?", []models.AppointmentStatus{models.AppointmentStatusCancelled, models.AppointmentStatusLateCancel, models.AppointmentStatusDone}).
		Where("start_time >= ?", now).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}
	return appointments, nil
}

// ListForMasterOnDate returns a master's appointments starting within a
// calendar day window, used by the "today"/"tomorrow" master commands.
func (r *AppointmentRepository) ListForMasterOnDate(ctx context.Context, masterID int64, dayStart, dayEnd time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Where("master_id = ?", masterID).
		Where("start_time >= ? AND start_time < ?", dayStart, dayEnd).
		Where("status NOT IN ?", []models.AppointmentStatus{models.AppointmentStatusCancelled, models.AppointmentStatusLateCancel}).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments for master on date: %w", err)
	}
	return appointments, nil
}

// ListActiveForMasterSince returns a master's booked/confirmed/arrived
// appointments starting after the given instant, soonest first — used by
// the master_statuses command to surface the next appointment needing an
// arrival/done/cancel action.
func (r *AppointmentRepository) ListActiveForMasterSince(ctx context.Context, masterID int64, after time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Where("master_id = ?", masterID).
		Where("status IN ?", []models.AppointmentStatus{models.AppointmentStatusBooked, models.AppointmentStatusConfirmed, models.AppointmentStatusArrived}).
		Where("start_time > ?", after).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active appointments for master: %w", err)
	}
	return appointments, nil
}

// ListUpcomingUnconfirmed returns a master's still-booked (not yet
// confirmed) appointments starting within [from, to) — the admin
// dashboard's "upcoming unconfirmed" panel.
func (r *AppointmentRepository) ListUpcomingUnconfirmed(ctx context.Context, masterID int64, from, to time.Time) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Where("master_id = ?", masterID).
		Where("status = ?", models.AppointmentStatusBooked).
		Where("start_time >= ? AND start_time < ?", from, to).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unconfirmed appointments: %w", err)
	}
	return appointments, nil
}

// Update persists changes to an existing appointment, optionally within a
// caller-supplied transaction (pass nil to use the repository's own db).
func (r *AppointmentRepository) Update(ctx context.Context, tx *gorm.DB, apt *models.Appointment) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	if err := db.WithContext(ctx).Save(apt).Error; err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}
