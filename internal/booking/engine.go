// Package booking implements the atomic booking transaction and the
// appointment state machine (booked -> confirmed -> arrived -> done, with
// booked/confirmed -> cancelled or late_cancel).
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iRatG/rasprav-bot/internal/models"
	"github.com/iRatG/rasprav-bot/internal/reminders"
	"github.com/iRatG/rasprav-bot/internal/repository"
	"github.com/iRatG/rasprav-bot/pkg/events"
	"github.com/iRatG/rasprav-bot/pkg/logger"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// exclusionViolationCode is the Postgres SQLSTATE for an EXCLUDE
// constraint violation, what appointments_no_overlap raises when two
// transactions race past the row lock.
const exclusionViolationCode = "23P01"

// EventPublisher is the subset of pkg/events.Publisher the engine needs.
type EventPublisher interface {
	Publish(subject string, data interface{}) error
}

// Engine creates and transitions appointments.
type Engine struct {
	db             *gorm.DB
	appointments   *repository.AppointmentRepository
	services       *repository.ServiceRepository
	reminders      *repository.ReminderRepository
	eventsRepo     *repository.EventRepository
	eventPublisher EventPublisher
	logger         *logger.Logger
}

// NewEngine creates a new booking engine.
func NewEngine(
	db *gorm.DB,
	appointments *repository.AppointmentRepository,
	services *repository.ServiceRepository,
	reminderRepo *repository.ReminderRepository,
	eventsRepo *repository.EventRepository,
	eventPublisher EventPublisher,
	logger *logger.Logger,
) *Engine {
	return &Engine{
		db:             db,
		appointments:   appointments,
		services:       services,
		reminders:      reminderRepo,
		eventsRepo:     eventsRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// CreateRequest describes a booking attempt.
type CreateRequest struct {
	MasterID  int64
	ClientID  int64
	ServiceID int64
	StartTime time.Time
}

// Create books a new appointment for (MasterID, ServiceID) at StartTime,
// inside a single transaction: lock conflicting appointments, insert,
// plan reminders, log the event. The range-exclusion constraint on the
// appointments table is the backstop if two requests still interleave
// past the row lock.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*models.Appointment, error) {
	svc, err := e.services.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc == nil || !svc.Active {
		return nil, ErrServiceInactive
	}

	price, err := e.services.CurrentPrice(ctx, req.MasterID, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if price == nil {
		return nil, ErrPriceUnavailable
	}

	endTime := req.StartTime.Add(time.Duration(svc.DurationMinutes) * time.Minute)

	var appointment *models.Appointment
	err = e.db.Transaction(func(tx *gorm.DB) error {
		conflicts, err := e.appointments.LockConflicting(ctx, tx, req.MasterID, req.StartTime, endTime)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return ErrSlotAlreadyTaken
		}

		apt := &models.Appointment{
			MasterID:           req.MasterID,
			ClientID:           req.ClientID,
			ServiceID:          req.ServiceID,
			StartTime:          req.StartTime,
			EndTime:            endTime,
			Status:             models.AppointmentStatusBooked,
			PriceSnapshotCents: price.PriceCents,
		}
		if err := e.appointments.Create(ctx, tx, apt); err != nil {
			return translatePgError(err)
		}

		plan := reminders.Plan(apt, time.Now().UTC())
		if err := e.reminders.CreateBatch(ctx, tx, plan); err != nil {
			return err
		}

		event := &models.Event{
			EventType:     "appointment_created",
			AppointmentID: &apt.ID,
			ClientID:      &apt.ClientID,
			MasterID:      &apt.MasterID,
			ActorType:     "client",
			ActorID:       apt.ClientID,
			Payload: models.NewPayload(map[string]any{
				"price_cents": apt.PriceSnapshotCents,
				"start_time":  apt.StartTime,
			}),
		}
		if err := e.eventsRepo.Record(ctx, tx, event); err != nil {
			return err
		}

		appointment = apt
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := e.eventPublisher.Publish(events.AppointmentCreatedEvent, appointment); err != nil {
		e.logger.Error("failed to publish appointment created event", "error", err, "appointment_id", appointment.ID)
	}

	return appointment, nil
}

// translatePgError maps a Postgres exclusion-constraint violation to
// ErrSlotAlreadyTaken, leaving every other error untouched.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolationCode {
		return ErrSlotAlreadyTaken
	}
	return fmt.Errorf("failed to create appointment: %w", err)
}

func (e *Engine) load(ctx context.Context, id int64) (*models.Appointment, error) {
	apt, err := e.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt == nil {
		return nil, ErrAppointmentNotFound
	}
	return apt, nil
}

// Confirm marks an appointment confirmed by the client.
func (e *Engine) Confirm(ctx context.Context, appointmentID, actorClientID int64) (*models.Appointment, error) {
	apt, err := e.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.Status == models.AppointmentStatusConfirmed {
		return apt, nil
	}
	if apt.Status.IsTerminal() {
		return nil, ErrTerminalState
	}
	if apt.Status != models.AppointmentStatusBooked {
		return apt, nil
	}

	now := time.Now().UTC()
	apt.Status = models.AppointmentStatusConfirmed
	apt.ConfirmedAt = &now

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := e.appointments.Update(ctx, tx, apt); err != nil {
			return err
		}
		return e.eventsRepo.Record(ctx, tx, &models.Event{
			EventType:     "appointment_confirmed",
			AppointmentID: &apt.ID,
			ClientID:      &apt.ClientID,
			MasterID:      &apt.MasterID,
			ActorType:     "client",
			ActorID:       actorClientID,
		})
	})
	if err != nil {
		return nil, err
	}

	if pubErr := e.eventPublisher.Publish(events.AppointmentConfirmedEvent, apt); pubErr != nil {
		e.logger.Error("failed to publish appointment confirmed event", "error", pubErr, "appointment_id", apt.ID)
	}
	return apt, nil
}

// Arrive marks a client as having arrived, set by the master.
func (e *Engine) Arrive(ctx context.Context, appointmentID, actorMasterID int64) (*models.Appointment, error) {
	apt, err := e.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.Status == models.AppointmentStatusArrived {
		return apt, nil
	}
	if apt.Status.IsTerminal() {
		return nil, ErrTerminalState
	}

	apt.Status = models.AppointmentStatusArrived

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := e.appointments.Update(ctx, tx, apt); err != nil {
			return err
		}
		return e.eventsRepo.Record(ctx, tx, &models.Event{
			EventType:     "client_arrived",
			AppointmentID: &apt.ID,
			ClientID:      &apt.ClientID,
			MasterID:      &apt.MasterID,
			ActorType:     "master",
			ActorID:       actorMasterID,
		})
	})
	if err != nil {
		return nil, err
	}

	if pubErr := e.eventPublisher.Publish(events.AppointmentArrivedEvent, apt); pubErr != nil {
		e.logger.Error("failed to publish appointment arrived event", "error", pubErr, "appointment_id", apt.ID)
	}
	return apt, nil
}

// Done marks the service as completed, updating the client's last visit
// timestamp so lifecycle sweeping sees a fresh visit.
func (e *Engine) Done(ctx context.Context, appointmentID, actorMasterID int64, clients *repository.ClientRepository) (*models.Appointment, error) {
	apt, err := e.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.Status == models.AppointmentStatusDone {
		return apt, nil
	}
	if apt.Status.IsTerminal() {
		return nil, ErrTerminalState
	}

	apt.Status = models.AppointmentStatusDone
	now := time.Now().UTC()

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := e.appointments.Update(ctx, tx, apt); err != nil {
			return err
		}

		var client models.Client
		if err := tx.WithContext(ctx).First(&client, apt.ClientID).Error; err != nil {
			return fmt.Errorf("failed to load client for visit update: %w", err)
		}
		client.LastVisitAt = &now
		if err := tx.WithContext(ctx).Save(&client).Error; err != nil {
			return fmt.Errorf("failed to update client last visit: %w", err)
		}

		return e.eventsRepo.Record(ctx, tx, &models.Event{
			EventType:     "service_done",
			AppointmentID: &apt.ID,
			ClientID:      &apt.ClientID,
			MasterID:      &apt.MasterID,
			ActorType:     "master",
			ActorID:       actorMasterID,
		})
	})
	if err != nil {
		return nil, err
	}

	if pubErr := e.eventPublisher.Publish(events.AppointmentDoneEvent, apt); pubErr != nil {
		e.logger.Error("failed to publish appointment done event", "error", pubErr, "appointment_id", apt.ID)
	}
	return apt, nil
}

// ActorKind identifies who initiated a cancellation.
type ActorKind string

const (
	ActorClient ActorKind = "client"
	ActorMaster ActorKind = "master"
)

// Cancel cancels an appointment and every pending reminder tied to it. A
// cancellation inside the last hour before start is recorded as
// late_cancel rather than cancelled, per the boundary evaluated at cancel
// time (not at the original booking time).
func (e *Engine) Cancel(ctx context.Context, appointmentID int64, actor ActorKind, actorID int64) (*models.Appointment, error) {
	apt, err := e.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.Status.IsTerminal() {
		return apt, nil
	}

	now := time.Now().UTC()
	isLate := apt.StartTime.Sub(now) < time.Hour

	if isLate {
		apt.Status = models.AppointmentStatusLateCancel
	} else {
		apt.Status = models.AppointmentStatusCancelled
	}
	apt.CancelledAt = &now

	eventType := "appointment_cancelled_by_" + string(actor)
	if isLate {
		eventType = "late_cancel"
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := e.appointments.Update(ctx, tx, apt); err != nil {
			return err
		}
		if err := e.reminders.CancelPendingForAppointment(ctx, tx, apt.ID); err != nil {
			return err
		}
		return e.eventsRepo.Record(ctx, tx, &models.Event{
			EventType:     eventType,
			AppointmentID: &apt.ID,
			ClientID:      &apt.ClientID,
			MasterID:      &apt.MasterID,
			ActorType:     string(actor),
			ActorID:       actorID,
			Payload:       models.NewPayload(map[string]any{"is_late": isLate}),
		})
	})
	if err != nil {
		return nil, err
	}

	if pubErr := e.eventPublisher.Publish(events.AppointmentCancelledEvent, apt); pubErr != nil {
		e.logger.Error("failed to publish appointment cancelled event", "error", pubErr, "appointment_id", apt.ID)
	}
	return apt, nil
}
