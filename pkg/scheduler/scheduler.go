package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/iRatG/rasprav-bot/internal/config"
	"github.com/iRatG/rasprav-bot/internal/models"
	"github.com/iRatG/rasprav-bot/internal/repository"
	"github.com/iRatG/rasprav-bot/internal/transport"
	"github.com/iRatG/rasprav-bot/pkg/events"
	"github.com/iRatG/rasprav-bot/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// EventPublisher is the subset of pkg/events.Publisher the scheduler needs.
type EventPublisher interface {
	Publish(subject string, data interface{}) error
}

// Scheduler runs the two background jobs this service needs: the
// once-a-minute reminder dispatcher and the weekly sleeping-client sweep.
type Scheduler struct {
	cron           *cron.Cron
	db             *gorm.DB
	masters        *repository.MasterRepository
	clients        *repository.ClientRepository
	reminders      *repository.ReminderRepository
	eventsRepo     *repository.EventRepository
	transportCli   *transport.Client
	eventPublisher EventPublisher
	business       config.BusinessConfig
	logger         *logger.Logger
}

// New creates a new scheduler.
func New(
	db *gorm.DB,
	masters *repository.MasterRepository,
	clients *repository.ClientRepository,
	reminders *repository.ReminderRepository,
	eventsRepo *repository.EventRepository,
	transportCli *transport.Client,
	eventPublisher EventPublisher,
	business config.BusinessConfig,
	log *logger.Logger,
) *Scheduler {
	loc, err := time.LoadLocation(business.Timezone)
	if err != nil {
		loc = time.UTC
	}

	return &Scheduler{
		// SkipIfStillRunning enforces the "single instance" requirement a
		// bare cron.New() doesn't give you if a run overruns its minute.
		cron:           cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		db:             db,
		masters:        masters,
		clients:        clients,
		reminders:      reminders,
		eventsRepo:     eventsRepo,
		transportCli:   transportCli,
		eventPublisher: eventPublisher,
		business:       business,
		logger:         log,
	}
}

// Start registers and starts the background jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("* * * * *", s.runReminderDispatch); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 10 * * 1", s.runLifecycleSweep); err != nil {
		return err
	}
	s.logger.Info("starting scheduler")
	s.cron.Start()
	return nil
}

// Stop stops the scheduler, waiting for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// runReminderDispatch sends every pending reminder whose fire time has
// passed, classifying each one against its parent appointment's current
// state before sending: a reminder for an inactive appointment is
// cancelled without sending, confirm_6h is skipped once the appointment is
// already confirmed, and remind_3h is only sent once it is. All status
// changes commit in a single transaction at the end of the batch, the
// same shape as the Python original's one `session.commit()` per run.
func (s *Scheduler) runReminderDispatch() {
	ctx := context.Background()
	now := time.Now().UTC()

	due, err := s.reminders.DueWithAppointment(ctx, now)
	if err != nil {
		s.logger.Error("failed to load due reminders", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i := range due {
			s.classifyAndSend(ctx, tx, &due[i])
			if err := s.reminders.Update(ctx, tx, &due[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to commit reminder batch", "error", err)
		return
	}

	s.logger.Info("processed reminders", "count", len(due))
}

func (s *Scheduler) classifyAndSend(ctx context.Context, tx *gorm.DB, reminder *models.Reminder) {
	apt := reminder.Appointment

	if apt.Status != models.AppointmentStatusBooked && apt.Status != models.AppointmentStatusConfirmed {
		reminder.Status = models.ReminderStatusCancelled
		return
	}
	if reminder.Kind == models.ReminderKindConfirm6h && apt.ConfirmedAt != nil {
		reminder.Status = models.ReminderStatusCancelled
		return
	}
	if reminder.Kind == models.ReminderKindRemind3h && apt.ConfirmedAt == nil {
		reminder.Status = models.ReminderStatusCancelled
		return
	}

	var client models.Client
	if err := tx.WithContext(ctx).First(&client, apt.ClientID).Error; err != nil {
		s.logger.Error("failed to load client for reminder", "error", err, "reminder_id", reminder.ID)
		reminder.Status = models.ReminderStatusFailed
		return
	}

	text := reminderText(reminder.Kind, apt)
	sendErr := s.transportCli.SendMessage(client.ChatID, text, nil)

	switch {
	case sendErr == nil:
		sentAt := time.Now().UTC()
		reminder.Status = models.ReminderStatusSent
		reminder.SentAt = &sentAt
		s.recordEvent(ctx, tx, reminderSentEventType(reminder.Kind), &apt.ID, &apt.ClientID, &apt.MasterID, 0, nil)
		if err := s.eventPublisher.Publish(events.ReminderSentEvent, reminder); err != nil {
			s.logger.Error("failed to publish reminder sent event", "error", err)
		}

	case errors.Is(sendErr, transport.ErrBlocked):
		reminder.Status = models.ReminderStatusFailed
		client.Status = models.ClientStatusBlocked
		blockedAt := time.Now().UTC()
		client.StatusUpdatedAt = &blockedAt
		if err := tx.WithContext(ctx).Save(&client).Error; err != nil {
			s.logger.Error("failed to mark client blocked", "error", err)
		}
		s.recordEvent(ctx, tx, "reminder_failed", &apt.ID, &apt.ClientID, &apt.MasterID, 0, map[string]any{"reason": "bot_blocked"})
		s.recordEvent(ctx, tx, "client_blocked_bot", nil, &apt.ClientID, nil, 0, nil)
		if err := s.eventPublisher.Publish(events.ClientBlockedEvent, client); err != nil {
			s.logger.Error("failed to publish client blocked event", "error", err)
		}

	default:
		s.logger.Error("failed to send reminder", "error", sendErr, "reminder_id", reminder.ID)
		reminder.Status = models.ReminderStatusFailed
		s.recordEvent(ctx, tx, "reminder_failed", &apt.ID, &apt.ClientID, &apt.MasterID, 0, map[string]any{"reason": sendErr.Error()})
		if err := s.eventPublisher.Publish(events.ReminderFailedEvent, reminder); err != nil {
			s.logger.Error("failed to publish reminder failed event", "error", err)
		}
	}
}

func (s *Scheduler) recordEvent(ctx context.Context, tx *gorm.DB, eventType string, aptID, clientID, masterID *int64, actorID int64, payload map[string]any) {
	event := &models.Event{
		EventType:     eventType,
		AppointmentID: aptID,
		ClientID:      clientID,
		MasterID:      masterID,
		ActorType:     "scheduler",
		ActorID:       actorID,
	}
	if payload != nil {
		event.Payload = models.NewPayload(payload)
	}
	if err := s.eventsRepo.Record(ctx, tx, event); err != nil {
		s.logger.Error("failed to record scheduler event", "error", err, "event_type", eventType)
	}
}

func reminderSentEventType(kind models.ReminderKind) string {
	switch kind {
	case models.ReminderKindConfirm24h:
		return "reminder_sent_24h"
	case models.ReminderKindConfirm6h:
		return "reminder_sent_6h"
	case models.ReminderKindRemind3h:
		return "reminder_sent_3h"
	default:
		return "reminder_sent"
	}
}

func reminderText(kind models.ReminderKind, apt models.Appointment) string {
	switch kind {
	case models.ReminderKindConfirm24h:
		return "You have an appointment tomorrow. Please confirm."
	case models.ReminderKindConfirm6h:
		return "Your appointment is in 6 hours. Please confirm."
	case models.ReminderKindRemind3h:
		return "Reminder: your appointment is in 3 hours."
	default:
		return "Reminder about your upcoming appointment."
	}
}

// runLifecycleSweep marks active clients who have not visited within
// SleepingThresholdDays as sleeping and sends a reactivation message, at
// most once per ReactivationCooldownDays.
func (s *Scheduler) runLifecycleSweep() {
	ctx := context.Background()
	now := time.Now().UTC()
	sleepingThreshold := now.Add(-time.Duration(s.business.SleepingThresholdDays) * 24 * time.Hour)
	cooldownCutoff := now.Add(-time.Duration(s.business.ReactivationCooldownDays) * 24 * time.Hour)

	candidates, err := s.clients.ListSleepingCandidates(ctx, sleepingThreshold, cooldownCutoff)
	if err != nil {
		s.logger.Error("failed to list sleeping candidates", "error", err)
		return
	}

	sent := 0
	var reactivated []models.Client
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i := range candidates {
			client := &candidates[i]
			sendErr := s.transportCli.SendMessage(client.ChatID, "We miss you! Come back and book your next appointment.", nil)

			if sendErr == nil {
				client.Status = models.ClientStatusSleeping
				client.LastReactivationSentAt = &now
				s.recordEvent(ctx, tx, "client_reactivated", nil, &client.ID, nil, 0, nil)
				reactivated = append(reactivated, *client)
				sent++
			} else if errors.Is(sendErr, transport.ErrBlocked) {
				client.Status = models.ClientStatusBlocked
				client.StatusUpdatedAt = &now
				s.recordEvent(ctx, tx, "client_blocked_bot", nil, &client.ID, nil, 0, nil)
			} else {
				s.logger.Error("failed to send reactivation", "error", sendErr, "client_id", client.ID)
				continue
			}

			if err := tx.WithContext(ctx).Save(client).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to commit lifecycle sweep", "error", err)
		return
	}

	for i := range reactivated {
		if err := s.eventPublisher.Publish(events.ClientReactivatedEvent, reactivated[i]); err != nil {
			s.logger.Error("failed to publish client reactivated event", "error", err, "client_id", reactivated[i].ID)
		}
	}

	s.logger.Info("lifecycle sweep complete", "reactivation_sent", sent)
}
