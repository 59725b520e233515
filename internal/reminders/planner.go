// Package reminders plans the fixed-offset reminder rows tied to an
// appointment. Cancelling them lives in
// repository.ReminderRepository.CancelPendingForAppointment, and dispatch
// (actually sending them) lives in pkg/scheduler, which is the only
// component that needs wall-clock cron timing.
package reminders

import (
	"time"

	"github.com/iRatG/rasprav-bot/internal/models"
)

type offset struct {
	before time.Duration
	kind   models.ReminderKind
}

var offsets = []offset{
	{before: 24 * time.Hour, kind: models.ReminderKindConfirm24h},
	{before: 6 * time.Hour, kind: models.ReminderKindConfirm6h},
	{before: 3 * time.Hour, kind: models.ReminderKindRemind3h},
}

// Plan builds the reminder rows for a freshly booked appointment, skipping
// any whose fire time would already be in the past (relevant for
// same-day bookings made inside one of the offset windows).
func Plan(appointment *models.Appointment, now time.Time) []models.Reminder {
	reminders := make([]models.Reminder, 0, len(offsets))
	for _, o := range offsets {
		fireAt := appointment.StartTime.Add(-o.before)
		if fireAt.After(now) {
			reminders = append(reminders, models.Reminder{
				AppointmentID: appointment.ID,
				FireAt:        fireAt,
				Kind:          o.kind,
				Status:        models.ReminderStatusPending,
			})
		}
	}
	return reminders
}
