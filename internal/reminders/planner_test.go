package reminders

import (
	"testing"
	"time"

	"github.com/iRatG/rasprav-bot/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPlan_AllThreeOffsetsInFuture(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	apt := &models.Appointment{ID: 7, StartTime: now.Add(48 * time.Hour)}

	planned := Plan(apt, now)

	assert.Len(t, planned, 3)
	kinds := []models.ReminderKind{models.ReminderKindConfirm24h, models.ReminderKindConfirm6h, models.ReminderKindRemind3h}
	for i, r := range planned {
		assert.Equal(t, apt.ID, r.AppointmentID)
		assert.Equal(t, kinds[i], r.Kind)
		assert.Equal(t, models.ReminderStatusPending, r.Status)
		assert.True(t, r.FireAt.After(now))
	}
}

func TestPlan_SameDayBookingSkipsPastOffsets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	// Starts in 4 hours: only the 3h-before offset is still in the future.
	apt := &models.Appointment{ID: 9, StartTime: now.Add(4 * time.Hour)}

	planned := Plan(apt, now)

	assert.Len(t, planned, 1)
	assert.Equal(t, models.ReminderKindRemind3h, planned[0].Kind)
}

func TestPlan_BookingWithinThreeHoursSkipsAll(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	apt := &models.Appointment{ID: 11, StartTime: now.Add(90 * time.Minute)}

	planned := Plan(apt, now)

	assert.Empty(t, planned)
}
