package transport

import (
	"fmt"
	"time"

	"github.com/iRatG/rasprav-bot/internal/models"
)

// statusLabels mirrors original_source/'s _fmt_appointment_for_master
// STATUS_LABELS table.
var statusLabels = map[models.AppointmentStatus]string{
	models.AppointmentStatusBooked:     "pending",
	models.AppointmentStatusConfirmed:  "confirmed",
	models.AppointmentStatusArrived:    "arrived",
	models.AppointmentStatusDone:       "done",
	models.AppointmentStatusCancelled:  "cancelled",
	models.AppointmentStatusLateCancel: "late cancel",
}

// FormatAppointmentForClient renders the client-facing summary of a
// booking, price included — ported from original_source/'s
// _fmt_appointment.
func FormatAppointmentForClient(apt models.Appointment, serviceName string, loc *time.Location) string {
	local := apt.StartTime.In(loc)
	status := "pending confirmation"
	if apt.Status == models.AppointmentStatusConfirmed {
		status = "confirmed"
	}
	return fmt.Sprintf(
		"%s\n%s at %s\n%s — %s",
		serviceName,
		local.Format("Jan 2"), local.Format("15:04"),
		FormatPrice(apt.PriceSnapshotCents), status,
	)
}

// FormatAppointmentForMaster renders the master-facing summary, including
// the appointment id the inline keyboard's callback data carries.
func FormatAppointmentForMaster(apt models.Appointment, serviceName string, loc *time.Location) string {
	local := apt.StartTime.In(loc)
	label, ok := statusLabels[apt.Status]
	if !ok {
		label = string(apt.Status)
	}
	return fmt.Sprintf(
		"%s — %s\nID: %d | %s\n%s",
		local.Format("15:04"), serviceName,
		apt.ID, label,
		FormatPrice(apt.PriceSnapshotCents),
	)
}

// FormatPrice renders a price snapshot stored in integer cents as a
// decimal amount, e.g. 150000 -> "1500.00".
func FormatPrice(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
