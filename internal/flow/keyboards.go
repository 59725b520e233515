package flow

import (
	"fmt"
	"time"

	"github.com/iRatG/rasprav-bot/internal/models"
	"github.com/iRatG/rasprav-bot/internal/transport"
)

func mainMenuKeyboard(hasUpcoming bool) *transport.InlineKeyboardMeta {
	rows := [][]transport.InlineButton{
		{{Text: "Book an appointment", CallbackData: "book_start"}},
	}
	if hasUpcoming {
		rows = append(rows, []transport.InlineButton{{Text: "My appointments", CallbackData: "my_appointments"}})
	}
	rows = append(rows, []transport.InlineButton{{Text: "Unsubscribe", CallbackData: "unsubscribe"}})
	return &transport.InlineKeyboardMeta{InlineKeyboard: rows}
}

func afterCancelKeyboard() *transport.InlineKeyboardMeta {
	return &transport.InlineKeyboardMeta{InlineKeyboard: [][]transport.InlineButton{
		{{Text: "Book an appointment", CallbackData: "book_start"}},
	}}
}

func servicesKeyboard(services []models.Service) *transport.InlineKeyboardMeta {
	rows := make([][]transport.InlineButton, 0, len(services))
	for _, svc := range services {
		rows = append(rows, []transport.InlineButton{
			{Text: svc.Name, CallbackData: fmt.Sprintf("svc:%d", svc.ID)},
		})
	}
	return &transport.InlineKeyboardMeta{InlineKeyboard: rows}
}

func daysKeyboard(dates []time.Time, loc *time.Location) *transport.InlineKeyboardMeta {
	rows := make([][]transport.InlineButton, 0, len(dates))
	for _, d := range dates {
		local := d.In(loc)
		rows = append(rows, []transport.InlineButton{
			{Text: local.Format("Mon Jan 2"), CallbackData: "day:" + local.Format("2006-01-02")},
		})
	}
	return &transport.InlineKeyboardMeta{InlineKeyboard: rows}
}

func slotsKeyboard(slots []time.Time, loc *time.Location) *transport.InlineKeyboardMeta {
	rows := make([][]transport.InlineButton, 0, len(slots))
	for _, s := range slots {
		rows = append(rows, []transport.InlineButton{
			{Text: s.In(loc).Format("15:04"), CallbackData: "slot:" + s.Format(time.RFC3339)},
		})
	}
	return &transport.InlineKeyboardMeta{InlineKeyboard: rows}
}

func bookingConfirmKeyboard(serviceID int64, startISO string) *transport.InlineKeyboardMeta {
	return &transport.InlineKeyboardMeta{InlineKeyboard: [][]transport.InlineButton{
		{{Text: "Confirm", CallbackData: fmt.Sprintf("book_confirm:%d:%s", serviceID, startISO)}},
		{{Text: "Cancel", CallbackData: "menu"}},
	}}
}

func myAppointmentsKeyboard(appointments []models.Appointment, services map[int64]models.Service, loc *time.Location) *transport.InlineKeyboardMeta {
	rows := make([][]transport.InlineButton, 0, len(appointments))
	for _, apt := range appointments {
		local := apt.StartTime.In(loc)
		label := fmt.Sprintf("%s %s — %s", local.Format("01/02"), local.Format("15:04"), services[apt.ServiceID].Name)
		rows = append(rows, []transport.InlineButton{
			{Text: label, CallbackData: fmt.Sprintf("apt_cancel_ask:%d", apt.ID)},
		})
	}
	return &transport.InlineKeyboardMeta{InlineKeyboard: rows}
}

func cancelConfirmKeyboard(appointmentID int64) *transport.InlineKeyboardMeta {
	return &transport.InlineKeyboardMeta{InlineKeyboard: [][]transport.InlineButton{
		{{Text: "Yes, cancel", CallbackData: fmt.Sprintf("apt_cancel_confirm:%d", appointmentID)}},
		{{Text: "No, keep it", CallbackData: "my_appointments"}},
	}}
}

func masterMainMenuKeyboard() *transport.InlineKeyboardMeta {
	return &transport.InlineKeyboardMeta{InlineKeyboard: [][]transport.InlineButton{
		{{Text: "Today", CallbackData: "master_today"}, {Text: "Tomorrow", CallbackData: "master_tomorrow"}},
		{{Text: "Next 7 days", CallbackData: "master_7days"}},
		{{Text: "Active appointments", CallbackData: "master_statuses"}},
	}}
}

func appointmentActionsKeyboard(apt models.Appointment) *transport.InlineKeyboardMeta {
	return &transport.InlineKeyboardMeta{InlineKeyboard: [][]transport.InlineButton{
		{
			{Text: "Arrived", CallbackData: fmt.Sprintf("master_arrived:%d", apt.ID)},
			{Text: "Done", CallbackData: fmt.Sprintf("master_done:%d", apt.ID)},
		},
		{{Text: "Cancel", CallbackData: fmt.Sprintf("master_cancel:%d", apt.ID)}},
	}}
}
