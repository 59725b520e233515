package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/iRatG/rasprav-bot/internal/booking"
	"github.com/iRatG/rasprav-bot/internal/models"
	"github.com/iRatG/rasprav-bot/internal/transport"
)

// handleMasterUpdate runs the master-role schedule and appointment-action
// commands. Reaching this function at all already proves the update's
// external user id matched the master record (see Controller.HandleUpdate).
func (c *Controller) handleMasterUpdate(ctx context.Context, master *models.Master, update InboundUpdate) error {
	switch {
	case update.Text == "/start", update.CallbackData == "menu", update.CallbackData == "master_menu":
		c.sendMaster(master.ExternalChatUserID, "Master menu", masterMainMenuKeyboard())
		return nil
	case update.CallbackData == "master_today":
		return c.cmdMasterToday(ctx, master)
	case update.CallbackData == "master_tomorrow":
		return c.cmdMasterTomorrow(ctx, master)
	case update.CallbackData == "master_7days":
		return c.cmdMaster7Days(ctx, master)
	case update.CallbackData == "master_statuses":
		return c.cmdMasterStatuses(ctx, master)
	case hasPrefix(update.CallbackData, "master_arrived:"):
		return c.cmdMasterArrived(ctx, master, update.CallbackData)
	case hasPrefix(update.CallbackData, "master_done:"):
		return c.cmdMasterDone(ctx, master, update.CallbackData)
	case hasPrefix(update.CallbackData, "master_cancel:"):
		return c.cmdMasterCancel(ctx, master, update.CallbackData)
	default:
		c.sendMaster(master.ExternalChatUserID, "Master menu", masterMainMenuKeyboard())
		return nil
	}
}

// sendMaster sends to the master's own chat. The bot resolves the
// master's chat id as their external chat user id, same as a client's
// private chat with the bot.
func (c *Controller) sendMaster(chatID int64, text string, kb *transport.InlineKeyboardMeta) {
	c.send(chatID, text, kb)
}

func localMidnight(loc *time.Location, offsetDays int) time.Time {
	now := time.Now().In(loc)
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, offsetDays)
}

func (c *Controller) sendSchedule(ctx context.Context, master *models.Master, from, to time.Time, title string) error {
	appointments, err := c.appointments.ListForMasterOnDate(ctx, master.ID, from, to)
	if err != nil {
		return err
	}
	if len(appointments) == 0 {
		c.sendMaster(master.ExternalChatUserID, title+"\n\nNo appointments.", masterMainMenuKeyboard())
		return nil
	}

	names, err := c.serviceNamesFor(ctx, appointments)
	if err != nil {
		return err
	}

	text := title + "\n\n"
	loc := c.location()
	for i, apt := range appointments {
		if i > 0 {
			text += "\n\n"
		}
		text += transport.FormatAppointmentForMaster(apt, names[apt.ServiceID].Name, loc)
	}
	c.sendMaster(master.ExternalChatUserID, text, masterMainMenuKeyboard())
	return nil
}

func (c *Controller) cmdMasterToday(ctx context.Context, master *models.Master) error {
	loc := c.location()
	today := localMidnight(loc, 0)
	tomorrow := localMidnight(loc, 1)
	return c.sendSchedule(ctx, master, today, tomorrow, "Today")
}

func (c *Controller) cmdMasterTomorrow(ctx context.Context, master *models.Master) error {
	loc := c.location()
	tomorrow := localMidnight(loc, 1)
	dayAfter := localMidnight(loc, 2)
	return c.sendSchedule(ctx, master, tomorrow, dayAfter, "Tomorrow")
}

func (c *Controller) cmdMaster7Days(ctx context.Context, master *models.Master) error {
	loc := c.location()
	today := localMidnight(loc, 0)
	weekLater := localMidnight(loc, 7)
	return c.sendSchedule(ctx, master, today, weekLater, "Next 7 days")
}

// cmdMasterStatuses shows the next active appointment (booked, confirmed
// or arrived) with its action buttons, the same "show one, note how many
// more" shape as original_source/'s cb_statuses.
func (c *Controller) cmdMasterStatuses(ctx context.Context, master *models.Master) error {
	appointments, err := c.appointments.ListActiveForMasterSince(ctx, master.ID, time.Now().UTC().Add(-2*time.Hour))
	if err != nil {
		return err
	}
	if len(appointments) == 0 {
		c.sendMaster(master.ExternalChatUserID, "No active appointments.", masterMainMenuKeyboard())
		return nil
	}

	apt := appointments[0]
	svc, err := c.services.GetByID(ctx, apt.ServiceID)
	if err != nil {
		return err
	}
	name := "service"
	if svc != nil {
		name = svc.Name
	}
	text := transport.FormatAppointmentForMaster(apt, name, c.location())
	if len(appointments) > 1 {
		text += fmt.Sprintf("\n\n+%d more", len(appointments)-1)
	}
	c.sendMaster(master.ExternalChatUserID, text, appointmentActionsKeyboard(apt))
	return nil
}

func (c *Controller) loadMasterOwnedAppointment(ctx context.Context, master *models.Master, data, prefix string) (*models.Appointment, error) {
	id, ok := parseIDSuffix(data, prefix)
	if !ok {
		return nil, fmt.Errorf("malformed master callback: %q", data)
	}
	apt, err := c.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt == nil || apt.MasterID != master.ID {
		return nil, nil
	}
	return apt, nil
}

func (c *Controller) cmdMasterArrived(ctx context.Context, master *models.Master, data string) error {
	apt, err := c.loadMasterOwnedAppointment(ctx, master, data, "master_arrived:")
	if err != nil {
		return err
	}
	if apt == nil {
		c.sendMaster(master.ExternalChatUserID, "Appointment not found.", nil)
		return nil
	}

	apt, err = c.bookingEng.Arrive(ctx, apt.ID, master.ID)
	if err != nil {
		return err
	}
	c.sendMaster(master.ExternalChatUserID,
		fmt.Sprintf("Client marked as arrived.\n\nAppointment #%d", apt.ID),
		appointmentActionsKeyboard(*apt))
	return nil
}

func (c *Controller) cmdMasterDone(ctx context.Context, master *models.Master, data string) error {
	apt, err := c.loadMasterOwnedAppointment(ctx, master, data, "master_done:")
	if err != nil {
		return err
	}
	if apt == nil {
		c.sendMaster(master.ExternalChatUserID, "Appointment not found.", nil)
		return nil
	}

	if _, err := c.bookingEng.Done(ctx, apt.ID, master.ID, c.clients); err != nil {
		return err
	}
	c.sendMaster(master.ExternalChatUserID,
		fmt.Sprintf("Service complete. Appointment #%d", apt.ID),
		masterMainMenuKeyboard())
	return nil
}

func (c *Controller) cmdMasterCancel(ctx context.Context, master *models.Master, data string) error {
	apt, err := c.loadMasterOwnedAppointment(ctx, master, data, "master_cancel:")
	if err != nil {
		return err
	}
	if apt == nil {
		c.sendMaster(master.ExternalChatUserID, "Appointment not found.", nil)
		return nil
	}

	cancelled, err := c.bookingEng.Cancel(ctx, apt.ID, booking.ActorMaster, master.ID)
	if err != nil {
		return err
	}

	client, err := c.clients.GetByID(ctx, cancelled.ClientID)
	if err == nil && client != nil {
		svc, svcErr := c.services.GetByID(ctx, cancelled.ServiceID)
		name := "your service"
		if svcErr == nil && svc != nil {
			name = svc.Name
		}
		c.send(client.ChatID, "Your appointment was cancelled by the master.\n\n"+c.formatClientAppointment(*cancelled, name), mainMenuKeyboard(false))
	}

	c.sendMaster(master.ExternalChatUserID,
		fmt.Sprintf("Appointment #%d cancelled. Client notified.", cancelled.ID),
		masterMainMenuKeyboard())
	return nil
}
