package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iRatG/rasprav-bot/internal/booking"
	"github.com/iRatG/rasprav-bot/internal/models"
	"github.com/iRatG/rasprav-bot/internal/transport"
)

// handleClientUpdate runs the client-side menu and booking wizard.
func (c *Controller) handleClientUpdate(ctx context.Context, update InboundUpdate) error {
	client, err := c.getOrCreateClient(ctx, update)
	if err != nil {
		return fmt.Errorf("failed to resolve client: %w", err)
	}

	switch {
	case update.Text == "/start", update.CallbackData == "menu":
		c.clearState(update.ExternalUserID)
		return c.showClientMenu(ctx, client)
	case update.CallbackData == "book_start":
		return c.cmdBookStart(ctx, client)
	case hasPrefix(update.CallbackData, "svc:"):
		return c.cmdChooseService(ctx, client, update.CallbackData)
	case hasPrefix(update.CallbackData, "day:"):
		return c.cmdChooseDay(ctx, client, update.CallbackData)
	case hasPrefix(update.CallbackData, "slot:"):
		return c.cmdChooseSlot(ctx, client, update.CallbackData)
	case hasPrefix(update.CallbackData, "book_confirm:"):
		return c.cmdBookConfirm(ctx, client, update.CallbackData)
	case update.CallbackData == "my_appointments":
		return c.cmdMyAppointments(ctx, client)
	case hasPrefix(update.CallbackData, "apt_cancel_ask:"), hasPrefix(update.CallbackData, "apt_cancel:"):
		return c.cmdCancelAsk(ctx, client, update.CallbackData)
	case hasPrefix(update.CallbackData, "apt_cancel_confirm:"):
		return c.cmdCancelConfirm(ctx, client, update.CallbackData)
	case hasPrefix(update.CallbackData, "apt_confirm:"):
		return c.cmdAptConfirm(ctx, client, update.CallbackData)
	case update.CallbackData == "unsubscribe":
		return c.cmdUnsubscribe(ctx, client)
	default:
		return c.showClientMenu(ctx, client)
	}
}

func hasPrefix(s, prefix string) bool {
	_, ok := splitPrefixed(s, prefix)
	return ok
}

func (c *Controller) showClientMenu(ctx context.Context, client *models.Client) error {
	upcoming, err := c.appointments.ListUpcomingForClient(ctx, client.ID, time.Now().UTC())
	if err != nil {
		return err
	}

	text := "Welcome! Book your next appointment whenever you're ready."
	if len(upcoming) > 0 {
		svc, err := c.services.GetByID(ctx, upcoming[0].ServiceID)
		if err != nil {
			return err
		}
		name := "your service"
		if svc != nil {
			name = svc.Name
		}
		text = "Your next appointment:\n" + c.formatClientAppointment(upcoming[0], name)
	}

	c.send(client.ChatID, text, mainMenuKeyboard(len(upcoming) > 0))
	return nil
}

func (c *Controller) formatClientAppointment(apt models.Appointment, serviceName string) string {
	return transport.FormatAppointmentForClient(apt, serviceName, c.location())
}

func (c *Controller) cmdBookStart(ctx context.Context, client *models.Client) error {
	activeServices, err := c.services.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(activeServices) == 0 {
		c.send(client.ChatID, "No services are available for booking right now.", nil)
		return nil
	}

	c.saveState(client.ExternalUserID, &State{Step: StateChoosingService})
	c.send(client.ChatID, "Choose a service:", servicesKeyboard(activeServices))
	return nil
}

func (c *Controller) cmdChooseService(ctx context.Context, client *models.Client, data string) error {
	rest, _ := splitPrefixed(data, "svc:")
	serviceID, err := parseInt64(rest)
	if err != nil {
		return fmt.Errorf("invalid service id: %w", err)
	}

	svc, err := c.services.GetByID(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc == nil || !svc.Active {
		c.send(client.ChatID, "That service is not available.", nil)
		return nil
	}

	master, err := c.masters.GetSole(ctx)
	if err != nil {
		return err
	}
	if master == nil {
		c.send(client.ChatID, "Booking is not available right now.", nil)
		return nil
	}

	dates, err := c.slotEngine.GetAvailableDates(ctx, master, svc.DurationMinutes)
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		c.clearState(client.ExternalUserID)
		c.send(client.ChatID, "Sorry, there are no free slots in the next few days.", mainMenuKeyboard(false))
		return nil
	}

	c.saveState(client.ExternalUserID, &State{
		Step:            StateChoosingDay,
		ServiceID:       serviceID,
		MasterID:        master.ID,
		DurationMinutes: svc.DurationMinutes,
	})
	c.send(client.ChatID, svc.Name+"\nChoose a day:", daysKeyboard(dates, c.location()))
	return nil
}

func (c *Controller) cmdChooseDay(ctx context.Context, client *models.Client, data string) error {
	chosenDate, err := parseDay(data)
	if err != nil {
		return fmt.Errorf("invalid day: %w", err)
	}

	state, err := c.store.Get(client.ExternalUserID)
	if err != nil {
		return err
	}
	if state.Step != StateChoosingDay {
		c.send(client.ChatID, "Let's start over.", nil)
		return c.cmdBookStart(ctx, client)
	}

	master, err := c.masters.GetSole(ctx)
	if err != nil {
		return err
	}

	available, err := c.slotEngine.GetAvailableSlots(ctx, master, state.DurationMinutes, chosenDate)
	if err != nil {
		return err
	}
	if len(available) == 0 {
		c.send(client.ChatID, "That day's slots are already taken, pick another.", nil)
		return nil
	}

	state.Step = StateChoosingTime
	state.ChosenDate = &chosenDate
	c.saveState(client.ExternalUserID, state)
	c.send(client.ChatID, "Choose a time:", slotsKeyboard(available, c.location()))
	return nil
}

func (c *Controller) cmdChooseSlot(ctx context.Context, client *models.Client, data string) error {
	start, err := parseSlot(data)
	if err != nil {
		return fmt.Errorf("invalid slot: %w", err)
	}

	state, err := c.store.Get(client.ExternalUserID)
	if err != nil {
		return err
	}
	if state.Step != StateChoosingTime {
		c.send(client.ChatID, "Let's start over.", nil)
		return c.cmdBookStart(ctx, client)
	}

	price, err := c.services.CurrentPrice(ctx, state.MasterID, state.ServiceID)
	if err != nil {
		return err
	}
	if price == nil {
		c.send(client.ChatID, "No price is configured, please contact the master directly.", nil)
		return nil
	}
	svc, err := c.services.GetByID(ctx, state.ServiceID)
	if err != nil {
		return err
	}

	state.Step = StateConfirming
	state.ChosenStart = &start
	c.saveState(client.ExternalUserID, state)

	startISO := start.Format(time.RFC3339)
	local := start.In(c.location())
	text := fmt.Sprintf(
		"Confirm your booking:\n\n%s\n%s at %s\n%s\n\nBook it?",
		svc.Name, local.Format("Jan 2"), local.Format("15:04"), transport.FormatPrice(price.PriceCents),
	)
	c.send(client.ChatID, text, bookingConfirmKeyboard(state.ServiceID, startISO))
	return nil
}

func (c *Controller) cmdBookConfirm(ctx context.Context, client *models.Client, data string) error {
	serviceID, startISO, err := parseBookConfirm(data)
	if err != nil {
		return err
	}
	start, err := time.Parse(time.RFC3339, startISO)
	if err != nil {
		return fmt.Errorf("invalid booking start: %w", err)
	}

	state, err := c.store.Get(client.ExternalUserID)
	if err != nil {
		return err
	}
	if state.Step != StateConfirming || state.ServiceID != serviceID {
		c.send(client.ChatID, "Let's start over.", nil)
		return c.cmdBookStart(ctx, client)
	}

	apt, err := c.bookingEng.Create(ctx, booking.CreateRequest{
		MasterID:  state.MasterID,
		ClientID:  client.ID,
		ServiceID: serviceID,
		StartTime: start,
	})
	c.clearState(client.ExternalUserID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrSlotAlreadyTaken):
			c.send(client.ChatID, "That slot was just taken. Please pick another time.", mainMenuKeyboard(false))
			return nil
		case errors.Is(err, booking.ErrPriceUnavailable):
			c.send(client.ChatID, "No price is configured for this service.", mainMenuKeyboard(false))
			return nil
		default:
			return err
		}
	}

	svc, err := c.services.GetByID(ctx, serviceID)
	if err != nil {
		return err
	}
	c.send(client.ChatID, "Booked!\n"+c.formatClientAppointment(*apt, svc.Name), mainMenuKeyboard(true))
	return nil
}

func (c *Controller) cmdMyAppointments(ctx context.Context, client *models.Client) error {
	c.clearState(client.ExternalUserID)
	upcoming, err := c.appointments.ListUpcomingForClient(ctx, client.ID, time.Now().UTC())
	if err != nil {
		return err
	}
	if len(upcoming) == 0 {
		c.send(client.ChatID, "You have no upcoming appointments.", mainMenuKeyboard(false))
		return nil
	}

	services, err := c.serviceNamesFor(ctx, upcoming)
	if err != nil {
		return err
	}

	text := "Your appointments:\n\nTap one to cancel it."
	c.send(client.ChatID, text, myAppointmentsKeyboard(upcoming, services, c.location()))
	return nil
}

func (c *Controller) serviceNamesFor(ctx context.Context, appointments []models.Appointment) (map[int64]models.Service, error) {
	out := make(map[int64]models.Service, len(appointments))
	for _, apt := range appointments {
		if _, ok := out[apt.ServiceID]; ok {
			continue
		}
		svc, err := c.services.GetByID(ctx, apt.ServiceID)
		if err != nil {
			return nil, err
		}
		if svc != nil {
			out[apt.ServiceID] = *svc
		}
	}
	return out, nil
}

func (c *Controller) cmdCancelAsk(ctx context.Context, client *models.Client, data string) error {
	id, ok := parseIDSuffix(data, "apt_cancel_ask:")
	if !ok {
		id, ok = parseIDSuffix(data, "apt_cancel:")
	}
	if !ok {
		return fmt.Errorf("malformed cancel callback: %q", data)
	}

	apt, err := c.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if apt == nil || apt.ClientID != client.ID || apt.Status.IsTerminal() {
		c.send(client.ChatID, "Appointment not found or already cancelled.", nil)
		return nil
	}

	svc, err := c.services.GetByID(ctx, apt.ServiceID)
	if err != nil {
		return err
	}
	text := "Cancel this appointment?\n\n" + c.formatClientAppointment(*apt, svc.Name)
	c.send(client.ChatID, text, cancelConfirmKeyboard(apt.ID))
	return nil
}

func (c *Controller) cmdCancelConfirm(ctx context.Context, client *models.Client, data string) error {
	id, ok := parseIDSuffix(data, "apt_cancel_confirm:")
	if !ok {
		return fmt.Errorf("malformed cancel confirm callback: %q", data)
	}

	_, err := c.bookingEng.Cancel(ctx, id, booking.ActorClient, client.ID)
	if err != nil {
		return err
	}
	c.send(client.ChatID, "Your appointment has been cancelled.\n\nWould you like to book another one?", afterCancelKeyboard())
	return nil
}

func (c *Controller) cmdAptConfirm(ctx context.Context, client *models.Client, data string) error {
	id, ok := parseIDSuffix(data, "apt_confirm:")
	if !ok {
		return fmt.Errorf("malformed confirm callback: %q", data)
	}

	apt, err := c.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if apt == nil || apt.Status != models.AppointmentStatusBooked {
		c.send(client.ChatID, "This appointment is already confirmed or cancelled.", nil)
		return nil
	}

	if _, err := c.bookingEng.Confirm(ctx, id, client.ID); err != nil {
		return err
	}
	c.send(client.ChatID, "Your visit is confirmed. See you then!", nil)
	return nil
}

func (c *Controller) cmdUnsubscribe(ctx context.Context, client *models.Client) error {
	now := time.Now().UTC()
	client.Status = models.ClientStatusUnsubscribed
	client.StatusUpdatedAt = &now
	if err := c.clients.Update(ctx, client); err != nil {
		return err
	}
	if err := c.events.Record(ctx, nil, &models.Event{
		EventType: "client_unsubscribed",
		ClientID:  &client.ID,
		ActorType: "client",
		ActorID:   client.ID,
	}); err != nil {
		c.logger.Error("failed to record client unsubscribed event", "error", err, "client_id", client.ID)
	}

	c.send(client.ChatID, "You have unsubscribed from bot notifications. Send /start to begin again.", nil)
	return nil
}
