package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iRatG/rasprav-bot/internal/booking"
	"github.com/iRatG/rasprav-bot/internal/config"
	"github.com/iRatG/rasprav-bot/internal/models"
	"github.com/iRatG/rasprav-bot/internal/repository"
	"github.com/iRatG/rasprav-bot/internal/slots"
	"github.com/iRatG/rasprav-bot/internal/transport"
	"github.com/iRatG/rasprav-bot/pkg/logger"
)

// Controller drives the client booking wizard and the master schedule
// commands from a single HandleUpdate entry point, per spec.md §4.7.
type Controller struct {
	clients      *repository.ClientRepository
	masters      *repository.MasterRepository
	services     *repository.ServiceRepository
	appointments *repository.AppointmentRepository
	events       *repository.EventRepository
	slotEngine   *slots.Engine
	bookingEng   *booking.Engine
	transportCli *transport.Client
	store        Store
	business     config.BusinessConfig
	logger       *logger.Logger
}

// NewController wires a flow controller from its collaborators.
func NewController(
	clients *repository.ClientRepository,
	masters *repository.MasterRepository,
	services *repository.ServiceRepository,
	appointments *repository.AppointmentRepository,
	events *repository.EventRepository,
	slotEngine *slots.Engine,
	bookingEng *booking.Engine,
	transportCli *transport.Client,
	store Store,
	business config.BusinessConfig,
	log *logger.Logger,
) *Controller {
	return &Controller{
		clients:      clients,
		masters:      masters,
		services:     services,
		appointments: appointments,
		events:       events,
		slotEngine:   slotEngine,
		bookingEng:   bookingEng,
		transportCli: transportCli,
		store:        store,
		business:     business,
		logger:       log,
	}
}

func (c *Controller) location() *time.Location {
	loc, err := time.LoadLocation(c.business.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HandleUpdate routes one inbound chat update to the client or master
// flow, resolving "is this user the master" first — an external id that
// matches the master record always gets the master-role surface,
// regardless of what callback data it sends.
func (c *Controller) HandleUpdate(ctx context.Context, update InboundUpdate) error {
	master, err := c.masters.GetByExternalChatUserID(ctx, update.ExternalUserID)
	if err != nil {
		return fmt.Errorf("failed to resolve master: %w", err)
	}
	if master != nil {
		return c.handleMasterUpdate(ctx, master, update)
	}
	return c.handleClientUpdate(ctx, update)
}

// getOrCreateClient loads the client for this external id, creating one
// on first contact, and reactivates any non-active client (blocked,
// unsubscribed or sleeping) the moment they message the bot again — the
// supplemented behavior from original_source/'s _get_or_create_client,
// not just the weekly sweep.
func (c *Controller) getOrCreateClient(ctx context.Context, update InboundUpdate) (*models.Client, error) {
	client, err := c.clients.GetByExternalUserID(ctx, update.ExternalUserID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &models.Client{
			ExternalUserID: update.ExternalUserID,
			ChatID:         update.ChatID,
			Status:         models.ClientStatusActive,
		}
		if err := c.clients.Create(ctx, client); err != nil {
			return nil, err
		}
		return client, nil
	}

	if client.Status != models.ClientStatusActive {
		now := time.Now().UTC()
		client.Status = models.ClientStatusActive
		client.StatusUpdatedAt = &now
		if err := c.clients.Update(ctx, client); err != nil {
			return nil, err
		}
		if err := c.events.Record(ctx, nil, &models.Event{
			EventType: "client_reactivated",
			ClientID:  &client.ID,
			ActorType: "client",
			ActorID:   client.ID,
		}); err != nil {
			c.logger.Error("failed to record client reactivated event", "error", err, "client_id", client.ID)
		}
	}
	return client, nil
}

func (c *Controller) send(chatID int64, text string, kb *transport.InlineKeyboardMeta) {
	if err := c.transportCli.SendMessage(chatID, text, kb); err != nil {
		if errors.Is(err, transport.ErrBlocked) {
			c.logger.Info("recipient has blocked the bot, skipping send", "chat_id", chatID)
			return
		}
		c.logger.Error("failed to send message", "error", err, "chat_id", chatID)
	}
}

func (c *Controller) clearState(externalUserID int64) {
	if err := c.store.Clear(externalUserID); err != nil {
		c.logger.Error("failed to clear flow state", "error", err, "user_id", externalUserID)
	}
}

func (c *Controller) saveState(externalUserID int64, state *State) {
	if err := c.store.Set(externalUserID, state); err != nil {
		c.logger.Error("failed to save flow state", "error", err, "user_id", externalUserID)
	}
}
