package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iRatG/rasprav-bot/internal/models"
	"github.com/iRatG/rasprav-bot/internal/repository"
	"github.com/iRatG/rasprav-bot/pkg/logger"
)

// AdminHandler serves the master-facing CRUD surface for the master
// profile, services, prices and blackouts, in the DTO-plus-ShouldBindJSON
// shape of the teacher's BookingHandler.
type AdminHandler struct {
	masters    *repository.MasterRepository
	services   *repository.ServiceRepository
	blackouts  *repository.BlackoutRepository
	events     *repository.EventRepository
	logger     *logger.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(masters *repository.MasterRepository, services *repository.ServiceRepository, blackouts *repository.BlackoutRepository, events *repository.EventRepository, log *logger.Logger) *AdminHandler {
	return &AdminHandler{masters: masters, services: services, blackouts: blackouts, events: events, logger: log}
}

// GetMasterProfile handles GET /admin/profile.
func (h *AdminHandler) GetMasterProfile(c *gin.Context) {
	master, err := h.masters.GetSole(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load master profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load master profile: " + err.Error()})
		return
	}
	if master == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "master not found"})
		return
	}
	c.JSON(http.StatusOK, master)
}

// UpdateMasterProfileRequestDTO is the body of PUT /admin/profile.
type UpdateMasterProfileRequestDTO struct {
	DisplayName   string `json:"displayName"`
	Timezone      string `json:"timezone"`
	WorkStart     string `json:"workStart"`
	WorkEnd       string `json:"workEnd"`
	BufferMinutes int    `json:"bufferMinutes"`
}

// UpdateMasterProfile handles PUT /admin/profile — timezone, work window
// and inter-appointment buffer. These are read fresh by the slot engine
// on every booking decision (spec.md §5's no-caching rule), so a change
// here takes effect on the very next availability query.
func (h *AdminHandler) UpdateMasterProfile(c *gin.Context) {
	master, err := h.masters.GetSole(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load master profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load master profile: " + err.Error()})
		return
	}
	if master == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "master not found"})
		return
	}

	var req UpdateMasterProfileRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload: " + err.Error()})
		return
	}
	if req.DisplayName != "" {
		master.DisplayName = req.DisplayName
	}
	if req.Timezone != "" {
		master.Timezone = req.Timezone
	}
	if req.WorkStart != "" {
		master.WorkStart = req.WorkStart
	}
	if req.WorkEnd != "" {
		master.WorkEnd = req.WorkEnd
	}
	if req.BufferMinutes != 0 {
		master.BufferMinutes = req.BufferMinutes
	}

	if err := h.masters.Update(c.Request.Context(), master); err != nil {
		h.logger.Error("failed to update master profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update master profile: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, master)
}

// CreateServiceRequestDTO is the body of POST /admin/services.
type CreateServiceRequestDTO struct {
	Name            string `json:"name" binding:"required"`
	DurationMinutes int    `json:"durationMinutes" binding:"required"`
}

// ListServices handles GET /admin/services.
func (h *AdminHandler) ListServices(c *gin.Context) {
	services, err := h.services.ListActive(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list services", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list services: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, services)
}

// CreateService handles POST /admin/services.
func (h *AdminHandler) CreateService(c *gin.Context) {
	var req CreateServiceRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload: " + err.Error()})
		return
	}

	svc := &models.Service{
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Active:          true,
	}
	if err := h.services.Create(c.Request.Context(), svc); err != nil {
		h.logger.Error("failed to create service", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create service: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, svc)
}

// UpdateServiceRequestDTO is the body of PUT /admin/services/:serviceId.
type UpdateServiceRequestDTO struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
	Active          *bool  `json:"active"`
}

// UpdateService handles PUT /admin/services/:serviceId.
func (h *AdminHandler) UpdateService(c *gin.Context) {
	serviceID, err := strconv.ParseInt(c.Param("serviceId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service id"})
		return
	}

	svc, err := h.services.GetByID(c.Request.Context(), serviceID)
	if err != nil {
		h.logger.Error("failed to load service", "error", err, "service_id", serviceID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load service: " + err.Error()})
		return
	}
	if svc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}

	var req UpdateServiceRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload: " + err.Error()})
		return
	}
	if req.Name != "" {
		svc.Name = req.Name
	}
	if req.DurationMinutes > 0 {
		svc.DurationMinutes = req.DurationMinutes
	}
	if req.Active != nil {
		svc.Active = *req.Active
	}

	if err := h.services.Update(c.Request.Context(), svc); err != nil {
		h.logger.Error("failed to update service", "error", err, "service_id", serviceID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update service: " + err.Error()})
		return
	}

	if err := h.events.Record(c.Request.Context(), nil, &models.Event{
		EventType: "service_updated",
		ActorType: "admin",
		ActorID:   adminActorID(c),
		Payload:   models.NewPayload(map[string]any{"service_id": svc.ID}),
	}); err != nil {
		h.logger.Error("failed to record service_updated event", "error", err)
	}

	c.JSON(http.StatusOK, svc)
}

// SetPriceRequestDTO is the body of POST /admin/services/:serviceId/price.
type SetPriceRequestDTO struct {
	MasterID   int64  `json:"masterId" binding:"required"`
	PriceCents int64  `json:"priceCents" binding:"required"`
	ActiveFrom string `json:"activeFrom" binding:"required"`
}

// SetPrice handles POST /admin/services/:serviceId/price, inserting a new
// effective-dated price row; prior appointments keep their own snapshot.
func (h *AdminHandler) SetPrice(c *gin.Context) {
	serviceID, err := strconv.ParseInt(c.Param("serviceId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service id"})
		return
	}

	var req SetPriceRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload: " + err.Error()})
		return
	}

	activeFrom, err := time.Parse("2006-01-02", req.ActiveFrom)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activeFrom, expected YYYY-MM-DD"})
		return
	}

	price := &models.Price{
		MasterID:   req.MasterID,
		ServiceID:  serviceID,
		PriceCents: req.PriceCents,
		ActiveFrom: activeFrom,
	}
	if err := h.services.SetPrice(c.Request.Context(), price); err != nil {
		h.logger.Error("failed to set price", "error", err, "service_id", serviceID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set price: " + err.Error()})
		return
	}

	if err := h.events.Record(c.Request.Context(), nil, &models.Event{
		EventType: "price_changed",
		MasterID:  &req.MasterID,
		ActorType: "admin",
		ActorID:   adminActorID(c),
		Payload:   models.NewPayload(map[string]any{"service_id": serviceID, "price_cents": req.PriceCents}),
	}); err != nil {
		h.logger.Error("failed to record price_changed event", "error", err)
	}

	c.JSON(http.StatusCreated, price)
}

// CreateBlackoutRequestDTO is the body of POST /admin/blackouts.
type CreateBlackoutRequestDTO struct {
	MasterID  int64     `json:"masterId" binding:"required"`
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
	Reason    string    `json:"reason"`
}

// CreateBlackout handles POST /admin/blackouts.
func (h *AdminHandler) CreateBlackout(c *gin.Context) {
	var req CreateBlackoutRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload: " + err.Error()})
		return
	}
	if !req.EndTime.After(req.StartTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endTime must be after startTime"})
		return
	}

	adminID := adminActorID(c)
	blackout := &models.Blackout{
		MasterID:         req.MasterID,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Reason:           req.Reason,
		CreatedByAdminID: &adminID,
	}
	if err := h.blackouts.Create(c.Request.Context(), blackout); err != nil {
		h.logger.Error("failed to create blackout", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create blackout: " + err.Error()})
		return
	}

	if err := h.events.Record(c.Request.Context(), nil, &models.Event{
		EventType: "blackout_created",
		MasterID:  &req.MasterID,
		ActorType: "admin",
		ActorID:   adminID,
		Payload:   models.NewPayload(map[string]any{"blackout_id": blackout.ID}),
	}); err != nil {
		h.logger.Error("failed to record blackout_created event", "error", err)
	}

	c.JSON(http.StatusCreated, blackout)
}

// ListBlackouts handles GET /admin/blackouts?masterId=&from=&to=.
func (h *AdminHandler) ListBlackouts(c *gin.Context) {
	masterID, err := strconv.ParseInt(c.Query("masterId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "masterId query param is required"})
		return
	}
	from, to, err := parseRangeQuery(c, 30*24*time.Hour)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blackouts, err := h.blackouts.ListOverlapping(c.Request.Context(), masterID, from, to)
	if err != nil {
		h.logger.Error("failed to list blackouts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list blackouts: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, blackouts)
}

func parseRangeQuery(c *gin.Context, defaultSpan time.Duration) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	to := from.Add(defaultSpan)
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	return from, to, nil
}

// adminActorID resolves the authenticated master id set by
// middleware.RequireMasterAuth, falling back to 0 for routes reached
// without it (tests exercising handlers directly).
func adminActorID(c *gin.Context) int64 {
	if v, ok := c.Get("masterID"); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

