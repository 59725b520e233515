package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iRatG/rasprav-bot/internal/config"
	"github.com/iRatG/rasprav-bot/internal/repository"
	"github.com/iRatG/rasprav-bot/pkg/logger"
)

// DashboardHandler answers the admin surface's single overview query:
// today's active appointments and the appointments still unconfirmed
// within the booking horizon.
type DashboardHandler struct {
	appointments *repository.AppointmentRepository
	business     config.BusinessConfig
	logger       *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(appointments *repository.AppointmentRepository, business config.BusinessConfig, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{appointments: appointments, business: business, logger: log}
}

// Overview handles GET /admin/dashboard?masterId=.
func (h *DashboardHandler) Overview(c *gin.Context) {
	masterID, err := parseMasterIDQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loc, err := time.LoadLocation(h.business.Timezone)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)
	y, m, d := now.Date()
	todayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	todayEnd := todayStart.AddDate(0, 0, 1)

	today, err := h.appointments.ListForMasterOnDate(c.Request.Context(), masterID, todayStart, todayEnd)
	if err != nil {
		h.logger.Error("failed to list today's appointments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard: " + err.Error()})
		return
	}

	horizon := time.Duration(h.business.BookingHorizonDays) * 24 * time.Hour
	unconfirmed, err := h.appointments.ListUpcomingUnconfirmed(c.Request.Context(), masterID, time.Now().UTC(), time.Now().UTC().Add(horizon))
	if err != nil {
		h.logger.Error("failed to list unconfirmed appointments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"todayActive":       today,
		"upcomingUnconfirmed": unconfirmed,
		"generatedAt":       time.Now().UTC().Format(time.RFC3339),
	})
}

func parseMasterIDQuery(c *gin.Context) (int64, error) {
	raw := c.Query("masterId")
	if raw == "" {
		return 0, errMasterIDRequired
	}
	return parseID(raw)
}
