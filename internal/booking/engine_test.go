package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iRatG/rasprav-bot/internal/booking"
	"github.com/iRatG/rasprav-bot/internal/config"
	"github.com/iRatG/rasprav-bot/internal/database"
	"github.com/iRatG/rasprav-bot/internal/models"
	"github.com/iRatG/rasprav-bot/internal/repository"
	"github.com/iRatG/rasprav-bot/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// nullPublisher discards every publish, the same shape as the teacher's
// MockEventPublisher but without recording (the engine tests assert on
// the database, not on what got published).
type nullPublisher struct{}

func (nullPublisher) Publish(subject string, data interface{}) error { return nil }

// EngineTestSuite exercises the booking state machine against a real
// Postgres database, the same pattern as the teacher's
// booking_service_test.go (TEST_DATABASE_URL override, AutoMigrate once,
// truncate-between-tests).
type EngineTestSuite struct {
	suite.Suite
	DB           *gorm.DB
	Engine       *booking.Engine
	Masters      *repository.MasterRepository
	Clients      *repository.ClientRepository
	Services     *repository.ServiceRepository
	Appointments *repository.AppointmentRepository
	Master       *models.Master
	Client       *models.Client
	Service      *models.Service
}

func (s *EngineTestSuite) SetupSuite() {
	dsn := config.NewTestConfig().GetDatabaseURL()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		s.T().Fatalf("failed to connect to postgres: %v", err)
	}
	s.DB = db
	if err := database.Migrate(db); err != nil {
		s.T().Fatalf("failed to migrate: %v", err)
	}

	s.Masters = repository.NewMasterRepository(db)
	s.Clients = repository.NewClientRepository(db)
	s.Services = repository.NewServiceRepository(db)
	s.Appointments = repository.NewAppointmentRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	eventRepo := repository.NewEventRepository(db)

	s.Engine = booking.NewEngine(db, s.Appointments, s.Services, reminderRepo, eventRepo, nullPublisher{}, logger.New("error"))
}

func (s *EngineTestSuite) TearDownSuite() {
	sqlDB, _ := s.DB.DB()
	sqlDB.Close()
}

func (s *EngineTestSuite) SetupTest() {
	s.DB.Exec("DELETE FROM events")
	s.DB.Exec("DELETE FROM reminders")
	s.DB.Exec("DELETE FROM appointments")
	s.DB.Exec("DELETE FROM master_service_prices")
	s.DB.Exec("DELETE FROM services")
	s.DB.Exec("DELETE FROM clients")
	s.DB.Exec("DELETE FROM masters")

	s.Master = &models.Master{DisplayName: "M", ExternalChatUserID: 1, Timezone: "Europe/Moscow", WorkStart: "09:00", WorkEnd: "20:00", BufferMinutes: 10}
	assert.NoError(s.T(), s.DB.Create(s.Master).Error)

	s.Client = &models.Client{ExternalUserID: 100, ChatID: 100, Status: models.ClientStatusActive}
	assert.NoError(s.T(), s.Clients.Create(context.Background(), s.Client))

	s.Service = &models.Service{Name: "Haircut", DurationMinutes: 30, Active: true}
	assert.NoError(s.T(), s.Services.Create(context.Background(), s.Service))
	assert.NoError(s.T(), s.Services.SetPrice(context.Background(), &models.Price{
		MasterID: s.Master.ID, ServiceID: s.Service.ID, PriceCents: 150000, ActiveFrom: time.Now().AddDate(0, 0, -1),
	}))
}

func (s *EngineTestSuite) TestCreate_PlansThreeRemindersAndRecordsEvent() {
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour)

	apt, err := s.Engine.Create(ctx, booking.CreateRequest{
		MasterID: s.Master.ID, ClientID: s.Client.ID, ServiceID: s.Service.ID, StartTime: start,
	})
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), models.AppointmentStatusBooked, apt.Status)
	assert.Equal(s.T(), int64(150000), apt.PriceSnapshotCents)
	assert.Equal(s.T(), start.Add(30*time.Minute).Unix(), apt.EndTime.Unix())

	var reminderCount int64
	s.DB.Model(&models.Reminder{}).Where("appointment_id = ?", apt.ID).Count(&reminderCount)
	assert.Equal(s.T(), int64(3), reminderCount)

	var event models.Event
	err = s.DB.Where("appointment_id = ? AND event_type = ?", apt.ID, "appointment_created").First(&event).Error
	assert.NoError(s.T(), err)
}

func (s *EngineTestSuite) TestCreate_ConflictingSlotFails() {
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour)

	_, err := s.Engine.Create(ctx, booking.CreateRequest{
		MasterID: s.Master.ID, ClientID: s.Client.ID, ServiceID: s.Service.ID, StartTime: start,
	})
	assert.NoError(s.T(), err)

	_, err = s.Engine.Create(ctx, booking.CreateRequest{
		MasterID: s.Master.ID, ClientID: s.Client.ID, ServiceID: s.Service.ID, StartTime: start,
	})
	assert.True(s.T(), errors.Is(err, booking.ErrSlotAlreadyTaken))
}

// TestCreate_ConcurrentBookingsOnlyOneWins mirrors spec.md §8 scenario 4:
// two concurrent create calls for the same slot, exactly one commits.
func (s *EngineTestSuite) TestCreate_ConcurrentBookingsOnlyOneWins() {
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := s.Engine.Create(ctx, booking.CreateRequest{
				MasterID: s.Master.ID, ClientID: s.Client.ID, ServiceID: s.Service.ID, StartTime: start,
			})
			results[idx] = err
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, booking.ErrSlotAlreadyTaken):
			conflicts++
		}
	}
	assert.Equal(s.T(), 1, successes)
	assert.Equal(s.T(), 1, conflicts)
}

func (s *EngineTestSuite) TestCreate_InactiveServiceRejected() {
	ctx := context.Background()
	s.Service.Active = false
	assert.NoError(s.T(), s.Services.Update(ctx, s.Service))

	_, err := s.Engine.Create(ctx, booking.CreateRequest{
		MasterID: s.Master.ID, ClientID: s.Client.ID, ServiceID: s.Service.ID, StartTime: time.Now().Add(48 * time.Hour),
	})
	assert.True(s.T(), errors.Is(err, booking.ErrServiceInactive))
}

func (s *EngineTestSuite) TestCreate_NoPriceRejected() {
	ctx := context.Background()
	otherService := &models.Service{Name: "Unpriced", DurationMinutes: 30, Active: true}
	assert.NoError(s.T(), s.Services.Create(ctx, otherService))

	_, err := s.Engine.Create(ctx, booking.CreateRequest{
		MasterID: s.Master.ID, ClientID: s.Client.ID, ServiceID: otherService.ID, StartTime: time.Now().Add(48 * time.Hour),
	})
	assert.True(s.T(), errors.Is(err, booking.ErrPriceUnavailable))
}

func (s *EngineTestSuite) TestCancel_OutsideWindowIsPlainCancelled() {
	ctx := context.Background()
	apt, err := s.Engine.Create(ctx, booking.CreateRequest{
		MasterID: s.Master.ID, ClientID: s.Client.ID, ServiceID: s.Service.ID, StartTime: time.Now().Add(48 * time.Hour),
	})
	assert.NoError(s.T(), err)

	cancelled, err := s.Engine.Cancel(ctx, apt.ID, booking.ActorClient, s.Client.ID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), models.AppointmentStatusCancelled, cancelled.Status)

	var reminders []models.Reminder
	s.DB.Where("appointment_id = ?", apt.ID).Find(&reminders)
	for _, r := range reminders {
		assert.Equal(s.T(), models.ReminderStatusCancelled, r.Status)
	}
}

// TestCancel_WithinOneHourIsLateCancel mirrors spec.md §8 scenario 5.
func (s *EngineTestSuite) TestCancel_WithinOneHourIsLateCancel() {
	ctx := context.Background()
	apt, err := s.Engine.Create(ctx, booking.CreateRequest{
		MasterID: s.Master.ID, ClientID: s.Client.ID, ServiceID: s.Service.ID, StartTime: time.Now().Add(30 * time.Minute),
	})
	assert.NoError(s.T(), err)

	cancelled, err := s.Engine.Cancel(ctx, apt.ID, booking.ActorClient, s.Client.ID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), models.AppointmentStatusLateCancel, cancelled.Status)

	var event models.Event
	err = s.DB.Where("appointment_id = ? AND event_type = ?", apt.ID, "late_cancel").First(&event).Error
	assert.NoError(s.T(), err)
}

// TestCancel_Idempotent mirrors spec.md §8 property 7: a second cancel of
// an already-cancelled appointment returns without producing a second event.
func (s *EngineTestSuite) TestCancel_Idempotent() {
	ctx := context.Background()
	apt, err := s.Engine.Create(ctx, booking.CreateRequest{
		MasterID: s.Master.ID, ClientID: s.Client.ID, ServiceID: s.Service.ID, StartTime: time.Now().Add(48 * time.Hour),
	})
	assert.NoError(s.T(), err)

	_, err = s.Engine.Cancel(ctx, apt.ID, booking.ActorClient, s.Client.ID)
	assert.NoError(s.T(), err)
	_, err = s.Engine.Cancel(ctx, apt.ID, booking.ActorClient, s.Client.ID)
	assert.NoError(s.T(), err)

	var count int64
	s.DB.Model(&models.Event{}).Where("appointment_id = ? AND event_type = ?", apt.ID, "appointment_cancelled_by_client").Count(&count)
	assert.Equal(s.T(), int64(1), count)
}

func (s *EngineTestSuite) TestConfirm_SetsConfirmedAt() {
	ctx := context.Background()
	apt, err := s.Engine.Create(ctx, booking.CreateRequest{
		MasterID: s.Master.ID, ClientID: s.Client.ID, ServiceID: s.Service.ID, StartTime: time.Now().Add(48 * time.Hour),
	})
	assert.NoError(s.T(), err)

	confirmed, err := s.Engine.Confirm(ctx, apt.ID, s.Client.ID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), models.AppointmentStatusConfirmed, confirmed.Status)
	assert.NotNil(s.T(), confirmed.ConfirmedAt)
}

func (s *EngineTestSuite) TestArriveThenDone_UpdatesClientLastVisit() {
	ctx := context.Background()
	apt, err := s.Engine.Create(ctx, booking.CreateRequest{
		MasterID: s.Master.ID, ClientID: s.Client.ID, ServiceID: s.Service.ID, StartTime: time.Now().Add(48 * time.Hour),
	})
	assert.NoError(s.T(), err)

	arrived, err := s.Engine.Arrive(ctx, apt.ID, s.Master.ID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), models.AppointmentStatusArrived, arrived.Status)

	done, err := s.Engine.Done(ctx, apt.ID, s.Master.ID, s.Clients)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), models.AppointmentStatusDone, done.Status)

	reloaded, err := s.Clients.GetByID(ctx, s.Client.ID)
	assert.NoError(s.T(), err)
	assert.NotNil(s.T(), reloaded.LastVisitAt)
}

func (s *EngineTestSuite) TestDone_OnTerminalStateFails() {
	ctx := context.Background()
	apt, err := s.Engine.Create(ctx, booking.CreateRequest{
		MasterID: s.Master.ID, ClientID: s.Client.ID, ServiceID: s.Service.ID, StartTime: time.Now().Add(48 * time.Hour),
	})
	assert.NoError(s.T(), err)

	_, err = s.Engine.Cancel(ctx, apt.ID, booking.ActorClient, s.Client.ID)
	assert.NoError(s.T(), err)

	_, err = s.Engine.Done(ctx, apt.ID, s.Master.ID, s.Clients)
	assert.True(s.T(), errors.Is(err, booking.ErrTerminalState))
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
