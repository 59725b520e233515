package slots_test

import (
	"context"
	"testing"
	"time"

	"github.com/iRatG/rasprav-bot/internal/config"
	"github.com/iRatG/rasprav-bot/internal/database"
	"github.com/iRatG/rasprav-bot/internal/models"
	"github.com/iRatG/rasprav-bot/internal/repository"
	"github.com/iRatG/rasprav-bot/internal/slots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// SlotsTestSuite exercises the concrete scenarios from spec.md §8 against
// a real Postgres database, the teacher's booking_service_test.go pattern
// (TEST_DATABASE_URL override, AutoMigrate in SetupSuite, table truncation
// in SetupTest).
type SlotsTestSuite struct {
	suite.Suite
	DB           *gorm.DB
	Engine       *slots.Engine
	Appointments *repository.AppointmentRepository
	Blackouts    *repository.BlackoutRepository
	Master       *models.Master
}

func (s *SlotsTestSuite) SetupSuite() {
	dsn := config.NewTestConfig().GetDatabaseURL()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		s.T().Fatalf("failed to connect to postgres: %v", err)
	}
	s.DB = db
	if err := database.Migrate(db); err != nil {
		s.T().Fatalf("failed to migrate: %v", err)
	}

	s.Appointments = repository.NewAppointmentRepository(db)
	s.Blackouts = repository.NewBlackoutRepository(db)

	business := config.BusinessConfig{
		Timezone:             "Europe/Moscow",
		MinBookingAheadHours: 1,
		BookingHorizonDays:   7,
	}
	s.Engine = slots.NewEngine(s.Appointments, s.Blackouts, business)
}

func (s *SlotsTestSuite) TearDownSuite() {
	sqlDB, _ := s.DB.DB()
	sqlDB.Close()
}

func (s *SlotsTestSuite) SetupTest() {
	s.DB.Exec("DELETE FROM appointments")
	s.DB.Exec("DELETE FROM blackouts")
	s.DB.Exec("DELETE FROM masters")

	s.Master = &models.Master{
		DisplayName:        "Test Master",
		ExternalChatUserID:  1,
		Timezone:            "Europe/Moscow",
		WorkStart:           "09:00",
		WorkEnd:             "20:00",
		BufferMinutes:       10,
	}
	s.DB.Create(s.Master)
}

// moscowInstant builds a UTC time from a Moscow wall-clock instant
// (UTC+3, no DST in the spec's test period).
func moscowInstant(y int, m time.Month, d, hh, mm int) time.Time {
	loc, _ := time.LoadLocation("Europe/Moscow")
	return time.Date(y, m, d, hh, mm, 0, 0, loc).UTC()
}

func (s *SlotsTestSuite) TestEmptyDay_FirstSlotAtWorkStart() {
	ctx := context.Background()
	day := moscowInstant(2035, 3, 10, 0, 0)

	slots, err := s.Engine.GetAvailableSlots(ctx, s.Master, 30, day)
	assert.NoError(s.T(), err)
	assert.NotEmpty(s.T(), slots)

	// The work window generates 09:00, 09:40, ... every 40 minutes. The
	// 1h lead time is measured from the real clock, so on a day this far
	// ahead it removes nothing and the grid starts at 09:00.
	first := slots[0].In(mustLoc("Europe/Moscow"))
	assert.Equal(s.T(), 9, first.Hour())
	assert.Equal(s.T(), 0, first.Minute())
}

func (s *SlotsTestSuite) TestBookingAt11_RemovesBufferedNeighbors() {
	ctx := context.Background()
	day := moscowInstant(2035, 3, 10, 0, 0)
	start := moscowInstant(2035, 3, 10, 11, 0)

	apt := &models.Appointment{
		MasterID:  s.Master.ID,
		ClientID:  1,
		ServiceID: 1,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    models.AppointmentStatusBooked,
	}
	assert.NoError(s.T(), s.Appointments.Create(ctx, s.DB, apt))

	available, err := s.Engine.GetAvailableSlots(ctx, s.Master, 30, day)
	assert.NoError(s.T(), err)

	loc := mustLoc("Europe/Moscow")
	for _, slot := range available {
		local := slot.In(loc)
		label := local.Hour()*100 + local.Minute()
		assert.NotEqual(s.T(), 1020, label, "10:20 should be excluded by the buffer")
		assert.NotEqual(s.T(), 1100, label, "11:00 is booked")
		assert.NotEqual(s.T(), 1140, label, "11:40 should be excluded by the buffer")
	}

	foundNext := false
	for _, slot := range available {
		local := slot.In(loc)
		if local.Hour() == 12 && local.Minute() == 20 {
			foundNext = true
		}
	}
	assert.True(s.T(), foundNext, "12:20 should remain available")
}

func (s *SlotsTestSuite) TestBlackout_ExcludesOverlappingSlots() {
	ctx := context.Background()
	day := moscowInstant(2035, 3, 10, 0, 0)

	blackoutStart := moscowInstant(2035, 3, 10, 14, 0)
	blackoutEnd := moscowInstant(2035, 3, 10, 16, 0)
	assert.NoError(s.T(), s.Blackouts.Create(ctx, &models.Blackout{
		MasterID:  s.Master.ID,
		StartTime: blackoutStart,
		EndTime:   blackoutEnd,
	}))

	available, err := s.Engine.GetAvailableSlots(ctx, s.Master, 30, day)
	assert.NoError(s.T(), err)

	loc := mustLoc("Europe/Moscow")
	excluded := map[int]bool{1340: true, 1420: true, 1500: true, 1540: true}
	foundAfterBlackout := false
	for _, slot := range available {
		local := slot.In(loc)
		label := local.Hour()*100 + local.Minute()
		assert.False(s.T(), excluded[label], "slot %v should be excluded by the blackout", local)
		if label == 1620 {
			foundAfterBlackout = true
		}
	}
	assert.True(s.T(), foundAfterBlackout, "16:20 should remain available")
}

func mustLoc(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func TestSlotsTestSuite(t *testing.T) {
	suite.Run(t, new(SlotsTestSuite))
}
