package database

import (
	"fmt"

	"github.com/iRatG/rasprav-bot/internal/config"
	"github.com/iRatG/rasprav-bot/internal/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect connects to the PostgreSQL database
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "btree_gist"`).Error; err != nil {
		return fmt.Errorf("failed to create btree_gist extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.Master{},
		&models.Service{},
		&models.Price{},
		&models.Client{},
		&models.Appointment{},
		&models.Blackout{},
		&models.Reminder{},
		&models.Event{},
	)
	if err != nil {
		return fmt.Errorf("failed to run auto-migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	if err := createConstraints(db); err != nil {
		return fmt.Errorf("failed to create constraints: %w", err)
	}

	return nil
}

// createIndexes creates additional indexes for common query patterns.
func createIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_appointments_master_start ON appointments(master_id, start_time)",
		"CREATE INDEX IF NOT EXISTS idx_appointments_client_status ON appointments(client_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_appointments_status_start ON appointments(status, start_time)",
		"CREATE INDEX IF NOT EXISTS idx_reminders_status_fire_at ON reminders(status, fire_at)",
		"CREATE INDEX IF NOT EXISTS idx_blackouts_master_window ON blackouts(master_id, start_time, end_time)",
		"CREATE INDEX IF NOT EXISTS idx_events_type_created ON events(event_type, created_at)",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createConstraints lays down the range-exclusion constraint GORM cannot
// express declaratively: no two non-cancelled appointments for the same
// master may occupy overlapping time. This is the backstop the booking
// engine's row lock is not enough on its own to guarantee under concurrent
// transactions.
func createConstraints(db *gorm.DB) error {
	const constraintName = "appointments_no_overlap"

	var exists bool
	check := `SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`
	if err := db.Raw(check, constraintName).Scan(&exists).Error; err != nil {
		return fmt.Errorf("failed to check existing constraint: %w", err)
	}
	if exists {
		return nil
	}

	stmt := `
		ALTER TABLE appointments ADD CONSTRAINT appointments_no_overlap
		EXCLUDE USING GIST (
			master_id WITH =,
			tstzrange(start_time, end_time, '[)') WITH &&
		) WHERE (status NOT IN ('cancelled', 'late_cancel'))
	`
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to add exclusion constraint: %w", err)
	}
	return nil
}

// ConnectRedis connects to Redis
func ConnectRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	return client, nil
}
