package models

import (
	"time"

	"gorm.io/gorm"
)

// Service is a bookable offering with a fixed duration, e.g. "haircut".
type Service struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`
	DurationMinutes int            `gorm:"not null;default:30" json:"durationMinutes"`
	Active          bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Service) TableName() string {
	return "services"
}

// Price is the price a master charges for a service, effective from a date.
// A new row is inserted on every price change; existing appointments keep
// their PriceSnapshotCents and are never retroactively repriced.
type Price struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MasterID   int64     `gorm:"index;not null" json:"masterId"`
	ServiceID  int64     `gorm:"index;not null" json:"serviceId"`
	PriceCents int64     `gorm:"not null" json:"priceCents"`
	ActiveFrom time.Time `gorm:"type:date;not null" json:"activeFrom"`
	CreatedAt  time.Time `json:"createdAt"`

	Master  Master  `gorm:"foreignKey:MasterID" json:"-"`
	Service Service `gorm:"foreignKey:ServiceID" json:"-"`
}

func (Price) TableName() string {
	return "master_service_prices"
}
