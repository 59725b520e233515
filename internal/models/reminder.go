package models

import "time"

// ReminderKind identifies which fixed-offset reminder a row represents.
type ReminderKind string

const (
	ReminderKindConfirm24h ReminderKind = "confirm_24h"
	ReminderKindConfirm6h  ReminderKind = "confirm_6h"
	ReminderKindRemind3h   ReminderKind = "remind_3h"
)

// ReminderStatus is the dispatch state of a single reminder row.
type ReminderStatus string

const (
	ReminderStatusPending   ReminderStatus = "pending"
	ReminderStatusSent      ReminderStatus = "sent"
	ReminderStatusCancelled ReminderStatus = "cancelled"
	ReminderStatusFailed    ReminderStatus = "failed"
)

// Reminder is a single scheduled nudge tied to one appointment.
type Reminder struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	AppointmentID int64          `gorm:"index;not null" json:"appointmentId"`
	FireAt        time.Time      `gorm:"index;not null" json:"fireAt"`
	Kind          ReminderKind   `gorm:"type:varchar(20);not null" json:"kind"`
	Status        ReminderStatus `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	SentAt        *time.Time     `json:"sentAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`

	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}

func (Reminder) TableName() string {
	return "reminders"
}
