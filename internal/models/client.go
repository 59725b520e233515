package models

import "time"

// ClientStatus tracks a client's lifecycle relative to the master.
type ClientStatus string

const (
	ClientStatusActive       ClientStatus = "active"
	ClientStatusSleeping     ClientStatus = "sleeping"
	ClientStatusBlocked      ClientStatus = "blocked"
	ClientStatusUnsubscribed ClientStatus = "unsubscribed"
)

// Client is a chat-platform user who books appointments with the master.
type Client struct {
	ID                     int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalUserID         int64        `gorm:"uniqueIndex;not null" json:"externalUserId"`
	ChatID                 int64        `gorm:"not null" json:"chatId"`
	Status                 ClientStatus `gorm:"type:varchar(20);not null;default:active" json:"status"`
	StatusUpdatedAt        *time.Time   `json:"statusUpdatedAt,omitempty"`
	LastVisitAt            *time.Time   `json:"lastVisitAt,omitempty"`
	LastReactivationSentAt *time.Time   `json:"lastReactivationSentAt,omitempty"`
	CreatedAt              time.Time    `json:"createdAt"`
}

func (Client) TableName() string {
	return "clients"
}
