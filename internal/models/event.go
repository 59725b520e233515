package models

import (
	"encoding/json"
	"time"
)

// Event is an append-only audit log row. Only inserted, never updated or
// deleted — it is the source of truth for analytics and support queries.
//
// Event type catalogue:
//
//	appointment_created, appointment_confirmed,
//	appointment_cancelled_by_client, appointment_cancelled_by_master, late_cancel,
//	client_arrived, service_done,
//	reminder_sent_24h, reminder_sent_6h, reminder_sent_3h, reminder_failed,
//	client_blocked_bot, client_unsubscribed, client_reactivated,
//	price_changed, blackout_created, service_updated, admin_added, admin_removed
type Event struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	EventType     string          `gorm:"type:varchar(100);index;not null" json:"eventType"`
	AppointmentID *int64          `gorm:"index" json:"appointmentId,omitempty"`
	ClientID      *int64          `gorm:"index" json:"clientId,omitempty"`
	MasterID      *int64          `gorm:"index" json:"masterId,omitempty"`
	ActorType     string          `gorm:"type:varchar(50);not null" json:"actorType"` // client / master / scheduler / admin
	ActorID       int64           `gorm:"not null" json:"actorId"`
	Payload       json.RawMessage `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"createdAt"`
}

func (Event) TableName() string {
	return "events"
}

// NewPayload marshals an arbitrary map into the raw form Event.Payload
// expects. A marshal failure here means a programmer error building the
// payload, not a runtime condition, so it panics — mirrored on the teacher's
// own unchecked json.Marshal calls when building outbound event payloads.
func NewPayload(fields map[string]any) json.RawMessage {
	raw, err := json.Marshal(fields)
	if err != nil {
		panic("models: event payload must be marshalable: " + err.Error())
	}
	return raw
}
