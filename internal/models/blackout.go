package models

import "time"

// Blackout is a master-declared window during which no slots are offered,
// independent of any appointment (e.g. vacation, a personal errand).
type Blackout struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MasterID         int64     `gorm:"index;not null" json:"masterId"`
	StartTime        time.Time `gorm:"index;not null" json:"startTime"`
	EndTime          time.Time `gorm:"not null" json:"endTime"`
	Reason           string    `gorm:"type:text" json:"reason,omitempty"`
	CreatedByAdminID *int64    `json:"createdByAdminId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`

	Master Master `gorm:"foreignKey:MasterID" json:"-"`
}

func (Blackout) TableName() string {
	return "blackouts"
}
