package models

import "time"

// Master is the single service provider this deployment serves.
// The schema supports more than one row, but the bot always resolves
// "the master" as the row with the lowest id (see repository.MasterRepository.GetSole).
type Master struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DisplayName         string    `gorm:"type:varchar(255);not null" json:"displayName"`
	ExternalChatUserID  int64     `gorm:"uniqueIndex;not null" json:"externalChatUserId"`
	Timezone            string    `gorm:"type:varchar(50);not null;default:Europe/Moscow" json:"timezone"`
	WorkStart           string    `gorm:"type:varchar(5);not null;default:09:00" json:"workStart"` // "HH:MM"
	WorkEnd             string    `gorm:"type:varchar(5);not null;default:20:00" json:"workEnd"`
	BufferMinutes       int       `gorm:"not null;default:10" json:"bufferMinutes"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (Master) TableName() string {
	return "masters"
}
