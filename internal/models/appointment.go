package models

import "time"

// AppointmentStatus is the appointment lifecycle state.
type AppointmentStatus string

const (
	AppointmentStatusBooked     AppointmentStatus = "booked"
	AppointmentStatusConfirmed  AppointmentStatus = "confirmed"
	AppointmentStatusArrived    AppointmentStatus = "arrived"
	AppointmentStatusDone       AppointmentStatus = "done"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
	AppointmentStatusLateCancel AppointmentStatus = "late_cancel"
)

// IsActive reports whether the appointment still occupies its slot under
// the no-overlap constraint. Cancelled/late_cancel free the slot; every
// other status, done included, reports true.
func (s AppointmentStatus) IsActive() bool {
	switch s {
	case AppointmentStatusCancelled, AppointmentStatusLateCancel:
		return false
	default:
		return true
	}
}

// IsTerminal reports whether no further transition is possible.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusDone, AppointmentStatusCancelled, AppointmentStatusLateCancel:
		return true
	default:
		return false
	}
}

// Appointment is a single booked slot for a client with the master.
//
// The no-overlap guarantee is enforced at the database level by a
// range-exclusion constraint (see database.Migrate), not by this struct —
// GORM has no declarative way to express EXCLUDE USING GIST.
type Appointment struct {
	ID                 int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	MasterID           int64             `gorm:"index;not null" json:"masterId"`
	ClientID           int64             `gorm:"index;not null" json:"clientId"`
	ServiceID          int64             `gorm:"index;not null" json:"serviceId"`
	StartTime          time.Time         `gorm:"index;not null" json:"startTime"`
	EndTime            time.Time         `gorm:"not null" json:"endTime"`
	Status             AppointmentStatus `gorm:"type:varchar(20);not null;default:booked" json:"status"`
	ConfirmedAt        *time.Time        `json:"confirmedAt,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty"`
	PriceSnapshotCents int64             `gorm:"not null" json:"priceSnapshotCents"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`

	Master  Master  `gorm:"foreignKey:MasterID" json:"-"`
	Client  Client  `gorm:"foreignKey:ClientID" json:"-"`
	Service Service `gorm:"foreignKey:ServiceID" json:"-"`
}

func (Appointment) TableName() string {
	return "appointments"
}
