package models

import "time"

// Appointment is the local projection of a booked session. The pipeline only
// reads it to stamp ownership on recordings.
type Appointment struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	MentorID    string    `json:"mentor_id" gorm:"not null;index"`
	MenteeID    string    `json:"mentee_id" gorm:"not null"`
	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for the Appointment model
func (Appointment) TableName() string {
	return "appointments"
}
