package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordingStatus is the lifecycle status of a Recording
type RecordingStatus string

const (
	RecordingStatusRecording  RecordingStatus = "recording"
	RecordingStatusProcessing RecordingStatus = "processing"
	RecordingStatusCompleted  RecordingStatus = "completed"
	RecordingStatusFailed     RecordingStatus = "failed"
)

// Recording is one audio capture attempt for an appointment
type Recording struct {
	ID              string          `json:"id" gorm:"primaryKey;size:36"`
	AppointmentID   string          `json:"appointment_id" gorm:"not null;index"`
	MentorID        string          `json:"mentor_id" gorm:"index"`
	MenteeID        string          `json:"mentee_id"`
	StorageLocator  string          `json:"storage_locator"`                   // Empty until upload completes
	SizeBytes       int64           `json:"size_bytes" gorm:"default:0"`       // Bytes stored
	DurationSeconds float64         `json:"duration_seconds" gorm:"default:0"` // Captured audio length
	Status          RecordingStatus `json:"status" gorm:"not null;index"`
	ConsentCaptured bool            `json:"consent_captured" gorm:"not null"`
	FailedStage     string          `json:"failed_stage,omitempty"` // Pipeline stage that moved the row to failed
	LastError       string          `json:"last_error,omitempty"`
	CreatedAt       time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new recording
func (r *Recording) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName returns the table name for the Recording model
func (Recording) TableName() string {
	return "recordings"
}

// HasAudio reports whether the upload stage stored the audio
func (r *Recording) HasAudio() bool {
	return r.StorageLocator != ""
}
