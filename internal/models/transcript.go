package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transcript is the speech-to-text result for one Recording. Rows are never
// updated; a new transcription produces a new row.
type Transcript struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	RecordingID     string    `json:"recording_id" gorm:"not null;index"`
	Text            string    `json:"text" gorm:"type:text;not null"`
	Language        string    `json:"language"`
	WordCount       int       `json:"word_count"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at" gorm:"index"`
}

// BeforeCreate generates a UUID before creating a new transcript
func (t *Transcript) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// TableName returns the table name for the Transcript model
func (Transcript) TableName() string {
	return "transcripts"
}
