package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClinicalNote is a SOAP note synthesized from a Transcript
type ClinicalNote struct {
	ID                string     `json:"id" gorm:"primaryKey;size:36"`
	TranscriptID      string     `json:"transcript_id" gorm:"not null;index"`
	AppointmentID     string     `json:"appointment_id" gorm:"not null;index"`
	Subjective        string     `json:"subjective" gorm:"type:text"`
	Objective         string     `json:"objective" gorm:"type:text"`
	Assessment        string     `json:"assessment" gorm:"type:text"`
	Plan              string     `json:"plan" gorm:"type:text"`
	Finalized         bool       `json:"finalized" gorm:"not null"`
	EditedByClinician bool       `json:"edited_by_clinician" gorm:"not null"`
	FinalizedAt       *time.Time `json:"finalized_at,omitempty"`
	Model             string     `json:"model"` // Synthesizer that produced the draft
	CreatedAt         time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new note
func (n *ClinicalNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

// TableName returns the table name for the ClinicalNote model
func (ClinicalNote) TableName() string {
	return "clinical_notes"
}

// IsBlank reports whether all four SOAP sections are empty
func (n *ClinicalNote) IsBlank() bool {
	return strings.TrimSpace(n.Subjective) == "" &&
		strings.TrimSpace(n.Objective) == "" &&
		strings.TrimSpace(n.Assessment) == "" &&
		strings.TrimSpace(n.Plan) == ""
}
