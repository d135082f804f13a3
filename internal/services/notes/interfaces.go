package notes

import (
	"context"

	"github.com/killallgit/scribe-api/internal/models"
)

// Sections are the four parts of a SOAP note
type Sections struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

// IsBlank reports whether every section is empty
func (s Sections) IsBlank() bool {
	note := models.ClinicalNote{Subjective: s.Subjective, Objective: s.Objective, Assessment: s.Assessment, Plan: s.Plan}
	return note.IsBlank()
}

// SectionsPatch is a partial edit. Nil fields are left unchanged.
type SectionsPatch struct {
	Subjective *string `json:"subjective,omitempty"`
	Objective  *string `json:"objective,omitempty"`
	Assessment *string `json:"assessment,omitempty"`
	Plan       *string `json:"plan,omitempty"`
}

// IsEmpty reports whether the patch names no section
func (p SectionsPatch) IsEmpty() bool {
	return p.Subjective == nil && p.Objective == nil && p.Assessment == nil && p.Plan == nil
}

// Synthesizer turns transcript text into SOAP sections
type Synthesizer interface {
	Synthesize(ctx context.Context, transcriptText string) (*Sections, error)

	// Name identifies the model in logs and on stored notes
	Name() string
}

// TranscriptSource reads transcripts produced by the transcription stage
type TranscriptSource interface {
	Get(ctx context.Context, id string) (*models.Transcript, error)
}

// Repository defines the interface for clinical note persistence
type Repository interface {
	// Create inserts a new note
	Create(ctx context.Context, note *models.ClinicalNote) error

	// GetByID returns nil, nil when the note does not exist
	GetByID(ctx context.Context, id string) (*models.ClinicalNote, error)

	// GetLatestByAppointment returns nil, nil when the appointment has no note
	GetLatestByAppointment(ctx context.Context, appointmentID string) (*models.ClinicalNote, error)

	// GetLatestByTranscript returns nil, nil when the transcript has no note
	GetLatestByTranscript(ctx context.Context, transcriptID string) (*models.ClinicalNote, error)

	// CountByTranscript counts notes generated from a transcript
	CountByTranscript(ctx context.Context, transcriptID string) (int64, error)

	// UpdateIfDraft applies updates only while the note is not finalized and
	// reports whether a row changed
	UpdateIfDraft(ctx context.Context, id string, updates map[string]interface{}) (bool, error)
}
