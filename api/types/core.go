package types

import (
	"time"

	"github.com/killallgit/scribe-api/internal/models"
	"github.com/killallgit/scribe-api/internal/services/pipeline"
)

// Recording is the API view of a capture attempt
type Recording struct {
	ID              string    `json:"id"`
	AppointmentID   string    `json:"appointmentId"`
	MentorID        string    `json:"mentorId,omitempty"`
	MenteeID        string    `json:"menteeId,omitempty"`
	Status          string    `json:"status"`
	HasAudio        bool      `json:"hasAudio"`
	SizeBytes       int64     `json:"sizeBytes"`
	DurationSeconds float64   `json:"durationSeconds"`
	ConsentCaptured bool      `json:"consentCaptured"`
	FailedStage     string    `json:"failedStage,omitempty"`
	LastError       string    `json:"lastError,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Transcript is the API view of a transcript
type Transcript struct {
	ID              string    `json:"id"`
	RecordingID     string    `json:"recordingId"`
	Text            string    `json:"text"`
	Language        string    `json:"language,omitempty"`
	WordCount       int       `json:"wordCount"`
	DurationSeconds float64   `json:"durationSeconds,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ClinicalNote is the API view of a SOAP note
type ClinicalNote struct {
	ID                string     `json:"id"`
	TranscriptID      string     `json:"transcriptId"`
	AppointmentID     string     `json:"appointmentId"`
	Subjective        string     `json:"subjective"`
	Objective         string     `json:"objective"`
	Assessment        string     `json:"assessment"`
	Plan              string     `json:"plan"`
	Finalized         bool       `json:"finalized"`
	EditedByClinician bool       `json:"editedByClinician"`
	FinalizedAt       *time.Time `json:"finalizedAt,omitempty"`
	Model             string     `json:"model,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Appointment is the API view of an appointment
type Appointment struct {
	ID          string    `json:"id"`
	MentorID    string    `json:"mentorId"`
	MenteeID    string    `json:"menteeId"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

// FromRecording transforms a recording row. The storage locator stays
// server-side.
func FromRecording(r *models.Recording) *Recording {
	if r == nil {
		return nil
	}
	return &Recording{
		ID:              r.ID,
		AppointmentID:   r.AppointmentID,
		MentorID:        r.MentorID,
		MenteeID:        r.MenteeID,
		Status:          string(r.Status),
		HasAudio:        r.HasAudio(),
		SizeBytes:       r.SizeBytes,
		DurationSeconds: r.DurationSeconds,
		ConsentCaptured: r.ConsentCaptured,
		FailedStage:     r.FailedStage,
		LastError:       r.LastError,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// FromRecordings transforms a list of recording rows
func FromRecordings(rows []models.Recording) []Recording {
	out := make([]Recording, 0, len(rows))
	for i := range rows {
		out = append(out, *FromRecording(&rows[i]))
	}
	return out
}

func FromTranscript(t *models.Transcript) *Transcript {
	if t == nil {
		return nil
	}
	return &Transcript{
		ID:              t.ID,
		RecordingID:     t.RecordingID,
		Text:            t.Text,
		Language:        t.Language,
		WordCount:       t.WordCount,
		DurationSeconds: t.DurationSeconds,
		CreatedAt:       t.CreatedAt,
	}
}

func FromClinicalNote(n *models.ClinicalNote) *ClinicalNote {
	if n == nil {
		return nil
	}
	return &ClinicalNote{
		ID:                n.ID,
		TranscriptID:      n.TranscriptID,
		AppointmentID:     n.AppointmentID,
		Subjective:        n.Subjective,
		Objective:         n.Objective,
		Assessment:        n.Assessment,
		Plan:              n.Plan,
		Finalized:         n.Finalized,
		EditedByClinician: n.EditedByClinician,
		FinalizedAt:       n.FinalizedAt,
		Model:             n.Model,
		CreatedAt:         n.CreatedAt,
		UpdatedAt:         n.UpdatedAt,
	}
}

func FromAppointment(a *models.Appointment) *Appointment {
	if a == nil {
		return nil
	}
	return &Appointment{ID: a.ID, MentorID: a.MentorID, MenteeID: a.MenteeID, ScheduledAt: a.ScheduledAt}
}

// PipelineState is the API view of an appointment's pipeline
type PipelineState struct {
	AppointmentID  string  `json:"appointmentId"`
	Stage          string  `json:"stage"`
	Percent        float64 `json:"percent"`
	RecordingID    string  `json:"recordingId,omitempty"`
	TranscriptID   string  `json:"transcriptId,omitempty"`
	NoteID         string  `json:"noteId,omitempty"`
	FailedStage    string  `json:"failedStage,omitempty"`
	LastError      string  `json:"lastError,omitempty"`
	Live           bool    `json:"live"`
	ElapsedSeconds float64 `json:"elapsedSeconds,omitempty"`
}

// PipelineEvent is one server-sent stage or progress event
type PipelineEvent struct {
	AppointmentID string  `json:"appointmentId"`
	RecordingID   string  `json:"recordingId,omitempty"`
	Stage         string  `json:"stage"`
	Percent       float64 `json:"percent"`
	FailedStage   string  `json:"failedStage,omitempty"`
	Error         string  `json:"error,omitempty"`
	Time          int64   `json:"time"` // Unix milliseconds
}

func FromPipelineState(s *pipeline.State) *PipelineState {
	if s == nil {
		return nil
	}
	return &PipelineState{
		AppointmentID:  s.AppointmentID,
		Stage:          string(s.Stage),
		Percent:        s.Percent,
		RecordingID:    s.RecordingID,
		TranscriptID:   s.TranscriptID,
		NoteID:         s.NoteID,
		FailedStage:    string(s.FailedStage),
		LastError:      s.LastError,
		Live:           s.Live,
		ElapsedSeconds: s.ElapsedSeconds,
	}
}

func FromPipelineEvent(ev pipeline.Event) PipelineEvent {
	return PipelineEvent{
		AppointmentID: ev.AppointmentID,
		RecordingID:   ev.RecordingID,
		Stage:         string(ev.Stage),
		Percent:       ev.Percent,
		FailedStage:   string(ev.FailedStage),
		Error:         ev.Error,
		Time:          ev.Time.UnixMilli(),
	}
}
