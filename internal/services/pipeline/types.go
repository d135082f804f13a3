package pipeline

import (
	"context"
	"time"

	"github.com/killallgit/scribe-api/internal/capture"
	"github.com/killallgit/scribe-api/internal/models"
	"github.com/killallgit/scribe-api/internal/services/notes"
	"github.com/killallgit/scribe-api/internal/services/upload"
)

// Stage of a pipeline attempt
type Stage string

const (
	StageIdle         Stage = "idle"
	StageRecording    Stage = "recording"
	StagePaused       Stage = "paused"
	StageUploading    Stage = "uploading"
	StageTranscribing Stage = "transcribing"
	StageGenerating   Stage = "generating"
	StageCompleted    Stage = "completed"
	StageFailed       Stage = "failed"
)

// Capturing reports whether the stage holds a live capture
func (s Stage) Capturing() bool {
	return s == StageRecording || s == StagePaused
}

// StartRequest begins a capture for an appointment
type StartRequest struct {
	AppointmentID string
	Consent       bool
}

// ProcessRequest runs the pipeline on an existing local recording
type ProcessRequest struct {
	AppointmentID   string
	Consent         bool
	ArtifactPath    string
	DurationSeconds float64
}

// Event reports a stage change or progress within a stage
type Event struct {
	AppointmentID string    `json:"appointment_id"`
	RecordingID   string    `json:"recording_id,omitempty"`
	Stage         Stage     `json:"stage"`
	Percent       float64   `json:"percent"`
	FailedStage   Stage     `json:"failed_stage,omitempty"`
	Error         string    `json:"error,omitempty"`
	Time          time.Time `json:"time"`
}

// ProgressFunc receives events for the call it was passed to. It runs on the
// calling goroutine and must not block for long.
type ProgressFunc func(Event)

// State is the pipeline state of an appointment
type State struct {
	AppointmentID  string  `json:"appointment_id"`
	Stage          Stage   `json:"stage"`
	Percent        float64 `json:"percent"`
	RecordingID    string  `json:"recording_id,omitempty"`
	TranscriptID   string  `json:"transcript_id,omitempty"`
	NoteID         string  `json:"note_id,omitempty"`
	FailedStage    Stage   `json:"failed_stage,omitempty"`
	LastError      string  `json:"last_error,omitempty"`
	Live           bool    `json:"live"`
	ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`
}

// Outcome is the result of a pipeline run that reached completed
type Outcome struct {
	RecordingID string
	Transcript  *models.Transcript
	Note        *models.ClinicalNote
}

// ControllerFactory returns the capture controller for an appointment.
// Controllers recording from the same physical input must share one
// capture.Microphone.
type ControllerFactory func(appointmentID string) *capture.Controller

// SharedMicrophone builds controllers that all record from mic
func SharedMicrophone(mic *capture.Microphone, device capture.Device, permissions capture.PermissionChecker, opts capture.Options) ControllerFactory {
	return func(string) *capture.Controller {
		return capture.NewController(mic, device, permissions, opts)
	}
}

// Uploader stages a local artifact into durable storage
type Uploader interface {
	CheckArtifact(artifactPath string) (int64, error)
	Stage(ctx context.Context, req upload.Request, events chan<- upload.Progress) (*upload.Result, error)
}

// TranscriptStage creates and reads transcripts
type TranscriptStage interface {
	Invoke(ctx context.Context, recordingID string) (*models.Transcript, error)
	GetLatestForRecording(ctx context.Context, recordingID string) (*models.Transcript, error)
}

// NoteStage creates, reads and edits clinical notes
type NoteStage interface {
	Generate(ctx context.Context, transcriptID, appointmentID string) (*models.ClinicalNote, error)
	GetLatestForTranscript(ctx context.Context, transcriptID string) (*models.ClinicalNote, error)
	UpdateNote(ctx context.Context, id string, patch notes.SectionsPatch) (*models.ClinicalNote, error)
	FinalizeNote(ctx context.Context, id string) (*models.ClinicalNote, error)
}
