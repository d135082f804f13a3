package types

import (
	"context"

	"github.com/killallgit/scribe-api/internal/models"
	"github.com/killallgit/scribe-api/internal/services/notes"
	"github.com/killallgit/scribe-api/internal/services/pipeline"
)

// PipelineService is the part of the pipeline orchestrator the HTTP layer
// drives. *pipeline.Orchestrator implements it.
type PipelineService interface {
	StartCapture(ctx context.Context, req pipeline.StartRequest) (*pipeline.State, error)
	PauseCapture(ctx context.Context, appointmentID string) (*pipeline.State, error)
	ResumeCapture(ctx context.Context, appointmentID string) (*pipeline.State, error)
	StopCaptureAndProcess(ctx context.Context, appointmentID string, progress pipeline.ProgressFunc) (*pipeline.Outcome, error)
	Retry(ctx context.Context, appointmentID string, progress pipeline.ProgressFunc) (*pipeline.Outcome, error)
	CheckRetry(ctx context.Context, appointmentID string) error
	Discard(ctx context.Context, appointmentID string) error
	GetPipelineState(ctx context.Context, appointmentID string) (*pipeline.State, error)
	Subscribe(appointmentID string) (<-chan pipeline.Event, func())
	UpdateNote(ctx context.Context, noteID string, patch notes.SectionsPatch) (*models.ClinicalNote, error)
	FinalizeNote(ctx context.Context, noteID string) (*models.ClinicalNote, error)
	IsLive(recordingID string) bool
}

// TranscriptReader reads stored transcripts
type TranscriptReader interface {
	Get(ctx context.Context, id string) (*models.Transcript, error)
	GetLatestForRecording(ctx context.Context, recordingID string) (*models.Transcript, error)
}

// NoteReader reads stored clinical notes
type NoteReader interface {
	Get(ctx context.Context, id string) (*models.ClinicalNote, error)
	GetLatestForAppointment(ctx context.Context, appointmentID string) (*models.ClinicalNote, error)
}

var _ PipelineService = (*pipeline.Orchestrator)(nil)
