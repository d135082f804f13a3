package transcription

import (
	"context"
	"io"

	"github.com/killallgit/scribe-api/internal/models"
)

// Result is what a speech-to-text backend returns
type Result struct {
	Text            string
	Language        string
	WordCount       int     // Zero when the backend does not count
	DurationSeconds float64 // Zero when unknown
}

// Transcriber submits audio to a speech-to-text backend and waits for the
// result
type Transcriber interface {
	// Transcribe reads audio and returns its text. name carries the file
	// extension some backends use to detect the container.
	Transcribe(ctx context.Context, name string, audio io.Reader) (*Result, error)

	// Name identifies the backend in logs and errors
	Name() string
}

// Repository defines the interface for transcript persistence. Transcripts
// are immutable, so there is no update.
type Repository interface {
	// Create inserts a new transcript
	Create(ctx context.Context, transcript *models.Transcript) error

	// GetByID returns nil, nil when the transcript does not exist
	GetByID(ctx context.Context, id string) (*models.Transcript, error)

	// GetLatestByRecording returns nil, nil when the recording has no transcript
	GetLatestByRecording(ctx context.Context, recordingID string) (*models.Transcript, error)

	// CountByRecording counts transcripts created for a recording
	CountByRecording(ctx context.Context, recordingID string) (int64, error)
}
