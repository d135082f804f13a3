package recordings

import (
	"context"
	"time"

	"github.com/killallgit/scribe-api/internal/models"
)

// CreateParams describes a new capture attempt
type CreateParams struct {
	AppointmentID   string
	MentorID        string
	MenteeID        string
	ConsentCaptured bool
}

// UploadResult is what the upload stage writes back onto a recording
type UploadResult struct {
	Locator         string
	SizeBytes       int64
	DurationSeconds float64
}

// Service manages the lifecycle of Recording rows
type Service interface {
	// Create persists a Recording in status recording. Consent is required.
	Create(ctx context.Context, params CreateParams) (*models.Recording, error)

	// Get returns a recording or ErrRecordingNotFound
	Get(ctx context.Context, id string) (*models.Recording, error)

	// GetLatestForAppointment returns the newest recording, or nil when there is none
	GetLatestForAppointment(ctx context.Context, appointmentID string) (*models.Recording, error)

	// ListForAppointment returns recordings newest first
	ListForAppointment(ctx context.Context, appointmentID string) ([]models.Recording, error)

	// MarkProcessing moves a finished capture from recording to processing
	MarkProcessing(ctx context.Context, id string) error

	// AttachUpload stores the upload result on a processing recording
	AttachUpload(ctx context.Context, id string, upload UploadResult) (*models.Recording, error)

	// MarkCompleted moves a processing recording to completed
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed moves a recording to failed and remembers the stage
	MarkFailed(ctx context.Context, id, stage string, cause error) error

	// ResetForRetry moves a failed recording back to processing
	ResetForRetry(ctx context.Context, id string) (*models.Recording, error)

	// ListStale returns recordings stuck in status since before cutoff
	ListStale(ctx context.Context, status models.RecordingStatus, cutoff time.Time) ([]models.Recording, error)

	// Delete removes the stored audio, then the recording and its derived rows
	Delete(ctx context.Context, id string) (storageDeleted bool, err error)
}

// Repository defines the interface for recording persistence
type Repository interface {
	// Create inserts a new recording
	Create(ctx context.Context, recording *models.Recording) error

	// GetByID returns nil, nil when the recording does not exist
	GetByID(ctx context.Context, id string) (*models.Recording, error)

	// GetLatestByAppointment returns nil, nil when the appointment has no recordings
	GetLatestByAppointment(ctx context.Context, appointmentID string) (*models.Recording, error)

	// ListByAppointment returns recordings newest first
	ListByAppointment(ctx context.Context, appointmentID string) ([]models.Recording, error)

	// UpdateIfStatus applies updates only when the current status is one of from.
	// It reports whether a row changed.
	UpdateIfStatus(ctx context.Context, id string, from []models.RecordingStatus, updates map[string]interface{}) (bool, error)

	// ListByStatusBefore returns rows in status created before cutoff
	ListByStatusBefore(ctx context.Context, status models.RecordingStatus, cutoff time.Time) ([]models.Recording, error)

	// DeleteCascade removes the recording with its transcripts and notes
	DeleteCascade(ctx context.Context, id string) error
}
