package pipeline

import (
	"errors"
	"fmt"

	"github.com/killallgit/scribe-api/internal/capture"
	"github.com/killallgit/scribe-api/internal/services/notes"
	"github.com/killallgit/scribe-api/internal/services/recordings"
	"github.com/killallgit/scribe-api/internal/services/transcription"
	"github.com/killallgit/scribe-api/internal/services/upload"
)

// Common errors
var (
	ErrConflictingAttempt = errors.New("a pipeline attempt is already in progress for this appointment")
	ErrNoActiveCapture    = errors.New("no active capture for this appointment")
	ErrNothingToRetry     = errors.New("nothing to retry for this appointment")
	ErrNoArtifact         = errors.New("capture produced no audio")
	ErrInvalidRequest     = errors.New("invalid pipeline request")
	ErrStageFailed        = errors.New("pipeline stage failed")

	// ErrConsentRequired is the consent gate refusal
	ErrConsentRequired = recordings.ErrConsentRequired
)

// ConflictError reports the attempt that blocked a new one
type ConflictError struct {
	AppointmentID string
	Stage         Stage
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("appointment %s already has an attempt in stage %s", e.AppointmentID, e.Stage)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflictingAttempt
}

// StageError is a remote or device failure that moved the attempt to failed
type StageError struct {
	Stage       Stage
	RecordingID string
	Err         error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed for recording %s: %v", e.Stage, e.RecordingID, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) Is(target error) bool {
	return target == ErrStageFailed
}

// errorClass labels failures for metrics
func errorClass(err error) string {
	switch {
	case errors.Is(err, upload.ErrFileTooLarge):
		return "file_too_large"
	case errors.Is(err, upload.ErrTransfer):
		return "transfer"
	case errors.Is(err, transcription.ErrService), errors.Is(err, notes.ErrService):
		return "service"
	case errors.Is(err, transcription.ErrEmptyResult), errors.Is(err, notes.ErrEmptyResult):
		return "empty_result"
	case errors.Is(err, capture.ErrDeviceFailure), errors.Is(err, ErrNoArtifact):
		return "device"
	default:
		return "other"
	}
}
