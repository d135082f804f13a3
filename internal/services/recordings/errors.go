package recordings

import (
	"errors"
	"fmt"

	"github.com/killallgit/scribe-api/internal/models"
)

// Common errors
var (
	ErrRecordingNotFound = errors.New("recording not found")
	ErrConsentRequired   = errors.New("consent must be captured before recording")
	ErrInvalidStatus     = errors.New("invalid recording status transition")
	ErrInvalidInput      = errors.New("invalid input")
)

// StatusError reports a transition attempted from a status that does not allow it
type StatusError struct {
	RecordingID string
	Current     models.RecordingStatus
	Target      models.RecordingStatus
}

func (e StatusError) Error() string {
	return fmt.Sprintf("recording %s cannot move from %s to %s", e.RecordingID, e.Current, e.Target)
}

func (e StatusError) Is(target error) bool {
	return target == ErrInvalidStatus
}

// NotFoundError represents a missing recording
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("recording with identifier %s not found", e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrRecordingNotFound
}
