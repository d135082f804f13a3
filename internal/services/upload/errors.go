package upload

import (
	"errors"
	"fmt"

	"github.com/killallgit/scribe-api/internal/services/recordings"
)

var (
	ErrFileTooLarge    = errors.New("artifact exceeds the upload size limit")
	ErrTransfer        = errors.New("upload transfer failed")
	ErrConsentRequired = errors.New("recording has no captured consent")
	ErrArtifactMissing = errors.New("local audio artifact not found")
	ErrArtifactEmpty   = errors.New("local audio artifact is empty")
)

// FileTooLargeError is returned before any transfer when the artifact is
// above the ceiling
type FileTooLargeError struct {
	Path    string
	Actual  int64
	Allowed int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("artifact %s is %d bytes, limit is %d bytes", e.Path, e.Actual, e.Allowed)
}

func (e *FileTooLargeError) Is(target error) bool {
	return target == ErrFileTooLarge
}

// TransferError wraps a storage failure during the byte transfer
type TransferError struct {
	RecordingID string
	Key         string
	Err         error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("upload of recording %s to %s failed: %v", e.RecordingID, e.Key, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func (e *TransferError) Is(target error) bool {
	return target == ErrTransfer
}

// IsPrecondition reports whether err is a rejection Stage returns before
// any transfer starts. The recording row is unchanged when it is.
func IsPrecondition(err error) bool {
	var statusErr recordings.StatusError
	return errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrConsentRequired) ||
		errors.Is(err, ErrArtifactMissing) ||
		errors.Is(err, ErrArtifactEmpty) ||
		errors.As(err, &statusErr)
}
