package transcription

import (
	"errors"
	"fmt"
)

var (
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrService            = errors.New("transcription service failed")
	ErrEmptyResult        = errors.New("transcription returned no usable text")
	ErrNotResubmittable   = errors.New("recording must be reset before it can be transcribed again")
	ErrNoAudio            = errors.New("recording has no stored audio")
)

// ServiceError is a backend or transport failure of the speech-to-text call
type ServiceError struct {
	Backend    string
	StatusCode int // Zero when the failure happened before a response
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s transcription failed with status %d: %v", e.Backend, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s transcription failed: %v", e.Backend, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return target == ErrService
}
