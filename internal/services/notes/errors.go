package notes

import (
	"errors"
	"fmt"
)

var (
	ErrNoteNotFound       = errors.New("clinical note not found")
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrAlreadyFinalized   = errors.New("clinical note is finalized and cannot be edited")
	ErrService            = errors.New("note synthesis service failed")
	ErrEmptyResult        = errors.New("note synthesis returned no usable sections")
)

// ServiceError is a backend or transport failure of the synthesis call
type ServiceError struct {
	Provider   string
	StatusCode int // Zero when the failure happened before a response
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s note synthesis failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s note synthesis failed: %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return target == ErrService
}
