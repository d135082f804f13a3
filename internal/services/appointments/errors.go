package appointments

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidAppointment  = errors.New("invalid appointment")
	ErrReadOnly            = errors.New("appointment directory is read-only")
)

// NotFoundError represents a missing appointment
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("appointment with identifier %s not found", e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrAppointmentNotFound
}
