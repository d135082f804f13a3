package appointments

import (
	"context"

	"github.com/killallgit/scribe-api/internal/models"
)

// Directory resolves appointments to the mentor and mentee they belong to
type Directory interface {
	// Get returns the appointment or ErrAppointmentNotFound
	Get(ctx context.Context, id string) (*models.Appointment, error)

	// Save creates or replaces an appointment. Read-only directories return ErrReadOnly.
	Save(ctx context.Context, appointment *models.Appointment) error

	// Name identifies the backing source in logs
	Name() string
}
