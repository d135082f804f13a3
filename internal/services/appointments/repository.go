package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/killallgit/scribe-api/internal/models"
)

// LocalDirectory keeps appointments in the application database
type LocalDirectory struct {
	db *gorm.DB
}

// NewLocalDirectory creates a directory backed by db
func NewLocalDirectory(db *gorm.DB) *LocalDirectory {
	return &LocalDirectory{db: db}
}

func (d *LocalDirectory) Name() string { return "local" }

// Get retrieves an appointment by id
func (d *LocalDirectory) Get(ctx context.Context, id string) (*models.Appointment, error) {
	var appointment models.Appointment
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to load appointment %s: %w", id, err)
	}
	return &appointment, nil
}

// Save upserts an appointment
func (d *LocalDirectory) Save(ctx context.Context, appointment *models.Appointment) error {
	if err := validate(appointment); err != nil {
		return err
	}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"mentor_id", "mentee_id", "scheduled_at", "updated_at"}),
	}).Create(appointment).Error
}

func validate(appointment *models.Appointment) error {
	if appointment == nil {
		return fmt.Errorf("%w: appointment cannot be nil", ErrInvalidAppointment)
	}
	if strings.TrimSpace(appointment.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidAppointment)
	}
	if strings.TrimSpace(appointment.MentorID) == "" || strings.TrimSpace(appointment.MenteeID) == "" {
		return fmt.Errorf("%w: mentor and mentee are required", ErrInvalidAppointment)
	}
	return nil
}
