package recordings

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/killallgit/scribe-api/internal/models"
)

// repository implements the Repository interface using GORM
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new recording repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create inserts a new recording
func (r *repository) Create(ctx context.Context, recording *models.Recording) error {
	if recording == nil {
		return errors.New("recording cannot be nil")
	}
	return r.db.WithContext(ctx).Create(recording).Error
}

// GetByID retrieves a recording by id
func (r *repository) GetByID(ctx context.Context, id string) (*models.Recording, error) {
	var recording models.Recording
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&recording).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recording, nil
}

// GetLatestByAppointment retrieves the newest recording for an appointment
func (r *repository) GetLatestByAppointment(ctx context.Context, appointmentID string) (*models.Recording, error) {
	var recording models.Recording
	err := r.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at DESC").
		First(&recording).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recording, nil
}

// ListByAppointment lists recordings for an appointment, newest first
func (r *repository) ListByAppointment(ctx context.Context, appointmentID string) ([]models.Recording, error) {
	var recordings []models.Recording
	err := r.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at DESC").
		Find(&recordings).Error
	return recordings, err
}

// UpdateIfStatus performs a compare-and-set on the status column
func (r *repository) UpdateIfStatus(ctx context.Context, id string, from []models.RecordingStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Recording{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByStatusBefore lists rows in status created before cutoff
func (r *repository) ListByStatusBefore(ctx context.Context, status models.RecordingStatus, cutoff time.Time) ([]models.Recording, error) {
	var recordings []models.Recording
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", status, cutoff).
		Order("created_at ASC").
		Find(&recordings).Error
	return recordings, err
}

// DeleteCascade removes the recording and every row derived from it
func (r *repository) DeleteCascade(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transcriptIDs := tx.Model(&models.Transcript{}).Select("id").Where("recording_id = ?", id)

		if err := tx.Where("transcript_id IN (?)", transcriptIDs).Delete(&models.ClinicalNote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recording_id = ?", id).Delete(&models.Transcript{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Recording{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
