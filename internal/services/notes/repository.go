package notes

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/killallgit/scribe-api/internal/models"
)

// repository implements the Repository interface using GORM
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new clinical note repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create creates a new note
func (r *repository) Create(ctx context.Context, note *models.ClinicalNote) error {
	if note == nil {
		return errors.New("note cannot be nil")
	}
	return r.db.WithContext(ctx).Create(note).Error
}

// GetByID retrieves a note by id
func (r *repository) GetByID(ctx context.Context, id string) (*models.ClinicalNote, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// GetLatestByAppointment retrieves the newest note for an appointment
func (r *repository) GetLatestByAppointment(ctx context.Context, appointmentID string) (*models.ClinicalNote, error) {
	return r.first(r.db.WithContext(ctx).Where("appointment_id = ?", appointmentID).Order("created_at DESC"))
}

// GetLatestByTranscript retrieves the newest note generated from a transcript
func (r *repository) GetLatestByTranscript(ctx context.Context, transcriptID string) (*models.ClinicalNote, error) {
	return r.first(r.db.WithContext(ctx).Where("transcript_id = ?", transcriptID).Order("created_at DESC"))
}

// CountByTranscript counts notes for a transcript
func (r *repository) CountByTranscript(ctx context.Context, transcriptID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ClinicalNote{}).Where("transcript_id = ?", transcriptID).Count(&count).Error
	return count, err
}

// UpdateIfDraft updates a note that is not finalized
func (r *repository) UpdateIfDraft(ctx context.Context, id string, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ClinicalNote{}).
		Where("id = ? AND finalized = ?", id, false).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) first(query *gorm.DB) (*models.ClinicalNote, error) {
	var note models.ClinicalNote
	if err := query.First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}
