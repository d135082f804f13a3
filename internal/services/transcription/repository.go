package transcription

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

// NewRepository creates a new transcript repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create creates a new transcript
func (r *repository) Create(ctx context.Context, transcript *models.Transcript) error {
	if transcript == nil {
		return errors.New("transcript cannot be nil")
	}
	if transcript.RecordingID == "" {
		return errors.New("transcript must reference a recording")
	}

	result := r.db.WithContext(ctx).Create(transcript)
	if result.Error != nil {
		return result.Error
	}

	return nil
}

// GetByID retrieves a transcript by id
func (r *repository) GetByID(ctx context.Context, id string) (*models.Transcript, error) {
	var transcript models.Transcript

	result := r.db.WithContext(ctx).Where("id = ?", id).First(&transcript)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return &transcript, nil
}

// GetLatestByRecording retrieves the newest transcript for a recording
func (r *repository) GetLatestByRecording(ctx context.Context, recordingID string) (*models.Transcript, error) {
	var transcript models.Transcript

	result := r.db.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		Order("created_at DESC").
		First(&transcript)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return &transcript, nil
}

// CountByRecording counts transcripts for a recording
func (r *repository) CountByRecording(ctx context.Context, recordingID string) (int64, error) {
	var count int64

	result := r.db.WithContext(ctx).Model(&models.Transcript{}).Where("recording_id = ?", recordingID).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}
