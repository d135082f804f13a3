package recordings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/killallgit/scribe-api/internal/models"
	"github.com/killallgit/scribe-api/internal/services/storage"
)

// maxErrorLength bounds the diagnostic stored on failed rows
const maxErrorLength = 1000

type service struct {
	repo  Repository
	store storage.ObjectStore
}

// NewService creates a recording service. store may be nil when deletion of
// stored audio is not needed.
func NewService(repo Repository, store storage.ObjectStore) Service {
	return &service{repo: repo, store: store}
}

// Create persists a new recording in status recording
func (s *service) Create(ctx context.Context, params CreateParams) (*models.Recording, error) {
	if strings.TrimSpace(params.AppointmentID) == "" {
		return nil, fmt.Errorf("%w: appointment id is required", ErrInvalidInput)
	}
	if !params.ConsentCaptured {
		return nil, ErrConsentRequired
	}

	recording := &models.Recording{
		AppointmentID:   params.AppointmentID,
		MentorID:        params.MentorID,
		MenteeID:        params.MenteeID,
		Status:          models.RecordingStatusRecording,
		ConsentCaptured: true,
	}
	if err := s.repo.Create(ctx, recording); err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	log.Printf("[INFO] Recording %s created for appointment %s", recording.ID, recording.AppointmentID)
	return recording, nil
}

// Get returns the recording or ErrRecordingNotFound
func (s *service) Get(ctx context.Context, id string) (*models.Recording, error) {
	recording, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load recording %s: %w", id, err)
	}
	if recording == nil {
		return nil, NotFoundError{ID: id}
	}
	return recording, nil
}

func (s *service) GetLatestForAppointment(ctx context.Context, appointmentID string) (*models.Recording, error) {
	return s.repo.GetLatestByAppointment(ctx, appointmentID)
}

func (s *service) ListForAppointment(ctx context.Context, appointmentID string) ([]models.Recording, error) {
	return s.repo.ListByAppointment(ctx, appointmentID)
}

// MarkProcessing moves a finished capture into processing
func (s *service) MarkProcessing(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.RecordingStatusProcessing,
		[]models.RecordingStatus{models.RecordingStatusRecording},
		map[string]interface{}{})
}

// AttachUpload records where the audio was stored. The status is unchanged.
func (s *service) AttachUpload(ctx context.Context, id string, upload UploadResult) (*models.Recording, error) {
	if upload.Locator == "" {
		return nil, fmt.Errorf("%w: storage locator is required", ErrInvalidInput)
	}

	updates := map[string]interface{}{
		"storage_locator": upload.Locator,
		"size_bytes":      upload.SizeBytes,
	}
	if upload.DurationSeconds > 0 {
		updates["duration_seconds"] = upload.DurationSeconds
	}

	changed, err := s.repo.UpdateIfStatus(ctx, id, []models.RecordingStatus{models.RecordingStatusProcessing}, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to attach upload to recording %s: %w", id, err)
	}
	if !changed {
		return nil, s.explainUnchanged(ctx, id, models.RecordingStatusProcessing)
	}
	return s.Get(ctx, id)
}

// MarkCompleted finishes a processing recording
func (s *service) MarkCompleted(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.RecordingStatusCompleted,
		[]models.RecordingStatus{models.RecordingStatusProcessing},
		map[string]interface{}{"failed_stage": "", "last_error": ""})
}

// MarkFailed records a stage failure
func (s *service) MarkFailed(ctx context.Context, id, stage string, cause error) error {
	message := ""
	if cause != nil {
		message = truncate(cause.Error(), maxErrorLength)
	}

	err := s.transition(ctx, id, models.RecordingStatusFailed,
		[]models.RecordingStatus{models.RecordingStatusRecording, models.RecordingStatusProcessing, models.RecordingStatusFailed},
		map[string]interface{}{"failed_stage": stage, "last_error": message})
	if err == nil {
		log.Printf("[WARN] Recording %s failed at %s: %s", id, stage, message)
	}
	return err
}

// ResetForRetry is the explicit status reset required before a failed
// recording may be processed again
func (s *service) ResetForRetry(ctx context.Context, id string) (*models.Recording, error) {
	err := s.transition(ctx, id, models.RecordingStatusProcessing,
		[]models.RecordingStatus{models.RecordingStatusFailed},
		map[string]interface{}{"last_error": ""})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) ListStale(ctx context.Context, status models.RecordingStatus, cutoff time.Time) ([]models.Recording, error) {
	return s.repo.ListByStatusBefore(ctx, status, cutoff)
}

// Delete removes the stored object first so a storage failure leaves the row
// in place for another attempt
func (s *service) Delete(ctx context.Context, id string) (bool, error) {
	recording, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}

	storageDeleted := false
	if recording.StorageLocator != "" && s.store != nil {
		storageDeleted, err = s.store.Delete(ctx, recording.StorageLocator)
		if err != nil {
			return false, fmt.Errorf("failed to delete stored audio for recording %s: %w", id, err)
		}
	}

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return storageDeleted, NotFoundError{ID: id}
		}
		return storageDeleted, fmt.Errorf("failed to delete recording %s: %w", id, err)
	}

	log.Printf("[INFO] Recording %s deleted (stored audio removed: %v)", id, storageDeleted)
	return storageDeleted, nil
}

func (s *service) transition(ctx context.Context, id string, target models.RecordingStatus, from []models.RecordingStatus, updates map[string]interface{}) error {
	updates["status"] = target
	changed, err := s.repo.UpdateIfStatus(ctx, id, from, updates)
	if err != nil {
		return fmt.Errorf("failed to update recording %s: %w", id, err)
	}
	if !changed {
		return s.explainUnchanged(ctx, id, target)
	}
	return nil
}

// explainUnchanged distinguishes a missing row from a disallowed transition
func (s *service) explainUnchanged(ctx context.Context, id string, target models.RecordingStatus) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load recording %s: %w", id, err)
	}
	if current == nil {
		return NotFoundError{ID: id}
	}
	return StatusError{RecordingID: id, Current: current.Status, Target: target}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
