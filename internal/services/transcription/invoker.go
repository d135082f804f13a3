package transcription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/killallgit/scribe-api/internal/models"
	"github.com/killallgit/scribe-api/internal/services/recordings"
	"github.com/killallgit/scribe-api/internal/services/storage"
)

// FailedStage is the stage name stored on recordings this invoker fails
const FailedStage = "transcribing"

// Invoker submits stored recordings for transcription and is the only
// writer of Transcript rows
type Invoker struct {
	repo        Repository
	recordings  recordings.Service
	store       storage.ObjectStore
	transcriber Transcriber
}

// NewInvoker creates a transcription invoker
func NewInvoker(repo Repository, recs recordings.Service, store storage.ObjectStore, transcriber Transcriber) *Invoker {
	return &Invoker{
		repo:        repo,
		recordings:  recs,
		store:       store,
		transcriber: transcriber,
	}
}

// Invoke transcribes the recording's stored audio and persists a new
// transcript. Backend failures move the recording to failed.
func (i *Invoker) Invoke(ctx context.Context, recordingID string) (*models.Transcript, error) {
	recording, err := i.recordings.Get(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if !recording.HasAudio() {
		return nil, fmt.Errorf("%w: %s", ErrNoAudio, recordingID)
	}
	if recording.Status != models.RecordingStatusProcessing {
		return nil, fmt.Errorf("%w: recording %s is %s", ErrNotResubmittable, recordingID, recording.Status)
	}

	result, err := i.transcribe(ctx, recording)
	if err != nil {
		i.fail(ctx, recordingID, err)
		return nil, err
	}

	transcript := &models.Transcript{
		RecordingID:     recording.ID,
		Text:            strings.TrimSpace(result.Text),
		Language:        result.Language,
		WordCount:       result.WordCount,
		DurationSeconds: result.DurationSeconds,
	}
	if transcript.WordCount == 0 {
		transcript.WordCount = CountWords(transcript.Text)
	}
	if transcript.Language == "" {
		transcript.Language = "en"
	}

	if err := i.repo.Create(ctx, transcript); err != nil {
		return nil, fmt.Errorf("failed to save transcript for recording %s: %w", recordingID, err)
	}

	log.Printf("[INFO] Transcript %s created for recording %s (%d words, %s)",
		transcript.ID, recordingID, transcript.WordCount, transcript.Language)
	return transcript, nil
}

func (i *Invoker) transcribe(ctx context.Context, recording *models.Recording) (*Result, error) {
	audio, err := i.store.Open(ctx, recording.StorageLocator)
	if err != nil {
		return nil, &ServiceError{Backend: i.store.Name(), Err: fmt.Errorf("failed to open stored audio: %w", err)}
	}
	defer audio.Close()

	log.Printf("[INFO] Submitting recording %s to %s", recording.ID, i.transcriber.Name())
	result, err := i.transcriber.Transcribe(ctx, path.Base(recording.StorageLocator), audio)
	if err != nil {
		var serviceErr *ServiceError
		if errors.As(err, &serviceErr) || errors.Is(err, ErrEmptyResult) {
			return nil, err
		}
		return nil, &ServiceError{Backend: i.transcriber.Name(), Err: err}
	}
	if result == nil || strings.TrimSpace(result.Text) == "" {
		return nil, ErrEmptyResult
	}
	return result, nil
}

func (i *Invoker) fail(ctx context.Context, recordingID string, cause error) {
	// The failure must be recorded even when the caller's context ended
	if err := i.recordings.MarkFailed(context.WithoutCancel(ctx), recordingID, FailedStage, cause); err != nil {
		log.Printf("[ERROR] Failed to mark recording %s as failed: %v", recordingID, err)
	}
}

// Get returns a transcript or ErrTranscriptNotFound
func (i *Invoker) Get(ctx context.Context, id string) (*models.Transcript, error) {
	transcript, err := i.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript %s: %w", id, err)
	}
	if transcript == nil {
		return nil, ErrTranscriptNotFound
	}
	return transcript, nil
}

// GetLatestForRecording returns the newest transcript, or nil when there is none
func (i *Invoker) GetLatestForRecording(ctx context.Context, recordingID string) (*models.Transcript, error) {
	return i.repo.GetLatestByRecording(ctx, recordingID)
}

// CountWords counts whitespace separated words
func CountWords(text string) int {
	return len(strings.Fields(text))
}
