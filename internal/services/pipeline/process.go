package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/killallgit/scribe-api/internal/metrics"
	"github.com/killallgit/scribe-api/internal/models"
	"github.com/killallgit/scribe-api/internal/services/upload"
)

// StopCaptureAndProcess stops the live capture and runs the remaining stages
// in order, blocking until the note is generated or a stage fails. progress
// receives every stage change and upload percent for this call.
func (o *Orchestrator) StopCaptureAndProcess(ctx context.Context, appointmentID string, progress ProgressFunc) (*Outcome, error) {
	o.mu.Lock()
	a := o.attempts[appointmentID]
	if a == nil || a.controller == nil || !a.stage.Capturing() {
		o.mu.Unlock()
		return nil, ErrNoActiveCapture
	}
	if a.running {
		o.mu.Unlock()
		return nil, &ConflictError{AppointmentID: appointmentID, Stage: a.stage}
	}
	a.running = true
	controller := a.controller
	o.mu.Unlock()

	artifact, err := controller.Stop()
	if err == nil && artifact == nil {
		err = ErrNoArtifact
	}

	o.mu.Lock()
	a.controller = nil
	if artifact != nil {
		a.artifactPath = artifact.Path
		a.ownsArtifact = true
		a.durationSeconds = artifact.Duration.Seconds()
	}
	o.mu.Unlock()

	if err != nil {
		return nil, o.fail(ctx, a, StageRecording, err, progress)
	}
	if _, err := o.uploader.CheckArtifact(artifact.Path); err != nil {
		return nil, o.reject(a, StageUploading, err, progress)
	}
	if err := o.recordings.MarkProcessing(ctx, a.recordingID); err != nil {
		return nil, o.fail(ctx, a, StageUploading, err, progress)
	}
	return o.run(ctx, a, StageUploading, progress)
}

// Retry resumes the latest failed attempt from the stage that failed
func (o *Orchestrator) Retry(ctx context.Context, appointmentID string, progress ProgressFunc) (*Outcome, error) {
	recording, err := o.recordings.GetLatestForAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recording for appointment %s: %w", appointmentID, err)
	}
	if recording == nil || recording.Status != models.RecordingStatusFailed {
		return nil, fmt.Errorf("%w: appointment %s has no failed recording", ErrNothingToRetry, appointmentID)
	}

	switch stage := Stage(recording.FailedStage); stage {
	case StageUploading:
		return o.RetryUpload(ctx, appointmentID, progress)
	case StageTranscribing:
		return o.RetryTranscription(ctx, appointmentID, progress)
	case StageGenerating:
		return o.RetryGeneration(ctx, appointmentID, progress)
	default:
		return nil, notResumable(stage)
	}
}

// CheckRetry reports whether Retry would resume the appointment, without
// claiming it or touching any row
func (o *Orchestrator) CheckRetry(ctx context.Context, appointmentID string) error {
	o.mu.Lock()
	target := &attempt{appointmentID: appointmentID}
	if a := o.attempts[appointmentID]; a != nil {
		if a.running || a.stage.Capturing() {
			stage := a.stage
			o.mu.Unlock()
			return &ConflictError{AppointmentID: appointmentID, Stage: stage}
		}
		target.recordingID = a.recordingID
		target.artifactPath = a.artifactPath
	}
	o.mu.Unlock()

	recording, err := o.recordings.GetLatestForAppointment(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("failed to load recording for appointment %s: %w", appointmentID, err)
	}
	if recording == nil || recording.Status != models.RecordingStatusFailed {
		return fmt.Errorf("%w: appointment %s has no failed recording", ErrNothingToRetry, appointmentID)
	}
	if target.recordingID == "" {
		target.recordingID = recording.ID
	}

	switch stage := Stage(recording.FailedStage); stage {
	case StageUploading:
		return o.checkUpload(target, recording)
	case StageTranscribing:
		return checkTranscription(recording)
	case StageGenerating:
		_, err := o.latestTranscriptID(ctx, recording)
		return err
	default:
		return notResumable(stage)
	}
}

func notResumable(stage Stage) error {
	return fmt.Errorf("%w: a failed %s stage cannot be resumed, discard and record again", ErrNothingToRetry, stage)
}

// checkUpload requires the local artifact of the failed recording to still
// pass the upload preconditions
func (o *Orchestrator) checkUpload(a *attempt, recording *models.Recording) error {
	if a.artifactPath == "" {
		return fmt.Errorf("%w: the local recording is no longer available", ErrNothingToRetry)
	}
	if a.recordingID != recording.ID || recording.HasAudio() {
		return fmt.Errorf("%w: recording %s is not waiting for an upload", ErrNothingToRetry, recording.ID)
	}
	if _, err := o.uploader.CheckArtifact(a.artifactPath); err != nil {
		return fmt.Errorf("%w: %w", ErrNothingToRetry, err)
	}
	return nil
}

func checkTranscription(recording *models.Recording) error {
	if !recording.HasAudio() {
		return fmt.Errorf("%w: recording %s has no stored audio", ErrNothingToRetry, recording.ID)
	}
	return nil
}

func (o *Orchestrator) latestTranscriptID(ctx context.Context, recording *models.Recording) (string, error) {
	transcript, err := o.transcripts.GetLatestForRecording(ctx, recording.ID)
	if err != nil {
		return "", err
	}
	if transcript == nil {
		return "", fmt.Errorf("%w: recording %s has no transcript", ErrNothingToRetry, recording.ID)
	}
	return transcript.ID, nil
}

// RetryUpload re-stages the same local artifact after a failed upload
func (o *Orchestrator) RetryUpload(ctx context.Context, appointmentID string, progress ProgressFunc) (*Outcome, error) {
	a, _, err := o.claimRetry(ctx, appointmentID, o.checkUpload)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, a, StageUploading, progress)
}

// RetryTranscription submits the stored audio again
func (o *Orchestrator) RetryTranscription(ctx context.Context, appointmentID string, progress ProgressFunc) (*Outcome, error) {
	a, _, err := o.claimRetry(ctx, appointmentID, func(_ *attempt, recording *models.Recording) error {
		return checkTranscription(recording)
	})
	if err != nil {
		return nil, err
	}
	return o.run(ctx, a, StageTranscribing, progress)
}

// RetryGeneration generates the note again from the existing transcript
func (o *Orchestrator) RetryGeneration(ctx context.Context, appointmentID string, progress ProgressFunc) (*Outcome, error) {
	var transcriptID string
	a, _, err := o.claimRetry(ctx, appointmentID, func(_ *attempt, recording *models.Recording) error {
		id, err := o.latestTranscriptID(ctx, recording)
		transcriptID = id
		return err
	})
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	a.transcriptID = transcriptID
	o.mu.Unlock()
	return o.run(ctx, a, StageGenerating, progress)
}

// claimRetry marks the appointment's attempt as running, checks the latest
// recording is failed and passes check, then resets it to processing
func (o *Orchestrator) claimRetry(ctx context.Context, appointmentID string, check func(*attempt, *models.Recording) error) (*attempt, *models.Recording, error) {
	o.mu.Lock()
	a, existed := o.attempts[appointmentID], true
	if a == nil {
		existed = false
		a = &attempt{appointmentID: appointmentID, stage: StageFailed}
		o.attempts[appointmentID] = a
	}
	if a.running || a.stage.Capturing() {
		stage := a.stage
		o.mu.Unlock()
		return nil, nil, &ConflictError{AppointmentID: appointmentID, Stage: stage}
	}
	a.running = true
	o.mu.Unlock()

	abandon := func(err error) (*attempt, *models.Recording, error) {
		if existed {
			o.mu.Lock()
			a.running = false
			o.mu.Unlock()
		} else {
			o.release(a)
		}
		return nil, nil, err
	}

	recording, err := o.recordings.GetLatestForAppointment(ctx, appointmentID)
	if err != nil {
		return abandon(fmt.Errorf("failed to load recording for appointment %s: %w", appointmentID, err))
	}
	if recording == nil || recording.Status != models.RecordingStatusFailed {
		return abandon(fmt.Errorf("%w: appointment %s has no failed recording", ErrNothingToRetry, appointmentID))
	}
	o.mu.Lock()
	if !existed {
		a.recordingID = recording.ID
	}
	target := &attempt{appointmentID: appointmentID, recordingID: a.recordingID, artifactPath: a.artifactPath}
	o.mu.Unlock()

	if err := check(target, recording); err != nil {
		return abandon(err)
	}

	reset, err := o.recordings.ResetForRetry(ctx, recording.ID)
	if err != nil {
		return abandon(err)
	}

	o.mu.Lock()
	a.recordingID = reset.ID
	a.lastError = ""
	o.mu.Unlock()

	log.Printf("[INFO] Retrying appointment %s from %s (recording %s)", appointmentID, recording.FailedStage, recording.ID)
	return a, reset, nil
}

// run executes the stages from the given one to completion. It clears the
// running flag on every return.
func (o *Orchestrator) run(ctx context.Context, a *attempt, from Stage, progress ProgressFunc) (*Outcome, error) {
	outcome := &Outcome{RecordingID: a.recordingID}

	switch from {
	case StageUploading:
		if err := o.runUpload(ctx, a, progress); err != nil {
			return nil, err
		}
		fallthrough
	case StageTranscribing:
		transcript, err := o.runTranscription(ctx, a, progress)
		if err != nil {
			return nil, err
		}
		outcome.Transcript = transcript
		fallthrough
	case StageGenerating:
		note, err := o.runGeneration(ctx, a, progress)
		if err != nil {
			return nil, err
		}
		outcome.Note = note
	default:
		o.mu.Lock()
		a.running = false
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot run from stage %s", ErrInvalidRequest, from)
	}

	if err := o.recordings.MarkCompleted(ctx, a.recordingID); err != nil {
		return nil, o.fail(ctx, a, StageGenerating, err, progress)
	}

	o.mu.Lock()
	a.stage = StageCompleted
	a.percent = 100
	a.running = false
	if o.attempts[a.appointmentID] == a {
		delete(o.attempts, a.appointmentID)
	}
	o.mu.Unlock()

	metrics.StageEntered(string(StageCompleted))
	o.emit(a, progress)
	log.Printf("[INFO] Pipeline completed for appointment %s (recording %s, note %s)",
		a.appointmentID, a.recordingID, outcome.Note.ID)
	return outcome, nil
}

func (o *Orchestrator) runUpload(ctx context.Context, a *attempt, progress ProgressFunc) error {
	started := o.enter(a, StageUploading, progress)

	o.mu.Lock()
	req := upload.Request{
		ArtifactPath:    a.artifactPath,
		RecordingID:     a.recordingID,
		DurationSeconds: a.durationSeconds,
	}
	o.mu.Unlock()

	events := make(chan upload.Progress, 16)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for ev := range events {
			o.setPercent(a, ev.Percent, progress)
		}
	}()

	_, err := o.uploader.Stage(ctx, req, events)
	<-forwarded
	if upload.IsPrecondition(err) {
		return o.reject(a, StageUploading, err, progress)
	}
	if err != nil {
		return o.fail(ctx, a, StageUploading, err, progress)
	}

	metrics.ObserveStage(string(StageUploading), time.Since(started))
	o.removeArtifact(a)
	o.mu.Lock()
	a.artifactPath = ""
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) runTranscription(ctx context.Context, a *attempt, progress ProgressFunc) (*models.Transcript, error) {
	started := o.enter(a, StageTranscribing, progress)

	transcript, err := o.transcripts.Invoke(ctx, a.recordingID)
	if err != nil {
		return nil, o.fail(ctx, a, StageTranscribing, err, progress)
	}

	metrics.ObserveStage(string(StageTranscribing), time.Since(started))
	o.mu.Lock()
	a.transcriptID = transcript.ID
	o.mu.Unlock()
	return transcript, nil
}

func (o *Orchestrator) runGeneration(ctx context.Context, a *attempt, progress ProgressFunc) (*models.ClinicalNote, error) {
	started := o.enter(a, StageGenerating, progress)

	o.mu.Lock()
	transcriptID := a.transcriptID
	o.mu.Unlock()

	note, err := o.notes.Generate(ctx, transcriptID, a.appointmentID)
	if err != nil {
		return nil, o.fail(ctx, a, StageGenerating, err, progress)
	}

	metrics.ObserveStage(string(StageGenerating), time.Since(started))
	o.mu.Lock()
	a.noteID = note.ID
	o.mu.Unlock()
	return note, nil
}

// enter moves the attempt into stage and returns the time it did so
func (o *Orchestrator) enter(a *attempt, stage Stage, progress ProgressFunc) time.Time {
	o.mu.Lock()
	a.stage = stage
	a.percent = 0
	o.mu.Unlock()

	metrics.StageEntered(string(stage))
	o.emit(a, progress)
	return time.Now()
}

// setPercent reports progress within the current stage. Percent never
// decreases within a stage.
func (o *Orchestrator) setPercent(a *attempt, percent float64, progress ProgressFunc) {
	o.mu.Lock()
	if percent <= a.percent {
		o.mu.Unlock()
		return
	}
	a.percent = percent
	o.mu.Unlock()

	o.emit(a, progress)
}

// reject parks the attempt as failed after a precondition error. The
// recording row is left as it was, so Retry refuses it and the attempt can
// only be discarded.
func (o *Orchestrator) reject(a *attempt, stage Stage, cause error, progress ProgressFunc) error {
	metrics.StageFailed(string(stage), errorClass(cause))

	o.mu.Lock()
	a.stage = StageFailed
	a.failedStage = stage
	a.lastError = cause.Error()
	a.running = false
	o.mu.Unlock()

	o.emit(a, progress)
	log.Printf("[WARN] Pipeline for appointment %s rejected before %s: %v", a.appointmentID, stage, cause)
	return &StageError{Stage: stage, RecordingID: a.recordingID, Err: cause}
}

// fail records a stage failure on the attempt and its recording
func (o *Orchestrator) fail(ctx context.Context, a *attempt, stage Stage, cause error, progress ProgressFunc) error {
	if err := o.recordings.MarkFailed(context.WithoutCancel(ctx), a.recordingID, string(stage), cause); err != nil {
		log.Printf("[ERROR] Failed to mark recording %s as failed: %v", a.recordingID, err)
	}
	metrics.StageFailed(string(stage), errorClass(cause))

	o.mu.Lock()
	a.stage = StageFailed
	a.failedStage = stage
	a.lastError = cause.Error()
	a.running = false
	o.mu.Unlock()

	o.emit(a, progress)
	log.Printf("[ERROR] Pipeline for appointment %s failed at %s: %v", a.appointmentID, stage, cause)

	var stageErr *StageError
	if errors.As(cause, &stageErr) {
		return cause
	}
	return &StageError{Stage: stage, RecordingID: a.recordingID, Err: cause}
}
