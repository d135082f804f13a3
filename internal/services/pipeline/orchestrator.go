package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/killallgit/scribe-api/internal/capture"
	"github.com/killallgit/scribe-api/internal/metrics"
	"github.com/killallgit/scribe-api/internal/models"
	"github.com/killallgit/scribe-api/internal/services/appointments"
	"github.com/killallgit/scribe-api/internal/services/notes"
	"github.com/killallgit/scribe-api/internal/services/recordings"
)

// Config holds the collaborators of an Orchestrator
type Config struct {
	Appointments  appointments.Directory
	Recordings    recordings.Service
	Uploader      Uploader
	Transcripts   TranscriptStage
	Notes         NoteStage
	NewController ControllerFactory
}

// Orchestrator drives capture → upload → transcription → note generation
// for each appointment. It keeps only the stage and the ids of the current
// attempt; everything durable lives in the recording, transcript and note
// rows.
type Orchestrator struct {
	appointments  appointments.Directory
	recordings    recordings.Service
	uploader      Uploader
	transcripts   TranscriptStage
	notes         NoteStage
	newController ControllerFactory

	mu       sync.Mutex
	attempts map[string]*attempt

	subMu       sync.Mutex
	subscribers map[string]map[chan Event]struct{}
}

// attempt is guarded by Orchestrator.mu
type attempt struct {
	appointmentID string
	recordingID   string
	transcriptID  string
	noteID        string

	controller      *capture.Controller
	artifactPath    string
	ownsArtifact    bool
	durationSeconds float64

	stage       Stage
	percent     float64
	failedStage Stage
	lastError   string
	running     bool
}

// NewOrchestrator creates an orchestrator from cfg
func NewOrchestrator(cfg Config) *Orchestrator {
	return &Orchestrator{
		appointments:  cfg.Appointments,
		recordings:    cfg.Recordings,
		uploader:      cfg.Uploader,
		transcripts:   cfg.Transcripts,
		notes:         cfg.Notes,
		newController: cfg.NewController,
		attempts:      make(map[string]*attempt),
		subscribers:   make(map[string]map[chan Event]struct{}),
	}
}

// StartCapture passes the consent gate, stamps a new recording row and
// starts the microphone
func (o *Orchestrator) StartCapture(ctx context.Context, req StartRequest) (*State, error) {
	if strings.TrimSpace(req.AppointmentID) == "" {
		return nil, fmt.Errorf("%w: appointment id is required", ErrInvalidRequest)
	}
	if !req.Consent {
		return nil, ErrConsentRequired
	}
	if _, err := o.uploader.CheckArtifact(req.ArtifactPath); err != nil {
		return nil, err
	}

	a, err := o.reserve(req.AppointmentID)
	if err != nil {
		return nil, err
	}

	recording, err := o.createRecording(ctx, req.AppointmentID)
	if err != nil {
		o.release(a)
		return nil, err
	}

	controller := o.newController(req.AppointmentID)
	if err := controller.Start(ctx); err != nil {
		// Device refusals are preconditions; leave no trace of the attempt
		if _, delErr := o.recordings.Delete(context.WithoutCancel(ctx), recording.ID); delErr != nil {
			log.Printf("[WARN] Failed to remove recording %s after capture refused: %v", recording.ID, delErr)
		}
		o.release(a)
		return nil, err
	}

	o.mu.Lock()
	a.recordingID = recording.ID
	a.controller = controller
	a.stage = StageRecording
	a.running = false
	o.mu.Unlock()

	metrics.StageEntered(string(StageRecording))
	o.emit(a, nil)
	log.Printf("[INFO] Capture started for appointment %s (recording %s)", req.AppointmentID, recording.ID)
	return o.GetPipelineState(ctx, req.AppointmentID)
}

// PauseCapture pauses the live capture
func (o *Orchestrator) PauseCapture(ctx context.Context, appointmentID string) (*State, error) {
	if err := o.transitionCapture(appointmentID, StagePaused, (*capture.Controller).Pause); err != nil {
		return nil, err
	}
	return o.GetPipelineState(ctx, appointmentID)
}

// ResumeCapture resumes a paused capture
func (o *Orchestrator) ResumeCapture(ctx context.Context, appointmentID string) (*State, error) {
	if err := o.transitionCapture(appointmentID, StageRecording, (*capture.Controller).Resume); err != nil {
		return nil, err
	}
	return o.GetPipelineState(ctx, appointmentID)
}

func (o *Orchestrator) transitionCapture(appointmentID string, target Stage, apply func(*capture.Controller) error) error {
	o.mu.Lock()
	a := o.attempts[appointmentID]
	if a == nil || a.controller == nil || !a.stage.Capturing() {
		o.mu.Unlock()
		return ErrNoActiveCapture
	}
	if err := apply(a.controller); err != nil {
		o.mu.Unlock()
		return err
	}
	a.stage = target
	o.mu.Unlock()

	o.emit(a, nil)
	return nil
}

// ProcessArtifact runs upload, transcription and generation on an existing
// local recording. The consent gate applies as for a live capture; the file
// is left in place afterwards.
func (o *Orchestrator) ProcessArtifact(ctx context.Context, req ProcessRequest, progress ProgressFunc) (*Outcome, error) {
	if strings.TrimSpace(req.AppointmentID) == "" || strings.TrimSpace(req.ArtifactPath) == "" {
		return nil, fmt.Errorf("%w: appointment id and artifact path are required", ErrInvalidRequest)
	}
	if !req.Consent {
		return nil, ErrConsentRequired
	}

	a, err := o.reserve(req.AppointmentID)
	if err != nil {
		return nil, err
	}

	recording, err := o.createRecording(ctx, req.AppointmentID)
	if err != nil {
		o.release(a)
		return nil, err
	}

	o.mu.Lock()
	a.recordingID = recording.ID
	a.artifactPath = req.ArtifactPath
	a.durationSeconds = req.DurationSeconds
	o.mu.Unlock()

	if err := o.recordings.MarkProcessing(ctx, recording.ID); err != nil {
		return nil, o.fail(ctx, a, StageUploading, err, progress)
	}
	return o.run(ctx, a, StageUploading, progress)
}

// Discard ends the attempt for an appointment. A live capture is cancelled
// and captured audio is deleted; rows already written are kept.
func (o *Orchestrator) Discard(ctx context.Context, appointmentID string) error {
	o.mu.Lock()
	a := o.attempts[appointmentID]
	if a == nil {
		o.mu.Unlock()
		return nil
	}
	if a.running {
		o.mu.Unlock()
		return &ConflictError{AppointmentID: appointmentID, Stage: a.stage}
	}
	delete(o.attempts, appointmentID)
	controller := a.controller
	a.controller = nil
	o.mu.Unlock()

	if controller != nil {
		controller.Cancel()
	}
	o.removeArtifact(a)

	o.publish(Event{AppointmentID: appointmentID, RecordingID: a.recordingID, Stage: StageIdle, Time: time.Now().UTC()}, nil)
	log.Printf("[INFO] Attempt for appointment %s discarded (recording %s)", appointmentID, a.recordingID)
	return nil
}

// UpdateNote edits a draft note
func (o *Orchestrator) UpdateNote(ctx context.Context, noteID string, patch notes.SectionsPatch) (*models.ClinicalNote, error) {
	return o.notes.UpdateNote(ctx, noteID, patch)
}

// FinalizeNote locks a note against further edits
func (o *Orchestrator) FinalizeNote(ctx context.Context, noteID string) (*models.ClinicalNote, error) {
	return o.notes.FinalizeNote(ctx, noteID)
}

// IsLive reports whether recordingID belongs to an attempt this process is
// running
func (o *Orchestrator) IsLive(recordingID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, a := range o.attempts {
		if a.recordingID == recordingID {
			return true
		}
	}
	return false
}

// Subscribe streams events for an appointment until cancel is called. Slow
// subscribers miss events rather than stall the pipeline.
func (o *Orchestrator) Subscribe(appointmentID string) (<-chan Event, func()) {
	ch := make(chan Event, 32)

	o.subMu.Lock()
	if o.subscribers[appointmentID] == nil {
		o.subscribers[appointmentID] = make(map[chan Event]struct{})
	}
	o.subscribers[appointmentID][ch] = struct{}{}
	o.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			o.subMu.Lock()
			delete(o.subscribers[appointmentID], ch)
			if len(o.subscribers[appointmentID]) == 0 {
				delete(o.subscribers, appointmentID)
			}
			o.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// reserve claims the appointment's slot in the registry
func (o *Orchestrator) reserve(appointmentID string) (*attempt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing := o.attempts[appointmentID]; existing != nil {
		return nil, &ConflictError{AppointmentID: appointmentID, Stage: existing.stage}
	}
	a := &attempt{appointmentID: appointmentID, stage: StageIdle, running: true}
	o.attempts[appointmentID] = a
	return a, nil
}

// release drops a slot whose attempt never started
func (o *Orchestrator) release(a *attempt) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempts[a.appointmentID] == a {
		delete(o.attempts, a.appointmentID)
	}
}

func (o *Orchestrator) createRecording(ctx context.Context, appointmentID string) (*models.Recording, error) {
	appointment, err := o.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return o.recordings.Create(ctx, recordings.CreateParams{
		AppointmentID:   appointment.ID,
		MentorID:        appointment.MentorID,
		MenteeID:        appointment.MenteeID,
		ConsentCaptured: true,
	})
}

func (o *Orchestrator) removeArtifact(a *attempt) {
	if !a.ownsArtifact || a.artifactPath == "" {
		return
	}
	if err := os.Remove(a.artifactPath); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] Failed to remove local artifact %s: %v", a.artifactPath, err)
	}
}

// emit publishes the attempt's current stage and percent
func (o *Orchestrator) emit(a *attempt, progress ProgressFunc) {
	o.mu.Lock()
	ev := Event{
		AppointmentID: a.appointmentID,
		RecordingID:   a.recordingID,
		Stage:         a.stage,
		Percent:       a.percent,
		Time:          time.Now().UTC(),
	}
	if a.stage == StageFailed {
		ev.FailedStage = a.failedStage
		ev.Error = a.lastError
	}
	o.mu.Unlock()

	o.publish(ev, progress)
}

func (o *Orchestrator) publish(ev Event, progress ProgressFunc) {
	if progress != nil {
		progress(ev)
	}

	o.subMu.Lock()
	defer o.subMu.Unlock()
	for ch := range o.subscribers[ev.AppointmentID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
