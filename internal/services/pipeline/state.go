package pipeline

import (
	"context"
	"fmt"

	"github.com/killallgit/scribe-api/internal/capture"
	"github.com/killallgit/scribe-api/internal/models"
)

// GetPipelineState rebuilds the appointment's stage from its latest
// recording and the rows derived from it, then overlays the live attempt
// when this process is running one. A client that lost its connection or
// crashed resumes from here.
func (o *Orchestrator) GetPipelineState(ctx context.Context, appointmentID string) (*State, error) {
	state := &State{AppointmentID: appointmentID, Stage: StageIdle}

	recording, err := o.recordings.GetLatestForAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recording for appointment %s: %w", appointmentID, err)
	}
	if recording != nil {
		if err := o.reconstruct(ctx, state, recording); err != nil {
			return nil, err
		}
	}

	var controller *capture.Controller
	o.mu.Lock()
	a := o.attempts[appointmentID]
	if a != nil {
		state.Live = true
		state.Stage = a.stage
		state.Percent = a.percent
		if a.recordingID != "" {
			state.RecordingID = a.recordingID
		}
		if a.transcriptID != "" {
			state.TranscriptID = a.transcriptID
		}
		if a.stage == StageFailed {
			state.FailedStage = a.failedStage
			state.LastError = a.lastError
		}
		controller = a.controller
	}
	o.mu.Unlock()

	// Elapsed takes the controller lock, which Stop holds while draining
	if controller != nil {
		state.ElapsedSeconds = controller.Elapsed().Seconds()
	}

	return state, nil
}

func (o *Orchestrator) reconstruct(ctx context.Context, state *State, recording *models.Recording) error {
	state.RecordingID = recording.ID

	switch recording.Status {
	case models.RecordingStatusRecording:
		state.Stage = StageRecording
		return nil
	case models.RecordingStatusFailed:
		state.Stage = StageFailed
		state.FailedStage = Stage(recording.FailedStage)
		state.LastError = recording.LastError
	}

	transcript, err := o.transcripts.GetLatestForRecording(ctx, recording.ID)
	if err != nil {
		return fmt.Errorf("failed to load transcript for recording %s: %w", recording.ID, err)
	}
	if transcript == nil {
		if state.Stage != StageFailed {
			if recording.HasAudio() {
				state.Stage = StageTranscribing
			} else {
				state.Stage = StageUploading
			}
		}
		return nil
	}
	state.TranscriptID = transcript.ID

	note, err := o.notes.GetLatestForTranscript(ctx, transcript.ID)
	if err != nil {
		return fmt.Errorf("failed to load note for transcript %s: %w", transcript.ID, err)
	}
	if note != nil {
		state.NoteID = note.ID
	}

	if state.Stage == StageFailed {
		return nil
	}
	if note != nil || recording.Status == models.RecordingStatusCompleted {
		state.Stage = StageCompleted
		state.Percent = 100
	} else {
		state.Stage = StageGenerating
	}
	return nil
}
