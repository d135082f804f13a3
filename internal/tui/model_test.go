package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/scribe-api/internal/capture"
	"github.com/killallgit/scribe-api/internal/models"
	"github.com/killallgit/scribe-api/internal/services/pipeline"
)

type fakePipeline struct {
	mu        sync.Mutex
	startErr  error
	runErr    error
	started   int
	paused    int
	resumed   int
	stopped   int
	retried   int
	discarded int
	events    []pipeline.Event
	outcome   *pipeline.Outcome
}

func (f *fakePipeline) StartCapture(ctx context.Context, req pipeline.StartRequest) (*pipeline.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	if !req.Consent {
		return nil, pipeline.ErrConsentRequired
	}
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &pipeline.State{AppointmentID: req.AppointmentID, Stage: pipeline.StageRecording, Live: true}, nil
}

func (f *fakePipeline) PauseCapture(ctx context.Context, id string) (*pipeline.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused++
	return &pipeline.State{AppointmentID: id, Stage: pipeline.StagePaused, Live: true, ElapsedSeconds: 12}, nil
}

func (f *fakePipeline) ResumeCapture(ctx context.Context, id string) (*pipeline.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed++
	return &pipeline.State{AppointmentID: id, Stage: pipeline.StageRecording, Live: true, ElapsedSeconds: 12}, nil
}

func (f *fakePipeline) run(progress pipeline.ProgressFunc) (*pipeline.Outcome, error) {
	for _, ev := range f.events {
		progress(ev)
	}
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.outcome, nil
}

func (f *fakePipeline) StopCaptureAndProcess(ctx context.Context, id string, progress pipeline.ProgressFunc) (*pipeline.Outcome, error) {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
	return f.run(progress)
}

func (f *fakePipeline) Retry(ctx context.Context, id string, progress pipeline.ProgressFunc) (*pipeline.Outcome, error) {
	f.mu.Lock()
	f.retried++
	f.mu.Unlock()
	return f.run(progress)
}

func (f *fakePipeline) Discard(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded++
	return nil
}

func (f *fakePipeline) GetPipelineState(ctx context.Context, id string) (*pipeline.State, error) {
	return &pipeline.State{AppointmentID: id, Stage: pipeline.StageRecording, Live: true, ElapsedSeconds: 65}, nil
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive applies msg and then feeds every resulting message back, the way
// the bubbletea runtime would, skipping ticks and quit.
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	queue := []tea.Msg{msg}
	for steps := 0; len(queue) > 0 && steps < 100; steps++ {
		next := queue[0]
		queue = queue[1:]

		updated, cmd := m.Update(next)
		m = updated.(Model)
		queue = append(queue, run(cmd)...)
	}
	return m
}

func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg := msg.(type) {
	case nil, tickMsg, tea.QuitMsg:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, run(c)...)
		}
		return out
	default:
		return []tea.Msg{msg}
	}
}

func newModel(p *fakePipeline) Model {
	return New(context.Background(), p, Options{AppointmentID: "appt-1", TickInterval: time.Millisecond})
}

func TestNewModel_WaitsForConsent(t *testing.T) {
	p := &fakePipeline{}
	m := newModel(p)

	assert.Equal(t, PhaseConsent, m.Phase())
	assert.Nil(t, m.Init())
	assert.Contains(t, m.View(), "consented")
	assert.Zero(t, p.started)
}

func TestConsentDeclined(t *testing.T) {
	p := &fakePipeline{}
	m := drive(t, newModel(p), key("n"))

	assert.Equal(t, PhaseDeclined, m.Phase())
	assert.Zero(t, p.started)
	assert.Contains(t, m.View(), "Nothing was recorded")
}

func TestRecordPauseStop(t *testing.T) {
	levels := make(chan float64, 1)
	levels <- 0.5
	close(levels)

	p := &fakePipeline{
		events: []pipeline.Event{
			{Stage: pipeline.StageUploading, Percent: 40},
			{Stage: pipeline.StageTranscribing},
			{Stage: pipeline.StageGenerating},
		},
		outcome: &pipeline.Outcome{
			RecordingID: "rec-1",
			Note:        &models.ClinicalNote{Subjective: "Headaches for a week", Plan: "Bloods"},
		},
	}
	m := New(context.Background(), p, Options{
		AppointmentID: "appt-1",
		TickInterval:  time.Millisecond,
		Levels:        func() <-chan float64 { return levels },
	})

	m = drive(t, m, key("y"))
	require.Equal(t, PhaseRecording, m.Phase())
	assert.Equal(t, 1, p.started)
	assert.InDelta(t, 0.5, m.level, 0.001)
	assert.Contains(t, m.View(), "REC")

	m = drive(t, m, key(" "))
	assert.True(t, m.paused)
	assert.Contains(t, m.View(), "PAUSED")
	assert.Contains(t, m.View(), "00:12")

	m = drive(t, m, key(" "))
	assert.False(t, m.paused)
	assert.Equal(t, 1, p.paused)
	assert.Equal(t, 1, p.resumed)

	m = drive(t, m, key("s"))
	require.Equal(t, PhaseDone, m.Phase())
	assert.Equal(t, 1, p.stopped)
	assert.Equal(t, "rec-1", m.Outcome().RecordingID)

	view := m.View()
	assert.Contains(t, view, "Note ready")
	assert.Contains(t, view, "Headaches for a week")
	assert.Contains(t, view, "(empty)")
}

func TestStartRefused(t *testing.T) {
	p := &fakePipeline{startErr: capture.ErrDeviceBusy}
	m := drive(t, newModel(p), key("y"))

	assert.Equal(t, PhaseFailed, m.Phase())
	assert.Contains(t, m.Err(), "busy")

	// Consent can be shown again without starting capture
	m = drive(t, m, key("c"))
	assert.Equal(t, PhaseConsent, m.Phase())
	assert.Equal(t, 1, p.started)
}

func TestFailedRunCanRetry(t *testing.T) {
	p := &fakePipeline{
		events: []pipeline.Event{
			{Stage: pipeline.StageUploading, Percent: 100},
			{Stage: pipeline.StageFailed, FailedStage: pipeline.StageTranscribing, Error: "503"},
		},
		runErr: &pipeline.StageError{Stage: pipeline.StageTranscribing, RecordingID: "rec-1", Err: errors.New("503")},
	}
	m := drive(t, newModel(p), key("y"))
	m = drive(t, m, key("s"))

	require.Equal(t, PhaseFailed, m.Phase())
	assert.Equal(t, pipeline.StageTranscribing, m.failedStage)
	assert.Contains(t, m.View(), "failed during transcribing")

	p.runErr = nil
	p.events = nil
	p.outcome = &pipeline.Outcome{RecordingID: "rec-1"}

	m = drive(t, m, key("r"))
	assert.Equal(t, PhaseDone, m.Phase())
	assert.Equal(t, 1, p.retried)
}

func TestDiscardWhileRecording(t *testing.T) {
	p := &fakePipeline{}
	m := drive(t, newModel(p), key("y"))
	require.Equal(t, PhaseRecording, m.Phase())

	_, cmd := m.Update(key("d"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, discardedMsg{}, msg)
	assert.Equal(t, 1, p.discarded)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00", formatElapsed(0))
	assert.Equal(t, "01:05", formatElapsed(65.4))
	assert.Equal(t, "1:00:01", formatElapsed(3601))
}

func TestTickRefreshesElapsed(t *testing.T) {
	p := &fakePipeline{}
	m := drive(t, newModel(p), key("y"))

	m = drive(t, m, tickMsg{})
	assert.InDelta(t, 65, m.elapsed, 0.001)
}
