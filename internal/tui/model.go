// Package tui is the terminal front end of `scribe-api record`: consent
// prompt, capture timer and level meter, stage progress and a preview of
// the generated note.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/killallgit/scribe-api/internal/services/pipeline"
)

// Pipeline is the orchestrator surface the TUI drives
type Pipeline interface {
	StartCapture(ctx context.Context, req pipeline.StartRequest) (*pipeline.State, error)
	PauseCapture(ctx context.Context, appointmentID string) (*pipeline.State, error)
	ResumeCapture(ctx context.Context, appointmentID string) (*pipeline.State, error)
	StopCaptureAndProcess(ctx context.Context, appointmentID string, progress pipeline.ProgressFunc) (*pipeline.Outcome, error)
	Retry(ctx context.Context, appointmentID string, progress pipeline.ProgressFunc) (*pipeline.Outcome, error)
	Discard(ctx context.Context, appointmentID string) error
	GetPipelineState(ctx context.Context, appointmentID string) (*pipeline.State, error)
}

// Phase of the record screen
type Phase int

const (
	PhaseConsent Phase = iota
	PhaseStarting
	PhaseRecording
	PhaseProcessing
	PhaseDone
	PhaseFailed
	PhaseDeclined
)

// Options configures a Model
type Options struct {
	AppointmentID string

	// Levels returns the input level stream of the running capture. It is
	// called once capture has started and may be nil.
	Levels func() <-chan float64

	TickInterval time.Duration
}

// Model is the bubbletea model of the record screen
type Model struct {
	ctx      context.Context
	pipeline Pipeline
	opts     Options

	phase   Phase
	paused  bool
	elapsed float64
	level   float64
	levels  <-chan float64

	stage   pipeline.Stage
	percent float64
	events  chan pipeline.Event

	outcome     *pipeline.Outcome
	failedStage pipeline.Stage
	errMessage  string

	width int
}

// New creates the record screen. Nothing is captured until the clinician
// confirms consent.
func New(ctx context.Context, p Pipeline, opts Options) Model {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	return Model{
		ctx:      ctx,
		pipeline: p,
		opts:     opts,
		phase:    PhaseConsent,
		stage:    pipeline.StageIdle,
	}
}

// Phase returns the current phase
func (m Model) Phase() Phase {
	return m.phase
}

// Outcome returns the finished run, if any
func (m Model) Outcome() *pipeline.Outcome {
	return m.outcome
}

// Err returns the last error shown on screen
func (m Model) Err() string {
	return m.errMessage
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		state, err := m.pipeline.StartCapture(m.ctx, pipeline.StartRequest{
			AppointmentID: m.opts.AppointmentID,
			Consent:       true,
		})
		return startedMsg{state: state, err: err}
	}
}

func (m Model) transitionCmd(pause bool) tea.Cmd {
	return func() tea.Msg {
		var (
			state *pipeline.State
			err   error
		)
		if pause {
			state, err = m.pipeline.PauseCapture(m.ctx, m.opts.AppointmentID)
		} else {
			state, err = m.pipeline.ResumeCapture(m.ctx, m.opts.AppointmentID)
		}
		return transitionMsg{state: state, err: err}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.opts.TickInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m Model) elapsedCmd() tea.Cmd {
	return func() tea.Msg {
		state, err := m.pipeline.GetPipelineState(m.ctx, m.opts.AppointmentID)
		if err != nil || state == nil {
			return nil
		}
		return elapsedMsg{seconds: state.ElapsedSeconds}
	}
}

func waitLevel(levels <-chan float64) tea.Cmd {
	if levels == nil {
		return nil
	}
	return func() tea.Msg {
		level, ok := <-levels
		if !ok {
			return nil
		}
		return levelMsg{level: level}
	}
}

func waitEvent(events <-chan pipeline.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return stageMsg{event: ev}
	}
}

// runCmd runs stop or retry. Progress events are forwarded without
// blocking the pipeline; the channel closes when the run returns.
func (m Model) runCmd(events chan pipeline.Event, retry bool) tea.Cmd {
	return func() tea.Msg {
		progress := func(ev pipeline.Event) {
			select {
			case events <- ev:
			default:
			}
		}

		var (
			outcome *pipeline.Outcome
			err     error
		)
		if retry {
			outcome, err = m.pipeline.Retry(m.ctx, m.opts.AppointmentID, progress)
		} else {
			outcome, err = m.pipeline.StopCaptureAndProcess(m.ctx, m.opts.AppointmentID, progress)
		}
		close(events)
		return finishedMsg{outcome: outcome, err: err}
	}
}

func (m Model) discardCmd() tea.Cmd {
	return func() tea.Msg {
		return discardedMsg{err: m.pipeline.Discard(m.ctx, m.opts.AppointmentID)}
	}
}

func (m Model) beginRun(retry bool) (Model, tea.Cmd) {
	m.phase = PhaseProcessing
	m.errMessage = ""
	m.percent = 0
	m.events = make(chan pipeline.Event, 64)
	return m, tea.Batch(m.runCmd(m.events, retry), waitEvent(m.events))
}

// Update processes messages and returns the updated model and any commands
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case startedMsg:
		if msg.err != nil {
			m.phase = PhaseFailed
			m.errMessage = msg.err.Error()
			return m, nil
		}
		m.phase = PhaseRecording
		m.stage = msg.state.Stage
		m.elapsed = msg.state.ElapsedSeconds
		if m.opts.Levels != nil {
			m.levels = m.opts.Levels()
		}
		return m, tea.Batch(m.tickCmd(), waitLevel(m.levels))

	case transitionMsg:
		if msg.err != nil {
			m.errMessage = msg.err.Error()
			return m, nil
		}
		m.errMessage = ""
		m.stage = msg.state.Stage
		m.paused = msg.state.Stage == pipeline.StagePaused
		m.elapsed = msg.state.ElapsedSeconds
		return m, nil

	case tickMsg:
		if m.phase != PhaseRecording {
			return m, nil
		}
		return m, tea.Batch(m.elapsedCmd(), m.tickCmd())

	case elapsedMsg:
		if m.phase == PhaseRecording {
			m.elapsed = msg.seconds
		}
		return m, nil

	case levelMsg:
		if m.phase != PhaseRecording {
			return m, nil
		}
		m.level = msg.level
		return m, waitLevel(m.levels)

	case stageMsg:
		if m.phase != PhaseProcessing {
			return m, waitEvent(m.events)
		}
		m.stage = msg.event.Stage
		m.percent = msg.event.Percent
		if msg.event.Stage == pipeline.StageFailed {
			m.failedStage = msg.event.FailedStage
		}
		return m, waitEvent(m.events)

	case finishedMsg:
		if msg.err != nil {
			m.phase = PhaseFailed
			m.stage = pipeline.StageFailed
			m.errMessage = msg.err.Error()
			var stageErr *pipeline.StageError
			if errors.As(msg.err, &stageErr) {
				m.failedStage = stageErr.Stage
			}
			return m, nil
		}
		m.phase = PhaseDone
		m.stage = pipeline.StageCompleted
		m.percent = 100
		m.outcome = msg.outcome
		return m, nil

	case discardedMsg:
		if msg.err != nil {
			m.errMessage = msg.err.Error()
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		if m.phase == PhaseRecording {
			return m, m.discardCmd()
		}
		return m, tea.Quit
	}

	switch m.phase {
	case PhaseConsent:
		switch key {
		case "y", "Y":
			m.phase = PhaseStarting
			return m, m.startCmd()
		case "n", "N", "q", "esc":
			m.phase = PhaseDeclined
			return m, tea.Quit
		}

	case PhaseRecording:
		switch key {
		case " ", "p":
			return m, m.transitionCmd(!m.paused)
		case "s", "enter":
			return m.beginRun(false)
		case "d", "q":
			return m, m.discardCmd()
		}

	case PhaseFailed:
		switch key {
		case "r":
			if m.stage == pipeline.StageFailed {
				return m.beginRun(true)
			}
		case "c":
			// Consent can be shown again; capture still waits for a yes
			m.phase = PhaseConsent
			m.errMessage = ""
			return m, nil
		case "d":
			return m, m.discardCmd()
		case "q", "esc":
			return m, tea.Quit
		}

	case PhaseDone, PhaseDeclined:
		if key == "q" || key == "esc" || key == "enter" {
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the record screen
func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 60
	}

	sections := []string{
		titleStyle.Render("SCRIBE") + dimStyle.Render("  appointment "+m.opts.AppointmentID),
		dividerStyle.Render(strings.Repeat("─", width)),
	}

	switch m.phase {
	case PhaseConsent:
		sections = append(sections, consentStyle.Render(
			"Has the patient consented to this session being recorded\n"+
				"and transcribed for a clinical note?\n\n"+
				keyStyle.Render("y")+" yes, start recording   "+keyStyle.Render("n")+" no"))
	case PhaseStarting:
		sections = append(sections, dimStyle.Render("Starting microphone..."))
	case PhaseRecording:
		sections = append(sections, m.renderCapture(), m.renderFooter("space", "pause/resume", "s", "stop and process", "d", "discard"))
	case PhaseProcessing:
		sections = append(sections, m.renderProgress())
	case PhaseDone:
		sections = append(sections, doneStyle.Render("✓ Note ready"), m.renderNote(), m.renderFooter("q", "quit"))
	case PhaseFailed:
		sections = append(sections, m.renderFailure())
	case PhaseDeclined:
		sections = append(sections, dimStyle.Render("Consent not given. Nothing was recorded."))
	}

	if m.errMessage != "" && m.phase != PhaseFailed {
		sections = append(sections, errorStyle.Render("! "+m.errMessage))
	}

	return strings.Join(sections, "\n") + "\n"
}

func (m Model) renderCapture() string {
	indicator := recordingStyle.Render("● REC")
	if m.paused {
		indicator = pausedStyle.Render("❚❚ PAUSED")
	}
	return fmt.Sprintf("%s  %s  %s", indicator, formatElapsed(m.elapsed), renderLevelMeter(m.level))
}

func (m Model) renderProgress() string {
	stages := []pipeline.Stage{pipeline.StageUploading, pipeline.StageTranscribing, pipeline.StageGenerating}
	lines := make([]string, 0, len(stages))
	current := stageIndex(m.stage)
	for i, stage := range stages {
		switch {
		case i < current:
			lines = append(lines, doneStyle.Render("✓ ")+string(stage))
		case i == current:
			line := keyStyle.Render("▶ ") + string(stage)
			if stage == pipeline.StageUploading {
				line += dimStyle.Render(fmt.Sprintf(" %3.0f%%", m.percent))
			}
			lines = append(lines, line)
		default:
			lines = append(lines, dimStyle.Render("  "+string(stage)))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFailure() string {
	lines := []string{errorStyle.Render("✗ " + m.errMessage)}
	if m.failedStage != "" {
		lines = append(lines, dimStyle.Render("failed during "+string(m.failedStage)))
	}
	if m.stage == pipeline.StageFailed {
		lines = append(lines, m.renderFooter("r", "retry", "d", "discard", "q", "quit"))
	} else {
		lines = append(lines, m.renderFooter("c", "show consent again", "q", "quit"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderNote() string {
	if m.outcome == nil || m.outcome.Note == nil {
		return dimStyle.Render("(no note)")
	}
	note := m.outcome.Note
	parts := []struct{ title, body string }{
		{"Subjective", note.Subjective},
		{"Objective", note.Objective},
		{"Assessment", note.Assessment},
		{"Plan", note.Plan},
	}
	lines := make([]string, 0, len(parts)*2)
	for _, part := range parts {
		body := strings.TrimSpace(part.body)
		if body == "" {
			body = dimStyle.Render("(empty)")
		}
		lines = append(lines, sectionStyle.Render(part.title), body)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(keyStyle.Render(pairs[i]))
		b.WriteString(" ")
		b.WriteString(dimStyle.Render(pairs[i+1]))
	}
	return b.String()
}

func stageIndex(stage pipeline.Stage) int {
	switch stage {
	case pipeline.StageUploading:
		return 0
	case pipeline.StageTranscribing:
		return 1
	case pipeline.StageGenerating:
		return 2
	case pipeline.StageCompleted:
		return 3
	default:
		return 0
	}
}

func formatElapsed(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Truncate(time.Second)
	h := int(d.Hours())
	mnt := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mnt, s)
	}
	return fmt.Sprintf("%02d:%02d", mnt, s)
}

func renderLevelMeter(level float64) string {
	const barLen = 12
	filled := int(level * barLen)
	if filled > barLen {
		filled = barLen
	}
	var b strings.Builder
	for i := 0; i < barLen; i++ {
		switch {
		case i >= filled:
			b.WriteString(levelOffStyle.Render("░"))
		case float64(i)/barLen > 0.6:
			b.WriteString(levelHighStyle.Render("█"))
		default:
			b.WriteString(levelLowStyle.Render("█"))
		}
	}
	return b.String()
}
