package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/killallgit/scribe-api/internal/services/pipeline"
	"github.com/killallgit/scribe-api/internal/tui"
	"github.com/spf13/cobra"
)

var (
	recordAppointment string
	recordConsent     bool
	recordFile        string
	recordDuration    float64
	recordLogFile     string
)

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a session from this machine",
	Long: `Record an appointment from the local microphone and generate its note.

Without --file an interactive recorder asks for the participants' consent,
shows the elapsed time and input level while recording, then follows the
upload, transcription and note generation stages.

With --file an existing recording is processed instead. Consent must be
confirmed with --consent since there is no prompt.

Example:
  scribe-api record --appointment appt-123
  scribe-api record --appointment appt-123 --file session.wav --consent`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringVarP(&recordAppointment, "appointment", "a", "", "appointment id (required)")
	recordCmd.Flags().BoolVar(&recordConsent, "consent", false, "participants consented to recording (required with --file)")
	recordCmd.Flags().StringVarP(&recordFile, "file", "f", "", "process an existing audio file instead of recording")
	recordCmd.Flags().Float64Var(&recordDuration, "duration", 0, "duration of --file in seconds (probed when omitted)")
	recordCmd.Flags().StringVar(&recordLogFile, "log-file", "scribe-record.log", "where the interactive recorder writes logs")
	_ = recordCmd.MarkFlagRequired("appointment")
}

func runRecord(cmd *cobra.Command, args []string) error {
	if recordFile != "" && !recordConsent {
		return pipeline.ErrConsentRequired
	}

	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if recordFile == "" {
		// The recorder owns the terminal; logs go to a file
		logFile, err := tea.LogToFile(recordLogFile, "record")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
	}

	application, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	if recordFile != "" {
		return processFile(ctx, cmd.OutOrStdout(), application.orchestrator, pipeline.ProcessRequest{
			AppointmentID:   recordAppointment,
			Consent:         recordConsent,
			ArtifactPath:    recordFile,
			DurationSeconds: recordDuration,
		})
	}

	model := tui.New(ctx, application.orchestrator, tui.Options{
		AppointmentID: recordAppointment,
		Levels:        application.controllers.levels,
		TickInterval:  cfg.Capture.TickInterval,
	})
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("recorder failed: %w", err)
	}

	if m, ok := final.(tui.Model); ok {
		switch m.Phase() {
		case tui.PhaseRecording:
			// Interrupted mid capture
			if err := application.orchestrator.Discard(context.WithoutCancel(ctx), recordAppointment); err != nil {
				return err
			}
			return errors.New("recording interrupted and discarded")
		case tui.PhaseDone:
			if outcome := m.Outcome(); outcome != nil && outcome.Note != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Note %s generated for appointment %s\n", outcome.Note.ID, recordAppointment)
			}
		case tui.PhaseFailed:
			return fmt.Errorf("recording did not complete: %s", m.Err())
		}
	}
	return nil
}

type artifactProcessor interface {
	ProcessArtifact(ctx context.Context, req pipeline.ProcessRequest, progress pipeline.ProgressFunc) (*pipeline.Outcome, error)
}

func processFile(ctx context.Context, out io.Writer, p artifactProcessor, req pipeline.ProcessRequest) error {
	lastStage := pipeline.Stage("")
	progress := func(ev pipeline.Event) {
		if ev.Stage == lastStage && ev.Stage != pipeline.StageUploading {
			return
		}
		lastStage = ev.Stage
		switch ev.Stage {
		case pipeline.StageUploading:
			fmt.Fprintf(out, "\ruploading %3.0f%%", ev.Percent)
			if ev.Percent >= 100 {
				fmt.Fprintln(out)
			}
		case pipeline.StageFailed:
			fmt.Fprintf(out, "failed during %s: %s\n", ev.FailedStage, ev.Error)
		default:
			fmt.Fprintln(out, ev.Stage)
		}
	}

	outcome, err := p.ProcessArtifact(ctx, req, progress)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Recording: %s\n", outcome.RecordingID)
	if outcome.Transcript != nil {
		fmt.Fprintf(out, "Transcript: %s (%d words)\n", outcome.Transcript.ID, outcome.Transcript.WordCount)
	}
	if outcome.Note != nil {
		n := outcome.Note
		fmt.Fprintf(out, "Note: %s\n\n", n.ID)
		fmt.Fprintf(out, "Subjective:\n%s\n\nObjective:\n%s\n\nAssessment:\n%s\n\nPlan:\n%s\n",
			n.Subjective, n.Objective, n.Assessment, n.Plan)
	}
	return nil
}
