package cmd

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/killallgit/scribe-api/internal/capture"
	"github.com/killallgit/scribe-api/internal/database"
	"github.com/killallgit/scribe-api/internal/services/appointments"
	"github.com/killallgit/scribe-api/internal/services/cleanup"
	"github.com/killallgit/scribe-api/internal/services/notes"
	"github.com/killallgit/scribe-api/internal/services/pipeline"
	"github.com/killallgit/scribe-api/internal/services/recordings"
	"github.com/killallgit/scribe-api/internal/services/storage"
	"github.com/killallgit/scribe-api/internal/services/transcription"
	"github.com/killallgit/scribe-api/internal/services/upload"
	"github.com/killallgit/scribe-api/pkg/config"
	"github.com/killallgit/scribe-api/pkg/ffmpeg"
)

// app holds the wired services shared by serve, record and cleanup
type app struct {
	cfg *config.Config

	db           *database.DB
	store        storage.ObjectStore
	recordings   recordings.Service
	transcripts  *transcription.Invoker
	notes        *notes.Generator
	appointments appointments.Directory
	orchestrator *pipeline.Orchestrator
	controllers  *controllerTracker

	closers []func() error
}

// controllerTracker remembers the most recent capture controller so the
// terminal UI can read its level stream
type controllerTracker struct {
	next pipeline.ControllerFactory

	mu   sync.Mutex
	last *capture.Controller
}

func (t *controllerTracker) factory(appointmentID string) *capture.Controller {
	c := t.next(appointmentID)
	t.mu.Lock()
	t.last = c
	t.mu.Unlock()
	return c
}

func (t *controllerTracker) levels() <-chan float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return nil
	}
	return t.last.Levels()
}

func loadAppConfig() (*config.Config, error) {
	if err := config.Init(); err != nil {
		return nil, err
	}
	return config.GetConfig()
}

func buildApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.db, err = database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.closers = append(a.closers, a.db.Close)

	if err = a.db.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if a.store, err = a.buildStore(ctx); err != nil {
		return nil, err
	}

	ff := ffmpeg.New(cfg.Capture.FFmpegPath, cfg.Capture.FFprobePath, 0)
	if verr := ff.ValidateBinaries(); verr != nil {
		log.Printf("[WARN] %v; capture and duration probing will fail", verr)
	}

	a.recordings = recordings.NewService(recordings.NewRepository(a.db.DB), a.store)

	stager := upload.NewStager(a.recordings, a.store,
		upload.WithMaxBytes(cfg.Storage.MaxUploadBytes),
		upload.WithDurationProber(ff),
	)

	a.transcripts = transcription.NewInvoker(
		transcription.NewRepository(a.db.DB), a.recordings, a.store, a.buildTranscriber())

	synth, err := a.buildSynthesizer(ctx)
	if err != nil {
		return nil, err
	}
	a.notes = notes.NewGenerator(notes.NewRepository(a.db.DB), a.transcripts, synth)

	if a.appointments, err = a.buildDirectory(ctx); err != nil {
		return nil, err
	}

	opts := capture.Options{
		Config: capture.Config{
			Format:     cfg.Capture.InputFormat,
			Device:     cfg.Capture.InputDevice,
			SampleRate: cfg.Capture.SampleRate,
			Channels:   cfg.Capture.Channels,
		},
		TempDir:       cfg.Storage.TempDir,
		TickInterval:  cfg.Capture.TickInterval,
		LevelInterval: cfg.Capture.LevelInterval,
	}
	mic := capture.NewMicrophone(cfg.Capture.InputDevice)
	a.controllers = &controllerTracker{
		next: pipeline.SharedMicrophone(mic, capture.NewFFmpegDevice(ff), capture.AlwaysGranted, opts),
	}

	a.orchestrator = pipeline.NewOrchestrator(pipeline.Config{
		Appointments:  a.appointments,
		Recordings:    a.recordings,
		Uploader:      stager,
		Transcripts:   a.transcripts,
		Notes:         a.notes,
		NewController: a.controllers.factory,
	})

	log.Printf("[INFO] Storage: %s, appointments: %s, transcriber: %s, notes: %s",
		a.store.Name(), a.appointments.Name(), cfg.Whisper.Backend, cfg.Notes.Provider)
	return a, nil
}

func (a *app) buildStore(ctx context.Context) (storage.ObjectStore, error) {
	switch a.cfg.Storage.Backend {
	case config.StorageBackendGCS:
		store, err := storage.NewGCSStore(ctx, a.cfg.Storage.Bucket, "recordings")
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		store, err := storage.NewFilesystemStore(a.cfg.Storage.BasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create filesystem store: %w", err)
		}
		return store, nil
	}
}

func (a *app) buildTranscriber() transcription.Transcriber {
	w := a.cfg.Whisper
	if w.Backend == config.WhisperBackendCLI {
		return transcription.NewWhisperCLI(transcription.WhisperCLIConfig{
			BinaryPath: w.CLIPath,
			ModelPath:  w.ModelPath,
			Language:   w.Language,
			TempDir:    a.cfg.Storage.TempDir,
		})
	}
	return transcription.NewWhisperAPI(transcription.WhisperAPIConfig{
		URL:      w.APIURL,
		APIKey:   w.APIKey,
		Model:    w.Model,
		Language: w.Language,
		Timeout:  w.Timeout,
	})
}

func (a *app) buildSynthesizer(ctx context.Context) (notes.Synthesizer, error) {
	n := a.cfg.Notes
	if n.Provider == config.NotesProviderVertex {
		synth, err := notes.NewVertexSynthesizer(ctx, notes.VertexConfig{
			ProjectID:   n.VertexProject,
			Region:      n.VertexRegion,
			Model:       n.VertexModel,
			Temperature: float32(n.Temperature),
			MaxTokens:   int32(n.MaxTokens),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Vertex AI synthesizer: %w", err)
		}
		a.closers = append(a.closers, synth.Close)
		return synth, nil
	}
	return notes.NewOpenAISynthesizer(notes.OpenAIConfig{
		URL:         n.APIURL,
		APIKey:      n.APIKey,
		Model:       n.Model,
		Temperature: n.Temperature,
		MaxTokens:   n.MaxTokens,
		Timeout:     n.Timeout,
	}), nil
}

func (a *app) buildDirectory(ctx context.Context) (appointments.Directory, error) {
	c := a.cfg.Appointments

	var dir appointments.Directory
	if c.Source == config.AppointmentSourcePostgres {
		pg, err := appointments.ConnectPostgres(ctx, c.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect appointment directory: %w", err)
		}
		a.closers = append(a.closers, func() error { pg.Close(); return nil })
		dir = pg
	} else {
		dir = appointments.NewLocalDirectory(a.db.DB)
	}

	if c.CacheSize > 0 {
		dir = appointments.NewCachedDirectory(dir, c.CacheSize, c.CacheTTL)
	}
	return dir, nil
}

// reaper builds the stale recording cleanup service
func (a *app) reaper() *cleanup.Service {
	return cleanup.NewService(a.recordings, a.orchestrator, cleanup.Options{
		TempDir:           a.cfg.Storage.TempDir,
		MaxTempAge:        a.cfg.Storage.MaxTempAge,
		StaleRecordingAge: a.cfg.Cleanup.StaleRecordingAge,
		Interval:          a.cfg.Cleanup.Interval,
		Concurrency:       a.cfg.Cleanup.Concurrency,
	})
}

// Close releases everything buildApp opened, newest first
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("[WARN] Error during shutdown: %v", err)
		}
	}
	a.closers = nil
}
