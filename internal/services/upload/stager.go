package upload

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/killallgit/scribe-api/internal/metrics"
	"github.com/killallgit/scribe-api/internal/models"
	"github.com/killallgit/scribe-api/internal/services/recordings"
	"github.com/killallgit/scribe-api/internal/services/storage"
)

// DurationProber reads the duration of a local audio file in seconds
type DurationProber interface {
	Duration(ctx context.Context, filePath string) (float64, error)
}

// Stager moves finished capture artifacts into durable storage
type Stager struct {
	recordings recordings.Service
	store      storage.ObjectStore
	maxBytes   int64
	prober     DurationProber
}

// Option configures a Stager
type Option func(*Stager)

// WithMaxBytes overrides the size ceiling
func WithMaxBytes(n int64) Option {
	return func(s *Stager) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithDurationProber sets the prober used when a request has no duration
func WithDurationProber(p DurationProber) Option {
	return func(s *Stager) {
		s.prober = p
	}
}

// NewStager creates an upload stager
func NewStager(recs recordings.Service, store storage.ObjectStore, opts ...Option) *Stager {
	s := &Stager{
		recordings: recs,
		store:      store,
		maxBytes:   DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxBytes returns the configured ceiling
func (s *Stager) MaxBytes() int64 {
	return s.maxBytes
}

// ObjectKey derives the storage key for a recording. The same recording
// always maps to the same key, so a repeated upload overwrites.
func ObjectKey(appointmentID, recordingID, artifactPath string) string {
	ext := strings.ToLower(filepath.Ext(artifactPath))
	if ext == "" {
		ext = ".wav"
	}
	return path.Join("recordings", appointmentID, recordingID+ext)
}

// CheckArtifact returns the size of the local artifact at path, or the
// precondition error Stage would fail with. It touches nothing.
func (s *Stager) CheckArtifact(artifactPath string) (int64, error) {
	info, err := os.Stat(artifactPath)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("failed to stat artifact %s: %w", artifactPath, err)
		}
		return 0, fmt.Errorf("%w: %s", ErrArtifactMissing, artifactPath)
	}
	size := info.Size()
	if size == 0 {
		return 0, fmt.Errorf("%w: %s", ErrArtifactEmpty, artifactPath)
	}
	if size > s.maxBytes {
		return 0, &FileTooLargeError{Path: artifactPath, Actual: size, Allowed: s.maxBytes}
	}
	return size, nil
}

// Stage validates the artifact, transfers it and records the locator on the
// recording. events may be nil. When non-nil it receives intermediate events
// on a best-effort basis, then exactly one terminal event, and is closed.
func (s *Stager) Stage(ctx context.Context, req Request, events chan<- Progress) (result *Result, err error) {
	em := &emitter{recordingID: req.RecordingID, events: events}
	defer func() { em.finish(err) }()

	recording, err := s.recordings.Get(ctx, req.RecordingID)
	if err != nil {
		return nil, err
	}
	if !recording.ConsentCaptured {
		return nil, ErrConsentRequired
	}
	if recording.Status != models.RecordingStatusProcessing {
		return nil, recordings.StatusError{
			RecordingID: recording.ID,
			Current:     recording.Status,
			Target:      models.RecordingStatusProcessing,
		}
	}

	size, err := s.CheckArtifact(req.ArtifactPath)
	if err != nil {
		return nil, err
	}

	duration := req.DurationSeconds
	if duration <= 0 && s.prober != nil {
		if probed, probeErr := s.prober.Duration(ctx, req.ArtifactPath); probeErr != nil {
			log.Printf("[WARN] Could not probe duration of %s: %v", req.ArtifactPath, probeErr)
		} else {
			duration = probed
		}
	}

	file, err := os.Open(req.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact %s: %w", req.ArtifactPath, err)
	}
	defer file.Close()

	key := ObjectKey(recording.AppointmentID, recording.ID, req.ArtifactPath)
	em.start(size)

	log.Printf("[INFO] Uploading recording %s (%d bytes) to %s as %s", recording.ID, size, s.store.Name(), key)
	locator, err := s.store.Put(ctx, key, file, size, em.progress)
	if err != nil {
		return nil, &TransferError{RecordingID: recording.ID, Key: key, Err: err}
	}

	updated, err := s.recordings.AttachUpload(ctx, recording.ID, recordings.UploadResult{
		Locator:         locator,
		SizeBytes:       size,
		DurationSeconds: duration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record upload for recording %s: %w", recording.ID, err)
	}

	metrics.AddUploadedBytes(size)
	log.Printf("[INFO] Recording %s uploaded (%d bytes) to %s", recording.ID, size, locator)

	return &Result{
		Key:       key,
		Locator:   locator,
		SizeBytes: size,
		Recording: updated,
	}, nil
}

// emitter enforces the event contract: bytes never decrease, 100 percent
// is reserved for the terminal success event, and exactly one terminal
// event is delivered.
type emitter struct {
	mu          sync.Mutex
	recordingID string
	events      chan<- Progress
	total       int64
	last        int64
	done        bool
}

func (e *emitter) start(total int64) {
	e.mu.Lock()
	e.total = total
	e.mu.Unlock()
	e.progress(0)
}

func (e *emitter) progress(written int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done || e.events == nil || written < e.last {
		return
	}
	if written > e.total {
		written = e.total
	}
	e.last = written

	select {
	case e.events <- Progress{
		RecordingID:      e.recordingID,
		BytesTransferred: written,
		TotalBytes:       e.total,
		Percent:          math.Min(percent(written, e.total), 99),
	}:
	default:
	}
}

func (e *emitter) finish(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	e.done = true
	if e.events == nil {
		return
	}

	final := Progress{
		RecordingID: e.recordingID,
		TotalBytes:  e.total,
		Done:        true,
	}
	if err == nil {
		final.BytesTransferred = e.total
		final.Percent = 100
	} else {
		final.BytesTransferred = e.last
		final.Percent = math.Min(percent(e.last, e.total), 99)
		final.Err = err
	}
	e.events <- final
	close(e.events)
}

func percent(written, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Floor(float64(written)/float64(total)*10000) / 100
}
