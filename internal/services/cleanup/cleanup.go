package cleanup

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/killallgit/scribe-api/internal/metrics"
	"github.com/killallgit/scribe-api/internal/models"
	"github.com/killallgit/scribe-api/internal/services/recordings"
)

// FailedStage is stamped on recordings whose capture was abandoned
const FailedStage = "recording"

// ErrAbandoned is recorded as the failure of reaped recordings
var ErrAbandoned = errors.New("capture abandoned before it was stopped")

// LiveChecker reports whether a recording is still being captured by this process
type LiveChecker interface {
	IsLive(recordingID string) bool
}

// Options configures the reaper
type Options struct {
	TempDir           string
	MaxTempAge        time.Duration
	StaleRecordingAge time.Duration
	Interval          time.Duration
	Concurrency       int
}

// Report summarizes one cleanup pass
type Report struct {
	RecordingsReaped int
	FilesRemoved     int
}

// Service reaps abandoned captures: recordings left in status recording and
// capture files nobody will upload
type Service struct {
	recordings recordings.Service
	live       LiveChecker
	opts       Options
	now        func() time.Time
	cancel     context.CancelFunc
}

// NewService creates a new cleanup service. live may be nil.
func NewService(recs recordings.Service, live LiveChecker, opts Options) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Minute
	}
	return &Service{
		recordings: recs,
		live:       live,
		opts:       opts,
		now:        time.Now,
	}
}

// Start runs a pass immediately and then every interval until ctx ends or
// Stop is called
func (s *Service) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.runLogged(ctx)

	go func() {
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runLogged(ctx)
			case <-ctx.Done():
				log.Println("[INFO] Cleanup service stopped")
				return
			}
		}
	}()

	log.Printf("[INFO] Cleanup service started (interval: %v, stale after: %v, max temp age: %v)",
		s.opts.Interval, s.opts.StaleRecordingAge, s.opts.MaxTempAge)
}

// Stop stops the cleanup service
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Service) runLogged(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	if err != nil {
		log.Printf("[ERROR] Cleanup pass failed: %v", err)
	}
	if report.RecordingsReaped > 0 || report.FilesRemoved > 0 {
		log.Printf("[INFO] Cleanup reaped %d recordings, removed %d files", report.RecordingsReaped, report.FilesRemoved)
	}
}

// RunOnce performs a single cleanup pass
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	var report Report

	reaped, err := s.reapRecordings(ctx)
	report.RecordingsReaped = reaped
	if err != nil {
		return report, err
	}

	report.FilesRemoved = s.removeTempFiles()
	return report, nil
}

func (s *Service) reapRecordings(ctx context.Context) (int, error) {
	if s.opts.StaleRecordingAge <= 0 {
		return 0, nil
	}

	cutoff := s.now().UTC().Add(-s.opts.StaleRecordingAge)
	stale, err := s.recordings.ListStale(ctx, models.RecordingStatusRecording, cutoff)
	if err != nil {
		return 0, err
	}

	var reaped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, recording := range stale {
		if s.live != nil && s.live.IsLive(recording.ID) {
			continue
		}
		id := recording.ID
		g.Go(func() error {
			err := s.recordings.MarkFailed(gctx, id, FailedStage, ErrAbandoned)
			if errors.Is(err, recordings.ErrInvalidStatus) || errors.Is(err, recordings.ErrRecordingNotFound) {
				// Stopped or deleted since it was listed
				return nil
			}
			if err != nil {
				return err
			}
			reaped.Add(1)
			return nil
		})
	}
	err = g.Wait()

	n := int(reaped.Load())
	metrics.RecordingsReaped(n)
	return n, err
}

// removeTempFiles deletes capture files older than the max temp age
func (s *Service) removeTempFiles() int {
	if s.opts.TempDir == "" || s.opts.MaxTempAge <= 0 {
		return 0
	}
	if _, err := os.Stat(s.opts.TempDir); os.IsNotExist(err) {
		return 0
	}

	removed := 0
	err := filepath.Walk(s.opts.TempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files with errors
		}
		if info.IsDir() {
			return nil
		}

		if strings.HasPrefix(info.Name(), "capture-") && strings.HasSuffix(info.Name(), ".wav") {
			if s.now().Sub(info.ModTime()) > s.opts.MaxTempAge {
				log.Printf("[DEBUG] Removing old capture file: %s", path)
				if err := os.Remove(path); err != nil {
					log.Printf("[WARN] Failed to remove capture file %s: %v", path, err)
					return nil
				}
				removed++
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] Cleanup walk error: %v", err)
	}
	return removed
}
