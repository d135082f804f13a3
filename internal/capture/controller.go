package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/killallgit/scribe-api/internal/metrics"
)

// Controller owns one capture at a time: idle → recording ⇄ paused → idle.
// The microphone it records from is shared and exclusive.
type Controller struct {
	mic         *Microphone
	device      Device
	permissions PermissionChecker
	opts        Options

	mu     sync.Mutex
	state  State
	active *session

	ticks  chan time.Duration
	levels chan float64
}

type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	audio  Session
	wav    *wavWriter
	path   string

	mu        sync.Mutex
	paused    bool
	stopping  bool
	elapsed   time.Duration // accumulated before resumedAt
	resumedAt time.Time
	failure   error

	pumpDone chan struct{}
	tickDone chan struct{}
}

// NewController creates a controller recording from mic through device.
// A nil permissions checker means access is always granted.
func NewController(mic *Microphone, device Device, permissions PermissionChecker, opts Options) *Controller {
	if permissions == nil {
		permissions = AlwaysGranted
	}
	return &Controller{
		mic:         mic,
		device:      device,
		permissions: permissions,
		opts:        opts.withDefaults(),
		state:       StateIdle,
		ticks:       make(chan time.Duration, 4),
		levels:      make(chan float64, 16),
	}
}

// Ticks delivers the elapsed recording time once per tick interval. Slow
// readers miss ticks rather than stall capture.
func (c *Controller) Ticks() <-chan time.Duration {
	return c.ticks
}

// Levels delivers RMS input levels in 0..1
func (c *Controller) Levels() <-chan float64 {
	return c.levels
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Elapsed returns the recorded time, excluding pauses
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return 0
	}
	return c.active.elapsedNow()
}

// Start checks permission, takes the microphone and begins writing a local
// WAV artifact. The capture outlives ctx's cancellation; use Stop or Cancel.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return ErrDeviceBusy
	}
	if err := c.permissions.CheckPermission(ctx); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if err := c.mic.acquire(c); err != nil {
		return err
	}

	s, err := c.open(ctx)
	if err != nil {
		c.mic.release(c)
		return err
	}

	c.active = s
	c.state = StateRecording
	go c.pump(s)
	go c.tick(s)

	metrics.CaptureStarted()
	log.Printf("[INFO] Capture started on %s, writing %s", c.mic.Name(), s.path)
	return nil
}

func (c *Controller) open(ctx context.Context) (*session, error) {
	if c.opts.TempDir != "" {
		if err := os.MkdirAll(c.opts.TempDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create capture directory: %w", err)
		}
	}
	file, err := os.CreateTemp(c.opts.TempDir, "capture-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}
	discard := func() {
		file.Close()
		os.Remove(file.Name())
	}

	wav, err := newWAVWriter(file, c.opts.Config.SampleRate, c.opts.Config.Channels)
	if err != nil {
		discard()
		return nil, err
	}

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	audio, err := c.device.Open(sessionCtx, c.opts.Config)
	if err != nil {
		cancel()
		discard()
		if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceBusy) || errors.Is(err, ErrDeviceFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDeviceFailure, err)
	}

	return &session{
		ctx:       sessionCtx,
		cancel:    cancel,
		audio:     audio,
		wav:       wav,
		path:      file.Name(),
		resumedAt: time.Now(),
		pumpDone:  make(chan struct{}),
		tickDone:  make(chan struct{}),
	}, nil
}

// Pause stops writing audio and the elapsed counter
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording {
		return fmt.Errorf("%w: cannot pause while %s", ErrInvalidTransition, c.state)
	}
	c.active.setPaused(true)
	c.state = StatePaused
	return nil
}

// Resume continues a paused capture
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused {
		return fmt.Errorf("%w: cannot resume while %s", ErrInvalidTransition, c.state)
	}
	c.active.setPaused(false)
	c.state = StateRecording
	return nil
}

// Stop finalizes the artifact and returns to idle. Without an active
// capture it returns nil, nil. When the device failed during capture the
// partial audio is deleted and ErrDeviceFailure is returned.
func (c *Controller) Stop() (*Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.active
	if s == nil {
		return nil, nil
	}
	failure := c.shutdown(s)

	if failure != nil {
		s.wav.file.Close()
		os.Remove(s.path)
		log.Printf("[WARN] Capture on %s failed, partial audio discarded: %v", c.mic.Name(), failure)
		return nil, fmt.Errorf("%w: %v", ErrDeviceFailure, failure)
	}

	if err := s.wav.Close(); err != nil {
		os.Remove(s.path)
		return nil, fmt.Errorf("%w: %v", ErrDeviceFailure, err)
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceFailure, err)
	}

	artifact := &Artifact{
		Path:      s.path,
		SizeBytes: info.Size(),
		Duration:  time.Duration(s.wav.Seconds() * float64(time.Second)),
	}
	log.Printf("[INFO] Capture stopped: %s (%d bytes, %s)", artifact.Path, artifact.SizeBytes, artifact.Duration.Round(time.Millisecond))
	return artifact, nil
}

// Cancel ends any capture and deletes its audio
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.active
	if s == nil {
		return
	}
	c.shutdown(s)
	s.wav.file.Close()
	os.Remove(s.path)
	log.Printf("[INFO] Capture on %s cancelled", c.mic.Name())
}

// shutdown stops the device and goroutines, returns to idle and releases
// the microphone. It returns the failure observed during capture, if any.
// Callers hold c.mu.
func (c *Controller) shutdown(s *session) error {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	if err := s.audio.Stop(); err != nil {
		log.Printf("[WARN] Failed to stop capture device cleanly: %v", err)
	}

	select {
	case <-s.pumpDone:
	case <-time.After(c.opts.StopTimeout):
		s.fail(errors.New("capture device did not stop in time"))
	}
	s.cancel()
	<-s.tickDone

	c.active = nil
	c.state = StateIdle
	c.mic.release(c)
	metrics.CaptureEnded()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// pump copies device frames into the artifact, dropping them while paused
func (c *Controller) pump(s *session) {
	defer close(s.pumpDone)

	buf := make([]byte, c.opts.ChunkSize)
	var lastLevel time.Time
	for {
		n, err := s.audio.Read(buf)
		if n > 0 && !s.isPaused() {
			if _, werr := s.wav.Write(buf[:n]); werr != nil {
				s.fail(fmt.Errorf("failed to write audio: %w", werr))
				return
			}
			if now := time.Now(); now.Sub(lastLevel) >= c.opts.LevelInterval {
				lastLevel = now
				select {
				case c.levels <- rmsLevel(buf[:n]):
				default:
				}
			}
		}
		if err != nil {
			if !s.isStopping() {
				if errors.Is(err, io.EOF) {
					err = errors.New("capture device closed unexpectedly")
				}
				s.fail(err)
			}
			return
		}
	}
}

func (c *Controller) tick(s *session) {
	defer close(s.tickDone)

	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.isPaused() {
				continue
			}
			select {
			case c.ticks <- s.elapsedNow():
			default:
			}
		}
	}
}

func (s *session) setPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused == paused {
		return
	}
	now := time.Now()
	if paused {
		s.elapsed += now.Sub(s.resumedAt)
	} else {
		s.resumedAt = now
	}
	s.paused = paused
}

func (s *session) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *session) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

func (s *session) elapsedNow() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return s.elapsed
	}
	return s.elapsed + time.Since(s.resumedAt)
}

func (s *session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure == nil {
		s.failure = err
	}
}
