package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// startGrace is how long ffmpeg must survive before the input is considered open
const startGrace = 250 * time.Millisecond

// stopGrace bounds the wait for ffmpeg to exit after an interrupt
const stopGrace = 1200 * time.Millisecond

// FFmpeg wraps ffmpeg and ffprobe functionality
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

// New creates a new FFmpeg instance
func New(ffmpegPath, ffprobePath string, timeout time.Duration) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

// ValidateBinaries checks if ffmpeg and ffprobe are available
func (f *FFmpeg) ValidateBinaries() error {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
	}
	if _, err := exec.LookPath(f.ffprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, f.ffprobePath)
	}
	return nil
}

// captureArgs builds the ffmpeg argument list for raw s16le capture to stdout
func captureArgs(cfg InputConfig) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.Format,
		"-i", cfg.Device,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

// OpenInput starts ffmpeg reading from the capture device and returns a
// stream of signed 16-bit little-endian PCM frames.
func (f *FFmpeg) OpenInput(ctx context.Context, cfg InputConfig) (*InputStream, error) {
	cfg = cfg.withDefaults()

	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, captureArgs(cfg)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, NewProcessingError("capture_start", cfg.Device, err, "")
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// ffmpeg exits almost immediately when the device cannot be opened
	select {
	case err := <-waitErr:
		cause := classifyInputError(stderr.String())
		if err != nil {
			cause = fmt.Errorf("%w: %v", cause, err)
		}
		return nil, NewProcessingError("capture_start", cfg.Device, cause, stderr.String())
	case <-time.After(startGrace):
	}

	return &InputStream{
		config:  cfg,
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

// InputStream is a live ffmpeg capture process
type InputStream struct {
	config  InputConfig
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

// Config returns the effective capture settings
func (s *InputStream) Config() InputConfig {
	return s.config
}

// Read reads raw PCM bytes from ffmpeg
func (s *InputStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Close stops the capture process
func (s *InputStream) Close() error {
	return s.Stop()
}

// Stop interrupts ffmpeg, escalating to kill when it does not exit in time
func (s *InputStream) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(stopGrace):
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.waitErr; ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = closeErr
		}

		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, bytes.TrimSpace(s.stderr.Bytes()))
		}
	})

	return s.stopErr
}

// normalizeStopErr treats a non-zero exit after an interrupt as a clean stop
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
