package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/killallgit/scribe-api/pkg/ffmpeg"
)

// FFmpegDevice captures from an OS input through ffmpeg
type FFmpegDevice struct {
	ff *ffmpeg.FFmpeg
}

// NewFFmpegDevice creates a device backed by ff
func NewFFmpegDevice(ff *ffmpeg.FFmpeg) *FFmpegDevice {
	return &FFmpegDevice{ff: ff}
}

// Open starts ffmpeg and maps its device diagnostics to capture errors
func (d *FFmpegDevice) Open(ctx context.Context, cfg Config) (Session, error) {
	stream, err := d.ff.OpenInput(ctx, ffmpeg.InputConfig{
		Format:     cfg.Format,
		Device:     cfg.Device,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
	})
	if err != nil {
		return nil, classifyOpenError(err)
	}
	return stream, nil
}

func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, ffmpeg.ErrInputPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case errors.Is(err, ffmpeg.ErrInputBusy):
		return fmt.Errorf("%w: %v", ErrDeviceBusy, err)
	default:
		return fmt.Errorf("%w: %v", ErrDeviceFailure, err)
	}
}
