package ffmpeg

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	f := New("", "", 30*time.Second)
	assert.Equal(t, "ffmpeg", f.ffmpegPath)
	assert.Equal(t, "ffprobe", f.ffprobePath)
	assert.Equal(t, 30*time.Second, f.timeout)
}

func TestInputConfigDefaults(t *testing.T) {
	cfg := InputConfig{Device: "hw:1"}.withDefaults()
	assert.Equal(t, "pulse", cfg.Format)
	assert.Equal(t, "hw:1", cfg.Device)
	assert.Equal(t, 16000, cfg.SampleRate)
	assert.Equal(t, 1, cfg.Channels)
}

func TestCaptureArgs(t *testing.T) {
	args := captureArgs(InputConfig{Format: "alsa", Device: "default", SampleRate: 44100, Channels: 2})
	assert.Equal(t, []string{
		"-nostdin", "-hide_banner", "-loglevel", "warning",
		"-f", "alsa", "-i", "default",
		"-ac", "2", "-ar", "44100",
		"-f", "s16le", "-",
	}, args)
}

func TestClassifyInputError(t *testing.T) {
	tests := []struct {
		stderr string
		want   error
	}{
		{"[alsa] cannot open audio device default (Permission denied)", ErrInputPermission},
		{"AVFoundation: not authorized to capture audio", ErrInputPermission},
		{"cannot open audio device hw:0 (Device or resource busy)", ErrInputBusy},
		{"default: Input/output error", ErrInputUnavailable},
		{"", ErrInputUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.stderr, func(t *testing.T) {
			assert.ErrorIs(t, classifyInputError(tt.stderr), tt.want)
		})
	}
}

func TestParseMetadata(t *testing.T) {
	raw := []byte(`{
		"streams": [{"codec_type": "audio", "codec_name": "pcm_s16le", "sample_rate": "16000", "channels": 1, "duration": "10.000000"}],
		"format": {"duration": "10.000000", "size": "320044", "bit_rate": "256035", "format_name": "wav"}
	}`)

	metadata, err := parseMetadata(raw, "session.wav")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, metadata.Duration, 0.001)
	assert.Equal(t, int64(320044), metadata.Size)
	assert.Equal(t, 16000, metadata.SampleRate)
	assert.Equal(t, 1, metadata.Channels)
	assert.Equal(t, "pcm_s16le", metadata.Codec)
	assert.Equal(t, "wav", metadata.Format)
}

func TestParseMetadata_StreamDurationFallback(t *testing.T) {
	raw := []byte(`{
		"streams": [{"codec_type": "audio", "codec_name": "opus", "sample_rate": "48000", "channels": 1, "duration": "4.5"}],
		"format": {"format_name": "webm"}
	}`)

	metadata, err := parseMetadata(raw, "session.webm")
	require.NoError(t, err)
	assert.InDelta(t, 4.5, metadata.Duration, 0.001)
}

func TestParseMetadata_NoDuration(t *testing.T) {
	_, err := parseMetadata([]byte(`{"streams": [], "format": {}}`), "empty.wav")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidAudioFile))

	var procErr *ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "metadata_validation", procErr.Operation)
}

func TestOpenInput_MissingBinary(t *testing.T) {
	f := New("/nonexistent/ffmpeg", "/nonexistent/ffprobe", time.Second)
	_, err := f.OpenInput(context.Background(), DefaultInputConfig())
	assert.ErrorIs(t, err, ErrFFmpegNotFound)
}

// Integration test - only runs if ffmpeg/ffprobe are available
func TestValidateBinaries(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}
	assert.NoError(t, New("ffmpeg", "ffprobe", time.Second).ValidateBinaries())
}
