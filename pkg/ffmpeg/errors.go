package ffmpeg

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	ErrFFmpegNotFound   = errors.New("ffmpeg binary not found")
	ErrFFprobeNotFound  = errors.New("ffprobe binary not found")
	ErrInvalidAudioFile = errors.New("invalid or unsupported audio file")
	ErrInputPermission  = errors.New("capture input permission denied")
	ErrInputBusy        = errors.New("capture input busy")
	ErrInputUnavailable = errors.New("capture input unavailable")
)

// ProcessingError represents an error during an ffmpeg or ffprobe invocation
type ProcessingError struct {
	Operation string // The operation that failed (e.g., "capture_start", "metadata_extraction")
	File      string // The file or device being processed
	Err       error  // The underlying error
	Stderr    string // stderr output from ffmpeg/ffprobe
}

func (e *ProcessingError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("ffmpeg %s failed for %s: %v (stderr: %s)", e.Operation, e.File, e.Err, e.Stderr)
	}
	return fmt.Sprintf("ffmpeg %s failed for %s: %v", e.Operation, e.File, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewProcessingError creates a new ProcessingError
func NewProcessingError(operation, file string, err error, stderr string) *ProcessingError {
	return &ProcessingError{
		Operation: operation,
		File:      file,
		Err:       err,
		Stderr:    strings.TrimSpace(stderr),
	}
}

// classifyInputError maps ffmpeg's device diagnostics to a sentinel
func classifyInputError(stderr string) error {
	s := strings.ToLower(stderr)
	switch {
	case strings.Contains(s, "permission denied"), strings.Contains(s, "not authorized"),
		strings.Contains(s, "access denied"):
		return ErrInputPermission
	case strings.Contains(s, "device or resource busy"), strings.Contains(s, "resource busy"):
		return ErrInputBusy
	default:
		return ErrInputUnavailable
	}
}
