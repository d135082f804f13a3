package transcription

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// WhisperCLIConfig configures a local whisper.cpp binary
type WhisperCLIConfig struct {
	BinaryPath string
	ModelPath  string
	Language   string
	Threads    int
	TempDir    string
}

// WhisperCLI transcribes with a local whisper.cpp build
type WhisperCLI struct {
	config WhisperCLIConfig
}

// NewWhisperCLI creates a local whisper.cpp transcriber
func NewWhisperCLI(config WhisperCLIConfig) *WhisperCLI {
	if config.BinaryPath == "" {
		config.BinaryPath = "whisper-cli"
	}
	if config.Language == "" {
		config.Language = "en"
	}
	if config.Threads <= 0 {
		config.Threads = 4
	}
	return &WhisperCLI{config: config}
}

// Name identifies the backend
func (w *WhisperCLI) Name() string {
	return "whisper-cli"
}

// Transcribe spools the audio to a temp file, since whisper.cpp only reads
// from disk, and returns the plain text it prints
func (w *WhisperCLI) Transcribe(ctx context.Context, name string, audio io.Reader) (*Result, error) {
	if _, err := exec.LookPath(w.config.BinaryPath); err != nil {
		return nil, &ServiceError{Backend: w.Name(), Err: fmt.Errorf("whisper binary not found at %s: %w", w.config.BinaryPath, err)}
	}

	tmp, err := os.CreateTemp(w.config.TempDir, "whisper-*"+filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, audio); err != nil {
		tmp.Close()
		return nil, &ServiceError{Backend: w.Name(), Err: fmt.Errorf("failed to read audio: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, w.config.BinaryPath, w.args(tmp.Name())...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return nil, &ServiceError{Backend: w.Name(), Err: err}
	}

	text := strings.TrimSpace(string(output))
	return &Result{
		Text:      text,
		Language:  w.config.Language,
		WordCount: CountWords(text),
	}, nil
}

func (w *WhisperCLI) args(audioPath string) []string {
	return []string{
		"-m", w.config.ModelPath,
		"-f", audioPath,
		"-l", w.config.Language,
		"-t", strconv.Itoa(w.config.Threads),
		"-nt", // no timestamps
	}
}
