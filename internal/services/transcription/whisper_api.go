package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const defaultWhisperURL = "https://api.openai.com/v1/audio/transcriptions"

// WhisperAPIConfig configures the hosted Whisper backend
type WhisperAPIConfig struct {
	URL      string
	APIKey   string
	Model    string
	Language string // Empty lets the service detect it
	Timeout  time.Duration
}

// WhisperAPI transcribes through an OpenAI compatible
// /v1/audio/transcriptions endpoint
type WhisperAPI struct {
	config     WhisperAPIConfig
	httpClient *http.Client
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

type whisperErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewWhisperAPI creates a hosted Whisper transcriber
func NewWhisperAPI(config WhisperAPIConfig) *WhisperAPI {
	if config.URL == "" {
		config.URL = defaultWhisperURL
	}
	if config.Model == "" {
		config.Model = "whisper-1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	return &WhisperAPI{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name identifies the backend
func (w *WhisperAPI) Name() string {
	return "whisper-api"
}

// Transcribe uploads the audio as multipart form data and asks for
// verbose_json so language and duration come back with the text
func (w *WhisperAPI) Transcribe(ctx context.Context, name string, audio io.Reader) (*Result, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, &ServiceError{Backend: w.Name(), Err: fmt.Errorf("failed to read audio: %w", err)}
	}

	fields := map[string]string{
		"model":           w.config.Model,
		"response_format": "verbose_json",
	}
	if w.config.Language != "" {
		fields["language"] = w.config.Language
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if w.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.config.APIKey)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Backend: w.Name(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Backend: w.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr whisperErrorResponse
		message := string(raw)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		return nil, &ServiceError{Backend: w.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", message)}
	}

	var parsed whisperResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ServiceError{Backend: w.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return &Result{
		Text:            parsed.Text,
		Language:        parsed.Language,
		WordCount:       CountWords(parsed.Text),
		DurationSeconds: parsed.Duration,
	}, nil
}
