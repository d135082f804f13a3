package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultChatURL = "https://api.openai.com/v1/chat/completions"

// OpenAIConfig configures the chat completions synthesizer
type OpenAIConfig struct {
	URL         string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAISynthesizer generates notes through an OpenAI compatible chat
// completions endpoint in JSON mode
type OpenAISynthesizer struct {
	config     OpenAIConfig
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAISynthesizer creates a chat completions synthesizer
func NewOpenAISynthesizer(config OpenAIConfig) *OpenAISynthesizer {
	if config.URL == "" {
		config.URL = defaultChatURL
	}
	if config.Model == "" {
		config.Model = "gpt-4o"
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	return &OpenAISynthesizer{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the model name
func (o *OpenAISynthesizer) Name() string {
	return o.config.Model
}

// Synthesize sends the transcript and parses the JSON answer
func (o *OpenAISynthesizer) Synthesize(ctx context.Context, transcriptText string) (*Sections, error) {
	payload, err := json.Marshal(chatRequest{
		Model: o.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: userPrompt(transcriptText)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    o.config.Temperature,
		MaxTokens:      o.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.config.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.config.APIKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Provider: o.Name(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Provider: o.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		message := string(raw)
		if decodeErr == nil && parsed.Error != nil {
			message = parsed.Error.Message
		}
		return nil, &ServiceError{Provider: o.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", message)}
	}
	if decodeErr != nil {
		return nil, &ServiceError{Provider: o.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", decodeErr)}
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrEmptyResult
	}

	return parseSections(parsed.Choices[0].Message.Content)
}
