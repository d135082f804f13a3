package notes

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// VertexConfig configures the Gemini synthesizer
type VertexConfig struct {
	ProjectID   string
	Region      string
	Model       string
	Temperature float32
	MaxTokens   int32
}

// VertexSynthesizer generates notes with Gemini on Vertex AI
type VertexSynthesizer struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewVertexSynthesizer creates a Gemini client configured for JSON output
func NewVertexSynthesizer(ctx context.Context, config VertexConfig) (*VertexSynthesizer, error) {
	if config.ProjectID == "" || config.Region == "" {
		return nil, fmt.Errorf("vertex project and region are required")
	}
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, config.ProjectID, config.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(config.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(config.Temperature),
	}
	if config.MaxTokens > 0 {
		model.GenerationConfig.MaxOutputTokens = genai.Ptr(config.MaxTokens)
	}

	return &VertexSynthesizer{client: client, model: model, modelName: config.Model}, nil
}

// Name returns the model name
func (v *VertexSynthesizer) Name() string {
	return v.modelName
}

// Close releases the underlying client
func (v *VertexSynthesizer) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

// Synthesize sends the transcript to Gemini and parses the JSON answer
func (v *VertexSynthesizer) Synthesize(ctx context.Context, transcriptText string) (*Sections, error) {
	resp, err := v.model.GenerateContent(ctx, genai.Text(userPrompt(transcriptText)))
	if err != nil {
		return nil, &ServiceError{Provider: v.Name(), Err: err}
	}
	return parseSections(responseText(resp))
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
