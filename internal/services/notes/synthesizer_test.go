package notes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"plan":"x"}`, `{"plan":"x"}`},
		{"json fence", "```json\n{\"plan\":\"x\"}\n```", `{"plan":"x"}`},
		{"bare fence", "```\n{\"plan\":\"x\"}\n```", `{"plan":"x"}`},
		{"whitespace", "  \n{\"plan\":\"x\"}\n ", `{"plan":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.input))
		})
	}
}

func TestParseSections(t *testing.T) {
	sections, err := parseSections("```json\n{\"subjective\":\"s\",\"objective\":\"o\",\"assessment\":\"a\",\"plan\":\"p\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, Sections{Subjective: "s", Objective: "o", Assessment: "a", Plan: "p"}, *sections)

	_, err = parseSections("")
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, err = parseSections("I could not produce a note.")
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, err = parseSections(`{"subjective":"","objective":"","assessment":"","plan":""}`)
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestOpenAISynthesizer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Equal(t, "json_object", req.ResponseFormat["type"])
		assert.InDelta(t, 0.1, req.Temperature, 0.0001)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, SystemPrompt, req.Messages[0].Content)
		assert.Equal(t, "Transcript: hello", req.Messages[1].Content)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"subjective\":\"s\",\"objective\":\"o\",\"assessment\":\"a\",\"plan\":\"p\"}"}}]}`))
	}))
	defer server.Close()

	synth := NewOpenAISynthesizer(OpenAIConfig{URL: server.URL, APIKey: "sk-test", Temperature: 0.1})
	sections, err := synth.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "p", sections.Plan)
	assert.Equal(t, "gpt-4o", synth.Name())
}

func TestOpenAISynthesizer_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer server.Close()

	_, err := NewOpenAISynthesizer(OpenAIConfig{URL: server.URL}).Synthesize(context.Background(), "hello")
	require.ErrorIs(t, err, ErrService)

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, http.StatusTooManyRequests, serviceErr.StatusCode)
	assert.Contains(t, err.Error(), "Rate limit reached")
}

func TestOpenAISynthesizer_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := NewOpenAISynthesizer(OpenAIConfig{URL: server.URL}).Synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"plan":`), genai.Text(`"p"}`)}},
		}},
	}
	assert.Equal(t, `{"plan":"p"}`, responseText(resp))
}

func TestNewVertexSynthesizer_RequiresProject(t *testing.T) {
	_, err := NewVertexSynthesizer(context.Background(), VertexConfig{Region: "us-central1"})
	assert.Error(t, err)
}
