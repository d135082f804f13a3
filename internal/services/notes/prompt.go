package notes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SystemPrompt instructs the model to answer with a SOAP JSON object
const SystemPrompt = `You are a clinical AI scribe. Convert the following therapy session transcript into SOAP note sections (Subjective, Objective, Assessment, Plan).
Return a JSON object with keys: "subjective", "objective", "assessment", "plan".
Each value must be a detailed clinical note based only on the transcript.`

func userPrompt(transcriptText string) string {
	return "Transcript: " + transcriptText
}

// stripFences removes a surrounding markdown code fence
func stripFences(content string) string {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```JSON")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}
	return strings.TrimSpace(cleaned)
}

// parseSections decodes model output into sections
func parseSections(content string) (*Sections, error) {
	cleaned := stripFences(content)
	if cleaned == "" {
		return nil, ErrEmptyResult
	}

	var sections Sections
	if err := json.Unmarshal([]byte(cleaned), &sections); err != nil {
		return nil, fmt.Errorf("%w: response is not a SOAP JSON object: %v", ErrEmptyResult, err)
	}
	if sections.IsBlank() {
		return nil, ErrEmptyResult
	}
	return &sections, nil
}
