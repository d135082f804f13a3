package upload

import "github.com/killallgit/scribe-api/internal/models"

// DefaultMaxBytes matches the transcription service's hard request limit
const DefaultMaxBytes int64 = 25 * 1024 * 1024

// Request identifies the artifact to stage and the recording it belongs to
type Request struct {
	ArtifactPath    string
	RecordingID     string
	DurationSeconds float64 // Zero asks the prober, when one is configured
}

// Progress is one upload progress event. A Stage call emits zero or more
// intermediate events followed by exactly one event with Done set.
type Progress struct {
	RecordingID      string  `json:"recording_id"`
	BytesTransferred int64   `json:"bytes_transferred"`
	TotalBytes       int64   `json:"total_bytes"`
	Percent          float64 `json:"percent"`
	Done             bool    `json:"done"`
	Err              error   `json:"-"`
}

// Result describes a stored artifact
type Result struct {
	Key       string
	Locator   string
	SizeBytes int64
	Recording *models.Recording
}
