package types

// Status constants for API responses
const (
	StatusOK         = "ok"
	StatusError      = "error"
	StatusProcessing = "processing"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`  // One of the Status constants above
	Message string `json:"message"` // Human-readable message
}

// PipelineStateResponse for pipeline state and capture control endpoints
type PipelineStateResponse struct {
	BaseResponse
	State *PipelineState `json:"state"`
}

// AcceptedResponse for work continuing in the background
type AcceptedResponse struct {
	BaseResponse
	AppointmentID string         `json:"appointmentId"`
	EventsURL     string         `json:"eventsUrl"`
	State         *PipelineState `json:"state,omitempty"`
}

// RecordingsResponse for recording lists
type RecordingsResponse struct {
	BaseResponse
	Recordings []Recording `json:"recordings"`
	Count      int         `json:"count"`
}

// RecordingResponse for a single recording
type RecordingResponse struct {
	BaseResponse
	Recording *Recording `json:"recording"`
}

// DeleteRecordingResponse reports what a deletion removed
type DeleteRecordingResponse struct {
	BaseResponse
	RecordingID    string `json:"recordingId"`
	StorageDeleted bool   `json:"storageDeleted"`
}

// TranscriptResponse for transcript reads
type TranscriptResponse struct {
	BaseResponse
	Transcript *Transcript `json:"transcript"`
}

// NoteResponse for clinical note reads and edits
type NoteResponse struct {
	BaseResponse
	Note *ClinicalNote `json:"note"`
}

// AppointmentResponse for appointment reads and writes
type AppointmentResponse struct {
	BaseResponse
	Appointment *Appointment `json:"appointment"`
}

// ErrorResponse for detailed error information
type ErrorResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`   // Error code
	Details interface{} `json:"details,omitempty"` // Additional error details
}
