package types

import "time"

// StartCaptureRequest starts a capture. Consent must be true.
type StartCaptureRequest struct {
	Consent bool `json:"consent" example:"true"`
}

// UpdateNoteRequest edits a draft note. Omitted sections are left unchanged.
type UpdateNoteRequest struct {
	Subjective *string `json:"subjective,omitempty"`
	Objective  *string `json:"objective,omitempty"`
	Assessment *string `json:"assessment,omitempty"`
	Plan       *string `json:"plan,omitempty"`
}

// UpsertAppointmentRequest creates or replaces a locally stored appointment
type UpsertAppointmentRequest struct {
	MentorID    string    `json:"mentorId" binding:"required" example:"mentor-42"`
	MenteeID    string    `json:"menteeId" binding:"required" example:"mentee-7"`
	ScheduledAt time.Time `json:"scheduledAt"`
}
