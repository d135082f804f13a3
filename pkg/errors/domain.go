package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/killallgit/scribe-api/internal/capture"
	"github.com/killallgit/scribe-api/internal/services/appointments"
	"github.com/killallgit/scribe-api/internal/services/notes"
	"github.com/killallgit/scribe-api/internal/services/pipeline"
	"github.com/killallgit/scribe-api/internal/services/recordings"
	"github.com/killallgit/scribe-api/internal/services/transcription"
	"github.com/killallgit/scribe-api/internal/services/upload"
)

var domainCodes = []struct {
	target error
	code   ErrorCode
}{
	{capture.ErrPermissionDenied, ErrCodePermissionDenied},
	{capture.ErrDeviceBusy, ErrCodeDeviceBusy},
	{capture.ErrDeviceFailure, ErrCodeDeviceFailure},
	{capture.ErrInvalidTransition, ErrCodeInvalidTransition},
	{recordings.ErrConsentRequired, ErrCodeConsentRequired},
	{upload.ErrConsentRequired, ErrCodeConsentRequired},
	{upload.ErrFileTooLarge, ErrCodeFileTooLarge},
	{upload.ErrTransfer, ErrCodeTransferError},
	{transcription.ErrService, ErrCodeServiceError},
	{notes.ErrService, ErrCodeServiceError},
	{transcription.ErrEmptyResult, ErrCodeEmptyResult},
	{notes.ErrEmptyResult, ErrCodeEmptyResult},
	{pipeline.ErrConflictingAttempt, ErrCodeConflictingAttempt},
	{notes.ErrAlreadyFinalized, ErrCodeAlreadyFinalized},
	{recordings.ErrInvalidStatus, ErrCodeInvalidTransition},
	{pipeline.ErrNoActiveCapture, ErrCodeInvalidTransition},
	{pipeline.ErrNothingToRetry, ErrCodeInvalidTransition},
	{pipeline.ErrNoArtifact, ErrCodeDeviceFailure},
	{pipeline.ErrInvalidRequest, ErrCodeInvalidInput},
	{recordings.ErrInvalidInput, ErrCodeInvalidInput},
	{appointments.ErrInvalidAppointment, ErrCodeInvalidInput},
	{appointments.ErrReadOnly, ErrCodeForbidden},
	{appointments.ErrAppointmentNotFound, ErrCodeNotFound},
	{recordings.ErrRecordingNotFound, ErrCodeNotFound},
	{transcription.ErrTranscriptNotFound, ErrCodeNotFound},
	{notes.ErrTranscriptNotFound, ErrCodeNotFound},
	{notes.ErrNoteNotFound, ErrCodeNotFound},
}

// FromDomain maps an error returned by a scribe service to an AppError.
// Unknown errors become ErrCodeInternal with the cause attached.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	for _, dc := range domainCodes {
		if stderrors.Is(err, dc.target) {
			mapped := Wrap(err, dc.code, err.Error())
			annotate(mapped, err)
			return mapped
		}
	}

	internal := Wrap(err, ErrCodeInternal, "internal server error")
	internal.HTTPCode = http.StatusInternalServerError
	return internal
}

// annotate copies the fields of typed domain errors into the details
func annotate(appErr *AppError, err error) {
	var stageErr *pipeline.StageError
	if stderrors.As(err, &stageErr) {
		appErr.WithDetail("stage", string(stageErr.Stage))
		if stageErr.RecordingID != "" {
			appErr.WithDetail("recording_id", stageErr.RecordingID)
		}
	}

	var conflict *pipeline.ConflictError
	if stderrors.As(err, &conflict) {
		appErr.WithDetail("appointment_id", conflict.AppointmentID)
		appErr.WithDetail("stage", string(conflict.Stage))
	}

	var tooLarge *upload.FileTooLargeError
	if stderrors.As(err, &tooLarge) {
		appErr.WithDetail("size_bytes", tooLarge.Actual)
		appErr.WithDetail("limit_bytes", tooLarge.Allowed)
	}

	var statusErr recordings.StatusError
	if stderrors.As(err, &statusErr) {
		appErr.WithDetail("current_status", string(statusErr.Current))
	}
}
