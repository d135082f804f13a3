package recordings

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/scribe-api/api/types"
	pipelineService "github.com/killallgit/scribe-api/internal/services/pipeline"
	"github.com/killallgit/scribe-api/internal/services/transcription"
)

// ListForAppointment lists an appointment's recordings
// @Summary      List recordings for appointment
// @Description  All capture attempts for an appointment, newest first
// @Tags         recordings
// @Produce      json
// @Param        id path string true "Appointment ID"
// @Success      200 {object} types.RecordingsResponse
// @Failure      500 {object} types.ErrorResponse
// @Router       /api/v1/appointments/{id}/recordings [get]
func ListForAppointment(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		appointmentID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		rows, err := deps.Recordings.ListForAppointment(c.Request.Context(), appointmentID)
		if err != nil {
			types.SendError(c, err)
			return
		}

		recordings := types.FromRecordings(rows)
		types.SendSuccess(c, types.RecordingsResponse{
			BaseResponse: types.OK(fmt.Sprintf("Found %d recording(s)", len(recordings))),
			Recordings:   recordings,
			Count:        len(recordings),
		})
	}
}

// Get returns one recording
// @Summary      Get recording
// @Tags         recordings
// @Produce      json
// @Param        id path string true "Recording ID"
// @Success      200 {object} types.RecordingResponse
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/v1/recordings/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		recordingID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		recording, err := deps.Recordings.Get(c.Request.Context(), recordingID)
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.RecordingResponse{
			BaseResponse: types.OK("Recording retrieved"),
			Recording:    types.FromRecording(recording),
		})
	}
}

// Delete removes a recording, its stored audio and everything derived from it
// @Summary      Delete recording
// @Description  Deletes stored audio first, then the recording with its transcripts and notes
// @Tags         recordings
// @Produce      json
// @Param        id path string true "Recording ID"
// @Success      200 {object} types.DeleteRecordingResponse
// @Failure      404 {object} types.ErrorResponse
// @Failure      409 {object} types.ErrorResponse "Recording belongs to a live attempt"
// @Router       /api/v1/recordings/{id} [delete]
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		recordingID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		if deps.Pipeline != nil && deps.Pipeline.IsLive(recordingID) {
			ctx := c.Request.Context()
			recording, err := deps.Recordings.Get(ctx, recordingID)
			if err != nil {
				types.SendError(c, err)
				return
			}
			state, err := deps.Pipeline.GetPipelineState(ctx, recording.AppointmentID)
			if err != nil {
				types.SendError(c, err)
				return
			}
			types.SendError(c, &pipelineService.ConflictError{AppointmentID: recording.AppointmentID, Stage: state.Stage})
			return
		}

		storageDeleted, err := deps.Recordings.Delete(c.Request.Context(), recordingID)
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.DeleteRecordingResponse{
			BaseResponse:   types.OK("Recording deleted"),
			RecordingID:    recordingID,
			StorageDeleted: storageDeleted,
		})
	}
}

// GetTranscript returns the newest transcript of a recording
// @Summary      Get transcript for recording
// @Tags         recordings
// @Produce      json
// @Param        id path string true "Recording ID"
// @Success      200 {object} types.TranscriptResponse
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/v1/recordings/{id}/transcript [get]
func GetTranscript(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		recordingID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		if _, err := deps.Recordings.Get(ctx, recordingID); err != nil {
			types.SendError(c, err)
			return
		}

		transcript, err := deps.Transcripts.GetLatestForRecording(ctx, recordingID)
		if err != nil {
			types.SendError(c, err)
			return
		}
		if transcript == nil {
			types.SendError(c, transcription.ErrTranscriptNotFound)
			return
		}

		types.SendSuccess(c, types.TranscriptResponse{
			BaseResponse: types.OK("Transcript retrieved"),
			Transcript:   types.FromTranscript(transcript),
		})
	}
}
