package capture

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/scribe-api/api/types"
	pipelineService "github.com/killallgit/scribe-api/internal/services/pipeline"
)

// Start begins a capture for an appointment
// @Summary      Start capture
// @Description  Pass the consent gate, create a recording and start the microphone. Consent must be true.
// @Tags         capture
// @Accept       json
// @Produce      json
// @Param        id path string true "Appointment ID"
// @Param        request body types.StartCaptureRequest true "Consent confirmation"
// @Success      200 {object} types.PipelineStateResponse
// @Failure      400 {object} types.ErrorResponse "Consent missing"
// @Failure      403 {object} types.ErrorResponse "Microphone permission denied"
// @Failure      404 {object} types.ErrorResponse "Appointment not found"
// @Failure      409 {object} types.ErrorResponse "Microphone busy or attempt in progress"
// @Router       /api/v1/appointments/{id}/capture [post]
func Start(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		appointmentID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		var req types.StartCaptureRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		state, err := deps.Pipeline.StartCapture(c.Request.Context(), pipelineService.StartRequest{
			AppointmentID: appointmentID,
			Consent:       req.Consent,
		})
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.PipelineStateResponse{
			BaseResponse: types.OK("Capture started"),
			State:        types.FromPipelineState(state),
		})
	}
}

// Pause pauses a live capture
// @Summary      Pause capture
// @Tags         capture
// @Produce      json
// @Param        id path string true "Appointment ID"
// @Success      200 {object} types.PipelineStateResponse
// @Failure      409 {object} types.ErrorResponse "No active capture"
// @Router       /api/v1/appointments/{id}/capture/pause [post]
func Pause(deps *types.Dependencies) gin.HandlerFunc {
	return transition(deps, "Capture paused", types.PipelineService.PauseCapture)
}

// Resume resumes a paused capture
// @Summary      Resume capture
// @Tags         capture
// @Produce      json
// @Param        id path string true "Appointment ID"
// @Success      200 {object} types.PipelineStateResponse
// @Failure      409 {object} types.ErrorResponse "No active capture"
// @Router       /api/v1/appointments/{id}/capture/resume [post]
func Resume(deps *types.Dependencies) gin.HandlerFunc {
	return transition(deps, "Capture resumed", types.PipelineService.ResumeCapture)
}

func transition(deps *types.Dependencies, message string, apply func(types.PipelineService, context.Context, string) (*pipelineService.State, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		appointmentID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		state, err := apply(deps.Pipeline, c.Request.Context(), appointmentID)
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.PipelineStateResponse{
			BaseResponse: types.OK(message),
			State:        types.FromPipelineState(state),
		})
	}
}

// Stop ends the capture and runs upload, transcription and note generation
// @Summary      Stop capture and process
// @Description  Stop the microphone and run the remaining stages in the background. Follow progress on the events stream.
// @Tags         capture
// @Produce      json
// @Param        id path string true "Appointment ID"
// @Success      202 {object} types.AcceptedResponse
// @Failure      409 {object} types.ErrorResponse "No active capture"
// @Router       /api/v1/appointments/{id}/capture/stop [post]
func Stop(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		appointmentID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		state, err := deps.Pipeline.GetPipelineState(ctx, appointmentID)
		if err != nil {
			types.SendError(c, err)
			return
		}
		if !state.Live || !state.Stage.Capturing() {
			types.SendError(c, pipelineService.ErrNoActiveCapture)
			return
		}

		// The pipeline outlives the request; clients follow the events stream
		go func() {
			bg := context.WithoutCancel(ctx)
			if _, err := deps.Pipeline.StopCaptureAndProcess(bg, appointmentID, nil); err != nil {
				log.Printf("[WARN] Pipeline for appointment %s ended with error: %v", appointmentID, err)
			}
		}()

		types.SendAccepted(c, types.AcceptedResponse{
			BaseResponse:  types.BaseResponse{Status: types.StatusProcessing, Message: "Capture stopped, processing started"},
			AppointmentID: appointmentID,
			EventsURL:     "/api/v1/appointments/" + appointmentID + "/pipeline/events",
			State:         types.FromPipelineState(state),
		})
	}
}
