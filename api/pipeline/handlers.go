package pipeline

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/scribe-api/api/types"
	pipelineService "github.com/killallgit/scribe-api/internal/services/pipeline"
)

// KeepAliveInterval is how often an idle event stream sends a ping
var KeepAliveInterval = 15 * time.Second

// GetState returns the pipeline state of an appointment
// @Summary      Get pipeline state
// @Description  Current stage, percent and ids, rebuilt from stored rows and the live attempt
// @Tags         pipeline
// @Produce      json
// @Param        id path string true "Appointment ID"
// @Success      200 {object} types.PipelineStateResponse
// @Failure      500 {object} types.ErrorResponse
// @Router       /api/v1/appointments/{id}/pipeline [get]
func GetState(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		appointmentID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		state, err := deps.Pipeline.GetPipelineState(c.Request.Context(), appointmentID)
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.PipelineStateResponse{
			BaseResponse: types.OK("Pipeline state retrieved"),
			State:        types.FromPipelineState(state),
		})
	}
}

// Events streams stage and progress events
// @Summary      Stream pipeline events
// @Description  Server-sent events. The first event is the current state; the stream ends after a completed or failed event.
// @Tags         pipeline
// @Produce      text/event-stream
// @Param        id path string true "Appointment ID"
// @Success      200 {object} types.PipelineEvent
// @Router       /api/v1/appointments/{id}/pipeline/events [get]
func Events(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		appointmentID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		// Subscribe before reading state so no transition falls in between
		events, cancel := deps.Pipeline.Subscribe(appointmentID)
		defer cancel()

		ctx := c.Request.Context()
		state, err := deps.Pipeline.GetPipelineState(ctx, appointmentID)
		if err != nil {
			types.SendError(c, err)
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		c.SSEvent("state", types.FromPipelineState(state))
		c.Writer.Flush()
		if !state.Live && terminal(state.Stage) {
			return
		}

		keepAlive := time.NewTicker(KeepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				c.SSEvent("ping", gin.H{"time": time.Now().UnixMilli()})
				c.Writer.Flush()
			case ev, open := <-events:
				if !open {
					return
				}
				c.SSEvent("stage", types.FromPipelineEvent(ev))
				c.Writer.Flush()
				if terminal(ev.Stage) {
					return
				}
			}
		}
	}
}

func terminal(stage pipelineService.Stage) bool {
	return stage == pipelineService.StageCompleted || stage == pipelineService.StageFailed
}

// Retry resumes a failed attempt from the stage that failed
// @Summary      Retry failed stage
// @Description  Re-run the failed stage and the ones after it in the background
// @Tags         pipeline
// @Produce      json
// @Param        id path string true "Appointment ID"
// @Success      202 {object} types.AcceptedResponse
// @Failure      409 {object} types.ErrorResponse "Nothing to retry or attempt in progress"
// @Router       /api/v1/appointments/{id}/pipeline/retry [post]
func Retry(deps *types.Dependencies) gin.HandlerFunc {
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
		if state.Stage != pipelineService.StageFailed || !resumable(state.FailedStage) {
			types.SendError(c, pipelineService.ErrNothingToRetry)
			return
		}
		if err := deps.Pipeline.CheckRetry(ctx, appointmentID); err != nil {
			types.SendError(c, err)
			return
		}

		go func() {
			bg := context.WithoutCancel(ctx)
			if _, err := deps.Pipeline.Retry(bg, appointmentID, nil); err != nil {
				log.Printf("[WARN] Retry for appointment %s ended with error: %v", appointmentID, err)
			}
		}()

		types.SendAccepted(c, types.AcceptedResponse{
			BaseResponse:  types.BaseResponse{Status: types.StatusProcessing, Message: "Retry started from " + string(state.FailedStage)},
			AppointmentID: appointmentID,
			EventsURL:     "/api/v1/appointments/" + appointmentID + "/pipeline/events",
			State:         types.FromPipelineState(state),
		})
	}
}

// resumable reports whether a failure at stage can be retried. A failed
// capture has nothing to resume.
func resumable(stage pipelineService.Stage) bool {
	switch stage {
	case pipelineService.StageUploading, pipelineService.StageTranscribing, pipelineService.StageGenerating:
		return true
	}
	return false
}

// Discard abandons the current attempt
// @Summary      Discard attempt
// @Description  Cancel a live capture or clear a failed attempt. Stored rows are kept.
// @Tags         pipeline
// @Produce      json
// @Param        id path string true "Appointment ID"
// @Success      200 {object} types.PipelineStateResponse
// @Failure      409 {object} types.ErrorResponse "A stage is running"
// @Router       /api/v1/appointments/{id}/pipeline [delete]
func Discard(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		appointmentID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		if err := deps.Pipeline.Discard(ctx, appointmentID); err != nil {
			types.SendError(c, err)
			return
		}

		state, err := deps.Pipeline.GetPipelineState(ctx, appointmentID)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.PipelineStateResponse{
			BaseResponse: types.OK("Attempt discarded"),
			State:        types.FromPipelineState(state),
		})
	}
}
