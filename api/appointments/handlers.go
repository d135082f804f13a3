package appointments

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/scribe-api/api/types"
	"github.com/killallgit/scribe-api/internal/models"
)

// Get returns an appointment
// @Summary      Get appointment
// @Tags         appointments
// @Produce      json
// @Param        id path string true "Appointment ID"
// @Success      200 {object} types.AppointmentResponse
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/v1/appointments/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		appointmentID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		appointment, err := deps.Appointments.Get(c.Request.Context(), appointmentID)
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.AppointmentResponse{
			BaseResponse: types.OK("Appointment retrieved"),
			Appointment:  types.FromAppointment(appointment),
		})
	}
}

// Put creates or replaces a locally stored appointment
// @Summary      Upsert appointment
// @Description  Only available when appointments are stored locally
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Param        id path string true "Appointment ID"
// @Param        request body types.UpsertAppointmentRequest true "Appointment"
// @Success      200 {object} types.AppointmentResponse
// @Failure      400 {object} types.ErrorResponse
// @Failure      403 {object} types.ErrorResponse "Appointments are read-only"
// @Router       /api/v1/appointments/{id} [put]
func Put(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		appointmentID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		var req types.UpsertAppointmentRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		appointment := &models.Appointment{
			ID:          appointmentID,
			MentorID:    req.MentorID,
			MenteeID:    req.MenteeID,
			ScheduledAt: req.ScheduledAt,
		}
		if err := deps.Appointments.Save(c.Request.Context(), appointment); err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.AppointmentResponse{
			BaseResponse: types.OK("Appointment saved"),
			Appointment:  types.FromAppointment(appointment),
		})
	}
}
