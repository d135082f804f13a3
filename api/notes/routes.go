package notes

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/scribe-api/api/types"
)

// RegisterRoutes registers note routes. appointments is the /appointments
// group, notes the /notes group.
func RegisterRoutes(appointments, notes *gin.RouterGroup, deps *types.Dependencies) {
	appointments.GET("/:id/note", GetLatestForAppointment(deps))

	notes.GET("/:id", Get(deps))
	notes.PATCH("/:id", Update(deps))
	notes.POST("/:id/finalize", Finalize(deps))
}
