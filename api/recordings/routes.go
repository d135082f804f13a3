package recordings

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/scribe-api/api/types"
)

// RegisterRoutes registers recording routes. appointments is the
// /appointments group, recordings the /recordings group.
func RegisterRoutes(appointments, recordings *gin.RouterGroup, deps *types.Dependencies) {
	appointments.GET("/:id/recordings", ListForAppointment(deps))

	recordings.GET("/:id", Get(deps))
	recordings.GET("/:id/transcript", GetTranscript(deps))
}

// RegisterAdminRoutes registers destructive recording routes
func RegisterAdminRoutes(recordings *gin.RouterGroup, deps *types.Dependencies) {
	recordings.DELETE("/:id", Delete(deps))
}
