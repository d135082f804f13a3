package capture

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/scribe-api/api/types"
)

// RegisterRoutes registers capture routes under an appointments group
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("/:id/capture", Start(deps))
	router.POST("/:id/capture/pause", Pause(deps))
	router.POST("/:id/capture/resume", Resume(deps))
	router.POST("/:id/capture/stop", Stop(deps))
}
