package pipeline

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/scribe-api/api/types"
)

// RegisterRoutes registers pipeline routes under an appointments group
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/:id/pipeline", GetState(deps))
	router.GET("/:id/pipeline/events", Events(deps))
	router.POST("/:id/pipeline/retry", Retry(deps))
	router.DELETE("/:id/pipeline", Discard(deps))
}
