package appointments

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/scribe-api/api/types"
)

// RegisterRoutes registers appointment routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/:id", Get(deps))
}

// RegisterAdminRoutes registers appointment writes
func RegisterAdminRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.PUT("/:id", Put(deps))
}
