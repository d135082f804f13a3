package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes registers auth routes on an authenticated group
func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	router.GET("/me", h.Me)
}
