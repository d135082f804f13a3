package version

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/scribe-api/api/types"
)

// Get handles version requests
func Get(deps *types.Dependencies) gin.HandlerFunc {
	version := "dev"
	if deps != nil && deps.Version != "" {
		version = deps.Version
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "Scribe API",
			"version":     version,
			"description": "Records clinical sessions and drafts SOAP notes from the transcript",
			"status":      "running",
		})
	}
}
