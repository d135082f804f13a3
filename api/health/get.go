package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/scribe-api/api/types"
)

// Get handles health check requests
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Failure      503 {object} map[string]interface{}
// @Router       /health [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		response := gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}

		dbStatus := getDatabaseStatus(deps)
		response["database"] = dbStatus
		if dbStatus["status"] == "unhealthy" {
			status = http.StatusServiceUnavailable
			response["status"] = "unhealthy"
		}

		if deps != nil && deps.Appointments != nil {
			response["appointments"] = gin.H{"source": deps.Appointments.Name()}
		}

		c.JSON(status, response)
	}
}

// getDatabaseStatus returns the database connection status
func getDatabaseStatus(deps *types.Dependencies) gin.H {
	if deps == nil || deps.DB == nil || deps.DB.DB == nil {
		return gin.H{"status": "not configured", "connected": false}
	}

	if err := deps.DB.HealthCheck(); err != nil {
		return gin.H{"status": "unhealthy", "connected": false, "error": err.Error()}
	}

	return gin.H{"status": "healthy", "connected": true}
}
