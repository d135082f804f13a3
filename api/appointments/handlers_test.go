package appointments

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/scribe-api/api/internal/apitest"
	"github.com/killallgit/scribe-api/api/types"
	"github.com/killallgit/scribe-api/internal/database"
	"github.com/killallgit/scribe-api/internal/models"
	appointmentsService "github.com/killallgit/scribe-api/internal/services/appointments"
)

type readOnlyDirectory struct {
	appointmentsService.Directory
}

func (readOnlyDirectory) Save(ctx context.Context, appointment *models.Appointment) error {
	return appointmentsService.ErrReadOnly
}

func setupRouter(t *testing.T) (*gin.Engine, *appointmentsService.LocalDirectory) {
	gin.SetMode(gin.TestMode)

	db, err := database.Initialize(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	directory := appointmentsService.NewLocalDirectory(db.DB)
	deps := &types.Dependencies{DB: db, Appointments: directory}

	router := gin.New()
	group := router.Group("/appointments")
	RegisterRoutes(group, deps)
	RegisterAdminRoutes(group, deps)
	return router, directory
}

func TestPutAndGet(t *testing.T) {
	router, _ := setupRouter(t)

	w := apitest.Do(router, http.MethodPut, "/appointments/appt-1",
		`{"mentorId":"mentor-1","menteeId":"mentee-1","scheduledAt":"2025-03-04T10:00:00Z"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = apitest.Do(router, http.MethodGet, "/appointments/appt-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	appointment := apitest.DecodeJSON(w)["appointment"].(map[string]interface{})
	assert.Equal(t, "appt-1", appointment["id"])
	assert.Equal(t, "mentor-1", appointment["mentorId"])
	assert.Equal(t, "mentee-1", appointment["menteeId"])

	// Replace keeps the id
	w = apitest.Do(router, http.MethodPut, "/appointments/appt-1", `{"mentorId":"mentor-2","menteeId":"mentee-1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	w = apitest.Do(router, http.MethodGet, "/appointments/appt-1", "")
	assert.Equal(t, "mentor-2", apitest.DecodeJSON(w)["appointment"].(map[string]interface{})["mentorId"])
}

func TestGet_NotFound(t *testing.T) {
	router, _ := setupRouter(t)

	w := apitest.Do(router, http.MethodGet, "/appointments/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", apitest.ErrorCode(w))
}

func TestPut_Validation(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing mentee", `{"mentorId":"mentor-1"}`},
		{"malformed", `{"mentorId":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apitest.Do(router, http.MethodPut, "/appointments/appt-1", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "INVALID_INPUT", apitest.ErrorCode(w))
		})
	}
}

func TestPut_ReadOnlyDirectory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterAdminRoutes(router.Group("/appointments"), &types.Dependencies{Appointments: readOnlyDirectory{}})

	w := apitest.Do(router, http.MethodPut, "/appointments/appt-1", `{"mentorId":"m","menteeId":"n"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", apitest.ErrorCode(w))
}
