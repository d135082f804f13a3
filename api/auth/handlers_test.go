package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/scribe-api/api/types"
	authService "github.com/killallgit/scribe-api/internal/services/auth"
)

type stubValidator struct {
	claims map[string]*authService.Claims
	errs   map[string]error
}

func (s *stubValidator) ValidateToken(token string) (*authService.Claims, error) {
	if err, ok := s.errs[token]; ok {
		return nil, err
	}
	if claims, ok := s.claims[token]; ok {
		return claims, nil
	}
	return nil, authService.ErrInvalidToken
}

func newTestRouter(t *testing.T) (*gin.Engine, *Handler) {
	gin.SetMode(gin.TestMode)

	validator := &stubValidator{
		claims: map[string]*authService.Claims{
			"recorder": {Sub: "clinician-1", Email: "a@example.com", AppMetadata: authService.AppMetadata{
				Permissions: []string{authService.PermissionRecord}, Role: "clinician",
			}},
			"admin": {Sub: "clinician-2", Email: "b@example.com", AppMetadata: authService.AppMetadata{
				Permissions: []string{authService.PermissionAdmin}, Role: "admin",
			}},
		},
		errs: map[string]error{
			"no-perms": authService.ErrUnauthorized,
			"expired":  authService.ErrTokenExpired,
		},
	}
	h := NewHandler(validator)

	router := gin.New()
	group := router.Group("/api/v1", h.AuthMiddleware())
	RegisterRoutes(group, h)
	group.GET("/notes", h.RequirePermission(authService.PermissionNotes), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"clinician": c.GetString(ClinicianIDKey)})
	})
	return router, h
}

func do(router *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantMessage   string
	}{
		{"missing header", "", http.StatusUnauthorized, "Authorization header required"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Invalid authorization header format"},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, "Invalid or expired token"},
		{"expired token", "Bearer expired", http.StatusUnauthorized, "Invalid or expired token"},
		{"no scribe permissions", "Bearer no-perms", http.StatusForbidden, "Access denied - insufficient permissions"},
		{"valid token", "Bearer recorder", http.StatusOK, ""},
		{"lowercase scheme", "bearer recorder", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, "/api/v1/me", tt.authorization)
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantMessage != "" {
				var body types.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.wantMessage, body.Message)
			}
		})
	}
}

func TestMe(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(router, "/api/v1/me", "Bearer recorder")
	require.Equal(t, http.StatusOK, w.Code)

	var info authService.ClinicianInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "clinician-1", info.ID)
	assert.Equal(t, []string{authService.PermissionRecord}, info.Permissions)
}

func TestMe_WithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/me", nil)

	(&Handler{}).Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermission(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(router, "/api/v1/notes", "Bearer recorder")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, "/api/v1/notes", "Bearer admin")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "clinician-2")
}
