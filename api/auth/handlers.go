package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/scribe-api/api/types"
	"github.com/killallgit/scribe-api/internal/services/auth"
	apperrors "github.com/killallgit/scribe-api/pkg/errors"
)

// Context keys set by the auth middleware
const (
	ClaimsKey      = "claims"
	ClinicianIDKey = "clinician_id"
)

// TokenValidator validates bearer tokens. *auth.Service implements it.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Handler manages auth endpoints and middleware
type Handler struct {
	validator TokenValidator
}

// NewHandler creates a new auth handler
func NewHandler(validator TokenValidator) *Handler {
	return &Handler{validator: validator}
}

// Me returns the signed-in clinician
// @Summary Get current clinician
// @Description Clinician id, email and permissions from the bearer token
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} auth.ClinicianInfo
// @Failure 401 {object} types.ErrorResponse
// @Router /api/v1/me [get]
func (h *Handler) Me(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		unauthorized(c, "Unauthorized")
		return
	}
	c.JSON(http.StatusOK, auth.GetClinicianInfo(claims))
}

// ClaimsFrom returns the claims stored by the middleware
func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}

// AuthMiddleware requires a valid bearer token
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := h.validator.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				forbidden(c, "Access denied - insufficient permissions", nil)
			} else {
				unauthorized(c, "Invalid or expired token")
			}
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(ClinicianIDKey, claims.Sub)
		c.Next()
	}
}

// RequirePermission allows the request when the clinician holds any of
// permissions
func (h *Handler) RequirePermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			unauthorized(c, "Authentication required")
			return
		}

		if !claims.HasAnyPermission(permissions...) {
			forbidden(c, "Insufficient permissions", map[string]interface{}{
				"required_permissions": permissions,
			})
			return
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{
		Status:  types.StatusError,
		Message: message,
		Error:   string(apperrors.ErrCodeUnauthorized),
	})
}

func forbidden(c *gin.Context, message string, details map[string]interface{}) {
	response := types.ErrorResponse{
		Status:  types.StatusError,
		Message: message,
		Error:   string(apperrors.ErrCodeForbidden),
	}
	if details != nil {
		response.Details = details
	}
	c.AbortWithStatusJSON(http.StatusForbidden, response)
}
