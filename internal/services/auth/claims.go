package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Clinician permissions carried in app_metadata.permissions
const (
	PermissionRecord = "scribe:record"
	PermissionNotes  = "scribe:notes"
	PermissionAdmin  = "scribe:admin"
)

// AllPermissions lists every permission the API recognises
var AllPermissions = []string{PermissionRecord, PermissionNotes, PermissionAdmin}

// Claims are the JWT claims of a signed-in clinician
type Claims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Role  string `json:"role"`

	AppMetadata AppMetadata `json:"app_metadata"`

	jwt.RegisteredClaims
}

// AppMetadata is provisioned per clinician by an administrator
type AppMetadata struct {
	Permissions []string `json:"permissions"`
	Role        string   `json:"role"`
	ClinicID    string   `json:"clinic_id,omitempty"`
}

// HasPermission reports whether the clinician holds permission. Admins hold
// every permission.
func (c *Claims) HasPermission(permission string) bool {
	if slices.Contains(c.AppMetadata.Permissions, PermissionAdmin) {
		return true
	}
	return slices.Contains(c.AppMetadata.Permissions, permission)
}

// HasAnyPermission reports whether the clinician holds one of permissions
func (c *Claims) HasAnyPermission(permissions ...string) bool {
	for _, permission := range permissions {
		if c.HasPermission(permission) {
			return true
		}
	}
	return false
}

// ClinicianInfo is the public view of a signed-in clinician
type ClinicianInfo struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Permissions []string `json:"permissions"`
	Role        string   `json:"role"`
	ClinicID    string   `json:"clinic_id,omitempty"`
}

// GetClinicianInfo extracts the public view from claims
func GetClinicianInfo(claims *Claims) *ClinicianInfo {
	return &ClinicianInfo{
		ID:          claims.Sub,
		Email:       claims.Email,
		Permissions: claims.AppMetadata.Permissions,
		Role:        claims.AppMetadata.Role,
		ClinicID:    claims.AppMetadata.ClinicID,
	}
}
