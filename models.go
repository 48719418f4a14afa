package access

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is a backend role name. Roles are free-form strings owned by the
// backend catalog; only the ones this package special-cases are named here.
type UserRole = string

const (
	// RoleViewer is the restricted default role assigned on sign-up, locked
	// to the request-access landing page until elevated.
	RoleViewer UserRole = "Viewer"
	// RoleAdmin is the elevated administrative role.
	RoleAdmin UserRole = "Admin"
)

// Profile is the backend-resolved authorization record for the signed-in
// identity, as returned by GET /auth/me. Profiles are replaced wholesale on
// every refresh and treated as read-only snapshots afterwards.
type Profile struct {
	ID           uuid.UUID  `json:"id"`
	SubjectID    string     `json:"firebaseUid,omitempty"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"displayName,omitempty"`
	IsActive     bool       `json:"isActive"`
	Roles        []string   `json:"roles"`
	Permissions  []string   `json:"permissions"`
	IsSuperAdmin bool       `json:"isSuperAdmin"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// HasRole reports whether the profile holds the given role name.
func (p *Profile) HasRole(role string) bool {
	return HasRole(p, role)
}

// Can reports whether the profile grants the given permission key.
func (p *Profile) Can(permission string) bool {
	return HasPermission(p, permission)
}
