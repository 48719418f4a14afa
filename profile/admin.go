package profile

import (
	"context"
	"fmt"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

// AdminUser is a user list item from the admin surface.
type AdminUser struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	Roles       []Role    `json:"roles"`
}

// Role is a backend role with its permission set.
type Role struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions"`
	UserCount   int          `json:"userCount"`
}

// Permission is one entry of the backend permission catalog.
type Permission struct {
	ID          uuid.UUID `json:"id"`
	Key         string    `json:"key"`
	Description string    `json:"description,omitempty"`
	Group       string    `json:"group,omitempty"`
}

// AccessRequest is a pending or reviewed request for elevated access.
type AccessRequest struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"userId"`
	UserEmail       string     `json:"userEmail"`
	UserDisplayName string     `json:"userDisplayName,omitempty"`
	Message         string     `json:"message,omitempty"`
	Status          string     `json:"status"`
	ReviewedBy      string     `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	ReviewNotes     string     `json:"reviewNotes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// CreateUserRequest is the payload for creating a backend user.
type CreateUserRequest struct {
	Email       string      `json:"email"`
	DisplayName string      `json:"displayName,omitempty"`
	RoleIDs     []uuid.UUID `json:"roleIds"`
}

// Validate implements the validation contract for the payload.
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.DisplayName, validation.Length(0, 200)),
	)
}

// CreateRoleRequest is the payload for creating a role.
type CreateRoleRequest struct {
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	PermissionIDs []uuid.UUID `json:"permissionIds"`
}

// Validate implements the validation contract for the payload.
func (r CreateRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 500)),
	)
}

// PermissionRequest is the payload for creating or updating a permission.
type PermissionRequest struct {
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
	Group       string `json:"group,omitempty"`
}

// Validate implements the validation contract for the payload.
func (r PermissionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Key, validation.Required, validation.Length(1, 100)),
	)
}

// ListUsers returns all backend users with their roles.
func (c *Client) ListUsers(ctx context.Context) ([]AdminUser, error) {
	var users []AdminUser
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns one backend user.
func (c *Client) GetUser(ctx context.Context, id uuid.UUID) (*AdminUser, error) {
	var user AdminUser
	if err := c.do(ctx, http.MethodGet, "/admin/users/"+id.String(), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a backend user record ahead of its first sign-in.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*AdminUser, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var user AdminUser
	if err := c.do(ctx, http.MethodPost, "/admin/users", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// AssignRoles replaces the user's role set.
func (c *Client) AssignRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	payload := map[string][]uuid.UUID{"roleIds": roleIDs}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/users/%s/roles", userID), payload, nil)
}

// ToggleActive enables or disables a user account.
func (c *Client) ToggleActive(ctx context.Context, userID uuid.UUID, active bool) error {
	payload := map[string]bool{"isActive": active}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/users/%s/active", userID), payload, nil)
}

// ListRoles returns the role catalog.
func (c *Client) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	if err := c.do(ctx, http.MethodGet, "/admin/roles", nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRole returns one role with its permissions.
func (c *Client) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	var role Role
	if err := c.do(ctx, http.MethodGet, "/admin/roles/"+id.String(), nil, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// CreateRole creates a role.
func (c *Client) CreateRole(ctx context.Context, req CreateRoleRequest) (*Role, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var role Role
	if err := c.do(ctx, http.MethodPost, "/admin/roles", req, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// UpdateRolePermissions replaces a role's permission set.
func (c *Client) UpdateRolePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	payload := map[string][]uuid.UUID{"permissionIds": permissionIDs}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/roles/%s/permissions", roleID), payload, nil)
}

// ListPermissions returns the permission catalog.
func (c *Client) ListPermissions(ctx context.Context) ([]Permission, error) {
	var permissions []Permission
	if err := c.do(ctx, http.MethodGet, "/admin/permissions", nil, &permissions); err != nil {
		return nil, err
	}
	return permissions, nil
}

// PermissionKeys returns the catalog as a set, used to validate free-form
// permission strings at runtime against the backend's known keys.
func (c *Client) PermissionKeys(ctx context.Context) (map[string]struct{}, error) {
	permissions, err := c.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		keys[p.Key] = struct{}{}
	}
	return keys, nil
}

// CreatePermission adds a catalog entry.
func (c *Client) CreatePermission(ctx context.Context, req PermissionRequest) (*Permission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var permission Permission
	if err := c.do(ctx, http.MethodPost, "/admin/permissions", req, &permission); err != nil {
		return nil, err
	}
	return &permission, nil
}

// UpdatePermission updates a catalog entry.
func (c *Client) UpdatePermission(ctx context.Context, id uuid.UUID, req PermissionRequest) (*Permission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var permission Permission
	if err := c.do(ctx, http.MethodPut, "/admin/permissions/"+id.String(), req, &permission); err != nil {
		return nil, err
	}
	return &permission, nil
}

// DeletePermission removes a catalog entry.
func (c *Client) DeletePermission(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/admin/permissions/"+id.String(), nil, nil)
}

// ListAccessRequests returns submitted access requests.
func (c *Client) ListAccessRequests(ctx context.Context) ([]AccessRequest, error) {
	var requests []AccessRequest
	if err := c.do(ctx, http.MethodGet, "/admin/access-requests", nil, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// ReviewAccessRequest approves or rejects an access request.
func (c *Client) ReviewAccessRequest(ctx context.Context, id uuid.UUID, status, notes string) error {
	payload := map[string]string{"status": status}
	if notes != "" {
		payload["notes"] = notes
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/access-requests/%s/review", id), payload, nil)
}
