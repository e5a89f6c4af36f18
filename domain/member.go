package domain

import (
	"strings"
	"time"
)

// Role is a workspace membership permission level.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RolePlanner Role = "planner"
	RoleViewer  Role = "viewer"
)

// ParseRole normalizes a stored role string. Unknown or empty values fall
// back to viewer, the read-only default.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleOwner:
		return RoleOwner
	case RoleAdmin:
		return RoleAdmin
	case RolePlanner:
		return RolePlanner
	default:
		return RoleViewer
	}
}

// CanEdit reports whether the role belongs to the editor class.
func (r Role) CanEdit() bool {
	switch r {
	case RoleOwner, RoleAdmin, RolePlanner:
		return true
	}
	return false
}

// Member is a user's membership record within a workspace.
type Member struct {
	WorkspaceID string    `json:"workspace_id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Workspace is the tenant boundary scoping task records and memberships.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}
