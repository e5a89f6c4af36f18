package domain

import "time"

// Session represents a cached authentication session stored in Redis.
// Roles caches the most recently resolved role per workspace for UI gating;
// write paths always re-check the membership record.
type Session struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Email     string          `json:"email,omitempty"`
	Roles     map[string]Role `json:"roles,omitempty"`
	ExpiresAt time.Time       `json:"expires_at"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

// CachedRole returns the last resolved role for a workspace, viewer when none
// was cached yet.
func (s *Session) CachedRole(workspaceID string) Role {
	if s == nil || s.Roles == nil {
		return RoleViewer
	}
	if role, ok := s.Roles[workspaceID]; ok {
		return role
	}
	return RoleViewer
}
