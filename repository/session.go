package repository

import (
	"context"

	"github.com/planbeam/taskboard/domain"
)

// SessionRepository stores login sessions with their cached workspace roles.
// Sessions expire with the store's TTL; Extend pushes the TTL out on refresh
// without rewriting the session body. Get returns ErrSessionNotFound for
// unknown or lapsed ids.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	Extend(ctx context.Context, id string, ttlSeconds int) error
}
