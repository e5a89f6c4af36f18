package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/planbeam/taskboard/board"
	"github.com/planbeam/taskboard/domain"
	"github.com/planbeam/taskboard/repository"
)

type UseCase struct {
	sessions repository.SessionRepository
	members  repository.MembershipRepository
	bus      *board.Bus
	logger   *zap.Logger
}

func New(sessions repository.SessionRepository, members repository.MembershipRepository, bus *board.Bus, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		sessions: sessions,
		members:  members,
		bus:      bus,
		logger:   logger,
	}
}

// Login opens a session for an externally authenticated user and announces
// the identity change to board subscribers.
func (uc *UseCase) Login(ctx context.Context, userID, email string, ttl time.Duration) (*domain.Session, error) {
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		Roles:     map[string]domain.Role{},
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	if uc.bus != nil {
		uc.bus.Publish(board.Event{Kind: board.EventAuthenticationChanged, UserID: userID})
	}
	uc.logger.Info("session opened", zap.String("user_id", userID))
	return session, nil
}

func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (uc *UseCase) RefreshSession(ctx context.Context, sessionID string, ttl time.Duration) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Extend(ctx, sessionID, int(ttl.Seconds())); err != nil {
		return nil, err
	}
	session.ExpiresAt = time.Now().Add(ttl)
	return session, nil
}

func (uc *UseCase) RevokeSession(ctx context.Context, sessionID string) error {
	if err := uc.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	if uc.bus != nil {
		uc.bus.Publish(board.Event{Kind: board.EventAuthenticationChanged})
	}
	return nil
}

// ResolveRole looks up the caller's role in a workspace and caches it on the
// session. Missing memberships resolve to viewer instead of failing; the
// sync coordinator handles provisioning on first write.
func (uc *UseCase) ResolveRole(ctx context.Context, sess *domain.Session, workspaceID string) (domain.Role, error) {
	if sess == nil || workspaceID == "" {
		return domain.RoleViewer, nil
	}

	member, err := uc.members.GetMember(ctx, workspaceID, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrMembershipNotFound) {
			return domain.RoleViewer, nil
		}
		uc.logger.Warn("role lookup failed",
			zap.String("workspace_id", workspaceID),
			zap.String("user_id", sess.UserID),
			zap.Error(err))
		return sess.CachedRole(workspaceID), nil
	}

	if sess.Roles == nil {
		sess.Roles = map[string]domain.Role{}
	}
	sess.Roles[workspaceID] = member.Role
	// Best effort: the cache only speeds up UI gating.
	if err := uc.sessions.Save(ctx, sess); err != nil {
		uc.logger.Warn("session role cache update failed", zap.Error(err))
	}
	return member.Role, nil
}

// CanEdit reports whether the session may mutate the workspace.
func (uc *UseCase) CanEdit(ctx context.Context, sess *domain.Session, workspaceID string) bool {
	role, err := uc.ResolveRole(ctx, sess, workspaceID)
	if err != nil {
		return false
	}
	return role.CanEdit()
}
