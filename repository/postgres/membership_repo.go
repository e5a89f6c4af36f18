package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planbeam/taskboard/domain"
	"github.com/planbeam/taskboard/repository"
)

type membershipRepository struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository returns a Postgres-backed implementation of the
// workspace membership store.
func NewMembershipRepository(pool *pgxpool.Pool) repository.MembershipRepository {
	return &membershipRepository{pool: pool}
}

func (r *membershipRepository) GetMember(ctx context.Context, workspaceID, userID string) (*domain.Member, error) {
	const query = `
	SELECT workspace_id, user_id, email, role, joined_at
	FROM workspace_members
	WHERE workspace_id = $1 AND user_id = $2
	`
	var (
		member domain.Member
		role   string
	)
	if err := r.pool.QueryRow(ctx, query, workspaceID, userID).Scan(
		&member.WorkspaceID,
		&member.UserID,
		&member.Email,
		&role,
		&member.JoinedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMembershipNotFound
		}
		return nil, err
	}
	member.Role = domain.ParseRole(role)
	return &member, nil
}

func (r *membershipRepository) PutMember(ctx context.Context, member *domain.Member) error {
	if member == nil || member.WorkspaceID == "" || member.UserID == "" {
		return domain.ErrInvalidPayload
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}

	const query = `
	INSERT INTO workspace_members (workspace_id, user_id, email, role, joined_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (workspace_id, user_id) DO UPDATE SET
		email = EXCLUDED.email,
		role = EXCLUDED.role
	`
	_, err := r.pool.Exec(ctx, query,
		member.WorkspaceID,
		member.UserID,
		member.Email,
		string(member.Role),
		member.JoinedAt,
	)
	return err
}

func (r *membershipRepository) WorkspaceExists(ctx context.Context, workspaceID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM workspaces WHERE id = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, workspaceID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *membershipRepository) EnsureWorkspace(ctx context.Context, workspace *domain.Workspace) error {
	if workspace == nil || workspace.ID == "" {
		return domain.ErrInvalidPayload
	}
	const query = `
	INSERT INTO workspaces (id, name, owner_id)
	VALUES ($1, $2, $3)
	ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, workspace.ID, workspace.Name, workspace.OwnerID)
	return err
}
