package sync

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/planbeam/taskboard/board"
	"github.com/planbeam/taskboard/domain"
	"github.com/planbeam/taskboard/repository"
)

// Coordinator moves board state between the in-memory store and the remote
// record repository. Single writes are fire-and-forget from the board's point
// of view: authorization failures are suppressed so an expired session never
// interrupts local editing. Reconcile is the explicit push and does report
// authorization errors.
type Coordinator struct {
	records   repository.RecordRepository
	members   repository.MembershipRepository
	store     *board.Store
	batchSize int
	logger    *zap.Logger
}

// ReconcileResult summarizes an explicit push to the remote store.
type ReconcileResult struct {
	Upserted int `json:"upserted"`
	Deleted  int `json:"deleted"`
}

func New(records repository.RecordRepository, members repository.MembershipRepository, store *board.Store, batchSize int, logger *zap.Logger) *Coordinator {
	if batchSize <= 0 || batchSize > repository.MaxBatchOps {
		batchSize = repository.MaxBatchOps
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		records:   records,
		members:   members,
		store:     store,
		batchSize: batchSize,
		logger:    logger,
	}
}

// LoadWorkspace replaces the board with the workspace's remote records.
// Malformed records are skipped with a warning so one bad document cannot
// block the whole workspace. A gateway failure clears the board rather than
// leaving another workspace's tasks visible.
func (c *Coordinator) LoadWorkspace(ctx context.Context, sess *domain.Session, workspaceID string) error {
	if workspaceID == "" {
		return domain.ErrWorkspaceRequired
	}
	if sess != nil {
		if _, err := c.authorize(ctx, sess, workspaceID); err != nil {
			c.logger.Warn("workspace membership check failed",
				zap.String("workspace_id", workspaceID),
				zap.String("user_id", sess.UserID),
				zap.Error(err))
		}
	}

	docs, err := c.records.ListRecords(ctx, workspaceID)
	if err != nil {
		c.store.LoadAll(nil)
		return domain.WrapError(domain.ErrCodeInternal, "load workspace records", err)
	}

	tasks := make([]domain.Task, 0, len(docs))
	for _, doc := range docs {
		task, err := taskFromDocument(doc)
		if err != nil {
			c.logger.Warn("skipping malformed record",
				zap.String("workspace_id", workspaceID),
				zap.Error(err))
			continue
		}
		tasks = append(tasks, *task)
	}

	c.store.LoadAll(tasks)
	c.logger.Info("workspace loaded",
		zap.String("workspace_id", workspaceID),
		zap.Int("tasks", len(tasks)))
	return nil
}

// SaveOne pushes a single task to the remote store. Writes are merge-mode so
// remote fields unknown to this client survive. No-ops without a session or
// edit rights.
func (c *Coordinator) SaveOne(ctx context.Context, sess *domain.Session, workspaceID string, task *domain.Task) error {
	if sess == nil {
		return nil
	}
	if workspaceID == "" {
		return domain.ErrWorkspaceRequired
	}
	role, err := c.authorize(ctx, sess, workspaceID)
	if err != nil {
		return err
	}
	if !role.CanEdit() {
		return nil
	}

	doc, err := documentFromTask(task)
	if err != nil {
		return err
	}
	if err := c.records.PutRecord(ctx, workspaceID, task.ID, doc, true); err != nil {
		c.logger.Error("task save failed",
			zap.String("workspace_id", workspaceID),
			zap.String("task_id", task.ID),
			zap.String("user_id", sess.UserID),
			zap.Error(err))
		return domain.WrapError(domain.ErrCodeInternal, "save task record", err)
	}
	return nil
}

// DeleteOne removes a single task record. Deleting an absent record is fine.
func (c *Coordinator) DeleteOne(ctx context.Context, sess *domain.Session, workspaceID, taskID string) error {
	if sess == nil {
		return nil
	}
	if workspaceID == "" {
		return domain.ErrWorkspaceRequired
	}
	role, err := c.authorize(ctx, sess, workspaceID)
	if err != nil {
		return err
	}
	if !role.CanEdit() {
		return nil
	}

	if err := c.records.DeleteRecord(ctx, workspaceID, taskID); err != nil {
		c.logger.Error("task delete failed",
			zap.String("workspace_id", workspaceID),
			zap.String("task_id", taskID),
			zap.String("user_id", sess.UserID),
			zap.Error(err))
		return domain.WrapError(domain.ErrCodeInternal, "delete task record", err)
	}
	return nil
}

// SaveAllBulk pushes every given task in merge mode, chunked to the remote
// batch ceiling. Used after bulk local mutations such as imports or undo.
func (c *Coordinator) SaveAllBulk(ctx context.Context, sess *domain.Session, workspaceID string, tasks []domain.Task) error {
	if sess == nil {
		return nil
	}
	if workspaceID == "" {
		return domain.ErrWorkspaceRequired
	}
	role, err := c.authorize(ctx, sess, workspaceID)
	if err != nil {
		return err
	}
	if !role.CanEdit() {
		return nil
	}

	ops := make([]repository.BatchOp, 0, len(tasks))
	for i := range tasks {
		doc, err := documentFromTask(&tasks[i])
		if err != nil {
			return err
		}
		ops = append(ops, repository.BatchOp{
			Type:   repository.BatchPut,
			TaskID: tasks[i].ID,
			Fields: doc,
			Merge:  true,
		})
	}
	return c.commitChunked(ctx, workspaceID, ops)
}

// Reconcile makes the remote workspace match the board exactly: records with
// no local counterpart are deleted, every local task is written with its
// fields merged onto the current remote document. The local board is
// authoritative for every field it owns.
func (c *Coordinator) Reconcile(ctx context.Context, sess *domain.Session, workspaceID string) (ReconcileResult, error) {
	var result ReconcileResult
	if sess == nil {
		return result, nil
	}
	if workspaceID == "" {
		return result, domain.ErrWorkspaceRequired
	}
	role, err := c.authorize(ctx, sess, workspaceID)
	if err != nil {
		return result, err
	}
	if !role.CanEdit() {
		return result, domain.ErrReadOnly
	}

	remoteDocs, err := c.records.ListRecords(ctx, workspaceID)
	if err != nil {
		return result, domain.WrapError(domain.ErrCodeInternal, "list remote records", err)
	}

	remote := make(map[string]repository.Document, len(remoteDocs))
	for _, doc := range remoteDocs {
		if id, ok := doc["id"].(string); ok && id != "" {
			remote[id] = doc
		}
	}

	tasks := c.store.Tasks()
	local := make(map[string]struct{}, len(tasks))
	ops := make([]repository.BatchOp, 0, len(tasks)+len(remote))

	for i := range tasks {
		local[tasks[i].ID] = struct{}{}
	}
	for id := range remote {
		if _, ok := local[id]; !ok {
			ops = append(ops, repository.BatchOp{Type: repository.BatchDelete, TaskID: id})
			result.Deleted++
		}
	}
	for i := range tasks {
		doc, err := documentFromTask(&tasks[i])
		if err != nil {
			return ReconcileResult{}, err
		}
		ops = append(ops, repository.BatchOp{
			Type:   repository.BatchPut,
			TaskID: tasks[i].ID,
			Fields: mergeDocuments(remote[tasks[i].ID], doc),
		})
		result.Upserted++
	}

	if err := c.commitChunked(ctx, workspaceID, ops); err != nil {
		return ReconcileResult{}, err
	}

	c.logger.Info("workspace reconciled",
		zap.String("workspace_id", workspaceID),
		zap.String("user_id", sess.UserID),
		zap.Int("upserted", result.Upserted),
		zap.Int("deleted", result.Deleted))
	return result, nil
}

// authorize resolves the caller's role in the workspace, provisioning a
// membership on first contact: owner when the workspace record does not exist
// yet, viewer otherwise.
func (c *Coordinator) authorize(ctx context.Context, sess *domain.Session, workspaceID string) (domain.Role, error) {
	member, err := c.members.GetMember(ctx, workspaceID, sess.UserID)
	if err == nil {
		return member.Role, nil
	}
	if !errors.Is(err, domain.ErrMembershipNotFound) {
		return domain.RoleViewer, domain.WrapError(domain.ErrCodeInternal, "resolve membership", err)
	}

	exists, err := c.members.WorkspaceExists(ctx, workspaceID)
	if err != nil {
		return domain.RoleViewer, domain.WrapError(domain.ErrCodeInternal, "check workspace", err)
	}

	role := domain.RoleViewer
	if !exists {
		role = domain.RoleOwner
		if err := c.members.EnsureWorkspace(ctx, &domain.Workspace{ID: workspaceID, OwnerID: sess.UserID}); err != nil {
			return domain.RoleViewer, domain.WrapError(domain.ErrCodeInternal, "create workspace", err)
		}
	}

	if err := c.members.PutMember(ctx, &domain.Member{
		WorkspaceID: workspaceID,
		UserID:      sess.UserID,
		Email:       sess.Email,
		Role:        role,
	}); err != nil {
		return domain.RoleViewer, domain.WrapError(domain.ErrCodeInternal, "provision membership", err)
	}

	// One retry covers the race where another request provisioned first.
	member, err = c.members.GetMember(ctx, workspaceID, sess.UserID)
	if err != nil {
		return domain.RoleViewer, domain.WrapError(domain.ErrCodeInternal, "reload membership", err)
	}
	return member.Role, nil
}

func (c *Coordinator) commitChunked(ctx context.Context, workspaceID string, ops []repository.BatchOp) error {
	for start := 0; start < len(ops); start += c.batchSize {
		end := start + c.batchSize
		if end > len(ops) {
			end = len(ops)
		}
		if err := c.records.CommitBatch(ctx, workspaceID, ops[start:end]); err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "commit record batch", err)
		}
	}
	return nil
}
