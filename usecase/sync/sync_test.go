package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/planbeam/taskboard/board"
	"github.com/planbeam/taskboard/domain"
	"github.com/planbeam/taskboard/repository"
)

type fakeRecordRepo struct {
	docs     map[string]repository.Document
	listErr  error
	batches  [][]repository.BatchOp
	puts     int
	deletes  int
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{docs: map[string]repository.Document{}}
}

func (f *fakeRecordRepo) GetRecord(_ context.Context, _, taskID string) (repository.Document, error) {
	doc, ok := f.docs[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return doc, nil
}

func (f *fakeRecordRepo) ListRecords(_ context.Context, _ string) ([]repository.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]repository.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (f *fakeRecordRepo) PutRecord(_ context.Context, _, taskID string, fields repository.Document, merge bool) error {
	f.puts++
	if merge {
		if existing, ok := f.docs[taskID]; ok {
			merged := repository.Document{}
			for k, v := range existing {
				merged[k] = v
			}
			for k, v := range fields {
				merged[k] = v
			}
			f.docs[taskID] = merged
			return nil
		}
	}
	f.docs[taskID] = fields
	return nil
}

func (f *fakeRecordRepo) DeleteRecord(_ context.Context, _, taskID string) error {
	f.deletes++
	delete(f.docs, taskID)
	return nil
}

func (f *fakeRecordRepo) CommitBatch(_ context.Context, _ string, ops []repository.BatchOp) error {
	if len(ops) > repository.MaxBatchOps {
		return domain.ErrBatchTooLarge
	}
	f.batches = append(f.batches, ops)
	for _, op := range ops {
		switch op.Type {
		case repository.BatchPut:
			if op.Merge {
				if existing, ok := f.docs[op.TaskID]; ok {
					merged := repository.Document{}
					for k, v := range existing {
						merged[k] = v
					}
					for k, v := range op.Fields {
						merged[k] = v
					}
					f.docs[op.TaskID] = merged
					continue
				}
			}
			f.docs[op.TaskID] = op.Fields
		case repository.BatchDelete:
			delete(f.docs, op.TaskID)
		}
	}
	return nil
}

type fakeMembershipRepo struct {
	members    map[string]*domain.Member
	workspaces map[string]bool
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{
		members:    map[string]*domain.Member{},
		workspaces: map[string]bool{},
	}
}

func (f *fakeMembershipRepo) key(ws, user string) string { return ws + "/" + user }

func (f *fakeMembershipRepo) GetMember(_ context.Context, ws, user string) (*domain.Member, error) {
	m, ok := f.members[f.key(ws, user)]
	if !ok {
		return nil, domain.ErrMembershipNotFound
	}
	return m, nil
}

func (f *fakeMembershipRepo) PutMember(_ context.Context, m *domain.Member) error {
	f.members[f.key(m.WorkspaceID, m.UserID)] = m
	return nil
}

func (f *fakeMembershipRepo) WorkspaceExists(_ context.Context, ws string) (bool, error) {
	return f.workspaces[ws], nil
}

func (f *fakeMembershipRepo) EnsureWorkspace(_ context.Context, w *domain.Workspace) error {
	f.workspaces[w.ID] = true
	return nil
}

func (f *fakeMembershipRepo) grant(ws, user string, role domain.Role) {
	f.workspaces[ws] = true
	f.members[f.key(ws, user)] = &domain.Member{WorkspaceID: ws, UserID: user, Role: role}
}

func session(userID string) *domain.Session {
	return &domain.Session{
		ID:        "sess-" + userID,
		UserID:    userID,
		Email:     userID + "@example.com",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func dueDate(s string) domain.Date {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func boardTask(id string, priority int) domain.Task {
	return domain.Task{
		ID:       id,
		Name:     "task " + id,
		Priority: priority,
		Activities: []domain.Activity{
			{ID: id + "-a", Name: "step", Status: domain.StatusPending, DueDate: dueDate("2099-01-01")},
		},
	}
}

func newCoordinator(records *fakeRecordRepo, members *fakeMembershipRepo, batchSize int) (*Coordinator, *board.Store) {
	store := board.NewStore(board.NewBus(), zap.NewNop())
	return New(records, members, store, batchSize, zap.NewNop()), store
}

func TestSaveOneWithoutSessionIsSilent(t *testing.T) {
	records := newFakeRecordRepo()
	coord, _ := newCoordinator(records, newFakeMembershipRepo(), 0)

	task := boardTask("t1", 1)
	require.NoError(t, coord.SaveOne(context.Background(), nil, "ws1", &task))
	assert.Zero(t, records.puts)
}

func TestSaveOneWithoutWorkspace(t *testing.T) {
	coord, _ := newCoordinator(newFakeRecordRepo(), newFakeMembershipRepo(), 0)

	task := boardTask("t1", 1)
	err := coord.SaveOne(context.Background(), session("u1"), "", &task)
	assert.ErrorIs(t, err, domain.ErrWorkspaceRequired)
}

func TestSaveOneViewerIsSuppressed(t *testing.T) {
	records := newFakeRecordRepo()
	members := newFakeMembershipRepo()
	members.grant("ws1", "u1", domain.RoleViewer)
	coord, _ := newCoordinator(records, members, 0)

	task := boardTask("t1", 1)
	require.NoError(t, coord.SaveOne(context.Background(), session("u1"), "ws1", &task))
	assert.Zero(t, records.puts)
}

func TestSaveOneEditorWrites(t *testing.T) {
	records := newFakeRecordRepo()
	members := newFakeMembershipRepo()
	members.grant("ws1", "u1", domain.RolePlanner)
	coord, _ := newCoordinator(records, members, 0)

	task := boardTask("t1", 3)
	require.NoError(t, coord.SaveOne(context.Background(), session("u1"), "ws1", &task))

	doc, ok := records.docs["t1"]
	require.True(t, ok)
	assert.Equal(t, "task t1", doc["name"])
	assert.Equal(t, float64(3), doc["priority"])
}

func TestAuthorizeProvisionsOwnerForNewWorkspace(t *testing.T) {
	records := newFakeRecordRepo()
	members := newFakeMembershipRepo()
	coord, _ := newCoordinator(records, members, 0)

	task := boardTask("t1", 1)
	require.NoError(t, coord.SaveOne(context.Background(), session("u1"), "fresh", &task))

	assert.True(t, members.workspaces["fresh"])
	m, err := members.GetMember(context.Background(), "fresh", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, m.Role)
	// Owner can edit, so the write went through.
	assert.Equal(t, 1, records.puts)
}

func TestAuthorizeProvisionsViewerForExistingWorkspace(t *testing.T) {
	records := newFakeRecordRepo()
	members := newFakeMembershipRepo()
	members.grant("ws1", "someone-else", domain.RoleOwner)
	coord, _ := newCoordinator(records, members, 0)

	task := boardTask("t1", 1)
	require.NoError(t, coord.SaveOne(context.Background(), session("u1"), "ws1", &task))

	m, err := members.GetMember(context.Background(), "ws1", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, m.Role)
	// Viewer writes are suppressed.
	assert.Zero(t, records.puts)
}

func TestSaveAllBulkChunksBatches(t *testing.T) {
	records := newFakeRecordRepo()
	members := newFakeMembershipRepo()
	members.grant("ws1", "u1", domain.RoleAdmin)
	coord, _ := newCoordinator(records, members, 2)

	tasks := []domain.Task{
		boardTask("t1", 1), boardTask("t2", 2), boardTask("t3", 3),
		boardTask("t4", 4), boardTask("t5", 5),
	}
	require.NoError(t, coord.SaveAllBulk(context.Background(), session("u1"), "ws1", tasks))

	require.Len(t, records.batches, 3)
	assert.Len(t, records.batches[0], 2)
	assert.Len(t, records.batches[1], 2)
	assert.Len(t, records.batches[2], 1)
	assert.Len(t, records.docs, 5)
}

func TestSaveAllBulkChunksAtBatchCeiling(t *testing.T) {
	records := newFakeRecordRepo()
	members := newFakeMembershipRepo()
	members.grant("ws1", "u1", domain.RoleAdmin)
	coord, _ := newCoordinator(records, members, 0)

	tasks := make([]domain.Task, 1000)
	for i := range tasks {
		tasks[i] = boardTask(fmt.Sprintf("t%04d", i), i+1)
	}
	require.NoError(t, coord.SaveAllBulk(context.Background(), session("u1"), "ws1", tasks))

	require.Len(t, records.batches, 3)
	assert.Len(t, records.batches[0], repository.MaxBatchOps)
	assert.Len(t, records.batches[1], repository.MaxBatchOps)
	assert.Len(t, records.batches[2], 100)
	assert.Len(t, records.docs, 1000)
}

func TestSaveAllBulkPreservesRemoteOnlyFields(t *testing.T) {
	records := newFakeRecordRepo()
	records.docs["t1"] = repository.Document{
		"id":          "t1",
		"name":        "stale name",
		"client_note": "written by another app",
	}
	members := newFakeMembershipRepo()
	members.grant("ws1", "u1", domain.RoleOwner)
	coord, _ := newCoordinator(records, members, 0)

	tasks := []domain.Task{boardTask("t1", 1)}
	require.NoError(t, coord.SaveAllBulk(context.Background(), session("u1"), "ws1", tasks))

	doc := records.docs["t1"]
	assert.Equal(t, "task t1", doc["name"])
	assert.Equal(t, "written by another app", doc["client_note"])
}

func TestReconcileDeletesRemoteOnly(t *testing.T) {
	records := newFakeRecordRepo()
	records.docs["ghost"] = repository.Document{"id": "ghost", "name": "gone locally"}
	members := newFakeMembershipRepo()
	members.grant("ws1", "u1", domain.RoleOwner)
	coord, store := newCoordinator(records, members, 0)

	store.LoadAll([]domain.Task{boardTask("t1", 1)})

	result, err := coord.Reconcile(context.Background(), session("u1"), "ws1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.Upserted)

	_, ok := records.docs["ghost"]
	assert.False(t, ok)
	_, ok = records.docs["t1"]
	assert.True(t, ok)
}

func TestReconcilePreservesRemoteOnlyFields(t *testing.T) {
	records := newFakeRecordRepo()
	records.docs["t1"] = repository.Document{
		"id":          "t1",
		"name":        "stale name",
		"client_note": "written by another app",
	}
	members := newFakeMembershipRepo()
	members.grant("ws1", "u1", domain.RoleOwner)
	coord, store := newCoordinator(records, members, 0)

	store.LoadAll([]domain.Task{boardTask("t1", 1)})

	_, err := coord.Reconcile(context.Background(), session("u1"), "ws1")
	require.NoError(t, err)

	doc := records.docs["t1"]
	// Local fields win, unknown remote fields survive.
	assert.Equal(t, "task t1", doc["name"])
	assert.Equal(t, "written by another app", doc["client_note"])
}

func TestReconcileViewerGetsReadOnlyError(t *testing.T) {
	members := newFakeMembershipRepo()
	members.grant("ws1", "u1", domain.RoleViewer)
	coord, _ := newCoordinator(newFakeRecordRepo(), members, 0)

	_, err := coord.Reconcile(context.Background(), session("u1"), "ws1")
	assert.ErrorIs(t, err, domain.ErrReadOnly)
}

func TestReconcileWithoutSessionIsSilent(t *testing.T) {
	records := newFakeRecordRepo()
	records.docs["t1"] = repository.Document{"id": "t1"}
	coord, _ := newCoordinator(records, newFakeMembershipRepo(), 0)

	result, err := coord.Reconcile(context.Background(), nil, "ws1")
	require.NoError(t, err)
	assert.Zero(t, result.Deleted)
	assert.Zero(t, result.Upserted)
	assert.Contains(t, records.docs, "t1")
}

func TestLoadWorkspaceSkipsMalformedRecords(t *testing.T) {
	records := newFakeRecordRepo()
	records.docs["t1"] = mustDocument(boardTask("t1", 1))
	records.docs["junk"] = repository.Document{"name": "no id at all"}
	coord, store := newCoordinator(records, newFakeMembershipRepo(), 0)

	require.NoError(t, coord.LoadWorkspace(context.Background(), nil, "ws1"))
	assert.Equal(t, 1, store.Len())
	_, err := store.Get("t1")
	assert.NoError(t, err)
}

func TestLoadWorkspaceFailureClearsBoard(t *testing.T) {
	records := newFakeRecordRepo()
	coord, store := newCoordinator(records, newFakeMembershipRepo(), 0)
	store.LoadAll([]domain.Task{boardTask("old", 1)})

	records.listErr = errors.New("gateway down")
	err := coord.LoadWorkspace(context.Background(), nil, "ws1")
	require.Error(t, err)
	assert.Zero(t, store.Len())
}

func TestLoadWorkspaceRequiresWorkspaceID(t *testing.T) {
	coord, _ := newCoordinator(newFakeRecordRepo(), newFakeMembershipRepo(), 0)
	err := coord.LoadWorkspace(context.Background(), session("u1"), "")
	assert.ErrorIs(t, err, domain.ErrWorkspaceRequired)
}

func mustDocument(task domain.Task) repository.Document {
	doc, err := documentFromTask(&task)
	if err != nil {
		panic(err)
	}
	return doc
}
