package imports

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/planbeam/taskboard/board"
	"github.com/planbeam/taskboard/domain"
	"github.com/planbeam/taskboard/internal/infrastructure/snapshot"
)

func newTestUseCase(t *testing.T) (*UseCase, *board.Store, *board.History) {
	t.Helper()
	store := board.NewStore(board.NewBus(), zap.NewNop())

	log, err := snapshot.Open(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	history := board.NewHistory("test", log, store, 10, zap.NewNop())

	return New(store, history, zap.NewNop()), store, history
}

func validRecord(name string) Record {
	return Record{
		Name: name,
		Activities: []ActivityRecord{
			{Name: "kickoff", DueDate: "2026-10-01"},
		},
	}
}

func TestApplyValidRecords(t *testing.T) {
	uc, store, _ := newTestUseCase(t)

	applied, err := uc.Apply([]Record{validRecord("alpha"), validRecord("beta")})
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, 2, store.Len())

	tasks := store.Tasks()
	// Imported tasks get ids, sequential priorities and pending activities.
	for i, task := range tasks {
		assert.NotEmpty(t, task.ID)
		assert.Equal(t, i+1, task.Priority)
		require.Len(t, task.Activities, 1)
		assert.Equal(t, domain.StatusPending, task.Activities[0].Status)
	}
}

func TestApplyIsAllOrNothing(t *testing.T) {
	uc, store, _ := newTestUseCase(t)

	bad := validRecord("broken")
	bad.Activities[0].DueDate = "not-a-date"

	_, err := uc.Apply([]Record{validRecord("ok"), bad})
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
	assert.Zero(t, store.Len())
}

func TestValidateReportsEveryBadRow(t *testing.T) {
	uc, _, _ := newTestUseCase(t)

	noName := validRecord("")
	noActivities := Record{Name: "empty"}
	badStatus := validRecord("status")
	badStatus.Activities[0].Status = "paused"

	err := uc.Validate([]Record{noName, noActivities, badStatus})
	require.Error(t, err)
	// Row numbers are 1-based in the collected messages.
	assert.Contains(t, err.Error(), "row 1")
	assert.Contains(t, err.Error(), "row 2")
	assert.Contains(t, err.Error(), "row 3")
}

func TestApplySnapshotsBeforeMutating(t *testing.T) {
	uc, store, history := newTestUseCase(t)

	_, err := uc.Apply([]Record{validRecord("alpha")})
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	snap, err := history.Undo()
	require.NoError(t, err)
	assert.Equal(t, "bulk import", snap.Label)
	assert.Zero(t, store.Len())
}

func TestApplyKeepsProvidedStatusAndDates(t *testing.T) {
	uc, store, _ := newTestUseCase(t)

	rec := Record{
		ID:        "11111111-2222-4333-8444-555555555555",
		Name:      "scheduled",
		IssueDate: "2026-09-01",
		Activities: []ActivityRecord{
			{Name: "done step", DueDate: "2026-09-10", Status: "completed"},
			{Name: "next step", DueDate: "2026-09-20", StartDate: "2026-09-11"},
		},
	}

	_, err := uc.Apply([]Record{rec})
	require.NoError(t, err)

	task, err := store.Get("11111111-2222-4333-8444-555555555555")
	require.NoError(t, err)
	require.Len(t, task.Activities, 2)
	assert.Equal(t, domain.StatusCompleted, task.Activities[0].Status)
	require.NotNil(t, task.Activities[0].CompletedDate)
	assert.Equal(t, domain.StatusPending, task.Activities[1].Status)
}
