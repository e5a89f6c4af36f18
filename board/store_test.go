package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/planbeam/taskboard/domain"
)

func day(s string) domain.Date {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func activeTask(id string, priority int) domain.Task {
	return domain.Task{
		ID:       id,
		Name:     "task " + id,
		Priority: priority,
		Activities: []domain.Activity{
			{ID: id + "-a1", Name: "step", Status: domain.StatusPending, DueDate: day("2099-01-01")},
		},
	}
}

func completedTask(id string, priority int) domain.Task {
	t := activeTask(id, priority)
	t.Activities[0].Status = domain.StatusCompleted
	return t
}

func newTestStore(t *testing.T, tasks ...domain.Task) *Store {
	t.Helper()
	store := NewStore(NewBus(), zap.NewNop())
	store.LoadAll(tasks)
	return store
}

func priorities(store *Store) map[string]int {
	out := map[string]int{}
	for _, task := range store.Tasks() {
		out[task.ID] = task.Priority
	}
	return out
}

func TestLoadAllAssignsMissingPriorities(t *testing.T) {
	store := newTestStore(t,
		domain.Task{ID: "t1", Activities: []domain.Activity{{ID: "a", Status: domain.StatusPending}}},
		domain.Task{ID: "t2", Activities: []domain.Activity{{ID: "a", Status: domain.StatusPending}}},
	)

	p := priorities(store)
	assert.Equal(t, 1, p["t1"])
	assert.Equal(t, 2, p["t2"])
}

func TestNormalizePartitionsActiveBeforeCompleted(t *testing.T) {
	store := newTestStore(t,
		completedTask("done", 1),
		activeTask("t1", 2),
		activeTask("t2", 3),
	)

	tasks := store.Tasks()
	require.Len(t, tasks, 3)
	// Active tasks renumbered 1..N and listed first.
	assert.Equal(t, "t1", tasks[0].ID)
	assert.Equal(t, 1, tasks[0].Priority)
	assert.Equal(t, "t2", tasks[1].ID)
	assert.Equal(t, 2, tasks[1].Priority)
	// Completed tasks follow, keeping their stored priority.
	assert.Equal(t, "done", tasks[2].ID)
}

func TestReorderShiftsDownward(t *testing.T) {
	store := newTestStore(t,
		activeTask("t1", 1),
		activeTask("t2", 2),
		activeTask("t3", 3),
		activeTask("t4", 4),
	)

	// Drag t1 onto t3: ranks 2..3 shift down by one.
	require.NoError(t, store.Reorder("t1", "t3"))

	p := priorities(store)
	assert.Equal(t, 3, p["t1"])
	assert.Equal(t, 1, p["t2"])
	assert.Equal(t, 2, p["t3"])
	assert.Equal(t, 4, p["t4"])
}

func TestReorderShiftsUpward(t *testing.T) {
	store := newTestStore(t,
		activeTask("t1", 1),
		activeTask("t2", 2),
		activeTask("t3", 3),
		activeTask("t4", 4),
	)

	require.NoError(t, store.Reorder("t4", "t2"))

	p := priorities(store)
	assert.Equal(t, 1, p["t1"])
	assert.Equal(t, 2, p["t4"])
	assert.Equal(t, 3, p["t2"])
	assert.Equal(t, 4, p["t3"])
}

func TestReorderNoopOnSameOrMissingIDs(t *testing.T) {
	store := newTestStore(t, activeTask("t1", 1), activeTask("t2", 2))
	before := priorities(store)

	require.NoError(t, store.Reorder("t1", "t1"))
	require.NoError(t, store.Reorder("t1", "ghost"))
	require.NoError(t, store.Reorder("ghost", "t2"))

	assert.Equal(t, before, priorities(store))
}

func TestReorderPreservesRelativeOrderOfUntouched(t *testing.T) {
	store := newTestStore(t,
		activeTask("t1", 1),
		activeTask("t2", 2),
		activeTask("t3", 3),
		activeTask("t4", 4),
		activeTask("t5", 5),
	)

	require.NoError(t, store.Reorder("t5", "t1"))

	tasks := store.Tasks()
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	assert.Equal(t, []string{"t5", "t1", "t2", "t3", "t4"}, ids)
}

func TestRemoveRenumbersRanking(t *testing.T) {
	store := newTestStore(t,
		activeTask("t1", 1),
		activeTask("t2", 2),
		activeTask("t3", 3),
	)

	require.NoError(t, store.Remove("t2"))

	p := priorities(store)
	assert.Equal(t, 1, p["t1"])
	assert.Equal(t, 2, p["t3"])
	assert.Equal(t, domain.ErrTaskNotFound, store.Remove("t2"))
}

func TestUpsertAppendsAfterActive(t *testing.T) {
	store := newTestStore(t, activeTask("t1", 1), completedTask("done", 5))

	task := activeTask("t2", 0)
	task.Priority = 0
	store.Upsert(task)
	store.Normalize()

	p := priorities(store)
	assert.Equal(t, 1, p["t1"])
	assert.Equal(t, 2, p["t2"])
}

func TestCompletingAllActivitiesMovesTaskOut(t *testing.T) {
	store := newTestStore(t, activeTask("t1", 1), activeTask("t2", 2))

	task, err := store.Get("t1")
	require.NoError(t, err)
	task.Activities[0].SetStatus(domain.StatusCompleted, day("2026-03-10"))
	store.Upsert(task)
	store.Normalize()

	tasks := store.Tasks()
	assert.Equal(t, "t2", tasks[0].ID)
	assert.Equal(t, 1, tasks[0].Priority)
	assert.Equal(t, "t1", tasks[1].ID)
	assert.Equal(t, 1, store.ActiveCount())
}

func TestRefreshStatusesPublishesOnlyOnChange(t *testing.T) {
	bus := NewBus()
	store := NewStore(bus, zap.NewNop())

	overdue := activeTask("t1", 1)
	overdue.Activities[0].DueDate = day("2020-01-01")
	store.LoadAll([]domain.Task{overdue})

	events := 0
	unsubscribe := bus.Subscribe(func(evt Event) {
		if evt.Kind == EventCollectionChanged {
			events++
		}
	})
	defer unsubscribe()

	assert.True(t, store.RefreshStatuses(day("2026-03-10")))
	assert.Equal(t, 1, events)

	// Already overdue: nothing moves, nothing published.
	assert.False(t, store.RefreshStatuses(day("2026-03-10")))
	assert.Equal(t, 1, events)
}

func TestTasksReturnsDeepCopies(t *testing.T) {
	store := newTestStore(t, activeTask("t1", 1))

	tasks := store.Tasks()
	tasks[0].Name = "mutated"
	tasks[0].Activities[0].Status = domain.StatusCompleted

	fresh, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, "task t1", fresh.Name)
	assert.Equal(t, domain.StatusPending, fresh.Activities[0].Status)
}
