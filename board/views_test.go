package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbeam/taskboard/domain"
)

func TestFilteredTasksByMode(t *testing.T) {
	tasks := []domain.Task{
		activeTask("t1", 1),
		completedTask("done", 2),
	}

	assert.Len(t, FilteredTasks(tasks, FilterAll, ""), 2)

	active := FilteredTasks(tasks, FilterActive, "")
	require.Len(t, active, 1)
	assert.Equal(t, "t1", active[0].ID)

	completed := FilteredTasks(tasks, FilterCompleted, "")
	require.Len(t, completed, 1)
	assert.Equal(t, "done", completed[0].ID)
}

func TestFilteredTasksAssigneeSearch(t *testing.T) {
	alice := activeTask("t1", 1)
	alice.Assignees = []string{"Alice"}

	bob := activeTask("t2", 2)
	bob.Activities[0].Assignees = []string{"Bob"}

	carol := activeTask("t3", 3)

	tasks := []domain.Task{alice, bob, carol}

	// Case-insensitive substring over task and activity assignees.
	got := FilteredTasks(tasks, FilterAll, "ali")
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)

	got = FilteredTasks(tasks, FilterAll, "BOB")
	require.Len(t, got, 1)
	assert.Equal(t, "t2", got[0].ID)

	assert.Empty(t, FilteredTasks(tasks, FilterAll, "nobody"))
}

func TestFilteredActivitiesOrdering(t *testing.T) {
	task := domain.Task{
		ID:   "t1",
		Name: "mix",
		Activities: []domain.Activity{
			{ID: "done", Status: domain.StatusCompleted, DueDate: day("2026-01-01")},
			{ID: "late-b", Status: domain.StatusOverdue, DueDate: day("2026-02-01")},
			{ID: "pending", Status: domain.StatusPending, DueDate: day("2026-01-15")},
			{ID: "late-a", Status: domain.StatusOverdue, DueDate: day("2026-01-05")},
			{ID: "running", Status: domain.StatusInProgress, DueDate: day("2026-03-01")},
		},
	}

	views := FilteredActivities([]domain.Task{task}, FilterAll, "", nil)
	require.Len(t, views, 5)

	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	// Overdue first (due ascending within the tier), then in-progress,
	// pending, completed.
	assert.Equal(t, []string{"late-a", "late-b", "running", "pending", "done"}, ids)
	assert.Equal(t, "t1", views[0].TaskID)
	assert.Equal(t, "mix", views[0].TaskName)
}

func TestFilteredActivitiesAssigneeMultiSelect(t *testing.T) {
	t1 := activeTask("t1", 1)
	t1.Activities[0].Assignees = []string{"Alice"}

	t2 := activeTask("t2", 2)
	t2.Assignees = []string{"Bob"}

	t3 := activeTask("t3", 3)

	views := FilteredActivities([]domain.Task{t1, t2, t3}, FilterAll, "", []string{"Alice", "Bob"})
	require.Len(t, views, 2)

	got := map[string]bool{}
	for _, v := range views {
		got[v.TaskID] = true
	}
	assert.True(t, got["t1"])
	assert.True(t, got["t2"])
}

func TestFilteredActivitiesModeUsesActivityStatus(t *testing.T) {
	task := activeTask("t1", 1)
	task.Activities = append(task.Activities, domain.Activity{
		ID: "fin", Status: domain.StatusCompleted, DueDate: day("2026-01-01"),
	})

	completed := FilteredActivities([]domain.Task{task}, FilterCompleted, "", nil)
	require.Len(t, completed, 1)
	assert.Equal(t, "fin", completed[0].ID)

	active := FilteredActivities([]domain.Task{task}, FilterActive, "", nil)
	require.Len(t, active, 1)
	assert.NotEqual(t, "fin", active[0].ID)
}

func TestTaskProgress(t *testing.T) {
	task := domain.Task{
		ID:        "t1",
		IssueDate: day("2026-03-01"),
		Activities: []domain.Activity{
			{ID: "a1", Status: domain.StatusCompleted, DueDate: day("2026-03-11")},
			{ID: "a2", Status: domain.StatusPending, DueDate: day("2026-03-21")},
		},
	}

	// Ten of twenty days elapsed, one of two activities done.
	p := TaskProgress(task, day("2026-03-11"))
	assert.Equal(t, 50, p.Timeline)
	assert.Equal(t, 50, p.Completion)

	// Before the issue date nothing has elapsed.
	p = TaskProgress(task, day("2026-02-01"))
	assert.Equal(t, 0, p.Timeline)

	// Far past the final due date the timeline clamps at 100.
	p = TaskProgress(task, day("2027-01-01"))
	assert.Equal(t, 100, p.Timeline)
}

func TestTaskProgressNoActivities(t *testing.T) {
	task := domain.Task{ID: "t1", IssueDate: day("2026-03-01")}
	p := TaskProgress(task, day("2026-03-05"))
	assert.Equal(t, 0, p.Completion)
	// Zero-length span is treated as one day.
	assert.Equal(t, 100, p.Timeline)
}

func TestUpcomingActivities(t *testing.T) {
	task := domain.Task{ID: "t1", Activities: []domain.Activity{
		{ID: "a1", Status: domain.StatusCompleted, DueDate: day("2026-01-01")},
		{ID: "a2", Status: domain.StatusPending, DueDate: day("2026-03-01")},
		{ID: "a3", Status: domain.StatusPending, DueDate: day("2026-02-01")},
		{ID: "a4", Status: domain.StatusInProgress, DueDate: day("2026-04-01")},
	}}

	got := UpcomingActivities(task, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "a3", got[0].ID)
	assert.Equal(t, "a2", got[1].ID)
}

func TestPriorityColorGradient(t *testing.T) {
	// Rank 1 is pure red, the last active rank is yellow-ish.
	assert.Equal(t, "hsl(0, 85%, 50%)", PriorityColor(1, 10))
	assert.Equal(t, "hsl(45, 70%, 55%)", PriorityColor(10, 10))

	// Middle of an 11-task board sits halfway along the gradient.
	assert.Equal(t, "hsl(22, 78%, 52%)", PriorityColor(6, 11))

	// A single-task board never divides by zero.
	assert.Equal(t, "hsl(0, 85%, 50%)", PriorityColor(1, 1))
}

func TestEnsureActivityRemovable(t *testing.T) {
	single := activeTask("t1", 1)
	assert.ErrorIs(t, EnsureActivityRemovable(single), domain.ErrLastActivity)

	multi := activeTask("t2", 2)
	multi.Activities = append(multi.Activities, domain.Activity{ID: "extra", Status: domain.StatusPending})
	assert.NoError(t, EnsureActivityRemovable(multi))
}
