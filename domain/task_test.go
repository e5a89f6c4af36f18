package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSetStatusStampsCompletedDate(t *testing.T) {
	today := date("2026-03-10")
	act := Activity{ID: "a1", Status: StatusPending, DueDate: date("2026-03-15")}

	act.SetStatus(StatusCompleted, today)
	require.Equal(t, StatusCompleted, act.Status)
	require.NotNil(t, act.CompletedDate)
	assert.True(t, act.CompletedDate.Equal(today))

	act.SetStatus(StatusPending, today)
	assert.Equal(t, StatusPending, act.Status)
	assert.Nil(t, act.CompletedDate)
}

func TestRefreshMarksOverdue(t *testing.T) {
	today := date("2026-03-10")

	cases := []struct {
		name    string
		status  ActivityStatus
		due     Date
		want    ActivityStatus
		changed bool
	}{
		{"pending past due", StatusPending, date("2026-03-01"), StatusOverdue, true},
		{"in-progress past due", StatusInProgress, date("2026-03-09"), StatusOverdue, true},
		{"pending due today", StatusPending, date("2026-03-10"), StatusPending, false},
		{"overdue future due", StatusOverdue, date("2026-03-20"), StatusPending, true},
		{"completed past due stays", StatusCompleted, date("2026-03-01"), StatusCompleted, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			act := Activity{ID: "a", Status: tc.status, DueDate: tc.due}
			changed := act.Refresh(today)
			assert.Equal(t, tc.changed, changed)
			assert.Equal(t, tc.want, act.Status)
		})
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	today := date("2026-03-10")
	task := Task{
		ID: "t1",
		Activities: []Activity{
			{ID: "a1", Status: StatusPending, DueDate: date("2026-03-01")},
			{ID: "a2", Status: StatusInProgress, DueDate: date("2026-03-20")},
		},
	}

	assert.True(t, task.RefreshStatuses(today))
	assert.Equal(t, StatusOverdue, task.Activities[0].Status)
	assert.Equal(t, StatusInProgress, task.Activities[1].Status)

	// Second pass against the same day changes nothing.
	assert.False(t, task.RefreshStatuses(today))
	assert.Equal(t, StatusOverdue, task.Activities[0].Status)
}

func TestIsCompleted(t *testing.T) {
	task := Task{ID: "t1", Activities: []Activity{
		{ID: "a1", Status: StatusCompleted},
		{ID: "a2", Status: StatusPending},
	}}
	assert.False(t, task.IsCompleted())

	task.Activities[1].Status = StatusCompleted
	assert.True(t, task.IsCompleted())

	// No activities counts as completed.
	assert.True(t, (&Task{ID: "t2"}).IsCompleted())
}

func TestStatusPrecedence(t *testing.T) {
	assert.Less(t, StatusOverdue.Precedence(), StatusInProgress.Precedence())
	assert.Less(t, StatusInProgress.Precedence(), StatusPending.Precedence())
	assert.Less(t, StatusPending.Precedence(), StatusCompleted.Precedence())
}

func TestLatestDue(t *testing.T) {
	task := Task{ID: "t1", Activities: []Activity{
		{ID: "a1", DueDate: date("2026-03-05")},
		{ID: "a2", DueDate: date("2026-04-01")},
		{ID: "a3", DueDate: date("2026-03-20")},
	}}
	assert.True(t, task.LatestDue().Equal(date("2026-04-01")))
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("not-a-date")
	require.Error(t, err)
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
}
