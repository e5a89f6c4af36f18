package board

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/planbeam/taskboard/domain"
)

// FilterMode selects the completion slice of a projection.
type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterActive    FilterMode = "active"
	FilterCompleted FilterMode = "completed"
)

// ParseFilterMode defaults unknown values to "all".
func ParseFilterMode(raw string) FilterMode {
	switch FilterMode(strings.ToLower(raw)) {
	case FilterActive:
		return FilterActive
	case FilterCompleted:
		return FilterCompleted
	default:
		return FilterAll
	}
}

// FilteredTasks projects the task list by completion state and an assignee
// search term. The term matches case-insensitively against every assignee of
// the task and of any of its activities. Callers pass post-refresh data.
func FilteredTasks(tasks []domain.Task, mode FilterMode, search string) []domain.Task {
	lower := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Task, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		switch mode {
		case FilterCompleted:
			if !t.IsCompleted() {
				continue
			}
		case FilterActive:
			if t.IsCompleted() {
				continue
			}
		}
		if lower != "" && !matchesAssigneeSearch(t, lower) {
			continue
		}
		out = append(out, *t)
	}
	return out
}

func matchesAssigneeSearch(t *domain.Task, lower string) bool {
	for _, a := range t.Assignees {
		if strings.Contains(strings.ToLower(a), lower) {
			return true
		}
	}
	for i := range t.Activities {
		for _, a := range t.Activities[i].Assignees {
			if strings.Contains(strings.ToLower(a), lower) {
				return true
			}
		}
	}
	return false
}

// ActivityView is a flattened activity tagged with its parent task fields.
type ActivityView struct {
	domain.Activity
	TaskID        string   `json:"task_id"`
	TaskName      string   `json:"task_name"`
	TaskTags      []string `json:"task_tags,omitempty"`
	TaskAssignees []string `json:"task_assignees,omitempty"`
}

// FilteredActivities flattens every activity across every task, applies the
// assignee search (task or activity assignees), an optional multi-select
// assignee filter (match when the activity or its parent has ANY of the
// selected assignees), and the completion filter against the activity's own
// status. Results are sorted by status precedence, then due date ascending.
func FilteredActivities(tasks []domain.Task, mode FilterMode, search string, assigneeFilter []string) []ActivityView {
	lower := strings.ToLower(strings.TrimSpace(search))
	var out []ActivityView

	for i := range tasks {
		t := &tasks[i]
		for j := range t.Activities {
			act := &t.Activities[j]

			if lower != "" && !anyAssigneeContains(act.Assignees, t.Assignees, lower) {
				continue
			}
			if len(assigneeFilter) > 0 && !anyAssigneeSelected(act.Assignees, t.Assignees, assigneeFilter) {
				continue
			}

			completed := act.Status == domain.StatusCompleted
			if mode == FilterCompleted && !completed {
				continue
			}
			if mode == FilterActive && completed {
				continue
			}

			out = append(out, ActivityView{
				Activity:      act.Clone(),
				TaskID:        t.ID,
				TaskName:      t.Name,
				TaskTags:      append([]string(nil), t.Tags...),
				TaskAssignees: append([]string(nil), t.Assignees...),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Status.Precedence(), out[j].Status.Precedence()
		if pi != pj {
			return pi < pj
		}
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out
}

func anyAssigneeContains(activityAssignees, taskAssignees []string, lower string) bool {
	for _, a := range activityAssignees {
		if strings.Contains(strings.ToLower(a), lower) {
			return true
		}
	}
	for _, a := range taskAssignees {
		if strings.Contains(strings.ToLower(a), lower) {
			return true
		}
	}
	return false
}

func anyAssigneeSelected(activityAssignees, taskAssignees, selected []string) bool {
	for _, want := range selected {
		for _, a := range activityAssignees {
			if a == want {
				return true
			}
		}
		for _, a := range taskAssignees {
			if a == want {
				return true
			}
		}
	}
	return false
}

// Progress summarizes a task's elapsed timeline and activity completion,
// both as percentages clamped to [0,100].
type Progress struct {
	Timeline   int `json:"timeline"`
	Completion int `json:"completion"`
}

// TaskProgress computes timeline progress (elapsed days over the span from
// issue date to the latest activity due date, minimum one day) and completion
// progress (completed activities over total).
func TaskProgress(t domain.Task, today domain.Date) Progress {
	var p Progress

	totalDays := t.IssueDate.DaysUntil(t.LatestDue())
	if totalDays < 1 {
		totalDays = 1
	}
	elapsed := t.IssueDate.DaysUntil(today)
	if elapsed < 0 {
		elapsed = 0
	}
	p.Timeline = clampPercent(int(math.Round(float64(elapsed) / float64(totalDays) * 100)))

	if n := len(t.Activities); n > 0 {
		done := 0
		for i := range t.Activities {
			if t.Activities[i].Status == domain.StatusCompleted {
				done++
			}
		}
		p.Completion = clampPercent(int(math.Round(float64(done) / float64(n) * 100)))
	}
	return p
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// UpcomingActivities returns the first n not-completed activities by due
// date, the card summary slice.
func UpcomingActivities(t domain.Task, n int) []domain.Activity {
	pending := make([]domain.Activity, 0, len(t.Activities))
	for i := range t.Activities {
		if t.Activities[i].Status != domain.StatusCompleted {
			pending = append(pending, t.Activities[i].Clone())
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].DueDate.Before(pending[j].DueDate)
	})
	if len(pending) > n {
		pending = pending[:n]
	}
	return pending
}

// PriorityColor maps a rank to an HSL color between red (rank 1) and yellow
// (last active rank): hue 0..45, saturation 85%..70%, lightness 50%..55%.
func PriorityColor(priority, totalActive int) string {
	denom := float64(totalActive - 1)
	if denom < 1 {
		denom = 1
	}
	ratio := float64(priority-1) / denom
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	hue := ratio * 45
	saturation := 85 - ratio*15
	lightness := 50 + ratio*5
	return fmt.Sprintf("hsl(%.0f, %.0f%%, %.0f%%)", hue, saturation, lightness)
}

// EnsureActivityRemovable rejects removing the last activity of a task.
func EnsureActivityRemovable(t domain.Task) error {
	if len(t.Activities) <= 1 {
		return domain.ErrLastActivity
	}
	return nil
}
