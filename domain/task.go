package domain

import "time"

// ActivityStatus represents the lifecycle state of a single activity.
type ActivityStatus string

const (
	StatusPending    ActivityStatus = "pending"
	StatusInProgress ActivityStatus = "in-progress"
	StatusCompleted  ActivityStatus = "completed"
	StatusOverdue    ActivityStatus = "overdue"
)

// Valid reports whether the status is one of the known states.
func (s ActivityStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

// Precedence orders statuses for activity listings: overdue items surface
// first, completed ones sink to the bottom.
func (s ActivityStatus) Precedence() int {
	switch s {
	case StatusOverdue:
		return 0
	case StatusInProgress:
		return 1
	case StatusPending:
		return 2
	case StatusCompleted:
		return 3
	}
	return 4
}

// Attachment records an uploaded image kept on the remote document.
type Attachment struct {
	URL        string    `json:"url"`
	Uploader   string    `json:"uploader,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
	Filename   string    `json:"filename,omitempty"`
	ByteSize   int64     `json:"byte_size,omitempty"`
}

// Activity is a sub-step of a task. Its ID is unique within the owning task
// only; activities have no remote record of their own.
type Activity struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	StartDate     Date           `json:"start_date"`
	DueDate       Date           `json:"due_date"`
	CompletedDate *Date          `json:"completed_date,omitempty"`
	Status        ActivityStatus `json:"status"`
	Assignees     []string       `json:"assignees,omitempty"`
	Attachments   []Attachment   `json:"attachments,omitempty"`
}

// SetStatus applies a user-triggered transition. Entering completed stamps the
// completion date; leaving it clears the stamp.
func (a *Activity) SetStatus(status ActivityStatus, today Date) {
	a.Status = status
	if status == StatusCompleted {
		stamp := today
		a.CompletedDate = &stamp
	} else {
		a.CompletedDate = nil
	}
}

// Refresh applies the system transitions: a non-completed activity whose due
// date has passed becomes overdue, and an overdue one whose due date is no
// longer in the past falls back to pending. Completed is sticky. The pass is
// idempotent. Reports whether the status moved.
func (a *Activity) Refresh(today Date) bool {
	if a.Status == StatusCompleted {
		return false
	}
	if a.DueDate.Before(today) {
		if a.Status == StatusOverdue {
			return false
		}
		a.Status = StatusOverdue
		return true
	}
	if a.Status == StatusOverdue {
		a.Status = StatusPending
		return true
	}
	return false
}

// Clone returns a deep copy of the activity.
func (a Activity) Clone() Activity {
	out := a
	if a.CompletedDate != nil {
		stamp := *a.CompletedDate
		out.CompletedDate = &stamp
	}
	out.Assignees = append([]string(nil), a.Assignees...)
	out.Attachments = append([]Attachment(nil), a.Attachments...)
	return out
}

// Task is a unit of work carrying an ordered set of activities. One remote
// record per task, keyed by ID under the owning workspace.
type Task struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Purpose     string     `json:"purpose,omitempty"`
	Instruction string     `json:"instruction,omitempty"`
	Output      string     `json:"output,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Assignees   []string   `json:"assignees,omitempty"`
	Priority    int        `json:"priority"`
	IssueDate   Date       `json:"issue_date"`
	Activities  []Activity `json:"activities"`
}

// IsCompleted reports whether every activity is completed.
func (t *Task) IsCompleted() bool {
	for i := range t.Activities {
		if t.Activities[i].Status != StatusCompleted {
			return false
		}
	}
	return true
}

// RefreshStatuses runs the overdue recompute across all activities and
// reports whether anything moved. Views rely on this running first.
func (t *Task) RefreshStatuses(today Date) bool {
	changed := false
	for i := range t.Activities {
		if t.Activities[i].Refresh(today) {
			changed = true
		}
	}
	return changed
}

// Activity finds an activity by its task-scoped ID.
func (t *Task) Activity(id string) (*Activity, error) {
	for i := range t.Activities {
		if t.Activities[i].ID == id {
			return &t.Activities[i], nil
		}
	}
	return nil, ErrActivityNotFound
}

// MainAssignee is the first assignee by convention.
func (t *Task) MainAssignee() string {
	if len(t.Assignees) == 0 {
		return ""
	}
	return t.Assignees[0]
}

// LatestDue returns the latest due date among the task's activities.
func (t *Task) LatestDue() Date {
	var latest Date
	for i := range t.Activities {
		if due := t.Activities[i].DueDate; latest.Before(due) {
			latest = due
		}
	}
	return latest
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	out.Tags = append([]string(nil), t.Tags...)
	out.Assignees = append([]string(nil), t.Assignees...)
	out.Activities = make([]Activity, len(t.Activities))
	for i := range t.Activities {
		out.Activities[i] = t.Activities[i].Clone()
	}
	return out
}

// CloneTasks deep-copies a task slice.
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}
