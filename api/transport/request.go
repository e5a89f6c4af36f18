package transport

import "github.com/planbeam/taskboard/usecase/imports"

type ActivityRequest struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	StartDate string   `json:"start_date"`
	DueDate   string   `json:"due_date"`
	Status    string   `json:"status"`
	Assignees []string `json:"assignees"`
}

type TaskRequest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Purpose     string            `json:"purpose"`
	Instruction string            `json:"instruction"`
	Output      string            `json:"output"`
	Tags        []string          `json:"tags"`
	Assignees   []string          `json:"assignees"`
	IssueDate   string            `json:"issue_date"`
	Activities  []ActivityRequest `json:"activities"`
}

type ReorderRequest struct {
	DraggedID string `json:"dragged_id"`
	TargetID  string `json:"target_id"`
}

type StatusChangeRequest struct {
	Status string `json:"status"`
}

type AuthLoginRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	TTL    int    `json:"ttl_seconds"`
}

type RefreshRequest struct {
	SessionID string `json:"session_id"`
	TTL       int    `json:"ttl_seconds"`
}

type ImportRequest struct {
	Records []imports.Record `json:"records"`
}
