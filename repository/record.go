package repository

import (
	"context"

	"github.com/planbeam/taskboard/domain"
)

// Document is the remote representation of a task record. Documents may carry
// fields written by other clients that the local model does not know about;
// merge-mode writes and reconciliation must preserve them.
type Document = map[string]any

// MaxBatchOps is the remote transaction ceiling. CommitBatch rejects larger
// batches; bulk callers chunk and issue batches sequentially.
const MaxBatchOps = 450

type BatchOpType string

const (
	BatchPut    BatchOpType = "put"
	BatchDelete BatchOpType = "delete"
)

// BatchOp is one element of an atomic batch commit. Merge applies to puts
// only and carries the same semantics as PutRecord's merge flag.
type BatchOp struct {
	Type   BatchOpType
	TaskID string
	Fields Document
	Merge  bool
}

// RecordRepository is the remote store gateway for per-workspace task
// records. It owns no business logic.
type RecordRepository interface {
	// GetRecord returns a single record or domain.ErrTaskNotFound.
	GetRecord(ctx context.Context, workspaceID, taskID string) (Document, error)

	// ListRecords returns every record of the workspace ordered by its
	// priority field ascending.
	ListRecords(ctx context.Context, workspaceID string) ([]Document, error)

	// PutRecord upserts a record. With merge set, fields absent from the
	// payload keep their remote value; otherwise the document is replaced.
	PutRecord(ctx context.Context, workspaceID, taskID string, fields Document, merge bool) error

	// DeleteRecord removes a record. Deleting an absent record is not an
	// error.
	DeleteRecord(ctx context.Context, workspaceID, taskID string) error

	// CommitBatch applies the operations atomically. Batches above
	// MaxBatchOps fail with domain.ErrBatchTooLarge.
	CommitBatch(ctx context.Context, workspaceID string, ops []BatchOp) error
}

// MembershipRepository manages workspace membership records and the
// workspaces themselves.
type MembershipRepository interface {
	// GetMember returns the membership record or domain.ErrMembershipNotFound.
	GetMember(ctx context.Context, workspaceID, userID string) (*domain.Member, error)

	// PutMember creates or replaces a membership record.
	PutMember(ctx context.Context, member *domain.Member) error

	// WorkspaceExists reports whether the workspace record is present.
	WorkspaceExists(ctx context.Context, workspaceID string) (bool, error)

	// EnsureWorkspace creates the workspace record when absent.
	EnsureWorkspace(ctx context.Context, workspace *domain.Workspace) error
}
