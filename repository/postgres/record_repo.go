package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planbeam/taskboard/domain"
	"github.com/planbeam/taskboard/repository"
)

type recordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository returns a Postgres-backed implementation of the remote
// record gateway. Each task record is one JSONB document scoped by
// workspace, with the priority field mirrored into a sortable column.
func NewRecordRepository(pool *pgxpool.Pool) repository.RecordRepository {
	return &recordRepository{pool: pool}
}

func (r *recordRepository) GetRecord(ctx context.Context, workspaceID, taskID string) (repository.Document, error) {
	const query = `
	SELECT doc
	FROM task_records
	WHERE workspace_id = $1 AND task_id = $2
	`
	var raw []byte
	if err := r.pool.QueryRow(ctx, query, workspaceID, taskID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return unmarshalDoc(raw)
}

func (r *recordRepository) ListRecords(ctx context.Context, workspaceID string) ([]repository.Document, error) {
	const query = `
	SELECT doc
	FROM task_records
	WHERE workspace_id = $1
	ORDER BY priority ASC, task_id ASC
	`
	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []repository.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		doc, err := unmarshalDoc(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *recordRepository) PutRecord(ctx context.Context, workspaceID, taskID string, fields repository.Document, merge bool) error {
	raw, err := marshalDoc(fields)
	if err != nil {
		return err
	}

	// Merge-mode relies on jsonb concatenation so fields unknown to the
	// caller keep their stored values.
	const query = `
	INSERT INTO task_records (workspace_id, task_id, doc, priority)
	VALUES ($1, $2, $3::jsonb, $4)
	ON CONFLICT (workspace_id, task_id) DO UPDATE SET
		doc = CASE WHEN $5 THEN task_records.doc || EXCLUDED.doc ELSE EXCLUDED.doc END,
		priority = EXCLUDED.priority,
		updated_at = NOW()
	`
	_, err = r.pool.Exec(ctx, query, workspaceID, taskID, raw, docPriority(fields), merge)
	return err
}

func (r *recordRepository) DeleteRecord(ctx context.Context, workspaceID, taskID string) error {
	// Idempotent like the remote store it models: deleting a missing
	// record succeeds.
	const query = `DELETE FROM task_records WHERE workspace_id = $1 AND task_id = $2`
	_, err := r.pool.Exec(ctx, query, workspaceID, taskID)
	return err
}

func (r *recordRepository) CommitBatch(ctx context.Context, workspaceID string, ops []repository.BatchOp) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > repository.MaxBatchOps {
		return domain.ErrBatchTooLarge
	}

	const putQuery = `
	INSERT INTO task_records (workspace_id, task_id, doc, priority)
	VALUES ($1, $2, $3::jsonb, $4)
	ON CONFLICT (workspace_id, task_id) DO UPDATE SET
		doc = CASE WHEN $5 THEN task_records.doc || EXCLUDED.doc ELSE EXCLUDED.doc END,
		priority = EXCLUDED.priority,
		updated_at = NOW()
	`
	const deleteQuery = `DELETE FROM task_records WHERE workspace_id = $1 AND task_id = $2`

	batch := &pgx.Batch{}
	for _, op := range ops {
		switch op.Type {
		case repository.BatchDelete:
			batch.Queue(deleteQuery, workspaceID, op.TaskID)
		case repository.BatchPut:
			raw, err := marshalDoc(op.Fields)
			if err != nil {
				return err
			}
			batch.Queue(putQuery, workspaceID, op.TaskID, raw, docPriority(op.Fields), op.Merge)
		default:
			return domain.WrapError(domain.ErrCodeInvalid, "unknown batch op type", nil)
		}
	}

	// One transaction per batch: the whole batch lands or none of it does.
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	for range ops {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return err
		}
	}
	if err := results.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
