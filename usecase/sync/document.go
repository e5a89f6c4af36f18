package sync

import (
	"encoding/json"

	"github.com/planbeam/taskboard/domain"
	"github.com/planbeam/taskboard/repository"
)

// documentFromTask converts a task into its remote document form. Documents
// use the task's JSON shape so the remote schema stays in lockstep with the
// domain model.
func documentFromTask(task *domain.Task) (repository.Document, error) {
	raw, err := json.Marshal(task)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "encode task document", err)
	}
	var doc repository.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "decode task document", err)
	}
	return doc, nil
}

// taskFromDocument converts a remote document back into a task. Unknown
// fields are ignored rather than rejected.
func taskFromDocument(doc repository.Document) (*domain.Task, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "encode remote document", err)
	}
	var task domain.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "decode remote document", err)
	}
	if task.ID == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "remote document has no id")
	}
	return &task, nil
}

// mergeDocuments overlays local fields onto the remote document so remote
// fields the local model never touched survive a full write.
func mergeDocuments(remote, local repository.Document) repository.Document {
	if remote == nil {
		return local
	}
	merged := make(repository.Document, len(remote)+len(local))
	for k, v := range remote {
		merged[k] = v
	}
	for k, v := range local {
		merged[k] = v
	}
	return merged
}
