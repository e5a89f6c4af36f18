package postgres

import (
	"encoding/json"

	"github.com/planbeam/taskboard/domain"
	"github.com/planbeam/taskboard/repository"
)

func marshalDoc(doc repository.Document) ([]byte, error) {
	if doc == nil {
		doc = repository.Document{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "encode record document", err)
	}
	return raw, nil
}

func unmarshalDoc(raw []byte) (repository.Document, error) {
	var doc repository.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "decode record document", err)
	}
	return doc, nil
}

// docPriority extracts the mirrored priority column value. JSON numbers
// decode as float64.
func docPriority(doc repository.Document) int {
	switch v := doc["priority"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return 0
}
