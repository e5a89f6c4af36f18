package board

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/planbeam/taskboard/domain"
)

// DefaultHistoryDepth bounds the undo stack. Oldest snapshots are evicted
// first; Undo pops from the top.
const DefaultHistoryDepth = 50

// Snapshot is one undo entry: a deep copy of the task collection taken
// immediately before a mutating operation, with a human-readable label used
// only for confirmation text.
type Snapshot struct {
	Tasks   []domain.Task `json:"tasks"`
	TakenAt time.Time     `json:"taken_at"`
	Label   string        `json:"label"`
}

// SnapshotLog persists the bounded snapshot stack. Push evicts the oldest
// entries beyond capacity; Pop removes and returns the newest.
type SnapshotLog interface {
	Push(boardID string, payload []byte, capacity int) error
	Pop(boardID string) ([]byte, bool, error)
	Len(boardID string) (int, error)
}

// History manages single-step rollback for a board's store.
type History struct {
	boardID  string
	log      SnapshotLog
	store    *Store
	capacity int
	logger   *zap.Logger
}

func NewHistory(boardID string, log SnapshotLog, store *Store, capacity int, logger *zap.Logger) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryDepth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{
		boardID:  boardID,
		log:      log,
		store:    store,
		capacity: capacity,
		logger:   logger,
	}
}

// Snapshot pushes a deep copy of the current collection. Every user-facing
// mutation calls this before applying its change.
func (h *History) Snapshot(label string) error {
	snap := Snapshot{
		Tasks:   h.store.Tasks(),
		TakenAt: time.Now(),
		Label:   label,
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "encode snapshot", err)
	}
	if err := h.log.Push(h.boardID, payload, h.capacity); err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "persist snapshot", err)
	}
	h.logger.Debug("snapshot taken", zap.String("board", h.boardID), zap.String("label", label))
	return nil
}

// Undo pops the newest snapshot and restores the collection wholesale,
// re-running normalization. Returns the restored snapshot for confirmation
// text, or ErrNothingToUndo when the stack is empty.
func (h *History) Undo() (Snapshot, error) {
	payload, ok, err := h.log.Pop(h.boardID)
	if err != nil {
		return Snapshot{}, domain.WrapError(domain.ErrCodeInternal, "read snapshot", err)
	}
	if !ok {
		return Snapshot{}, domain.ErrNothingToUndo
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, domain.WrapError(domain.ErrCodeInternal, "decode snapshot", err)
	}

	h.store.Replace(snap.Tasks)
	h.logger.Info("undo applied", zap.String("board", h.boardID), zap.String("label", snap.Label))
	return snap, nil
}

// Depth reports how many snapshots the stack currently holds.
func (h *History) Depth() int {
	n, err := h.log.Len(h.boardID)
	if err != nil {
		h.logger.Warn("history depth unavailable", zap.String("board", h.boardID), zap.Error(err))
		return 0
	}
	return n
}
