package board

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/planbeam/taskboard/domain"
)

// Store holds the authoritative in-memory task collection for the active
// workspace and owns the priority-ranking invariant: active (not fully
// completed) tasks carry a contiguous 1..N priority sequence and precede
// completed tasks in the canonical order.
//
// Collaborators must read through the store; the task slice itself is never
// shared, accessors hand out deep copies.
type Store struct {
	mu     sync.RWMutex
	tasks  []domain.Task
	bus    *Bus
	logger *zap.Logger
}

func NewStore(bus *Bus, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = NewBus()
	}
	return &Store{bus: bus, logger: logger}
}

// Bus exposes the store's event bus for subscribers.
func (s *Store) Bus() *Bus {
	return s.bus
}

// LoadAll replaces the entire collection with the given record set. Records
// missing a priority get one from their sequential position, then the ranking
// is normalized. Publishes a collection-loaded notification.
func (s *Store) LoadAll(tasks []domain.Task) {
	s.mu.Lock()
	s.tasks = domain.CloneTasks(tasks)
	for i := range s.tasks {
		if s.tasks[i].Priority == 0 {
			s.tasks[i].Priority = i + 1
		}
	}
	s.normalizeLocked()
	count := len(s.tasks)
	s.mu.Unlock()

	s.logger.Debug("collection replaced", zap.Int("tasks", count))
	s.bus.Publish(Event{Kind: EventCollectionLoaded})
}

// Replace swaps the collection wholesale, normalizes and publishes a change
// notification. Used by undo to restore a snapshot.
func (s *Store) Replace(tasks []domain.Task) {
	s.mu.Lock()
	s.tasks = domain.CloneTasks(tasks)
	s.normalizeLocked()
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventCollectionChanged})
}

// Upsert inserts or replaces a task by ID. It does not renumber priorities;
// batch operations call Normalize explicitly once they are done.
func (s *Store) Upsert(task domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := task.Clone()
	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i] = clone
			return
		}
	}
	if clone.Priority == 0 {
		clone.Priority = s.activeCountLocked() + 1
	}
	s.tasks = append(s.tasks, clone)
}

// Remove deletes a task and renormalizes the remaining ranking.
func (s *Store) Remove(taskID string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.tasks {
		if s.tasks[i].ID == taskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrTaskNotFound
	}
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	s.normalizeLocked()
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventCollectionChanged})
	return nil
}

// Reorder moves the dragged task to the target task's priority, shifting
// every rank in between by one. A single O(n) pass; the relative order of
// untouched tasks is preserved. No-op when the ids match or either is absent.
func (s *Store) Reorder(draggedID, targetID string) error {
	if draggedID == targetID {
		return nil
	}

	s.mu.Lock()
	var dragged, target *domain.Task
	for i := range s.tasks {
		switch s.tasks[i].ID {
		case draggedID:
			dragged = &s.tasks[i]
		case targetID:
			target = &s.tasks[i]
		}
	}
	if dragged == nil || target == nil {
		s.mu.Unlock()
		return nil
	}

	oldP, newP := dragged.Priority, target.Priority
	if oldP < newP {
		for i := range s.tasks {
			if p := s.tasks[i].Priority; p > oldP && p <= newP {
				s.tasks[i].Priority--
			}
		}
	} else {
		for i := range s.tasks {
			if p := s.tasks[i].Priority; p >= newP && p < oldP {
				s.tasks[i].Priority++
			}
		}
	}
	dragged.Priority = newP
	s.normalizeLocked()
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventCollectionChanged})
	return nil
}

// Normalize re-partitions and renumbers the ranking, then publishes a change
// notification. Callers batching Upserts invoke this once at the end.
func (s *Store) Normalize() {
	s.mu.Lock()
	s.normalizeLocked()
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventCollectionChanged})
}

// RefreshStatuses runs the overdue recompute over every activity of every
// task. Publishes a change notification only when a status actually moved.
func (s *Store) RefreshStatuses(today domain.Date) bool {
	s.mu.Lock()
	changed := false
	for i := range s.tasks {
		if s.tasks[i].RefreshStatuses(today) {
			changed = true
		}
	}
	if changed {
		s.normalizeLocked()
	}
	s.mu.Unlock()

	if changed {
		s.bus.Publish(Event{Kind: EventCollectionChanged})
	}
	return changed
}

// Tasks returns a deep copy of the canonical ordered collection.
func (s *Store) Tasks() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneTasks(s.tasks)
}

// Get returns a deep copy of a single task.
func (s *Store) Get(taskID string) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.tasks {
		if s.tasks[i].ID == taskID {
			return s.tasks[i].Clone(), nil
		}
	}
	return domain.Task{}, domain.ErrTaskNotFound
}

// Len reports the number of tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// ActiveCount reports the number of not-fully-completed tasks.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeCountLocked()
}

func (s *Store) activeCountLocked() int {
	n := 0
	for i := range s.tasks {
		if !s.tasks[i].IsCompleted() {
			n++
		}
	}
	return n
}

// normalizeLocked partitions active from completed tasks, sorts each
// partition by its current priority, reassigns active priorities 1..N and
// appends the completed partition after. Callers hold the write lock.
func (s *Store) normalizeLocked() {
	active := make([]domain.Task, 0, len(s.tasks))
	completed := make([]domain.Task, 0)
	for i := range s.tasks {
		if s.tasks[i].IsCompleted() {
			completed = append(completed, s.tasks[i])
		} else {
			active = append(active, s.tasks[i])
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority < active[j].Priority
	})
	for i := range active {
		active[i].Priority = i + 1
	}
	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].Priority < completed[j].Priority
	})

	s.tasks = append(active, completed...)
}
