package snapshot

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store persists bounded undo-snapshot stacks in BoltDB, one bucket per
// board. Keys are monotonic sequence numbers, so cursor order is push order:
// the first key is the oldest snapshot and the last key the undo candidate.
type Store struct {
	db *bolt.DB
}

// Open initializes the BoltDB file.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Push appends a snapshot payload and evicts the oldest entries beyond
// capacity.
func (s *Store) Push(boardID string, payload []byte, capacity int) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if capacity <= 0 {
		capacity = 1
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(boardID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(seq), payload); err != nil {
			return err
		}

		// FIFO eviction at the bottom of the stack. Stats are unreliable
		// inside an open write transaction, so count by iteration.
		total := 0
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			total++
		}
		for total > capacity {
			k, _ := b.Cursor().First()
			if k == nil {
				break
			}
			if err := b.Delete(k); err != nil {
				return err
			}
			total--
		}
		return nil
	})
}

// Pop removes and returns the newest snapshot. The second return is false
// when the stack is empty.
func (s *Store) Pop(boardID string) ([]byte, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, bolt.ErrDatabaseNotOpen
	}

	var payload []byte
	found := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boardID))
		if b == nil {
			return nil
		}
		k, v := b.Cursor().Last()
		if k == nil {
			return nil
		}
		payload = append([]byte(nil), v...)
		found = true
		return b.Delete(k)
	})
	return payload, found, err
}

// Len reports the number of snapshots held for a board.
func (s *Store) Len(boardID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(boardID)); b != nil {
			n = count(b)
		}
		return nil
	})
	return n, err
}

// Size reports the total number of snapshots across all boards, for the
// health monitor.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(_ []byte, b *bolt.Bucket) error {
			n += count(b)
			return nil
		})
	})
	return n, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func count(b *bolt.Bucket) int {
	return b.Stats().KeyN
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
