package history

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store, used when history must not outlive the
// process and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	closed  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Save stores a copy of record.
func (s *MemoryStore) Save(ctx context.Context, record *Record) error {
	if err := ctx.Err(); err != nil {
		return NewStorageError("memory", "save", err)
	}
	if record == nil || record.ID == "" {
		return NewStorageError("memory", "save", errors.New("record has no id"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NewStorageError("memory", "save", errStoreClosed)
	}
	if _, ok := s.records[record.ID]; ok {
		return NewStorageError("memory", "save", errors.New("duplicate record id "+record.ID))
	}
	copied := *record
	s.records[record.ID] = &copied
	return nil
}

// Get returns a copy of the record with the given ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r
	return &copied, nil
}

// Query returns copies of the matching records, newest first.
func (s *MemoryStore) Query(ctx context.Context, q *Query) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewStorageError("memory", "query", err)
	}

	s.mu.RLock()
	matched := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		if q.matches(r) {
			copied := *r
			matched = append(matched, &copied)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *Record) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	if q != nil {
		if q.Offset > 0 {
			if q.Offset >= len(matched) {
				return []*Record{}, nil
			}
			matched = matched[q.Offset:]
		}
		if q.Limit > 0 && len(matched) > q.Limit {
			matched = matched[:q.Limit]
		}
	}
	return matched, nil
}

// Count returns the number of matching records.
func (s *MemoryStore) Count(ctx context.Context, q *Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, r := range s.records {
		if q.matches(r) {
			n++
		}
	}
	return n, nil
}

// DeleteBefore removes records started before cutoff.
func (s *MemoryStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, NewStorageError("memory", "delete", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.records {
		if r.StartedAt.Before(cutoff) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// Close marks the store closed. Later saves fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var errStoreClosed = errors.New("store is closed")
