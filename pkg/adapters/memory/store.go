package memory

import (
	"context"
	"sync"
	"time"

	"github.com/amutnick/Runecast/pkg/domain"
)

// Store implements ports.HistoryStore in memory.
// Safe for concurrent use.
type Store struct {
	records map[string]domain.ReadingRecord
	mu      sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore(seed ...domain.ReadingRecord) *Store {
	s := &Store{records: make(map[string]domain.ReadingRecord, len(seed))}
	for _, r := range seed {
		s.records[r.ID] = r.Clone()
	}
	return s
}

// List returns a copy of every record, newest first.
func (s *Store) List(ctx context.Context) ([]domain.ReadingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ReadingRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	domain.SortNewestFirst(out)
	return out, nil
}

// Get returns a copy so callers can't mutate the stored record.
func (s *Store) Get(ctx context.Context, id string) (domain.ReadingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return domain.ReadingRecord{}, domain.ErrRecordNotFound
	}
	return r.Clone(), nil
}

// Append stores the record, replacing any record with the same ID.
func (s *Store) Append(ctx context.Context, record domain.ReadingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record.Clone()
	return nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(s.records, id)
	return nil
}

// Prune drops records older than cutoff under a single write lock.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, r := range s.records {
		if r.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}
