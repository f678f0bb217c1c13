package jobs

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/errors"
)

// Store is a source of job postings.
type Store interface {
	List(ctx context.Context) ([]Posting, error)
	Get(ctx context.Context, id ID) (*Posting, error)
}

// Replacer is implemented by stores whose collection can be swapped out.
type Replacer interface {
	Replace(ctx context.Context, postings []Posting) error
}

// MemoryStore keeps the current collection in memory. Readers always get a
// copy, so callers may hold on to what List returns.
type MemoryStore struct {
	mu       sync.RWMutex
	postings []Posting
	byID     map[ID]int
}

// NewMemoryStore creates a store holding a copy of postings.
func NewMemoryStore(postings []Posting) *MemoryStore {
	s := &MemoryStore{}
	s.set(postings)
	return s
}

func (s *MemoryStore) List(ctx context.Context) ([]Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Clone(s.postings), nil
}

func (s *MemoryStore) Get(ctx context.Context, id ID) (*Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, apperrors.ErrJobNotFound)
	}
	p := Clone(s.postings[idx : idx+1])[0]
	return &p, nil
}

// Replace validates postings and swaps them in as the new collection.
func (s *MemoryStore) Replace(ctx context.Context, postings []Posting) error {
	if err := Validate(postings); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(postings)
	return nil
}

// Len returns the number of postings held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.postings)
}

func (s *MemoryStore) set(postings []Posting) {
	s.postings = Clone(postings)
	s.byID = make(map[ID]int, len(postings))
	for i, p := range s.postings {
		if _, dup := s.byID[p.ID]; !dup {
			s.byID[p.ID] = i
		}
	}
}
