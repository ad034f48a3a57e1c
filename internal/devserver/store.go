package devserver

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("devserver: store closed")

// Key identifies a votable item.
type Key struct {
	ItemType string
	ItemID   string
}

// Totals summarises stored votes.
type Totals struct {
	Votes int
	Up    int
	Down  int
}

// Store persists votes.
type Store interface {
	// Cast records user's vote on key, replacing any earlier vote, and
	// returns the item's new score.
	Cast(ctx context.Context, user string, key Key, value int) (int, error)

	// Score returns the sum of all votes on key.
	Score(ctx context.Context, key Key) (int, error)

	// Totals counts stored votes. Zero votes are not counted.
	Totals(ctx context.Context) (Totals, error)

	Close() error
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	votes  map[Key]map[string]int
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{votes: make(map[Key]map[string]int)}
}

func (s *MemoryStore) Cast(_ context.Context, user string, key Key, value int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	byUser, ok := s.votes[key]
	if !ok {
		byUser = make(map[string]int)
		s.votes[key] = byUser
	}
	byUser[user] = value
	return sum(byUser), nil
}

func (s *MemoryStore) Score(_ context.Context, key Key) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return sum(s.votes[key]), nil
}

func (s *MemoryStore) Totals(_ context.Context) (Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Totals{}, ErrClosed
	}
	var t Totals
	for _, byUser := range s.votes {
		for _, v := range byUser {
			switch {
			case v > 0:
				t.Up++
			case v < 0:
				t.Down++
			default:
				continue
			}
			t.Votes++
		}
	}
	return t, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func sum(byUser map[string]int) int {
	total := 0
	for _, v := range byUser {
		total += v
	}
	return total
}
