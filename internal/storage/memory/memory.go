package memory

import (
	"context"
	"errors"
	"sync"
)

// ErrQuotaExceeded is returned by Set when a write would exceed the quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Slot is an in-process key-value store with an optional byte quota.
type Slot struct {
	mu       sync.Mutex
	items    map[string]string
	maxBytes int
	writes   int
}

// New returns an empty slot store. maxBytes <= 0 disables the quota.
func New(maxBytes int) *Slot {
	return &Slot{items: make(map[string]string), maxBytes: maxBytes}
}

func (s *Slot) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *Slot) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxBytes > 0 {
		used := s.usedLocked()
		if old, ok := s.items[key]; ok {
			used -= len(key) + len(old)
		}
		if used+len(key)+len(value) > s.maxBytes {
			return ErrQuotaExceeded
		}
	}
	s.items[key] = value
	s.writes++
	return nil
}

func (s *Slot) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Writes returns how many successful Set calls were made.
func (s *Slot) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Slot) usedLocked() int {
	n := 0
	for k, v := range s.items {
		n += len(k) + len(v)
	}
	return n
}
