// Package filestore holds the raw binary payloads of queued uploads outside
// of the queue's serializable state, keyed by the client-generated item id.
//
// Each buffer is exclusively owned by the queue item referencing it and must
// be released exactly once, when that item is removed. Explicit release keeps
// peak memory bounded for large batches instead of relying on garbage
// collection alone.
package filestore

import (
	"fmt"
	"sync"
)

// Store is an in-memory arena of owned byte buffers indexed by upload id.
type Store struct {
	mu      sync.Mutex
	buffers map[string][]byte
}

func New() *Store {
	return &Store{buffers: make(map[string][]byte)}
}

// Put registers data under id. It is an error to reuse an id that is still
// held; that indicates a caller bug.
func (s *Store) Put(id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buffers[id]; ok {
		return fmt.Errorf("filestore: id %q already present", id)
	}
	s.buffers[id] = data
	return nil
}

// Get returns the buffer for id, if held.
func (s *Store) Get(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.buffers[id]
	return data, ok
}

// Release frees the buffer for id. Releasing an absent id is a no-op, so
// every removal path can call it unconditionally.
func (s *Store) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.buffers, id)
}

// Len returns the number of held buffers.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.buffers)
}

// Clear releases every held buffer.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffers = make(map[string][]byte)
}
