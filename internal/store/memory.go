package store

import (
	"sync"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// memoryBackend is the data shared by sibling MemoryStore handles.
type memoryBackend struct {
	data cmap.ConcurrentMap[string, string]

	mu      sync.RWMutex
	handles map[string]*MemoryStore
}

// MemoryStore is a concurrency-safe in-memory Store. Handles created with
// Sibling share data and receive each other's change events.
type MemoryStore struct {
	id      string
	backend *memoryBackend

	mu   sync.Mutex
	subs listeners
}

// NewMemoryStore creates a new backing map and returns its first handle.
func NewMemoryStore() *MemoryStore {
	backend := &memoryBackend{
		data:    cmap.New[string](),
		handles: make(map[string]*MemoryStore),
	}
	return backend.open()
}

func (b *memoryBackend) open() *MemoryStore {
	s := &MemoryStore{
		id:      uuid.NewString(),
		backend: b,
	}

	b.mu.Lock()
	b.handles[s.id] = s
	b.mu.Unlock()

	return s
}

// Sibling returns another handle over the same data. Handles in one process
// see each other's writes as events.
func (s *MemoryStore) Sibling() *MemoryStore {
	return s.backend.open()
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(key string) (string, error) {
	v, ok := s.backend.data.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key and notifies sibling handles when the value changed.
func (s *MemoryStore) Set(key, value string) error {
	changed := true
	s.backend.data.Upsert(key, value, func(exist bool, old string, newValue string) string {
		if exist && old == newValue {
			changed = false
		}
		return newValue
	})

	if changed {
		s.backend.broadcast(s.id, Event{Key: key, NewValue: value})
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *MemoryStore) Remove(key string) error {
	if _, existed := s.backend.data.Pop(key); existed {
		s.backend.broadcast(s.id, Event{Key: key, Deleted: true})
	}
	return nil
}

// Subscribe registers fn for changes made through other handles.
func (s *MemoryStore) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.subs.add(fn)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.subs.remove(id)
		s.mu.Unlock()
	}
}

// Close detaches the handle from the shared data.
func (s *MemoryStore) Close() {
	s.backend.mu.Lock()
	delete(s.backend.handles, s.id)
	s.backend.mu.Unlock()
}

func (b *memoryBackend) broadcast(origin string, ev Event) {
	b.mu.RLock()
	var fns []func(Event)
	for id, h := range b.handles {
		if id == origin {
			continue
		}
		h.mu.Lock()
		fns = append(fns, h.subs.snapshot()...)
		h.mu.Unlock()
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

var (
	_ Store    = (*MemoryStore)(nil)
	_ Notifier = (*MemoryStore)(nil)
)
