// Package entity holds the per-kind entity caches fed by every backend
// response and the joins used to display an entity together with its type.
package entity

import (
	"sync"
	"sync/atomic"
)

// versions is shared by every store so that a later mutation always carries a
// larger version than an earlier one, whichever store or session it hit.
var versions atomic.Uint64

// CurrentVersion returns the version of the latest mutation of any store.
func CurrentVersion() uint64 {
	return versions.Load()
}

type Keyed[K comparable] interface {
	EntityKey() K
}

// Snapshot is an immutable view of a store. Items is replaced wholesale on
// every mutation, so a Snapshot may be kept and shared without copying.
// Version grows with every mutation and is 0 for a store never written.
type Snapshot[E any] struct {
	Items   []E
	Version uint64
}

type Op string

const (
	OpAdd    Op = "add"
	OpUpsert Op = "upsert"
	OpRemove Op = "remove"
)

// Change describes a mutation that altered the store content.
type Change[K comparable, E any] struct {
	Kind     string
	Op       Op
	Keys     []K
	Snapshot Snapshot[E]
}

type Option[K comparable, E Keyed[K]] func(*Store[K, E])

// WithNotifier registers a callback invoked after every mutation that changed
// the content. It runs after the store lock is released.
func WithNotifier[K comparable, E Keyed[K]](notify func(Change[K, E])) Option[K, E] {
	return func(s *Store[K, E]) {
		s.notify = notify
	}
}

// Store is a deduplicated, ordered cache of one entity kind.
type Store[K comparable, E Keyed[K]] struct {
	kind   string
	notify func(Change[K, E])

	mu      sync.RWMutex
	items   []E
	index   map[K]int
	version uint64
}

func NewStore[K comparable, E Keyed[K]](kind string, opts ...Option[K, E]) *Store[K, E] {
	s := &Store[K, E]{
		kind:  kind,
		items: []E{},
		index: make(map[K]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store[K, E]) Kind() string {
	return s.kind
}

func (s *Store[K, E]) Snapshot() Snapshot[E] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot[E]{Items: s.items, Version: s.version}
}

func (s *Store[K, E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store[K, E]) Get(key K) (E, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[key]
	if !ok {
		var zero E
		return zero, false
	}
	return s.items[i], true
}

// Add appends the entities whose key is not cached yet. Cached entities win
// over incoming ones with the same key, and within batch the first occurrence
// of a key wins.
func (s *Store[K, E]) Add(batch []E) {
	if change, ok := s.add(batch); ok {
		s.publish(change)
	}
}

// Seed behaves like Add without notifying. It is meant for hydrating a store
// from persisted state.
func (s *Store[K, E]) Seed(batch []E) {
	s.add(batch)
}

func (s *Store[K, E]) add(batch []E) (Change[K, E], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []E
	seen := make(map[K]struct{}, len(batch))
	for _, e := range batch {
		key := e.EntityKey()
		if _, exists := s.index[key]; exists {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		added = append(added, e)
	}
	if len(added) == 0 {
		return Change[K, E]{}, false
	}

	next := make([]E, 0, len(s.items)+len(added))
	next = append(next, s.items...)
	keys := make([]K, 0, len(added))
	for _, e := range added {
		s.index[e.EntityKey()] = len(next)
		next = append(next, e)
		keys = append(keys, e.EntityKey())
	}
	return s.commit(OpAdd, next, keys), true
}

// Upsert replaces cached entities in place, keeping their position, and
// appends entities with new keys. Within batch the last occurrence wins.
func (s *Store[K, E]) Upsert(batch []E) {
	if len(batch) == 0 {
		return
	}

	s.mu.Lock()
	next := make([]E, len(s.items), len(s.items)+len(batch))
	copy(next, s.items)
	keys := make([]K, 0, len(batch))
	for _, e := range batch {
		key := e.EntityKey()
		if i, exists := s.index[key]; exists {
			next[i] = e
		} else {
			s.index[key] = len(next)
			next = append(next, e)
		}
		keys = append(keys, key)
	}
	change := s.commit(OpUpsert, next, keys)
	s.mu.Unlock()

	s.publish(change)
}

// Remove drops the entities with the given keys. Unknown keys are ignored.
func (s *Store[K, E]) Remove(keys ...K) {
	s.mu.Lock()
	drop := make(map[K]struct{}, len(keys))
	var removed []K
	for _, key := range keys {
		if _, exists := s.index[key]; !exists {
			continue
		}
		if _, dup := drop[key]; dup {
			continue
		}
		drop[key] = struct{}{}
		removed = append(removed, key)
	}
	if len(removed) == 0 {
		s.mu.Unlock()
		return
	}

	next := make([]E, 0, len(s.items)-len(removed))
	index := make(map[K]int, len(s.items)-len(removed))
	for _, e := range s.items {
		key := e.EntityKey()
		if _, gone := drop[key]; gone {
			continue
		}
		index[key] = len(next)
		next = append(next, e)
	}
	s.index = index
	change := s.commit(OpRemove, next, removed)
	s.mu.Unlock()

	s.publish(change)
}

// commit must be called with the write lock held.
func (s *Store[K, E]) commit(op Op, next []E, keys []K) Change[K, E] {
	s.items = next
	s.version = versions.Add(1)
	return Change[K, E]{
		Kind:     s.kind,
		Op:       op,
		Keys:     keys,
		Snapshot: Snapshot[E]{Items: next, Version: s.version},
	}
}

func (s *Store[K, E]) publish(change Change[K, E]) {
	if s.notify != nil {
		s.notify(change)
	}
}
