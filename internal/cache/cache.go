// internal/cache/cache.go
package cache

import (
	"sync"
	"time"
)

// Kind identifies one dashboard section.
type Kind string

const (
	KindProfile      Kind = "profile"
	KindRepositories Kind = "repositories"
	KindLanguages    Kind = "languages"
	KindFollowers    Kind = "followers"
	KindFollowing    Kind = "following"
	KindActivity     Kind = "activity"
)

// Key addresses one cached section for one account.
type Key struct {
	Kind   Kind
	Handle string
}

// Entry is the last-known state of one section. A failed resolve keeps the
// previous data around so the dashboard can keep rendering stale content
// alongside the error.
type Entry struct {
	Data       any
	Err        error
	Loading    bool
	ResolvedAt time.Time
}

// Store is a keyed section cache. Writes to different keys never conflict;
// writes to the same key apply in completion order, so the last query to
// resolve wins regardless of which one started first.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

func NewStore() *Store {
	return &Store{entries: make(map[Key]Entry)}
}

// Get returns the entry for key and whether one exists.
func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// MarkLoading flags the key as having a fetch in flight, keeping prior data visible.
func (s *Store) MarkLoading(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[key]
	e.Loading = true
	s.entries[key] = e
}

// Resolve records the terminal state of a fetch for key. On error the previous
// data is preserved and only the error is replaced.
func (s *Store) Resolve(key Key, data any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[key]
	if err == nil {
		e.Data = data
	}
	e.Err = err
	e.Loading = false
	e.ResolvedAt = time.Now()
	s.entries[key] = e
}

// Update applies fn to the cached data of key, if present. Used for confirmed
// mutations such as a visibility flip. fn must treat its argument as immutable
// and return a replacement value: cached slices and maps are aliased by views
// already handed out to callers, so writing through them races with readers.
func (s *Store) Update(key Key, fn func(data any) any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.Data == nil {
		return
	}
	e.Data = fn(e.Data)
	s.entries[key] = e
}

// Invalidate drops the given keys. Sibling keys keep their cached state.
func (s *Store) Invalidate(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
}
