package history

import (
	"container/list"
	"fmt"
	"sync"
)

// LRUStore keeps the most recently saved or loaded entries in memory.
// Saves are written through to back, and misses are served from it.
// A nil back makes the store memory-only.
type LRUStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order *list.List // of *Entry, most recent at front
	items map[string]*list.Element
}

// NewLRUStore creates an LRU cache with the given capacity. Capacity must
// be >= 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element, cap),
	}
}

// Save caches the entry and writes it through to the backing store.
func (s *LRUStore) Save(entry *Entry) error {
	s.mu.Lock()
	s.put(entry)
	s.mu.Unlock()

	if s.back == nil {
		return nil
	}
	return s.back.Save(entry)
}

// Load checks the cache first, then the backing store, promoting hits.
func (s *LRUStore) Load(runID string) (*Entry, error) {
	s.mu.Lock()
	if el, ok := s.items[runID]; ok {
		s.order.MoveToFront(el)
		e := el.Value.(*Entry)
		s.mu.Unlock()
		return e, nil
	}
	s.mu.Unlock()

	if s.back == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	entry, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.put(entry)
	s.mu.Unlock()
	return entry, nil
}

// Recent returns up to n cached entries, most recent first. n <= 0 means all.
func (s *LRUStore) Recent(n int) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > s.order.Len() {
		n = s.order.Len()
	}
	out := make([]*Entry, 0, n)
	for el := s.order.Front(); el != nil && len(out) < n; el = el.Next() {
		out = append(out, el.Value.(*Entry))
	}
	return out
}

// put inserts or refreshes entry. Caller holds mu.
func (s *LRUStore) put(entry *Entry) {
	if el, ok := s.items[entry.ID]; ok {
		el.Value = entry
		s.order.MoveToFront(el)
		return
	}
	s.items[entry.ID] = s.order.PushFront(entry)
	for s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*Entry).ID)
	}
}
