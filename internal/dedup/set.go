// Package dedup tracks URLs already represented by a task row.
package dedup

import "sync"

// URLSet is an in-memory set of scheduled URLs. It is rebuilt from the task
// store at startup and is the only non-persisted crawl state.
type URLSet struct {
	mu   sync.RWMutex
	urls map[string]struct{}
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{urls: make(map[string]struct{})}
}

// Seed marks every URL in the slice, without reporting novelty. Used when
// resuming against a populated task store.
func (s *URLSet) Seed(urls []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range urls {
		s.urls[u] = struct{}{}
	}
}

// Seen reports whether url has been marked.
func (s *URLSet) Seen(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.urls[url]
	return ok
}

// MarkIfNew marks url and reports true if it was not already present.
func (s *URLSet) MarkIfNew(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.urls[url]; ok {
		return false
	}
	s.urls[url] = struct{}{}
	return true
}

// Len returns the number of distinct URLs marked.
func (s *URLSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.urls)
}
