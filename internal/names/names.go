// Package names holds the user-curated set of data-point names the stream
// reader extracts from incoming lines.
package names

import (
	"regexp"
	"strings"
	"sync"
)

var disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Sanitize normalizes user input into a valid data-point name: spaces
// become underscores and anything outside [A-Za-z0-9_-] is removed.
func Sanitize(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "_")
	return disallowedChars.ReplaceAllString(s, "")
}

// Set is an insertion-ordered set of names, safe for concurrent use.
// The reader goroutine calls Contains on every line while the UI mutates it.
type Set struct {
	mu    sync.RWMutex
	order []string
	index map[string]struct{}
}

// NewSet creates a set seeded with initial names. Duplicates and empty
// names are skipped.
func NewSet(initial ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(initial))}
	for _, name := range initial {
		s.Add(name)
	}
	return s
}

// Add appends name. It returns false when the name is empty or already present.
func (s *Set) Add(name string) bool {
	if name == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[name]; ok {
		return false
	}
	s.index[name] = struct{}{}
	s.order = append(s.order, name)
	return true
}

// Remove deletes name. It returns false when the name was not present.
func (s *Set) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[name]; !ok {
		return false
	}
	delete(s.index, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every name.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.index = make(map[string]struct{})
}

// Contains reports whether name is recognized.
func (s *Set) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[name]
	return ok
}

// List returns a copy of the names in insertion order.
func (s *Set) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Len returns the number of names.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
