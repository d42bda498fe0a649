package run

import (
	"sort"
	"sync"
)

// Status is the externally observable outcome of a run.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailure Status = "Failure"
)

// StatusKey is the store name the final run status is published under. It
// is the one name the Guard never clears.
const StatusKey = "RunStatus"

// Store is a mutex-guarded named-value registry for state shared across a
// run: provisioning facts a controller records for its later phases, the
// final status, anything with run scope but process-wide visibility.
type Store struct {
	mu     sync.Mutex
	values map[string]interface{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]interface{})}
}

// DefaultStore is the process-wide store used when no explicit store is
// threaded through. One CLI invocation is one run, so a process-level
// default is safe.
var DefaultStore = NewStore()

// Set stores a value under name, replacing any previous value.
func (s *Store) Set(name string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

// Get returns the value stored under name and whether it is present.
func (s *Store) Get(name string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

// Delete removes name from the store. Removing an absent name is a no-op.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, name)
}

// Names returns all stored names, sorted for deterministic iteration.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
