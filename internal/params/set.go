package params

import (
	"strconv"
	"strings"
)

// KeyPlatform selects the backend controller. It is the only key the
// resolver itself requires; everything else belongs to the controller.
const KeyPlatform = "platform"

type entry struct {
	key   string // original spelling from the first writer
	value string
}

// Set is an insertion-ordered collection of run parameters. Keys are unique
// case-insensitively; the spelling of the first writer is preserved.
type Set struct {
	order   []string // folded keys, insertion order
	entries map[string]entry
}

// NewSet creates an empty parameter set.
func NewSet() *Set {
	return &Set{entries: make(map[string]entry)}
}

func fold(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Put stores a value under key. A key that already exists (under any
// casing) is replaced in place, keeping its original position and spelling.
// The previous value and true are returned when a replacement happened.
func (s *Set) Put(key, value string) (string, bool) {
	f := fold(key)
	if prev, ok := s.entries[f]; ok {
		s.entries[f] = entry{key: prev.key, value: value}
		return prev.value, true
	}
	s.order = append(s.order, f)
	s.entries[f] = entry{key: strings.TrimSpace(key), value: value}
	return "", false
}

// Get returns the value for key, or the empty string when absent.
func (s *Set) Get(key string) string {
	v, _ := s.Lookup(key)
	return v
}

// Lookup returns the value for key and whether it is present.
func (s *Set) Lookup(key string) (string, bool) {
	e, ok := s.entries[fold(key)]
	return e.value, ok
}

// Has reports whether key is present.
func (s *Set) Has(key string) bool {
	_, ok := s.entries[fold(key)]
	return ok
}

// Keys returns all keys in insertion order, in their original spelling.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.order))
	for _, f := range s.order {
		keys = append(keys, s.entries[f].key)
	}
	return keys
}

// Len returns the number of parameters in the set.
func (s *Set) Len() int {
	return len(s.order)
}

// GetInt returns the value for key parsed as an integer. Absent keys yield
// the fallback; malformed values yield a ConfigurationError.
func (s *Set) GetInt(key string, fallback int) (int, error) {
	raw, ok := s.Lookup(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, NewConfigurationError(key, "resolver", "expected an integer, got "+strconv.Quote(raw))
	}
	return n, nil
}

// GetBool returns the value for key parsed as a boolean. Absent keys yield
// the fallback; malformed values yield a ConfigurationError.
func (s *Set) GetBool(key string, fallback bool) (bool, error) {
	raw, ok := s.Lookup(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, NewConfigurationError(key, "resolver", "expected a boolean, got "+strconv.Quote(raw))
	}
	return b, nil
}
