package filename

import (
	"fmt"
	"os"

	"golang.org/x/text/cases"
)

// NameSet is a set of file names compared case-insensitively, matching the
// behavior of case-insensitive filesystems.
type NameSet map[string]struct{}

// NewNameSet returns a set holding names.
func NewNameSet(names ...string) NameSet {
	set := make(NameSet, len(names))
	for _, name := range names {
		set.Add(name)
	}
	return set
}

func fold(name string) string {
	return cases.Fold().String(name)
}

// Add inserts name.
func (s NameSet) Add(name string) {
	s[fold(name)] = struct{}{}
}

// Remove deletes name.
func (s NameSet) Remove(name string) {
	delete(s, fold(name))
}

// Contains reports whether name is present, ignoring case.
func (s NameSet) Contains(name string) bool {
	_, ok := s[fold(name)]
	return ok
}

// Clone returns an independent copy.
func (s NameSet) Clone() NameSet {
	clone := make(NameSet, len(s))
	for k := range s {
		clone[k] = struct{}{}
	}
	return clone
}

// ListDir returns the names of the entries in dir.
func ListDir(dir string) (NameSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	set := make(NameSet, len(entries))
	for _, entry := range entries {
		set.Add(entry.Name())
	}
	return set, nil
}

// Merge adds every name in other.
func (s NameSet) Merge(other NameSet) {
	for k := range other {
		s[k] = struct{}{}
	}
}
