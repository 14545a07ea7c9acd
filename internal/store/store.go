// Package store holds the cloud variables known to a session.
package store

import (
	"errors"
	"math/big"
	"sort"
	"strconv"
	"strings"

	cmap "github.com/orcaman/concurrent-map/v2"
)

type entry struct {
	value string
	// remote is set once the server has sent a value for the name.
	remote bool
}

// Store maps variable names to their last known value.  Local writes are
// optimistic and visible immediately; remote writes always win.  It is
// safe for concurrent use.
type Store struct {
	m cmap.ConcurrentMap[string, entry]
}

// New returns an empty store.
func New() *Store {
	return &Store{m: cmap.New[entry]()}
}

// Get returns the current value of name.
func (s *Store) Get(name string) (string, bool) {
	e, ok := s.m.Get(name)
	return e.value, ok
}

// Set records a local write and reports whether name was unknown.
func (s *Store) Set(name, value string) (isNew bool) {
	s.m.Upsert(name, entry{value: value}, func(exist bool, old, nv entry) entry {
		isNew = !exist
		nv.remote = old.remote
		return nv
	})
	return isNew
}

// Apply records a value received from the server and reports whether
// this is the first remote value seen for name.
func (s *Store) Apply(name, value string) (isNew bool) {
	s.m.Upsert(name, entry{value: value, remote: true}, func(exist bool, old, nv entry) entry {
		isNew = !exist || !old.remote
		return nv
	})
	return isNew
}

// Has reports whether name has been observed.
func (s *Store) Has(name string) bool { return s.m.Has(name) }

// Len returns the number of known variables.
func (s *Store) Len() int { return s.m.Count() }

// Names returns the known variable names, sorted.
func (s *Store) Names() []string {
	keys := s.m.Keys()
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of all variables.
func (s *Store) Snapshot() map[string]string {
	items := s.m.Items()
	out := make(map[string]string, len(items))
	for k, e := range items {
		out[k] = e.value
	}
	return out
}

var radix = map[byte]int{'x': 16, 'o': 8, 'b': 2} //nolint:gochecknoglobals

// IsNumeric reports whether value reads as a number the way the cloud
// server checks it.  Surrounding whitespace is ignored and the empty
// string counts as zero.
func IsNumeric(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return true
	}
	switch v {
	case "Infinity", "+Infinity", "-Infinity":
		return true
	}
	lower := strings.ToLower(v)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") {
		return false
	}
	if len(lower) > 1 && lower[0] == '0' {
		if base, ok := radix[lower[1]]; ok {
			digits := lower[2:]
			_, err := strconv.ParseUint(digits, base, 64)
			if errors.Is(err, strconv.ErrRange) {
				// Wider than 64 bits is still a number; check every digit.
				_, ok := new(big.Int).SetString(digits, base)
				return ok
			}
			return err == nil
		}
	}
	if strings.Contains(v, "_") {
		return false
	}
	// Out of range is still a number; it becomes ±Infinity.
	_, err := strconv.ParseFloat(v, 64)
	return err == nil || errors.Is(err, strconv.ErrRange)
}
