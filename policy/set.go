package policy

import (
	"context"
	"encoding/json"
)

// Set maps policy names to values.
type Set map[Name]Value

// Clone returns a copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Overlay returns a copy of s with the registered entries of other applied
// on top. Names that are not registered are ignored.
func (s Set) Overlay(other Set) Set {
	out := s.Clone()
	for k, v := range other {
		if _, ok := Lookup(k); ok {
			out[k] = v
		}
	}
	return out
}

// MarshalJSON writes flags as booleans and everything else as numbers.
func (s Set) MarshalJSON() ([]byte, error) {
	out := make(map[Name]any, len(s))
	for k, v := range s {
		if d, ok := Lookup(k); ok && d.Kind == KindFlag {
			out[k] = v.Bool()
			continue
		}
		out[k] = int64(v)
	}
	return json.Marshal(out)
}

// DefaultsProvider supplies the system-wide instance policy defaults that
// are overlaid on the baseline.
type DefaultsProvider interface {
	InstancePolicies(ctx context.Context) (Set, error)
}

// Static is a DefaultsProvider backed by a fixed set.
type Static Set

func (s Static) InstancePolicies(context.Context) (Set, error) {
	return Set(s).Clone(), nil
}

// FromMap converts configuration values into a Set.
func FromMap(m map[string]int64) Set {
	out := make(Set, len(m))
	for k, v := range m {
		out[Name(k)] = Value(v)
	}
	return out
}
