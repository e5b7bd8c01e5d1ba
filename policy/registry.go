package policy

import (
	"fmt"
	"sync"
)

// Kind tells how a policy's value is interpreted.
type Kind int

const (
	// KindLimit is a numeric limit where -1 means unlimited.
	KindLimit Kind = iota
	// KindFlag is a boolean stored as 0/1.
	KindFlag
	// KindNumber is a plain number.
	KindNumber
)

// Definition describes a recognized policy.
type Definition struct {
	Name      Name
	Kind      Kind
	Baseline  Value
	Aggregate AggregateFunc
}

var registry = struct {
	sync.RWMutex
	defs  map[Name]Definition
	order []Name
}{defs: make(map[Name]Definition)}

func init() {
	for _, name := range []Name{
		FollowRateLimit,
		SubscribeRateLimit,
		ReactionRateLimit,
		NotificationRateLimit,
		NoteRateLimit,
		NewUserRateLimit,
	} {
		MustRegister(Definition{Name: name, Kind: KindLimit, Baseline: Unlimited, Aggregate: MostPermissive})
	}
}

// Register adds a policy definition. Names must be unique.
func Register(d Definition) error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalid)
	}
	if d.Aggregate == nil {
		return fmt.Errorf("%w: %s has no aggregate rule", ErrInvalid, d.Name)
	}
	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.defs[d.Name]; ok {
		return fmt.Errorf("%w: %s already registered", ErrInvalid, d.Name)
	}
	registry.defs[d.Name] = d
	registry.order = append(registry.order, d.Name)
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(d Definition) {
	if err := Register(d); err != nil {
		panic(err)
	}
}

// Lookup returns the definition for name.
func Lookup(name Name) (Definition, bool) {
	registry.RLock()
	defer registry.RUnlock()
	d, ok := registry.defs[name]
	return d, ok
}

// Definitions returns all definitions in registration order.
func Definitions() []Definition {
	registry.RLock()
	defer registry.RUnlock()
	out := make([]Definition, 0, len(registry.order))
	for _, name := range registry.order {
		out = append(out, registry.defs[name])
	}
	return out
}

// Baseline returns the hard-coded value of every registered policy.
func Baseline() Set {
	defs := Definitions()
	s := make(Set, len(defs))
	for _, d := range defs {
		s[d.Name] = d.Baseline
	}
	return s
}
