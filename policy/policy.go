// Package policy defines the named limits and flags resolved per instance,
// the override records roles attach to them, and the rules that combine
// several overrides into one effective value.
package policy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Name identifies a policy.
type Name string

// Rate-limit policies. -1 means unlimited.
const (
	FollowRateLimit       Name = "followRateLimit"
	SubscribeRateLimit    Name = "subscribeRateLimit"
	ReactionRateLimit     Name = "reactionRateLimit"
	NotificationRateLimit Name = "notificationRateLimit"
	NoteRateLimit         Name = "noteRateLimit"
	NewUserRateLimit      Name = "newUserRateLimit"
)

// Unlimited is the rate-limit sentinel.
const Unlimited Value = -1

// ErrInvalid is returned for an override that cannot be stored.
var ErrInvalid = errors.New("herald: invalid policy")

// Value is a policy value. Flags are stored as 0 and 1.
type Value int64

// Bool reports whether a flag value is set.
func (v Value) Bool() bool { return v != 0 }

// BoolValue converts a flag to a Value.
func BoolValue(b bool) Value {
	if b {
		return 1
	}
	return 0
}

// UnmarshalJSON accepts numbers and booleans.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true":
		*v = 1
		return nil
	case "false", "null":
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		var f float64
		if ferr := json.Unmarshal(data, &f); ferr != nil {
			return fmt.Errorf("policy: decode value %s: %w", data, err)
		}
		n = int64(f)
	}
	*v = Value(n)
	return nil
}

// Override is a role's opinion on one policy.
type Override struct {
	Value Value `json:"value"`
	// Priority is the tier, 0 to 2. The highest populated tier wins.
	Priority int `json:"priority"`
	// UseDefault substitutes the base value for Value.
	UseDefault bool `json:"useDefault"`
}

// Validate checks the priority range and that the policy is registered.
func (o Override) Validate(name Name) error {
	if _, ok := Lookup(name); !ok {
		return fmt.Errorf("%w: unknown policy %q", ErrInvalid, name)
	}
	if o.Priority < 0 || o.Priority > 2 {
		return fmt.Errorf("%w: %s priority %d out of range 0..2", ErrInvalid, name, o.Priority)
	}
	return nil
}

// Combine resolves one policy from the overrides of every applicable role
// that declares it. UseDefault overrides take base. The first non-empty
// tier, from priority 2 down to 0, is folded with def.Aggregate. With no
// overrides the result is base.
func Combine(def Definition, base Value, overrides []Override) Value {
	for tier := 2; tier >= 0; tier-- {
		var values []Value
		for _, o := range overrides {
			if o.Priority != tier {
				continue
			}
			if o.UseDefault {
				values = append(values, base)
			} else {
				values = append(values, o.Value)
			}
		}
		if len(values) > 0 {
			return def.Aggregate(values)
		}
	}
	return base
}
