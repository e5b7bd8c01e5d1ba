// Package id defines the TypeID-backed identifiers used by herald entities.
//
// IDs are UUIDv7 based, so they sort by creation time and carry the
// instant they were minted. The string form is "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

const (
	PrefixRole       Prefix = "irole"
	PrefixAssignment Prefix = "iasgn"
	PrefixModLog     Prefix = "modlog"
)

// ID is a prefix-qualified, K-sortable identifier.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

type (
	// RoleID identifies an instance role (prefix "irole").
	RoleID = ID
	// AssignmentID identifies a role assignment (prefix "iasgn").
	AssignmentID = ID
	// ModLogID identifies a moderation log entry (prefix "modlog").
	ModLogID = ID
)

// New generates an ID with the given prefix. It panics on an invalid prefix.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

func NewRoleID() ID       { return New(PrefixRole) }
func NewAssignmentID() ID { return New(PrefixAssignment) }
func NewModLogID() ID     { return New(PrefixModLog) }

// Parse parses any TypeID string.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and requires the given prefix.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}
	return parsed, nil
}

func ParseRoleID(s string) (ID, error)       { return ParseWithPrefix(s, PrefixRole) }
func ParseAssignmentID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAssignment) }
func ParseModLogID(s string) (ID, error)     { return ParseWithPrefix(s, PrefixModLog) }

// MustParse is like Parse but panics on error. Use for hardcoded values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}
	return parsed
}

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the prefix component.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this is the zero value.
func (i ID) IsNil() bool { return !i.valid }

// Less orders IDs by their string form, which is creation order for IDs
// minted by New.
func (i ID) Less(other ID) bool { return i.String() < other.String() }

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}
	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer. Nil stores as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}
	return i.inner.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
