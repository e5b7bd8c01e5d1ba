// Package condition implements the boolean condition trees that match
// conditional roles against an instance's live metrics.
//
// A tree is a tagged union: every Node carries a Kind and only the fields
// that kind uses. Evaluation never fails; a node that cannot be evaluated
// counts as "does not match" without affecting its siblings.
package condition

import (
	"time"
)

// Kind discriminates condition nodes.
type Kind string

const (
	KindAnd Kind = "and"
	KindOr  Kind = "or"
	KindNot Kind = "not"

	KindCreatedLessThan Kind = "createdLessThan"
	KindCreatedMoreThan Kind = "createdMoreThan"

	KindFollowersLessThanOrEq Kind = "followersLessThanOrEq"
	KindFollowersMoreThanOrEq Kind = "followersMoreThanOrEq"
	KindFollowingLessThanOrEq Kind = "followingLessThanOrEq"
	KindFollowingMoreThanOrEq Kind = "followingMoreThanOrEq"
	KindNotesLessThanOrEq     Kind = "notesLessThanOrEq"
	KindNotesMoreThanOrEq     Kind = "notesMoreThanOrEq"
)

// Known reports whether k is a kind this package can evaluate.
func (k Kind) Known() bool {
	switch k {
	case KindAnd, KindOr, KindNot,
		KindCreatedLessThan, KindCreatedMoreThan,
		KindFollowersLessThanOrEq, KindFollowersMoreThanOrEq,
		KindFollowingLessThanOrEq, KindFollowingMoreThanOrEq,
		KindNotesLessThanOrEq, KindNotesMoreThanOrEq:
		return true
	}
	return false
}

func (k Kind) counter() bool {
	switch k {
	case KindFollowersLessThanOrEq, KindFollowersMoreThanOrEq,
		KindFollowingLessThanOrEq, KindFollowingMoreThanOrEq,
		KindNotesLessThanOrEq, KindNotesMoreThanOrEq:
		return true
	}
	return false
}

// Metrics is the snapshot of an instance a tree is evaluated against.
type Metrics struct {
	CreatedAt      time.Time `json:"created_at"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	NotesCount     int64     `json:"notes_count"`
}

// Node is one element of a condition tree.
type Node struct {
	Kind Kind
	// ID is an opaque identifier used by editors; evaluation ignores it.
	ID string

	// Values holds the children of and/or.
	Values []Node
	// Operand is the negated child of not.
	Operand *Node
	// Sec is the age bound, in seconds, of the created* kinds.
	Sec int64
	// Threshold is the bound of the counter comparison kinds.
	Threshold int64

	// raw is set when the stored form of the node could not be decoded.
	raw []byte
}

// IsZero reports whether n is the empty node (no kind set).
func (n Node) IsZero() bool { return n.Kind == "" && n.raw == nil }

// Malformed reports whether n was decoded from a wire form it could not
// interpret. Malformed nodes evaluate to false.
func (n Node) Malformed() bool { return n.raw != nil }

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	cp := n
	if n.raw != nil {
		cp.raw = append([]byte(nil), n.raw...)
	}
	if n.Values != nil {
		cp.Values = make([]Node, len(n.Values))
		for i, v := range n.Values {
			cp.Values[i] = v.Clone()
		}
	}
	if n.Operand != nil {
		op := n.Operand.Clone()
		cp.Operand = &op
	}
	return cp
}

// ──────────────────────────────────────────────────
// Constructors
// ──────────────────────────────────────────────────

func And(values ...Node) Node { return Node{Kind: KindAnd, Values: nonNil(values)} }
func Or(values ...Node) Node  { return Node{Kind: KindOr, Values: nonNil(values)} }
func Not(n Node) Node         { return Node{Kind: KindNot, Operand: &n} }

func CreatedLessThan(sec int64) Node { return Node{Kind: KindCreatedLessThan, Sec: sec} }
func CreatedMoreThan(sec int64) Node { return Node{Kind: KindCreatedMoreThan, Sec: sec} }

func FollowersLessThanOrEq(v int64) Node { return Node{Kind: KindFollowersLessThanOrEq, Threshold: v} }
func FollowersMoreThanOrEq(v int64) Node { return Node{Kind: KindFollowersMoreThanOrEq, Threshold: v} }
func FollowingLessThanOrEq(v int64) Node { return Node{Kind: KindFollowingLessThanOrEq, Threshold: v} }
func FollowingMoreThanOrEq(v int64) Node { return Node{Kind: KindFollowingMoreThanOrEq, Threshold: v} }
func NotesLessThanOrEq(v int64) Node     { return Node{Kind: KindNotesLessThanOrEq, Threshold: v} }
func NotesMoreThanOrEq(v int64) Node     { return Node{Kind: KindNotesMoreThanOrEq, Threshold: v} }

func nonNil(values []Node) []Node {
	if values == nil {
		return []Node{}
	}
	return values
}
