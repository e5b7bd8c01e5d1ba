package condition

import (
	"time"
)

// Evaluate reports whether the tree rooted at n matches m at instant now.
//
// Unknown kinds evaluate to false. A fault while evaluating a node (a
// missing operand, a panic below it) makes that node false and nothing
// else: and/or keep evaluating the remaining children.
func Evaluate(m Metrics, n Node, now time.Time) (matched bool) {
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()

	if n.Malformed() {
		return false
	}

	switch n.Kind {
	case KindAnd:
		for _, child := range n.Values {
			if !Evaluate(m, child, now) {
				return false
			}
		}
		return true
	case KindOr:
		for _, child := range n.Values {
			if Evaluate(m, child, now) {
				return true
			}
		}
		return false
	case KindNot:
		if n.Operand == nil {
			return false
		}
		return !Evaluate(m, *n.Operand, now)
	case KindCreatedLessThan:
		return ageMillis(m, now) < n.Sec*1000
	case KindCreatedMoreThan:
		return ageMillis(m, now) > n.Sec*1000
	case KindFollowersLessThanOrEq:
		return m.FollowersCount <= n.Threshold
	case KindFollowersMoreThanOrEq:
		return m.FollowersCount >= n.Threshold
	case KindFollowingLessThanOrEq:
		return m.FollowingCount <= n.Threshold
	case KindFollowingMoreThanOrEq:
		return m.FollowingCount >= n.Threshold
	case KindNotesLessThanOrEq:
		return m.NotesCount <= n.Threshold
	case KindNotesMoreThanOrEq:
		return m.NotesCount >= n.Threshold
	default:
		return false
	}
}

func ageMillis(m Metrics, now time.Time) int64 {
	if m.CreatedAt.IsZero() {
		panic("condition: instance creation time unknown")
	}
	return now.UnixMilli() - m.CreatedAt.UnixMilli()
}
