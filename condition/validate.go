package condition

import (
	"errors"
	"fmt"
)

// MaxDepth bounds the nesting accepted by Validate.
const MaxDepth = 32

// ErrInvalid is returned by Validate for a structurally unusable tree.
var ErrInvalid = errors.New("herald: invalid condition")

// Validate checks that every node of the tree has a known kind and the
// fields that kind needs. Evaluate does not require a valid tree; Validate
// exists so editors can reject mistakes at write time.
func Validate(n Node) error {
	return validate(n, 1)
}

func validate(n Node, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrInvalid, MaxDepth)
	}
	if n.Malformed() {
		return fmt.Errorf("%w: malformed %q node", ErrInvalid, n.Kind)
	}
	if !n.Kind.Known() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, n.Kind)
	}

	switch {
	case n.Kind == KindAnd || n.Kind == KindOr:
		for i, child := range n.Values {
			if err := validate(child, depth+1); err != nil {
				return fmt.Errorf("%s[%d]: %w", n.Kind, i, err)
			}
		}
	case n.Kind == KindNot:
		if n.Operand == nil {
			return fmt.Errorf("%w: not without operand", ErrInvalid)
		}
		if err := validate(*n.Operand, depth+1); err != nil {
			return fmt.Errorf("not: %w", err)
		}
	case n.Kind == KindCreatedLessThan || n.Kind == KindCreatedMoreThan:
		if n.Sec < 0 {
			return fmt.Errorf("%w: %s with negative sec", ErrInvalid, n.Kind)
		}
	case n.Kind.counter():
		if n.Threshold < 0 {
			return fmt.Errorf("%w: %s with negative value", ErrInvalid, n.Kind)
		}
	}
	return nil
}
