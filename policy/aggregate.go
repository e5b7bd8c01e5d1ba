package policy

// AggregateFunc folds the values of one priority tier. It is only called
// with at least one value.
type AggregateFunc func(values []Value) Value

// MostPermissive treats -1 as unlimited and otherwise takes the maximum.
func MostPermissive(values []Value) Value {
	out := values[0]
	for _, v := range values {
		if v == Unlimited {
			return Unlimited
		}
		if v > out {
			out = v
		}
	}
	return out
}

// MostRestrictive ignores -1 unless every value is -1, and otherwise
// takes the minimum.
func MostRestrictive(values []Value) Value {
	out := Unlimited
	for _, v := range values {
		if v == Unlimited {
			continue
		}
		if out == Unlimited || v < out {
			out = v
		}
	}
	return out
}

func Max(values []Value) Value {
	out := values[0]
	for _, v := range values[1:] {
		if v > out {
			out = v
		}
	}
	return out
}

func Min(values []Value) Value {
	out := values[0]
	for _, v := range values[1:] {
		if v < out {
			out = v
		}
	}
	return out
}

// Any is logical OR over flags.
func Any(values []Value) Value {
	for _, v := range values {
		if v.Bool() {
			return 1
		}
	}
	return 0
}

// All is logical AND over flags.
func All(values []Value) Value {
	for _, v := range values {
		if !v.Bool() {
			return 0
		}
	}
	return 1
}
