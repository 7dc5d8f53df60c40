package series

import (
	"math"
	"strconv"
)

// State tags a Value.
type State uint8

// Value states. The zero Value is Missing.
const (
	Missing State = iota
	Present
	Undefined
)

func (s State) String() string {
	switch s {
	case Present:
		return "present"
	case Undefined:
		return "undefined"
	default:
		return "missing"
	}
}

// Value is a numeric observation that is either present, missing (no
// observation) or undefined (the arithmetic producing it has no value, such
// as a zero denominator or the logarithm of a non-positive number).
type Value struct {
	state State
	f     float64
}

// Of wraps f. NaN and infinities are never stored; they become Undefined.
func Of(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{state: Undefined}
	}
	return Value{state: Present, f: f}
}

// NA returns a missing value.
func NA() Value { return Value{} }

// Undef returns an undefined value.
func Undef() Value { return Value{state: Undefined} }

// State returns the tag of v.
func (v Value) State() State { return v.state }

// Float returns the number and whether it is present.
func (v Value) Float() (float64, bool) {
	return v.f, v.state == Present
}

// IsPresent reports whether v carries a number.
func (v Value) IsPresent() bool { return v.state == Present }

// IsMissing reports whether v is an absent observation.
func (v Value) IsMissing() bool { return v.state == Missing }

// IsUndefined reports whether v is the result of undefined arithmetic.
func (v Value) IsUndefined() bool { return v.state == Undefined }

func (v Value) String() string {
	switch v.state {
	case Present:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Undefined:
		return "undefined"
	default:
		return ""
	}
}
