// Package growth implements the Memory Growth Strategy used by the W2CA
// trie variant to size its per-word sub-arrays as they fill up during ARPA
// ingest. G2DM does not use it; its per-bucket arrays grow by append.
package growth

import "math"

// Function selects the growth curve applied on top of the minimum
// increment.
type Function int

const (
	// Constant ignores current capacity: f(c) = 1.
	Constant Function = iota
	// Linear grows proportionally to current capacity: f(c) = c.
	Linear
	// Log2 grows with log base 2 of current capacity.
	Log2
	// Log10 grows with log base 10 of current capacity.
	Log10
)

// Strategy is an immutable growth policy: on a grow request given current
// capacity c, the new capacity is c + max(minInc, factor*f(c)).
type Strategy struct {
	MinInc int
	Factor float64
	Fn     Function
}

// New constructs a growth strategy. minInc is clamped to at least 1
// element, matching the specification's "minimum growth (>= 1 element)".
func New(fn Function, minInc int, factor float64) Strategy {
	if minInc < 1 {
		minInc = 1
	}
	return Strategy{MinInc: minInc, Factor: factor, Fn: fn}
}

// Grow returns the new capacity for a sub-array currently sized at
// capacity.
func (s Strategy) Grow(capacity int) int {
	var f float64
	switch s.Fn {
	case Linear:
		f = float64(capacity)
	case Log2:
		f = log(capacity, 2)
	case Log10:
		f = log(capacity, 10)
	default: // Constant
		f = 1
	}

	inc := int(math.Ceil(s.Factor * f))
	if inc < s.MinInc {
		inc = s.MinInc
	}
	return capacity + inc
}

func log(capacity int, base float64) float64 {
	if capacity < 2 {
		return 1
	}
	return math.Log(float64(capacity)) / math.Log(base)
}
