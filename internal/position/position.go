// Package position allocates fractional ordering keys for cards within a
// column and columns within a board.
//
// Keys are float64 values. Inserting between two neighbours takes their
// midpoint, so no other row changes. When two neighbours are too close for a
// distinct midpoint the list is renormalized to evenly spaced keys.
package position

import (
	"errors"
	"math"
)

const (
	// DefaultGap is the spacing used for tail inserts and renormalization.
	DefaultGap = 1000.0
	// MinGap is the smallest neighbour distance that still admits a midpoint.
	MinGap = 1e-6
)

// ErrPrecisionExhausted is returned when no key strictly between two
// neighbours can be represented.
var ErrPrecisionExhausted = errors.New("position: precision exhausted")

// Between returns a key strictly between before and after. A nil bound means
// that side has no neighbour.
func Between(before, after *float64) (float64, error) {
	switch {
	case before == nil && after == nil:
		return DefaultGap, nil
	case before == nil:
		// Midpoint of a virtual neighbour one gap below the head.
		return midpoint(*after-DefaultGap, *after)
	case after == nil:
		p := *before + DefaultGap
		if p <= *before || math.IsInf(p, 0) {
			return 0, ErrPrecisionExhausted
		}
		return p, nil
	default:
		return midpoint(*before, *after)
	}
}

func midpoint(a, b float64) (float64, error) {
	if b-a < MinGap {
		return 0, ErrPrecisionExhausted
	}
	m := a + (b-a)/2
	if !(a < m && m < b) {
		return 0, ErrPrecisionExhausted
	}
	return m, nil
}

// Allocate returns the key for a new element inserted at index into the
// ordered list positions. index is clamped to [0, len(positions)].
func Allocate(positions []float64, index int) (float64, error) {
	index = clamp(index, len(positions))

	var before, after *float64
	if index > 0 {
		before = &positions[index-1]
	}
	if index < len(positions) {
		after = &positions[index]
	}
	return Between(before, after)
}

// Normalize returns n evenly spaced keys: DefaultGap, 2*DefaultGap, ...
func Normalize(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = DefaultGap * float64(i+1)
	}
	return out
}

// Placement is the outcome of Place. When Renormalized is true, Siblings
// holds the rewritten keys of the existing elements, in their original
// order, and every one of them must be persisted with the new element.
type Placement struct {
	Position     float64
	Renormalized bool
	Siblings     []float64
}

// Place allocates a key for an insert at index, renormalizing the list when
// precision is exhausted. It never fails.
func Place(positions []float64, index int) Placement {
	p, err := Allocate(positions, index)
	if err == nil {
		return Placement{Position: p}
	}

	index = clamp(index, len(positions))
	all := Normalize(len(positions) + 1)

	siblings := make([]float64, 0, len(positions))
	siblings = append(siblings, all[:index]...)
	siblings = append(siblings, all[index+1:]...)

	return Placement{Position: all[index], Renormalized: true, Siblings: siblings}
}

func clamp(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n {
		return n
	}
	return index
}
