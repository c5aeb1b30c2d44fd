// Package canon collapses recursion out of sampled call stacks.
package canon

import (
	"slices"

	"github.com/maxgio92/xstack/pkg/frame"
)

// Canonicalize drops, in place, the second occurrence of every adjacent
// repeated block of frames, trying block lengths from 1 up to the original
// length minus one. The shortened slice is returned.
func Canonicalize(trace []frame.Frame) []frame.Frame {
	bound := len(trace)
	for n := 1; n < bound; n++ {
		trace = RemoveCycles(trace, n)
	}

	return trace
}

// RemoveCycles removes the repetitions of blocks of length n.
// The position is not advanced after a removal, so that runs of more than
// two repetitions collapse to one.
func RemoveCycles(trace []frame.Frame, n int) []frame.Frame {
	if n < 1 {
		return trace
	}
	for i := 0; i < len(trace); {
		if i+2*n <= len(trace) && slices.Equal(trace[i:i+n], trace[i+n:i+2*n]) {
			trace = slices.Delete(trace, i+n, i+2*n)
			continue
		}
		i++
	}

	return trace
}

// IsCanonical reports whether Canonicalize would leave trace unchanged.
func IsCanonical(trace []frame.Frame) bool {
	c := Canonicalize(slices.Clone(trace))

	return slices.Equal(c, trace)
}
