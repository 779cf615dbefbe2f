// Package delay provides the fractional delay line used as the leaf
// primitive of delay-based effects.
package delay

import (
	"fmt"
	"math"
)

// Line is a circular delay line with a fractional read tap.
//
// The read position chases the write position by the configured delay;
// non-integer delays are resolved with linear interpolation between the
// two neighbouring ring samples. One sample goes in and one comes out on
// every Tick, so the line is suitable for per-sample hot paths.
type Line struct {
	inputs   []float32
	inPoint  int
	outPoint int

	delay   float64
	alpha   float64
	omAlpha float64
}

// New returns a delay line with an initial delay in samples and room for
// delays up to maxDelay samples.
func New(initialDelay float64, maxDelay int) (*Line, error) {
	if maxDelay < 1 {
		return nil, fmt.Errorf("delay capacity must be >= 1: %d", maxDelay)
	}

	if initialDelay < 0 || initialDelay > float64(maxDelay) ||
		math.IsNaN(initialDelay) || math.IsInf(initialDelay, 0) {
		return nil, fmt.Errorf("delay must be in [0, %d]: %f", maxDelay, initialDelay)
	}

	l := &Line{inputs: make([]float32, maxDelay+1)}
	l.applyDelay(initialDelay)

	return l, nil
}

// Delay returns the current delay in samples.
func (l *Line) Delay() float64 { return l.delay }

// MaxDelay returns the longest delay the line can currently represent.
func (l *Line) MaxDelay() int { return len(l.inputs) - 1 }

// SetDelay moves the read tap to d samples behind the write position and
// recomputes the interpolation weights. Values outside [0, MaxDelay] are
// ignored so a live parameter sweep can never corrupt the ring; callers
// that need a longer delay grow the line with SetMaxDelay first.
func (l *Line) SetDelay(d float64) {
	if d < 0 || d > float64(l.MaxDelay()) || math.IsNaN(d) || math.IsInf(d, 0) {
		return
	}

	l.applyDelay(d)
}

// SetMaxDelay grows the ring so delays up to maxDelay samples fit.
// The ring never shrinks: shrinking would invalidate delays already in
// flight, so smaller values are a no-op.
func (l *Line) SetMaxDelay(maxDelay int) {
	if maxDelay+1 <= len(l.inputs) {
		return
	}

	grown := make([]float32, maxDelay+1)
	copy(grown, l.inputs)
	l.inputs = grown
	l.applyDelay(l.delay)
}

// Tick writes one sample into the ring and returns the interpolated
// output at the current delay.
func (l *Line) Tick(x float32) float32 {
	l.inputs[l.inPoint] = x
	l.inPoint++
	if l.inPoint == len(l.inputs) {
		l.inPoint = 0
	}

	out := float64(l.inputs[l.outPoint]) * l.omAlpha
	next := l.outPoint + 1
	if next == len(l.inputs) {
		next = 0
	}
	out += float64(l.inputs[next]) * l.alpha

	l.outPoint++
	if l.outPoint == len(l.inputs) {
		l.outPoint = 0
	}

	return float32(out)
}

// Reset zeroes the ring contents without touching the configured delay.
func (l *Line) Reset() {
	for i := range l.inputs {
		l.inputs[i] = 0
	}
}

func (l *Line) applyDelay(d float64) {
	outPointer := float64(l.inPoint) - d
	size := float64(len(l.inputs))
	for outPointer < 0 {
		outPointer += size
	}

	l.outPoint = int(outPointer)
	if l.outPoint == len(l.inputs) {
		l.outPoint = 0
	}

	l.alpha = outPointer - math.Floor(outPointer)
	l.omAlpha = 1 - l.alpha
	l.delay = d
}
