// Package allpass implements the first-order all-pass section used as the
// phase-shifting building block of modulation effects.
package allpass

// Stage is a single first-order all-pass filter in one-multiply form.
// It shifts phase per frequency while leaving amplitude unchanged.
//
// The zero value is a pass-through inverter (a1 = 0); call SetDelay to
// tune it before processing.
type Stage struct {
	a1  float64
	zm1 float64
}

// SetDelay derives the feedback coefficient from the normalized delay d.
// d is a frequency-like quantity that must stay in [0, 1); at or above 1
// the filter becomes unstable, so the caller keeps d inside the Nyquist
// range. Modulation effects call this once per sample.
func (s *Stage) SetDelay(d float64) {
	s.a1 = (1 - d) / (1 + d)
}

// Coefficient returns the current feedback coefficient.
func (s *Stage) Coefficient() float64 { return s.a1 }

// Process filters one sample.
func (s *Stage) Process(x float64) float64 {
	y := -s.a1*x + s.zm1
	s.zm1 = y*s.a1 + x

	return y
}

// Reset clears the feedback memory without touching the coefficient.
func (s *Stage) Reset() {
	s.zm1 = 0
}
