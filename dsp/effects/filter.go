package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

const (
	defaultFilterCutoffHz = 1000.0
	defaultFilterQ        = 0.707

	minFilterQ = 0.1
	maxFilterQ = 10.0

	filterNyquistSafetyRatio = 0.49
)

// FilterType selects the biquad response shape.
type FilterType int

const (
	FilterLowpass FilterType = iota
	FilterHighpass
	FilterBandpass
)

// Filter wraps one biquad section per interleaved channel.
//
// Coefficients come from the algo-dsp RBJ designs and are shared across
// channels; only the section state is per channel.
type Filter struct {
	sampleRate float64
	channels   int
	typ        FilterType
	cutoffHz   float64
	q          float64

	sections []*biquad.Section
}

// NewFilter creates a lowpass filter for the given stream layout.
func NewFilter(sampleRate float64, channels int) (*Filter, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("filter sample rate must be > 0 and finite: %f", sampleRate)
	}

	if channels < 1 {
		return nil, fmt.Errorf("filter channels must be >= 1: %d", channels)
	}

	f := &Filter{
		sampleRate: sampleRate,
		channels:   channels,
		typ:        FilterLowpass,
		cutoffHz:   defaultFilterCutoffHz,
		q:          defaultFilterQ,
		sections:   make([]*biquad.Section, channels),
	}

	for ch := range f.sections {
		f.sections[ch] = biquad.NewSection(biquad.Coefficients{})
	}
	f.redesign()

	return f, nil
}

// SetType selects the response shape.
func (f *Filter) SetType(typ FilterType) error {
	if typ != FilterLowpass && typ != FilterHighpass && typ != FilterBandpass {
		return fmt.Errorf("filter type is invalid: %d", typ)
	}

	f.typ = typ
	f.redesign()

	return nil
}

// SetCutoffHz sets the corner frequency in (0, 0.49*sampleRate).
func (f *Filter) SetCutoffHz(cutoffHz float64) error {
	maxAllowed := filterNyquistSafetyRatio * f.sampleRate
	if cutoffHz <= 0 || cutoffHz >= maxAllowed ||
		math.IsNaN(cutoffHz) || math.IsInf(cutoffHz, 0) {
		return fmt.Errorf("filter cutoff must be in (0, %.2f): %f", maxAllowed, cutoffHz)
	}

	f.cutoffHz = cutoffHz
	f.redesign()

	return nil
}

// SetQ sets the resonance in [0.1, 10].
func (f *Filter) SetQ(q float64) error {
	if q < minFilterQ || q > maxFilterQ || math.IsNaN(q) || math.IsInf(q, 0) {
		return fmt.Errorf("filter q must be in [%g, %g]: %f", minFilterQ, maxFilterQ, q)
	}

	f.q = q
	f.redesign()

	return nil
}

// Type returns the response shape.
func (f *Filter) Type() FilterType { return f.typ }

// CutoffHz returns the corner frequency in Hz.
func (f *Filter) CutoffHz() float64 { return f.cutoffHz }

// Q returns the resonance.
func (f *Filter) Q() float64 { return f.q }

// Reset clears the per-channel section state.
func (f *Filter) Reset() {
	for _, s := range f.sections {
		s.Reset()
	}
}

// Process filters an interleaved block in place.
func (f *Filter) Process(block []float32, channels int) {
	if channels != f.channels {
		return
	}

	frames := len(block) / channels
	for ch := 0; ch < channels; ch++ {
		s := f.sections[ch]
		for fr := 0; fr < frames; fr++ {
			i := fr*channels + ch
			block[i] = float32(s.ProcessSample(float64(block[i])))
		}
	}
}

func (f *Filter) redesign() {
	var c biquad.Coefficients

	switch f.typ {
	case FilterHighpass:
		c = design.Highpass(f.cutoffHz, f.q, f.sampleRate)
	case FilterBandpass:
		c = design.Bandpass(f.cutoffHz, f.q, f.sampleRate)
	default:
		c = design.Lowpass(f.cutoffHz, f.q, f.sampleRate)
	}

	for _, s := range f.sections {
		s.Coefficients = c
	}
}
