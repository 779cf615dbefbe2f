package effects

import (
	"fmt"
	"math"
)

const (
	reverbNumCombs     = 8
	reverbNumAllpasses = 4

	reverbFixedGain    = 0.015
	reverbStereoSpread = 23

	defaultReverbWet      = 0.35
	defaultReverbDry      = 1.0
	defaultReverbRoomSize = 0.5
	defaultReverbDamp     = 0.5
)

// Comb and all-pass tunings calibrated for 44.1 kHz.
var (
	reverbCombTunings = [reverbNumCombs]int{
		1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617,
	}
	reverbAllpassTunings = [reverbNumAllpasses]int{556, 441, 341, 225}
)

type reverbComb struct {
	feedback    float64
	filterStore float64
	dampA       float64
	dampB       float64
	buffer      []float64
	index       int
}

func newReverbComb(size int) reverbComb {
	c := reverbComb{buffer: make([]float64, size)}
	c.setDamp(defaultReverbDamp)

	return c
}

func (c *reverbComb) setDamp(v float64) {
	c.dampA = v
	c.dampB = 1 - v
}

func (c *reverbComb) process(input float64) float64 {
	output := c.buffer[c.index]

	c.filterStore = output*c.dampB + c.filterStore*c.dampA
	if math.Abs(c.filterStore) < 1e-23 {
		c.filterStore = 0
	}

	c.buffer[c.index] = input + c.filterStore*c.feedback
	c.index++
	if c.index >= len(c.buffer) {
		c.index = 0
	}

	return output
}

func (c *reverbComb) reset() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
	c.index = 0
	c.filterStore = 0
}

type reverbAllpass struct {
	feedback float64
	buffer   []float64
	index    int
}

func newReverbAllpass(size int) reverbAllpass {
	return reverbAllpass{feedback: 0.5, buffer: make([]float64, size)}
}

func (a *reverbAllpass) process(input float64) float64 {
	bufOut := a.buffer[a.index]
	output := bufOut - input

	a.buffer[a.index] = input + bufOut*a.feedback
	a.index++
	if a.index >= len(a.buffer) {
		a.index = 0
	}

	return output
}

func (a *reverbAllpass) reset() {
	for i := range a.buffer {
		a.buffer[i] = 0
	}
	a.index = 0
}

type reverbChannel struct {
	combs   [reverbNumCombs]reverbComb
	allpass [reverbNumAllpasses]reverbAllpass
}

func (rc *reverbChannel) process(x, gain float64) float64 {
	in := gain * x

	var acc float64
	for i := range rc.combs {
		acc += rc.combs[i].process(in)
	}
	for i := range rc.allpass {
		acc = rc.allpass[i].process(acc)
	}

	return acc
}

// Reverb is a Schroeder/Freeverb-style reverb with an independent
// comb/all-pass bank per interleaved channel. Channels beyond the first
// get the classic stereo-spread tuning offset so they decorrelate.
type Reverb struct {
	sampleRate float64
	wet        float64
	dry        float64
	roomSize   float64
	damp       float64
	gain       float64

	chans []reverbChannel
}

// NewReverb constructs a reverb for the given stream layout. Tunings are
// rescaled from their 44.1 kHz reference values.
func NewReverb(sampleRate float64, channels int) (*Reverb, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("reverb sample rate must be > 0 and finite: %f", sampleRate)
	}

	if channels < 1 {
		return nil, fmt.Errorf("reverb channels must be >= 1: %d", channels)
	}

	scale := sampleRate / 44100.0
	r := &Reverb{
		sampleRate: sampleRate,
		gain:       reverbFixedGain,
		chans:      make([]reverbChannel, channels),
	}

	for ch := range r.chans {
		spread := reverbStereoSpread * ch
		for i, tuning := range reverbCombTunings {
			size := int(float64(tuning+spread) * scale)
			r.chans[ch].combs[i] = newReverbComb(size)
		}
		for i, tuning := range reverbAllpassTunings {
			size := int(float64(tuning+spread) * scale)
			r.chans[ch].allpass[i] = newReverbAllpass(size)
		}
	}

	r.SetWet(defaultReverbWet)
	r.SetDry(defaultReverbDry)
	r.SetRoomSize(defaultReverbRoomSize)
	r.SetDamp(defaultReverbDamp)

	return r, nil
}

// SetWet sets wet gain.
func (r *Reverb) SetWet(v float64) { r.wet = v }

// SetDry sets dry gain.
func (r *Reverb) SetDry(v float64) { r.dry = v }

// SetRoomSize sets comb feedback amount in [0, 1).
func (r *Reverb) SetRoomSize(v float64) {
	r.roomSize = v
	for ch := range r.chans {
		for i := range r.chans[ch].combs {
			r.chans[ch].combs[i].feedback = v
		}
	}
}

// SetDamp sets damping in the comb feedback filters.
func (r *Reverb) SetDamp(v float64) {
	r.damp = v
	for ch := range r.chans {
		for i := range r.chans[ch].combs {
			r.chans[ch].combs[i].setDamp(v)
		}
	}
}

// Wet returns wet gain.
func (r *Reverb) Wet() float64 { return r.wet }

// Dry returns dry gain.
func (r *Reverb) Dry() float64 { return r.dry }

// RoomSize returns comb feedback amount.
func (r *Reverb) RoomSize() float64 { return r.roomSize }

// Damp returns comb damping.
func (r *Reverb) Damp() float64 { return r.damp }

// Reset clears all delay and filter state.
func (r *Reverb) Reset() {
	for ch := range r.chans {
		for i := range r.chans[ch].combs {
			r.chans[ch].combs[i].reset()
		}
		for i := range r.chans[ch].allpass {
			r.chans[ch].allpass[i].reset()
		}
	}
}

// Process applies the reverb to an interleaved block in place.
func (r *Reverb) Process(block []float32, channels int) {
	if channels != len(r.chans) {
		return
	}

	frames := len(block) / channels
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels; ch++ {
			i := f*channels + ch
			in := float64(block[i])
			wet := r.chans[ch].process(in, r.gain)
			block[i] = float32(wet*r.wet + in*r.dry)
		}
	}
}
