package effects

import (
	"fmt"
	"math"
	"sync"
)

const (
	defaultEchoDelaySeconds = 0.25
	defaultEchoWet          = 0.5
	defaultEchoDry          = 1.0
	defaultEchoDecay        = 0.3

	minEchoDelaySeconds = 0.001
	maxEchoDelaySeconds = 10.0
	maxEchoDecay        = 0.99
)

// Echo is an interleaved multi-channel feedback delay.
//
// The ring is indexed (cursor*channels + channel) so all channels share
// one frame cursor. With zero decay the effect behaves as a pure delay:
// reads happen before writes, so the output stays silent until written
// content has travelled the full delay distance. With feedback the write
// happens first and the echo is audible immediately. Callers rely on both
// behaviours; do not fold the decay==0 branch into the general path.
type Echo struct {
	mu sync.Mutex

	sampleRate float64
	channels   int

	wet   float32
	dry   float32
	decay float32

	delayFrames int
	ring        []float32
	cursor      int
}

// NewEcho creates an echo for the given stream layout with practical
// defaults.
func NewEcho(sampleRate float64, channels int) (*Echo, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("echo sample rate must be > 0 and finite: %f", sampleRate)
	}

	if channels < 1 {
		return nil, fmt.Errorf("echo channels must be >= 1: %d", channels)
	}

	e := &Echo{
		sampleRate: sampleRate,
		channels:   channels,
		wet:        defaultEchoWet,
		dry:        defaultEchoDry,
		decay:      defaultEchoDecay,
	}
	e.setDelayFramesLocked(int(math.Round(defaultEchoDelaySeconds * sampleRate)))

	return e, nil
}

// SetDelayFrames sets the delay length in frames. Growth reallocates the
// ring to the next power of two that fits frames*channels samples; the
// ring never shrinks. The cursor is re-wrapped modulo the new length.
func (e *Echo) SetDelayFrames(frames int) error {
	if frames < 1 {
		return fmt.Errorf("echo delay must be >= 1 frame: %d", frames)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.setDelayFramesLocked(frames)

	return nil
}

// SetDelaySeconds sets the delay length in seconds.
func (e *Echo) SetDelaySeconds(seconds float64) error {
	if seconds < minEchoDelaySeconds || seconds > maxEchoDelaySeconds ||
		math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return fmt.Errorf("echo delay must be in [%g, %g] seconds: %f",
			minEchoDelaySeconds, maxEchoDelaySeconds, seconds)
	}

	frames := int(math.Round(seconds * e.sampleRate))
	if frames < 1 {
		frames = 1
	}

	return e.SetDelayFrames(frames)
}

// SetWet sets the delayed-signal gain in [0, 1].
func (e *Echo) SetWet(wet float64) error {
	if wet < 0 || wet > 1 || math.IsNaN(wet) || math.IsInf(wet, 0) {
		return fmt.Errorf("echo wet must be in [0, 1]: %f", wet)
	}

	e.mu.Lock()
	e.wet = float32(wet)
	e.mu.Unlock()

	return nil
}

// SetDry sets the direct-signal gain in [0, 1].
func (e *Echo) SetDry(dry float64) error {
	if dry < 0 || dry > 1 || math.IsNaN(dry) || math.IsInf(dry, 0) {
		return fmt.Errorf("echo dry must be in [0, 1]: %f", dry)
	}

	e.mu.Lock()
	e.dry = float32(dry)
	e.mu.Unlock()

	return nil
}

// SetDecay sets the feedback amount in [0, 0.99]. Zero selects the
// pure-delay read-before-write mode.
func (e *Echo) SetDecay(decay float64) error {
	if decay < 0 || decay > maxEchoDecay || math.IsNaN(decay) || math.IsInf(decay, 0) {
		return fmt.Errorf("echo decay must be in [0, %g]: %f", maxEchoDecay, decay)
	}

	e.mu.Lock()
	e.decay = float32(decay)
	e.mu.Unlock()

	return nil
}

// DelayFrames returns the delay length in frames.
func (e *Echo) DelayFrames() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.delayFrames
}

// DelaySeconds returns the delay length in seconds.
func (e *Echo) DelaySeconds() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return float64(e.delayFrames) / e.sampleRate
}

// Wet returns the delayed-signal gain.
func (e *Echo) Wet() float64 { e.mu.Lock(); defer e.mu.Unlock(); return float64(e.wet) }

// Dry returns the direct-signal gain.
func (e *Echo) Dry() float64 { e.mu.Lock(); defer e.mu.Unlock(); return float64(e.dry) }

// Decay returns the feedback amount.
func (e *Echo) Decay() float64 { e.mu.Lock(); defer e.mu.Unlock(); return float64(e.decay) }

// Channels returns the channel count the ring was laid out for.
func (e *Echo) Channels() int { return e.channels }

// Reset clears the ring and rewinds the cursor.
func (e *Echo) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.ring {
		e.ring[i] = 0
	}
	e.cursor = 0
}

// Process applies the echo to an interleaved block in place. The mutex it
// shares with the delay setters makes ring growth exclusive with
// processing; the device callback may run concurrently with a parameter
// change from another thread.
func (e *Echo) Process(block []float32, channels int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if channels != e.channels || e.delayFrames == 0 {
		return
	}

	frames := len(block) / channels
	for f := 0; f < frames; f++ {
		base := e.cursor * channels
		for ch := 0; ch < channels; ch++ {
			i := f*channels + ch
			in := block[i]
			idx := base + ch

			var delayed float32
			if e.decay == 0 {
				// Pure delay: output only what went in delayFrames ago.
				delayed = e.ring[idx]
				e.ring[idx] = in
			} else {
				e.ring[idx] = in + e.ring[idx]*e.decay
				delayed = e.ring[idx]
			}

			block[i] = in*e.dry + delayed*e.wet
		}

		e.cursor++
		if e.cursor >= e.delayFrames {
			e.cursor = 0
		}
	}
}

func (e *Echo) setDelayFramesLocked(frames int) {
	need := nextPow2(frames * e.channels)
	if need > len(e.ring) {
		grown := make([]float32, need)
		copy(grown, e.ring)
		e.ring = grown
	}

	e.delayFrames = frames
	e.cursor %= frames
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
