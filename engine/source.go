package engine

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-audio/dsp/envelope"
)

// PCMProvider supplies raw sample data for a source. ReadPCM fills dst
// with up to frames interleaved frames and returns how many it wrote;
// a short or zero return means the provider is exhausted. It is called
// from the data callback and must not block.
type PCMProvider interface {
	ReadPCM(dst []float32, frames, channels int) int
}

// SourceOption mutates source construction parameters.
type SourceOption func(*Source) error

// WithGain sets the source gain in [0, 4].
func WithGain(gain float64) SourceOption {
	return func(s *Source) error {
		if gain < 0 || gain > 4 || math.IsNaN(gain) {
			return fmt.Errorf("source gain must be in [0, 4]: %f", gain)
		}

		s.gain = float32(gain)

		return nil
	}
}

// WithEnvelope attaches an amplitude envelope gated by Play and Stop.
// Without one, Stop cuts the source immediately.
func WithEnvelope(env *envelope.ADSR) SourceOption {
	return func(s *Source) error {
		s.env = env

		return nil
	}
}

// Source is one playback voice: a PCM provider, an optional amplitude
// envelope, a gain, its own effect chain and a snapshot of its latest
// rendered block.
type Source struct {
	mu       sync.Mutex
	provider PCMProvider
	env      *envelope.ADSR
	gain     float32

	playing atomic.Bool

	chain    *Chain
	snapshot *Snapshot
	scratch  []float32
}

// NewSource creates a stopped source reading from provider.
func NewSource(provider PCMProvider, opts ...SourceOption) (*Source, error) {
	if provider == nil {
		return nil, fmt.Errorf("pcm provider must not be nil")
	}

	s := &Source{
		provider: provider,
		gain:     1,
		chain:    NewChain(),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Chain returns the source's effect chain.
func (s *Source) Chain() *Chain { return s.chain }

// Playing reports whether the source currently renders audio.
func (s *Source) Playing() bool { return s.playing.Load() }

// Gain returns the source gain.
func (s *Source) Gain() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return float64(s.gain)
}

// SetGain sets the source gain in [0, 4].
func (s *Source) SetGain(gain float64) error {
	if gain < 0 || gain > 4 || math.IsNaN(gain) {
		return fmt.Errorf("source gain must be in [0, 4]: %f", gain)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gain = float32(gain)

	return nil
}

// Play starts rendering. With an envelope attached the gate opens and
// the attack stage runs; calling Play on an already playing source
// re-triggers the attack.
func (s *Source) Play() {
	s.mu.Lock()
	if s.env != nil {
		s.env.SetGate(true)
	}
	s.mu.Unlock()

	s.playing.Store(true)
}

// Stop ends playback. With an envelope attached the source keeps
// rendering through the release stage and goes silent when the
// envelope reaches idle; without one it cuts immediately.
func (s *Source) Stop() {
	s.mu.Lock()
	env := s.env
	if env != nil {
		env.SetGate(false)
	}
	s.mu.Unlock()

	if env == nil {
		s.playing.Store(false)
	}
}

// ReadOutput copies the source's latest rendered block into dst. The
// length is 0 until the source has rendered at least once.
func (s *Source) ReadOutput(dst []float32) ([]float32, int) {
	s.mu.Lock()
	snap := s.snapshot
	s.mu.Unlock()

	if snap == nil {
		return dst, 0
	}

	return snap.Read(dst)
}

// bind sizes the render scratch and the snapshot for the stream the
// context opened. Called from Initialize and AddSource, never from the
// callback.
func (s *Source) bind(periodFrames, channels int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := periodFrames * channels
	if cap(s.scratch) < n {
		s.scratch = make([]float32, n)
	}

	if s.snapshot == nil || s.snapshot.Capacity() < n {
		s.snapshot = NewSnapshot(n)
	}
}

// render mixes one block of this source into out. Runs on the data
// callback goroutine. The source lock is held for the whole block so
// Play and Stop never race the envelope mid-render.
func (s *Source) render(out []float32, frames, channels int) {
	if !s.playing.Load() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	provider := s.provider
	env := s.env
	gain := s.gain
	snap := s.snapshot

	n := frames * channels
	if cap(s.scratch) < n {
		return
	}

	block := s.scratch[:n]
	for i := range block {
		block[i] = 0
	}

	got := provider.ReadPCM(block, frames, channels)
	if got <= 0 && env == nil {
		s.playing.Store(false)

		return
	}

	if env != nil {
		for f := 0; f < frames; f++ {
			g := float32(env.Process())
			for ch := 0; ch < channels; ch++ {
				block[f*channels+ch] *= g
			}
		}

		// The release tail has fully decayed; silence from here on.
		if env.State() == envelope.StateIdle {
			s.playing.Store(false)
		}
	}

	if gain != 1 {
		for i := range block {
			block[i] *= gain
		}
	}

	s.chain.Process(block, channels)

	if snap != nil {
		snap.Write(block)
	}

	for i := range block {
		out[i] += block[i]
	}
}
