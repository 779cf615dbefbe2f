package engine

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-audio/dsp/envelope"
)

// constProvider fills every sample with a fixed value and never runs
// out.
type constProvider struct {
	value float32
}

func (p *constProvider) ReadPCM(dst []float32, frames, channels int) int {
	for i := 0; i < frames*channels; i++ {
		dst[i] = p.value
	}

	return frames
}

// finiteProvider serves a fixed number of frames of ones, then dries
// up.
type finiteProvider struct {
	remaining int
}

func (p *finiteProvider) ReadPCM(dst []float32, frames, channels int) int {
	n := frames
	if n > p.remaining {
		n = p.remaining
	}

	for i := 0; i < n*channels; i++ {
		dst[i] = 1
	}

	p.remaining -= n

	return n
}

func TestNewSourceValidation(t *testing.T) {
	if _, err := NewSource(nil); err == nil {
		t.Fatal("expected error for nil provider")
	}

	if _, err := NewSource(&constProvider{}, WithGain(-1)); err == nil {
		t.Fatal("expected error for negative gain")
	}
}

func TestSourceRendersOnlyWhilePlaying(t *testing.T) {
	s, err := NewSource(&constProvider{value: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	s.bind(4, 2)

	out := make([]float32, 8)
	s.render(out, 4, 2)

	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d rendered before Play: %v", i, v)
		}
	}

	s.Play()
	s.render(out, 4, 2)

	for i, v := range out {
		if v != 0.5 {
			t.Fatalf("sample %d: got %v want 0.5", i, v)
		}
	}

	s.Stop()

	if s.Playing() {
		t.Fatal("still playing after Stop without envelope")
	}
}

func TestSourceMixesAdditively(t *testing.T) {
	s, err := NewSource(&constProvider{value: 0.25})
	if err != nil {
		t.Fatal(err)
	}
	s.bind(4, 1)
	s.Play()

	out := []float32{1, 1, 1, 1}
	s.render(out, 4, 1)

	for i, v := range out {
		if v != 1.25 {
			t.Fatalf("sample %d: got %v want 1.25", i, v)
		}
	}
}

func TestSourceGain(t *testing.T) {
	s, err := NewSource(&constProvider{value: 0.5}, WithGain(2))
	if err != nil {
		t.Fatal(err)
	}
	s.bind(4, 1)
	s.Play()

	out := make([]float32, 4)
	s.render(out, 4, 1)

	for i, v := range out {
		if v != 1 {
			t.Fatalf("sample %d: got %v want 1", i, v)
		}
	}

	if err := s.SetGain(5); err == nil {
		t.Fatal("expected error for gain out of range")
	}

	if s.Gain() != 2 {
		t.Fatalf("gain changed by rejected setter: %v", s.Gain())
	}
}

func TestSourceEnvelopeReleaseTail(t *testing.T) {
	env := envelope.New()
	env.SetAttackRate(0)
	env.SetReleaseRate(32)

	s, err := NewSource(&constProvider{value: 1}, WithEnvelope(env))
	if err != nil {
		t.Fatal(err)
	}
	s.bind(16, 1)

	s.Play()

	out := make([]float32, 16)
	s.render(out, 16, 1)

	if out[0] < 0.99 {
		t.Fatalf("instant attack did not reach full level: %v", out[0])
	}

	s.Stop()

	if !s.Playing() {
		t.Fatal("source cut immediately despite release envelope")
	}

	// The release runs down over the next blocks; once the envelope
	// goes idle the source stops itself.
	var tail float64
	for i := 0; i < 64 && s.Playing(); i++ {
		for j := range out {
			out[j] = 0
		}

		s.render(out, 16, 1)

		for _, v := range out {
			tail += math.Abs(float64(v))
		}
	}

	if s.Playing() {
		t.Fatal("release never reached idle")
	}

	if tail == 0 {
		t.Fatal("no audible release tail")
	}
}

func TestSourceRetrigger(t *testing.T) {
	env := envelope.New()
	env.SetAttackRate(64)
	env.SetReleaseRate(32)

	s, err := NewSource(&constProvider{value: 1}, WithEnvelope(env))
	if err != nil {
		t.Fatal(err)
	}
	s.bind(16, 1)

	s.Play()

	out := make([]float32, 16)
	s.render(out, 16, 1)
	s.Stop()
	s.render(out, 16, 1)

	s.Play()

	if env.State() != envelope.StateAttack {
		t.Fatalf("retrigger state: got %v want %v", env.State(), envelope.StateAttack)
	}
}

func TestSourceStopsWhenProviderExhausted(t *testing.T) {
	s, err := NewSource(&finiteProvider{remaining: 4})
	if err != nil {
		t.Fatal(err)
	}
	s.bind(8, 1)
	s.Play()

	out := make([]float32, 8)
	s.render(out, 8, 1)

	for i := 0; i < 4; i++ {
		if out[i] != 1 {
			t.Fatalf("sample %d: got %v want 1", i, out[i])
		}
	}

	for i := 4; i < 8; i++ {
		if out[i] != 0 {
			t.Fatalf("sample %d past provider end: got %v want 0", i, out[i])
		}
	}

	// The next block gets nothing and the source parks itself.
	s.render(out, 8, 1)
	s.render(out, 8, 1)

	if s.Playing() {
		t.Fatal("source still playing after provider ran dry")
	}
}

func TestSourceChainAndSnapshot(t *testing.T) {
	s, err := NewSource(&constProvider{value: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	s.bind(4, 1)
	s.Play()

	s.Chain().Add(mulConst(2))

	out := make([]float32, 4)
	s.render(out, 4, 1)

	for i, v := range out {
		if v != 1 {
			t.Fatalf("sample %d: got %v want 1", i, v)
		}
	}

	dst, n := s.ReadOutput(nil)

	if n != 4 {
		t.Fatalf("snapshot length: got %d want 4", n)
	}

	for i := 0; i < n; i++ {
		if dst[i] != 1 {
			t.Fatalf("snapshot sample %d: got %v want 1", i, dst[i])
		}
	}
}
