package effects

import (
	"math"
	"testing"
)

func TestNewReverbValidation(t *testing.T) {
	if _, err := NewReverb(0, 2); err == nil {
		t.Fatal("expected error for invalid sample rate")
	}

	if _, err := NewReverb(44100, 0); err == nil {
		t.Fatal("expected error for invalid channel count")
	}
}

func TestReverbDryPassThrough(t *testing.T) {
	r, err := NewReverb(44100, 1)
	if err != nil {
		t.Fatal(err)
	}

	r.SetWet(0)
	r.SetDry(1)

	block := sineBlock(440, 44100, 512)
	orig := append([]float32(nil), block...)

	r.Process(block, 1)

	for i := range block {
		if math.Abs(float64(block[i]-orig[i])) > 1e-6 {
			t.Fatalf("frame %d: got %v want %v", i, block[i], orig[i])
		}
	}
}

func TestReverbImpulseProducesTail(t *testing.T) {
	r, err := NewReverb(44100, 1)
	if err != nil {
		t.Fatal(err)
	}

	r.SetWet(1)
	r.SetDry(0)

	block := make([]float32, 44100)
	block[0] = 1

	r.Process(block, 1)

	// The shortest comb delays about 1116 samples, so nothing comes out
	// before that and a tail follows well after it.
	var early, late float64
	for i, v := range block {
		if i < 1000 {
			early += float64(v) * float64(v)
		}

		if i >= 2000 && i < 30000 {
			late += float64(v) * float64(v)
		}
	}

	if early > 1e-12 {
		t.Fatalf("energy before comb latency: %v", early)
	}

	if late == 0 {
		t.Fatal("no reverb tail after impulse")
	}
}

func TestReverbTailDecays(t *testing.T) {
	r, err := NewReverb(44100, 1)
	if err != nil {
		t.Fatal(err)
	}

	r.SetWet(1)
	r.SetDry(0)
	r.SetRoomSize(0.5)

	block := make([]float32, 4*44100)
	block[0] = 1

	r.Process(block, 1)

	var head, tail float64
	for i := 2000; i < 44100; i++ {
		head += float64(block[i]) * float64(block[i])
	}

	for i := 3 * 44100; i < 4*44100; i++ {
		tail += float64(block[i]) * float64(block[i])
	}

	if tail >= head {
		t.Fatalf("tail energy %v did not decay below first second %v", tail, head)
	}
}

func TestReverbResetSilence(t *testing.T) {
	r, err := NewReverb(44100, 2)
	if err != nil {
		t.Fatal(err)
	}

	r.SetWet(1)
	r.SetDry(0)

	noisy := make([]float32, 2*4096)
	for i := range noisy {
		noisy[i] = 1
	}

	r.Process(noisy, 2)
	r.Reset()

	silent := make([]float32, 2*4096)
	r.Process(silent, 2)

	for i, v := range silent {
		if math.Abs(float64(v)) > 1e-9 {
			t.Fatalf("sample %d after reset: got %v want 0", i, v)
		}
	}
}

func TestReverbStereoSpreadDiffers(t *testing.T) {
	r, err := NewReverb(44100, 2)
	if err != nil {
		t.Fatal(err)
	}

	r.SetWet(1)
	r.SetDry(0)

	block := make([]float32, 2*8192)
	block[0] = 1
	block[1] = 1

	r.Process(block, 2)

	// The per-channel spread offsets the comb tunings, so the two
	// channels decorrelate even for identical input.
	var diff float64
	for i := 0; i < 8192; i++ {
		d := float64(block[2*i] - block[2*i+1])
		diff += d * d
	}

	if diff == 0 {
		t.Fatal("stereo channels identical despite spread offsets")
	}
}
