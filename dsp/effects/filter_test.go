package effects

import (
	"math"
	"testing"
)

func filterRMS(block []float32) float64 {
	var sum float64
	for _, v := range block {
		sum += float64(v) * float64(v)
	}

	return math.Sqrt(sum / float64(len(block)))
}

func sineBlock(freq, sampleRate float64, frames int) []float32 {
	block := make([]float32, frames)
	for i := range block {
		block[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}

	return block
}

func TestNewFilterValidation(t *testing.T) {
	if _, err := NewFilter(0, 2); err == nil {
		t.Fatal("expected error for invalid sample rate")
	}

	if _, err := NewFilter(48000, 0); err == nil {
		t.Fatal("expected error for invalid channel count")
	}
}

func TestFilterSetters(t *testing.T) {
	f, err := NewFilter(48000, 1)
	if err != nil {
		t.Fatal(err)
	}

	if f.Type() != FilterLowpass || f.CutoffHz() != 1000 || f.Q() != 0.707 {
		t.Fatalf("defaults: type=%v cutoff=%v q=%v", f.Type(), f.CutoffHz(), f.Q())
	}

	if err := f.SetType(FilterBandpass); err != nil || f.Type() != FilterBandpass {
		t.Fatalf("SetType: err=%v got %v", err, f.Type())
	}

	if err := f.SetType(FilterType(99)); err == nil {
		t.Fatal("expected error for unknown filter type")
	}

	if err := f.SetCutoffHz(30000); err == nil {
		t.Fatal("expected error for cutoff beyond Nyquist")
	}

	if err := f.SetQ(0.01); err == nil {
		t.Fatal("expected error for q below range")
	}
}

func TestFilterLowpassAttenuatesHighFrequencies(t *testing.T) {
	const sampleRate = 48000

	f, err := NewFilter(sampleRate, 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.SetCutoffHz(500); err != nil {
		t.Fatal(err)
	}

	low := sineBlock(100, sampleRate, 8192)
	f.Process(low, 1)

	f.Reset()

	high := sineBlock(8000, sampleRate, 8192)
	f.Process(high, 1)

	// Skip the transient before comparing levels.
	lowRMS := filterRMS(low[2048:])
	highRMS := filterRMS(high[2048:])

	if lowRMS < 0.6 {
		t.Fatalf("passband attenuated: rms=%v", lowRMS)
	}

	if highRMS > 0.05 {
		t.Fatalf("stopband leaked: rms=%v", highRMS)
	}
}

func TestFilterHighpassAttenuatesLowFrequencies(t *testing.T) {
	const sampleRate = 48000

	f, err := NewFilter(sampleRate, 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.SetType(FilterHighpass); err != nil {
		t.Fatal(err)
	}

	if err := f.SetCutoffHz(2000); err != nil {
		t.Fatal(err)
	}

	low := sineBlock(100, sampleRate, 8192)
	f.Process(low, 1)

	f.Reset()

	high := sineBlock(8000, sampleRate, 8192)
	f.Process(high, 1)

	lowRMS := filterRMS(low[2048:])
	highRMS := filterRMS(high[2048:])

	if highRMS < 0.6 {
		t.Fatalf("passband attenuated: rms=%v", highRMS)
	}

	if lowRMS > 0.05 {
		t.Fatalf("stopband leaked: rms=%v", lowRMS)
	}
}

func TestFilterStereoChannelsIndependent(t *testing.T) {
	const sampleRate = 48000

	f, err := NewFilter(sampleRate, 2)
	if err != nil {
		t.Fatal(err)
	}

	mono, err := NewFilter(sampleRate, 1)
	if err != nil {
		t.Fatal(err)
	}

	left := sineBlock(440, sampleRate, 512)

	stereo := make([]float32, 2*len(left))
	for i, v := range left {
		stereo[2*i] = v
		stereo[2*i+1] = v
	}

	mono.Process(left, 1)
	f.Process(stereo, 2)

	for i, want := range left {
		if got := stereo[2*i]; got != want {
			t.Fatalf("left frame %d: got %v want %v", i, got, want)
		}

		if got := stereo[2*i+1]; got != want {
			t.Fatalf("right frame %d: got %v want %v", i, got, want)
		}
	}
}

func TestFilterChannelMismatchPassesThrough(t *testing.T) {
	f, err := NewFilter(48000, 2)
	if err != nil {
		t.Fatal(err)
	}

	block := sineBlock(8000, 48000, 64)
	orig := append([]float32(nil), block...)

	f.Process(block, 1)

	for i := range block {
		if block[i] != orig[i] {
			t.Fatalf("frame %d modified on channel mismatch", i)
		}
	}
}
