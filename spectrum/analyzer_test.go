package spectrum

import (
	"math"
	"testing"
)

func TestNewAnalyzerValidation(t *testing.T) {
	if _, err := NewAnalyzer(0, 1024); err == nil {
		t.Fatal("expected error for invalid sample rate")
	}

	if _, err := NewAnalyzer(48000, 1000); err == nil {
		t.Fatal("expected error for non power-of-two size")
	}

	if _, err := NewAnalyzer(48000, 1); err == nil {
		t.Fatal("expected error for size < 2")
	}
}

func TestAnalyzerSinePeakBin(t *testing.T) {
	const (
		sampleRate = 48000.0
		fftSize    = 2048
	)

	a, err := NewAnalyzer(sampleRate, fftSize)
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}

	// Exact bin frequency so the tone lands without leakage.
	bin := 43
	freq := float64(bin) * sampleRate / fftSize

	block := make([]float32, fftSize)
	for i := range block {
		block[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}

	db, err := a.Analyze(block, 1)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	peakHz, levelDB := a.Peak()

	if math.Abs(peakHz-freq) > 1e-9 {
		t.Fatalf("peak frequency: got %v want %v", peakHz, freq)
	}

	// A full-scale sine on an exact bin reads close to 0 dBFS after
	// window gain compensation.
	if math.Abs(levelDB) > 1 {
		t.Fatalf("peak level: got %v dB want ~0 dB", levelDB)
	}

	if db[bin] != levelDB {
		t.Fatalf("Peak disagrees with spectrum: %v vs %v", levelDB, db[bin])
	}
}

func TestAnalyzerSilenceFloors(t *testing.T) {
	a, err := NewAnalyzer(48000, 512)
	if err != nil {
		t.Fatal(err)
	}

	db, err := a.Analyze(make([]float32, 512), 1)
	if err != nil {
		t.Fatal(err)
	}

	for k, v := range db {
		if v != minDB {
			t.Fatalf("bin %d of silence: got %v want %v", k, v, minDB)
		}
	}
}

func TestAnalyzerStereoFold(t *testing.T) {
	const fftSize = 512

	a, err := NewAnalyzer(48000, fftSize)
	if err != nil {
		t.Fatal(err)
	}

	mono, err := NewAnalyzer(48000, fftSize)
	if err != nil {
		t.Fatal(err)
	}

	single := make([]float32, fftSize)
	stereo := make([]float32, 2*fftSize)
	for i := range single {
		v := float32(math.Sin(2 * math.Pi * float64(i) * 16 / fftSize))
		single[i] = v
		stereo[2*i] = v
		stereo[2*i+1] = v
	}

	want, err := mono.Analyze(single, 1)
	if err != nil {
		t.Fatal(err)
	}

	got, err := a.Analyze(stereo, 2)
	if err != nil {
		t.Fatal(err)
	}

	for k := range want {
		if math.Abs(got[k]-want[k]) > 1e-9 {
			t.Fatalf("bin %d: stereo fold %v, mono %v", k, got[k], want[k])
		}
	}
}

func TestAnalyzerRejectsRaggedBlock(t *testing.T) {
	a, err := NewAnalyzer(48000, 512)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := a.Analyze(make([]float32, 7), 2); err == nil {
		t.Fatal("expected error for block not divisible by channels")
	}

	if _, err := a.Analyze(make([]float32, 8), 0); err == nil {
		t.Fatal("expected error for zero channels")
	}
}

func TestAnalyzerShortBlockZeroPadded(t *testing.T) {
	a, err := NewAnalyzer(48000, 512)
	if err != nil {
		t.Fatal(err)
	}

	// A short block must not fault and must produce finite output.
	db, err := a.Analyze(make([]float32, 100), 1)
	if err != nil {
		t.Fatal(err)
	}

	for k, v := range db {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("bin %d not finite: %v", k, v)
		}
	}
}
