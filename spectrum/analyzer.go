// Package spectrum computes magnitude spectra from engine output
// snapshots. It runs off the audio thread; feed it blocks obtained
// from Context.ReadOutput or Source.ReadOutput.
package spectrum

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"
)

const minDB = -130.0

// Analyzer turns interleaved float32 blocks into Hann-windowed
// magnitude spectra. All scratch is allocated once at construction;
// Analyze itself does not allocate.
type Analyzer struct {
	sampleRate float64
	fftSize    int

	win     []float64
	winGain float64
	plan    *algofft.Plan[complex128]

	input  []complex128
	output []complex128
	re     []float64
	im     []float64
	mag    []float64
	db     []float64
}

// NewAnalyzer creates an analyzer for power-of-two FFT sizes.
func NewAnalyzer(sampleRate float64, fftSize int) (*Analyzer, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("analyzer sample rate must be > 0 and finite: %f", sampleRate)
	}

	if fftSize < 2 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("analyzer fft size must be a power of two >= 2: %d", fftSize)
	}

	win := window.Generate(window.TypeHann, fftSize, window.WithPeriodic())
	if len(win) != fftSize {
		return nil, fmt.Errorf("analyzer window generation failed for size %d", fftSize)
	}

	sum := 0.0
	for _, w := range win {
		sum += w
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyzer fft plan: %w", err)
	}

	bins := fftSize/2 + 1

	return &Analyzer{
		sampleRate: sampleRate,
		fftSize:    fftSize,
		win:        win,
		winGain:    sum / float64(fftSize),
		plan:       plan,
		input:      make([]complex128, fftSize),
		output:     make([]complex128, fftSize),
		re:         make([]float64, bins),
		im:         make([]float64, bins),
		mag:        make([]float64, bins),
		db:         make([]float64, bins),
	}, nil
}

// FFTSize returns the transform length in samples.
func (a *Analyzer) FFTSize() int { return a.fftSize }

// Bins returns the number of spectrum bins (fftSize/2 + 1).
func (a *Analyzer) Bins() int { return len(a.db) }

// BinFrequencyHz returns the center frequency of bin k.
func (a *Analyzer) BinFrequencyHz(k int) float64 {
	return float64(k) * a.sampleRate / float64(a.fftSize)
}

// Analyze computes the magnitude spectrum of an interleaved block in
// dBFS. Multi-channel input is folded to mono; a block shorter than
// the FFT size is zero padded. The returned slice is reused across
// calls.
func (a *Analyzer) Analyze(block []float32, channels int) ([]float64, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("analyzer channel count must be > 0: %d", channels)
	}

	if len(block)%channels != 0 {
		return nil, fmt.Errorf("block length %d not a multiple of %d channels", len(block), channels)
	}

	frames := len(block) / channels
	if frames > a.fftSize {
		frames = a.fftSize
	}

	inv := 1.0 / float64(channels)
	for f := 0; f < frames; f++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(block[f*channels+ch])
		}

		a.input[f] = complex(sum*inv*a.win[f], 0)
	}

	for f := frames; f < a.fftSize; f++ {
		a.input[f] = 0
	}

	if err := a.plan.Forward(a.output, a.input); err != nil {
		return nil, fmt.Errorf("analyzer fft: %w", err)
	}

	for k := range a.re {
		a.re[k] = real(a.output[k])
		a.im[k] = imag(a.output[k])
	}

	vecmath.Magnitude(a.mag, a.re, a.im)

	const eps = 1e-12

	norm := float64(a.fftSize) * math.Max(a.winGain, eps)
	last := len(a.db) - 1
	for k := range a.db {
		m := a.mag[k] / norm
		if k > 0 && k < last {
			m *= 2
		}

		v := 20 * math.Log10(math.Max(eps, m))
		if v < minDB {
			v = minDB
		}

		a.db[k] = v
	}

	return a.db, nil
}

// Peak returns the loudest bin of the most recent Analyze call and its
// center frequency.
func (a *Analyzer) Peak() (binHz float64, levelDB float64) {
	best := 0
	for k := 1; k < len(a.db); k++ {
		if a.db[k] > a.db[best] {
			best = k
		}
	}

	return a.BinFrequencyHz(best), a.db[best]
}
