package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-audio/dsp/allpass"
)

const (
	phaserStageCount = 6

	defaultPhaserRateHz    = 0.5
	defaultPhaserDepth     = 1.0
	defaultPhaserFeedback  = 0.7
	defaultPhaserMinFreqHz = 440.0
	defaultPhaserMaxFreqHz = 1600.0

	maxPhaserFeedback = 0.999

	// Keeps the recursive all-pass stages out of the denormal range;
	// tiny recirculating values otherwise stall the FPU.
	phaserDenormalGuard = 1e-24
)

// PhaserOption mutates phaser construction parameters.
type PhaserOption func(*phaserConfig) error

type phaserConfig struct {
	rateHz    float64
	depth     float64
	feedback  float64
	minFreqHz float64
	maxFreqHz float64
}

func defaultPhaserConfig() phaserConfig {
	return phaserConfig{
		rateHz:    defaultPhaserRateHz,
		depth:     defaultPhaserDepth,
		feedback:  defaultPhaserFeedback,
		minFreqHz: defaultPhaserMinFreqHz,
		maxFreqHz: defaultPhaserMaxFreqHz,
	}
}

// WithPhaserRateHz sets LFO speed in Hz.
func WithPhaserRateHz(rateHz float64) PhaserOption {
	return func(cfg *phaserConfig) error {
		if rateHz <= 0 || math.IsNaN(rateHz) || math.IsInf(rateHz, 0) {
			return fmt.Errorf("phaser rate must be > 0 and finite: %f", rateHz)
		}

		cfg.rateHz = rateHz

		return nil
	}
}

// WithPhaserDepth sets wet amount in [0, 1].
func WithPhaserDepth(depth float64) PhaserOption {
	return func(cfg *phaserConfig) error {
		if depth < 0 || depth > 1 || math.IsNaN(depth) || math.IsInf(depth, 0) {
			return fmt.Errorf("phaser depth must be in [0, 1]: %f", depth)
		}

		cfg.depth = depth

		return nil
	}
}

// WithPhaserFeedback sets feedback amount in [0, 0.999].
func WithPhaserFeedback(feedback float64) PhaserOption {
	return func(cfg *phaserConfig) error {
		if feedback < 0 || feedback > maxPhaserFeedback ||
			math.IsNaN(feedback) || math.IsInf(feedback, 0) {
			return fmt.Errorf("phaser feedback must be in [0, %g]: %f", maxPhaserFeedback, feedback)
		}

		cfg.feedback = feedback

		return nil
	}
}

// WithPhaserFrequencyRangeHz sets the modulation sweep range in Hz.
func WithPhaserFrequencyRangeHz(minFreqHz, maxFreqHz float64) PhaserOption {
	return func(cfg *phaserConfig) error {
		if minFreqHz <= 0 || math.IsNaN(minFreqHz) || math.IsInf(minFreqHz, 0) {
			return fmt.Errorf("phaser min frequency must be > 0 and finite: %f", minFreqHz)
		}

		if maxFreqHz <= minFreqHz || math.IsNaN(maxFreqHz) || math.IsInf(maxFreqHz, 0) {
			return fmt.Errorf("phaser max frequency must be > min frequency and finite: min=%f max=%f",
				minFreqHz, maxFreqHz)
		}

		cfg.minFreqHz = minFreqHz
		cfg.maxFreqHz = maxFreqHz

		return nil
	}
}

// Phaser is a six-stage all-pass cascade with sinusoidal LFO modulation.
//
// All stages share one delay coefficient, recomputed every sample from
// the LFO value remapped into the sweep range as a fraction of Nyquist.
// The cascade output is soft-clipped with tanh before it is stored as
// feedback and again when mixed with the dry signal; without that
// nonlinearity high feedback settings grow without bound.
type Phaser struct {
	sampleRate float64
	rateHz     float64
	depth      float64
	feedback   float64
	minFreqHz  float64
	maxFreqHz  float64

	dmin   float64
	dmax   float64
	lfoInc float64

	lfoPhase       float64
	feedbackSample float64

	stages [phaserStageCount]allpass.Stage
}

// NewPhaser creates a phaser with practical defaults and optional
// overrides.
func NewPhaser(sampleRate float64, opts ...PhaserOption) (*Phaser, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("phaser sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultPhaserConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.maxFreqHz >= sampleRate/2 {
		return nil, fmt.Errorf("phaser max frequency must be < Nyquist (%.1f): %f",
			sampleRate/2, cfg.maxFreqHz)
	}

	p := &Phaser{
		sampleRate: sampleRate,
		rateHz:     cfg.rateHz,
		depth:      cfg.depth,
		feedback:   cfg.feedback,
		minFreqHz:  cfg.minFreqHz,
		maxFreqHz:  cfg.maxFreqHz,
	}
	p.refresh()

	return p, nil
}

// SetSampleRate updates the sample rate, rescaling the Nyquist-relative
// sweep mapping and the LFO increment.
func (p *Phaser) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("phaser sample rate must be > 0 and finite: %f", sampleRate)
	}

	if p.maxFreqHz >= sampleRate/2 {
		return fmt.Errorf("phaser max frequency %f exceeds Nyquist for rate %f",
			p.maxFreqHz, sampleRate)
	}

	p.sampleRate = sampleRate
	p.refresh()

	return nil
}

// SetRateHz sets LFO speed in Hz.
func (p *Phaser) SetRateHz(rateHz float64) error {
	if rateHz <= 0 || math.IsNaN(rateHz) || math.IsInf(rateHz, 0) {
		return fmt.Errorf("phaser rate must be > 0 and finite: %f", rateHz)
	}

	p.rateHz = rateHz
	p.refresh()

	return nil
}

// SetDepth sets wet amount in [0, 1].
func (p *Phaser) SetDepth(depth float64) error {
	if depth < 0 || depth > 1 || math.IsNaN(depth) || math.IsInf(depth, 0) {
		return fmt.Errorf("phaser depth must be in [0, 1]: %f", depth)
	}

	p.depth = depth

	return nil
}

// SetFeedback sets feedback amount in [0, 0.999].
func (p *Phaser) SetFeedback(feedback float64) error {
	if feedback < 0 || feedback > maxPhaserFeedback ||
		math.IsNaN(feedback) || math.IsInf(feedback, 0) {
		return fmt.Errorf("phaser feedback must be in [0, %g]: %f", maxPhaserFeedback, feedback)
	}

	p.feedback = feedback

	return nil
}

// SetFrequencyRangeHz sets the modulation sweep range in Hz.
func (p *Phaser) SetFrequencyRangeHz(minFreqHz, maxFreqHz float64) error {
	if minFreqHz <= 0 || math.IsNaN(minFreqHz) || math.IsInf(minFreqHz, 0) {
		return fmt.Errorf("phaser min frequency must be > 0 and finite: %f", minFreqHz)
	}

	if maxFreqHz <= minFreqHz || maxFreqHz >= p.sampleRate/2 ||
		math.IsNaN(maxFreqHz) || math.IsInf(maxFreqHz, 0) {
		return fmt.Errorf("phaser max frequency must be in (min, Nyquist): min=%f max=%f",
			minFreqHz, maxFreqHz)
	}

	p.minFreqHz = minFreqHz
	p.maxFreqHz = maxFreqHz
	p.refresh()

	return nil
}

// SampleRate returns the sample rate in Hz.
func (p *Phaser) SampleRate() float64 { return p.sampleRate }

// RateHz returns LFO speed in Hz.
func (p *Phaser) RateHz() float64 { return p.rateHz }

// Depth returns wet amount in [0, 1].
func (p *Phaser) Depth() float64 { return p.depth }

// Feedback returns feedback amount.
func (p *Phaser) Feedback() float64 { return p.feedback }

// MinFrequencyHz returns the sweep minimum in Hz.
func (p *Phaser) MinFrequencyHz() float64 { return p.minFreqHz }

// MaxFrequencyHz returns the sweep maximum in Hz.
func (p *Phaser) MaxFrequencyHz() float64 { return p.maxFreqHz }

// Reset clears all-pass and modulation state.
func (p *Phaser) Reset() {
	for i := range p.stages {
		p.stages[i].Reset()
	}

	p.feedbackSample = 0
	p.lfoPhase = 0
}

// ProcessSample runs one sample through the cascade.
func (p *Phaser) ProcessSample(x float32) float32 {
	d := p.dmin + (p.dmax-p.dmin)*0.5*(1+math.Sin(p.lfoPhase))

	p.lfoPhase += p.lfoInc
	if p.lfoPhase >= 2*math.Pi {
		p.lfoPhase -= 2 * math.Pi
	}

	in := float64(x)
	y := in + p.feedbackSample*p.feedback + phaserDenormalGuard
	for i := phaserStageCount - 1; i >= 0; i-- {
		p.stages[i].SetDelay(d)
		y = p.stages[i].Process(y)
	}

	p.feedbackSample = math.Tanh(y)

	return float32(math.Tanh(1.4 * (in + y*p.depth)))
}

// Process runs an interleaved block through the cascade in place. The
// cascade state is shared across channels.
func (p *Phaser) Process(block []float32, channels int) {
	_ = channels

	for i := range block {
		block[i] = p.ProcessSample(block[i])
	}
}

func (p *Phaser) refresh() {
	nyquist := p.sampleRate / 2
	p.dmin = p.minFreqHz / nyquist
	p.dmax = p.maxFreqHz / nyquist
	p.lfoInc = 2 * math.Pi * p.rateHz / p.sampleRate
}
