// Package envelope implements an exponential-curve ADSR envelope
// generator driven by an external gate signal.
package envelope

import "math"

// State identifies the active envelope stage.
type State int

const (
	StateIdle State = iota
	StateAttack
	StateDecay
	StateSustain
	StateRelease
)

// String returns a short stage name for diagnostics.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttack:
		return "attack"
	case StateDecay:
		return "decay"
	case StateSustain:
		return "sustain"
	case StateRelease:
		return "release"
	default:
		return "invalid"
	}
}

const (
	defaultTargetRatioA  = 0.3
	defaultTargetRatioDR = 0.0001

	minTargetRatio = 1e-9
)

// ADSR generates a four-stage envelope with exponential segments.
//
// Stage coefficients are precomputed whenever a rate, a target ratio or
// the sustain level changes, so Process stays a single multiply-add per
// sample. The target ratios control how close each exponential approaches
// its asymptote before the stage transition fires; without them a pure
// exponential would never reach its target.
type ADSR struct {
	state  State
	output float64

	attackRate  float64
	decayRate   float64
	releaseRate float64

	attackCoef  float64
	attackBase  float64
	decayCoef   float64
	decayBase   float64
	releaseCoef float64
	releaseBase float64

	sustainLevel  float64
	targetRatioA  float64
	targetRatioDR float64
}

// New returns an idle envelope with instant stages and full sustain.
func New() *ADSR {
	a := &ADSR{
		sustainLevel:  1,
		targetRatioA:  defaultTargetRatioA,
		targetRatioDR: defaultTargetRatioDR,
	}

	a.SetAttackRate(0)
	a.SetDecayRate(0)
	a.SetReleaseRate(0)

	return a
}

// SetAttackRate sets the attack length in samples. Rates at or below zero
// make the stage instantaneous.
func (a *ADSR) SetAttackRate(rate float64) {
	a.attackRate = rate
	a.attackCoef = calcCoef(rate, a.targetRatioA)
	a.attackBase = (1 + a.targetRatioA) * (1 - a.attackCoef)
}

// SetDecayRate sets the decay length in samples.
func (a *ADSR) SetDecayRate(rate float64) {
	a.decayRate = rate
	a.decayCoef = calcCoef(rate, a.targetRatioDR)
	a.decayBase = (a.sustainLevel - a.targetRatioDR) * (1 - a.decayCoef)
}

// SetReleaseRate sets the release length in samples.
func (a *ADSR) SetReleaseRate(rate float64) {
	a.releaseRate = rate
	a.releaseCoef = calcCoef(rate, a.targetRatioDR)
	a.releaseBase = -a.targetRatioDR * (1 - a.releaseCoef)
}

// SetSustainLevel clamps level to [0, 1] and retargets the decay stage.
func (a *ADSR) SetSustainLevel(level float64) {
	if level < 0 || math.IsNaN(level) {
		level = 0
	} else if level > 1 {
		level = 1
	}

	a.sustainLevel = level
	a.decayBase = (a.sustainLevel - a.targetRatioDR) * (1 - a.decayCoef)
}

// SetTargetRatioA reshapes the attack curve. Smaller ratios give a more
// pronounced exponential knee.
func (a *ADSR) SetTargetRatioA(ratio float64) {
	if ratio < minTargetRatio || math.IsNaN(ratio) {
		ratio = minTargetRatio
	}

	a.targetRatioA = ratio
	a.attackCoef = calcCoef(a.attackRate, ratio)
	a.attackBase = (1 + ratio) * (1 - a.attackCoef)
}

// SetTargetRatioDR reshapes the decay and release curves.
func (a *ADSR) SetTargetRatioDR(ratio float64) {
	if ratio < minTargetRatio || math.IsNaN(ratio) {
		ratio = minTargetRatio
	}

	a.targetRatioDR = ratio
	a.decayCoef = calcCoef(a.decayRate, ratio)
	a.decayBase = (a.sustainLevel - a.targetRatioDR) * (1 - a.decayCoef)
	a.releaseCoef = calcCoef(a.releaseRate, ratio)
	a.releaseBase = -a.targetRatioDR * (1 - a.releaseCoef)
}

// SetGate opens or closes the envelope. Opening forces Attack even
// mid-envelope, which is what makes re-triggering work; closing forces
// Release from any active stage.
func (a *ADSR) SetGate(on bool) {
	if on {
		a.state = StateAttack

		return
	}

	if a.state != StateIdle {
		a.state = StateRelease
	}
}

// Process advances the envelope by one sample and returns the new level
// in [0, 1].
func (a *ADSR) Process() float64 {
	switch a.state {
	case StateAttack:
		a.output = a.attackBase + a.output*a.attackCoef
		if a.output >= 1 {
			a.output = 1
			a.state = StateDecay
		}
	case StateDecay:
		a.output = a.decayBase + a.output*a.decayCoef
		if a.output <= a.sustainLevel {
			a.output = a.sustainLevel
			a.state = StateSustain
		}
	case StateRelease:
		a.output = a.releaseBase + a.output*a.releaseCoef
		if a.output <= 0 {
			a.output = 0
			a.state = StateIdle
		}
	}

	return a.output
}

// Output returns the current level without advancing the envelope.
func (a *ADSR) Output() float64 { return a.output }

// State returns the active stage.
func (a *ADSR) State() State { return a.state }

// AttackRate returns the attack length in samples.
func (a *ADSR) AttackRate() float64 { return a.attackRate }

// DecayRate returns the decay length in samples.
func (a *ADSR) DecayRate() float64 { return a.decayRate }

// ReleaseRate returns the release length in samples.
func (a *ADSR) ReleaseRate() float64 { return a.releaseRate }

// SustainLevel returns the sustain level in [0, 1].
func (a *ADSR) SustainLevel() float64 { return a.sustainLevel }

// Reset forces the envelope to idle with zero output.
func (a *ADSR) Reset() {
	a.state = StateIdle
	a.output = 0
}

func calcCoef(rate, targetRatio float64) float64 {
	if rate <= 0 {
		return 0
	}

	return math.Exp(-math.Log((1+targetRatio)/targetRatio) / rate)
}
