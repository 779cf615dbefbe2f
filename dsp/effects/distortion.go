package effects

import (
	"fmt"
	"math"
)

const (
	defaultDistortionDrive  = 1.0
	defaultDistortionRange  = 40.0
	defaultDistortionBlend  = 0.5
	defaultDistortionVolume = 1.0

	minDistortionDrive  = 0.01
	maxDistortionDrive  = 10.0
	minDistortionRange  = 1.0
	maxDistortionRange  = 3000.0
	maxDistortionVolume = 4.0
)

// Distortion is a stateless arctangent waveshaper.
//
// Because it keeps no history it is safe to call per sample or per block
// in any order. Blend mixes the shaped and clean paths: blend 0 is a
// clean pass-through scaled by volume/2, blend 1 is fully shaped.
type Distortion struct {
	drive  float32
	rng    float32
	blend  float32
	volume float32
}

// NewDistortion creates a waveshaper with practical defaults.
func NewDistortion() *Distortion {
	return &Distortion{
		drive:  defaultDistortionDrive,
		rng:    defaultDistortionRange,
		blend:  defaultDistortionBlend,
		volume: defaultDistortionVolume,
	}
}

// Distort applies the waveshaping transfer function to one sample.
func Distort(x, drive, rng, blend, volume float32) float32 {
	shaped := float32(2 / math.Pi * math.Atan(float64(x*drive*rng)))

	return (shaped*blend + x*(1-blend)) / 2 * volume
}

// SetDrive sets input drive in [0.01, 10].
func (d *Distortion) SetDrive(drive float64) error {
	if drive < minDistortionDrive || drive > maxDistortionDrive ||
		math.IsNaN(drive) || math.IsInf(drive, 0) {
		return fmt.Errorf("distortion drive must be in [%g, %g]: %f",
			minDistortionDrive, maxDistortionDrive, drive)
	}

	d.drive = float32(drive)

	return nil
}

// SetRange sets the drive multiplier in [1, 3000].
func (d *Distortion) SetRange(rng float64) error {
	if rng < minDistortionRange || rng > maxDistortionRange ||
		math.IsNaN(rng) || math.IsInf(rng, 0) {
		return fmt.Errorf("distortion range must be in [%g, %g]: %f",
			minDistortionRange, maxDistortionRange, rng)
	}

	d.rng = float32(rng)

	return nil
}

// SetBlend sets the shaped/clean mix in [0, 1].
func (d *Distortion) SetBlend(blend float64) error {
	if blend < 0 || blend > 1 || math.IsNaN(blend) || math.IsInf(blend, 0) {
		return fmt.Errorf("distortion blend must be in [0, 1]: %f", blend)
	}

	d.blend = float32(blend)

	return nil
}

// SetVolume sets the output level in [0, 4].
func (d *Distortion) SetVolume(volume float64) error {
	if volume < 0 || volume > maxDistortionVolume ||
		math.IsNaN(volume) || math.IsInf(volume, 0) {
		return fmt.Errorf("distortion volume must be in [0, %g]: %f",
			maxDistortionVolume, volume)
	}

	d.volume = float32(volume)

	return nil
}

// Drive returns the input drive.
func (d *Distortion) Drive() float64 { return float64(d.drive) }

// Range returns the drive multiplier.
func (d *Distortion) Range() float64 { return float64(d.rng) }

// Blend returns the shaped/clean mix.
func (d *Distortion) Blend() float64 { return float64(d.blend) }

// Volume returns the output level.
func (d *Distortion) Volume() float64 { return float64(d.volume) }

// ProcessSample shapes one sample.
func (d *Distortion) ProcessSample(x float32) float32 {
	return Distort(x, d.drive, d.rng, d.blend, d.volume)
}

// Process shapes an interleaved block in place. The transform is
// per-sample, so the channel layout is irrelevant.
func (d *Distortion) Process(block []float32, channels int) {
	_ = channels

	for i := range block {
		block[i] = Distort(block[i], d.drive, d.rng, d.blend, d.volume)
	}
}

// Reset is a no-op; the waveshaper keeps no state.
func (d *Distortion) Reset() {}
