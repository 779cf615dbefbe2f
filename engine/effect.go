// Package engine provides the realtime layer on top of the dsp
// packages: an effect chain executor, a cross-thread snapshot buffer,
// playback sources and the audio context that drives a backend's data
// callback.
package engine

// Effect processes an interleaved block of samples in place.
//
// Process is only ever called from the backend's data callback, one
// invocation at a time. Implementations that expose setters callable
// from other goroutines must do their own locking; the dsp/effects
// types follow that contract.
type Effect interface {
	Process(block []float32, channels int)
}

// EffectFunc adapts a plain function to the Effect interface.
type EffectFunc func(block []float32, channels int)

// Process calls f.
func (f EffectFunc) Process(block []float32, channels int) { f(block, channels) }
