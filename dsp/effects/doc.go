// Package effects provides the effect primitives run by the engine's
// per-source and master chains.
//
// Every effect processes one interleaved float32 block in place through
// a uniform Process(block, channels) contract:
//   - Echo: N-channel feedback delay with a pure-delay mode.
//   - Distortion: stateless arctangent waveshaper.
//   - Phaser: six-stage all-pass cascade with LFO modulation.
//   - Filter: biquad wrapper (lowpass/highpass/bandpass) per channel.
//   - Reverb: Schroeder comb/all-pass reverb per channel.
//
// Hot paths are allocation-free; buffers grow only when a controlling
// thread explicitly requests a longer delay, under the same lock the
// processing call takes.
package effects
