package engine

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// OtoBackend plays through the system mixer via oto. Oto pulls bytes
// from an io.Reader on its own goroutine; the backend bridges that pull
// into the engine's DataCallback and encodes the result as float32
// little-endian.
type OtoBackend struct {
	mu      sync.Mutex
	ctx     *oto.Context
	player  *oto.Player
	volume  float64
	started bool
}

// NewOtoBackend returns an unopened backend at unity volume.
func NewOtoBackend() *OtoBackend {
	return &OtoBackend{volume: 1}
}

// Devices reports the single default device; oto drives whatever the
// OS mixer routes to and exposes no enumeration of its own.
func (b *OtoBackend) Devices() []DeviceInfo {
	return []DeviceInfo{{Name: "default", Index: 0, IsDefault: true}}
}

// Open creates the oto context and binds cb to a player. The player is
// created stopped; Start begins delivery.
func (b *OtoBackend) Open(cfg Config, cb DataCallback) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	if cb == nil {
		return fmt.Errorf("data callback must not be nil")
	}

	if devices := b.Devices(); cfg.DeviceIndex < 0 || cfg.DeviceIndex >= len(devices) {
		return fmt.Errorf("device index out of range [0, %d): %d", len(devices), cfg.DeviceIndex)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx != nil {
		return fmt.Errorf("backend already open")
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("open oto context: %w", err)
	}
	<-ready

	b.ctx = ctx
	b.player = ctx.NewPlayer(&otoStream{cb: cb, channels: cfg.Channels})
	b.player.SetBufferSize(cfg.PeriodFrames * cfg.Channels * 4)

	return nil
}

// Start begins pulling audio.
func (b *OtoBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.player == nil {
		return fmt.Errorf("backend not open")
	}

	if !b.started {
		b.player.Play()
		b.started = true
	}

	return nil
}

// Stop pauses delivery; the stream can be restarted.
func (b *OtoBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.player == nil {
		return fmt.Errorf("backend not open")
	}

	if b.started {
		b.player.Pause()
		b.started = false
	}

	return nil
}

// Close releases the player. The oto context itself cannot be torn
// down; it lives for the process.
func (b *OtoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.player == nil {
		return nil
	}

	err := b.player.Close()
	b.player = nil
	b.ctx = nil
	b.started = false

	return err
}

// MasterVolume returns the output scale in [0, 1].
func (b *OtoBackend) MasterVolume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.volume
}

// SetMasterVolume sets the output scale in [0, 1].
func (b *OtoBackend) SetMasterVolume(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("master volume must be in [0, 1]: %f", v)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.volume = v

	if b.player != nil {
		b.player.SetVolume(v)
	}

	return nil
}

// otoStream adapts the pull-based oto reader to the engine callback.
// cb and channels are fixed before the player exists, so Read touches
// no lock on the hot path.
type otoStream struct {
	cb       DataCallback
	channels int
	samples  []float32
}

func (s *otoStream) Read(p []byte) (int, error) {
	n := len(p) / 4
	n -= n % s.channels
	if n == 0 {
		return 0, nil
	}

	if cap(s.samples) < n {
		s.samples = make([]float32, n)
	}
	out := s.samples[:n]
	for i := range out {
		out[i] = 0
	}

	s.cb(out, nil, n/s.channels)

	for i, v := range out {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(v))
	}

	return n * 4, nil
}
