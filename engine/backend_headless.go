package engine

import (
	"fmt"
	"math"
	"sync"
)

// HeadlessBackend is a driver with no device behind it. Nothing runs
// until the test calls Pump, which invokes the data callback as a real
// driver's audio goroutine would. The last pumped block stays readable
// through Output.
type HeadlessBackend struct {
	mu      sync.Mutex
	cfg     Config
	cb      DataCallback
	volume  float64
	open    bool
	started bool
	out     []float32
}

// NewHeadlessBackend returns an unopened headless driver.
func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{volume: 1}
}

// Devices reports one fake device.
func (b *HeadlessBackend) Devices() []DeviceInfo {
	return []DeviceInfo{{Name: "headless", Index: 0, IsDefault: true}}
}

// Open records the configuration and callback.
func (b *HeadlessBackend) Open(cfg Config, cb DataCallback) error {
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

	if b.open {
		return fmt.Errorf("backend already open")
	}

	b.cfg = cfg
	b.cb = cb
	b.open = true
	b.out = make([]float32, cfg.PeriodFrames*cfg.Channels)

	return nil
}

// Start marks the stream running.
func (b *HeadlessBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return fmt.Errorf("backend not open")
	}

	b.started = true

	return nil
}

// Stop marks the stream paused.
func (b *HeadlessBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return fmt.Errorf("backend not open")
	}

	b.started = false

	return nil
}

// Close releases the fake stream.
func (b *HeadlessBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.open = false
	b.started = false
	b.cb = nil

	return nil
}

// MasterVolume returns the output scale in [0, 1].
func (b *HeadlessBackend) MasterVolume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.volume
}

// SetMasterVolume sets the output scale in [0, 1].
func (b *HeadlessBackend) SetMasterVolume(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("master volume must be in [0, 1]: %f", v)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.volume = v

	return nil
}

// Pump invokes the callback for frames frames and returns the rendered
// block, scaled by the master volume. It fails if the stream is not
// started or frames exceeds the configured period.
func (b *HeadlessBackend) Pump(frames int) ([]float32, error) {
	b.mu.Lock()
	cb, cfg, started := b.cb, b.cfg, b.started
	volume := float32(b.volume)
	out := b.out
	b.mu.Unlock()

	if cb == nil || !started {
		return nil, fmt.Errorf("backend not started")
	}

	if frames <= 0 || frames > cfg.PeriodFrames {
		return nil, fmt.Errorf("frames must be in [1, %d]: %d", cfg.PeriodFrames, frames)
	}

	block := out[:frames*cfg.Channels]
	for i := range block {
		block[i] = 0
	}

	cb(block, nil, frames)

	for i := range block {
		block[i] *= volume
	}

	return block, nil
}

// Output returns the block from the most recent Pump.
func (b *HeadlessBackend) Output() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.out
}
