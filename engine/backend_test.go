package engine

import (
	"strings"
	"testing"
)

func noopCallback(out, in []float32, frames int) {}

func TestHeadlessBackendOpenValidation(t *testing.T) {
	cfg := Config{SampleRate: 48000, Channels: 2, PeriodFrames: 64}

	b := NewHeadlessBackend()

	if err := b.Open(Config{SampleRate: 0, Channels: 2, PeriodFrames: 64}, noopCallback); err == nil {
		t.Fatal("expected error for invalid sample rate")
	}

	if err := b.Open(cfg, nil); err == nil {
		t.Fatal("expected error for nil callback")
	}

	if err := b.Open(cfg, noopCallback); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := b.Open(cfg, noopCallback); err == nil {
		t.Fatal("expected error for double open")
	}
}

func TestHeadlessBackendRejectsUnknownDevice(t *testing.T) {
	b := NewHeadlessBackend()

	devices := b.Devices()
	if len(devices) != 1 || !devices[0].IsDefault {
		t.Fatalf("device list: %+v", devices)
	}

	cfg := Config{SampleRate: 48000, Channels: 2, PeriodFrames: 64, DeviceIndex: len(devices)}

	err := b.Open(cfg, noopCallback)
	if err == nil {
		t.Fatal("expected error for device index beyond the device list")
	}

	if !strings.Contains(err.Error(), "device index") {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.DeviceIndex = -1
	if err := b.Open(cfg, noopCallback); err == nil {
		t.Fatal("expected error for negative device index")
	}

	// The reported device opens fine.
	cfg.DeviceIndex = devices[0].Index
	if err := b.Open(cfg, noopCallback); err != nil {
		t.Fatalf("Open() on listed device error = %v", err)
	}
}

func TestHeadlessBackendPumpLifecycle(t *testing.T) {
	b := NewHeadlessBackend()

	cfg := Config{SampleRate: 48000, Channels: 1, PeriodFrames: 32}

	if err := b.Open(cfg, func(out, in []float32, frames int) {
		for i := range out {
			out[i] = 1
		}
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Pump(32); err == nil {
		t.Fatal("expected error pumping before Start")
	}

	if err := b.Start(); err != nil {
		t.Fatal(err)
	}

	block, err := b.Pump(32)
	if err != nil {
		t.Fatal(err)
	}

	for i, v := range block {
		if v != 1 {
			t.Fatalf("sample %d: got %v want 1", i, v)
		}
	}

	if _, err := b.Pump(33); err == nil {
		t.Fatal("expected error for frames beyond the period")
	}

	if err := b.Stop(); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Pump(32); err == nil {
		t.Fatal("expected error pumping after Stop")
	}
}

func TestContextInitializeRejectsUnknownDevice(t *testing.T) {
	ctx, _ := newTestContext(t)

	ctx.Initialize(Config{SampleRate: 48000, Channels: 2, PeriodFrames: 64, DeviceIndex: 7})

	if ctx.Initialized() {
		t.Fatal("context came up on a device the backend does not list")
	}
}
