package engine

import "fmt"

// Config describes the stream a Context asks its backend to open.
// DeviceIndex selects among the entries reported by Backend.Devices;
// Open rejects an index the backend does not list.
type Config struct {
	SampleRate   int
	Channels     int
	PeriodFrames int
	DeviceIndex  int
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be > 0: %d", c.SampleRate)
	}

	if c.Channels <= 0 {
		return fmt.Errorf("channel count must be > 0: %d", c.Channels)
	}

	if c.PeriodFrames <= 0 {
		return fmt.Errorf("period frames must be > 0: %d", c.PeriodFrames)
	}

	return nil
}

// Format describes a sample format a device can open.
type Format struct {
	SampleRate int
	Channels   int
}

// DeviceInfo describes one output device a backend can drive.
type DeviceInfo struct {
	Name      string
	Index     int
	IsDefault bool
	Formats   []Format
}

// DataCallback fills out with frames*channels interleaved samples. The
// in slice carries capture data when the backend supports it, nil
// otherwise. It runs on the backend's audio goroutine.
type DataCallback func(out, in []float32, frames int)

// Backend abstracts the platform audio driver. Open binds the callback
// to a stream; Start and Stop gate delivery; Close releases the device.
type Backend interface {
	Devices() []DeviceInfo
	Open(cfg Config, cb DataCallback) error
	Start() error
	Stop() error
	Close() error
	MasterVolume() float64
	SetMasterVolume(v float64) error
}
