package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ClipRelease frees the resources behind a registered clip handle.
type ClipRelease func()

// BlockSubscriber receives every master block after the master chain
// has run. It is called on the data callback goroutine and must not
// block.
type BlockSubscriber func(block []float32, frames, channels int)

// ContextOption mutates context construction parameters.
type ContextOption func(*Context) error

// WithBackend selects the audio driver. The default is an oto backend.
func WithBackend(b Backend) ContextOption {
	return func(c *Context) error {
		if b == nil {
			return fmt.Errorf("backend must not be nil")
		}

		c.backend = b

		return nil
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) ContextOption {
	return func(c *Context) error {
		if l == nil {
			return fmt.Errorf("logger must not be nil")
		}

		c.logger = l

		return nil
	}
}

// WithBlockSubscriber registers a tap on the master output.
func WithBlockSubscriber(fn BlockSubscriber) ContextOption {
	return func(c *Context) error {
		c.subscriber = fn

		return nil
	}
}

// Context owns the backend lifecycle, the source set, the master
// effect chain and the clip registry. One context drives one output
// stream.
type Context struct {
	backend    Backend
	logger     *slog.Logger
	subscriber BlockSubscriber

	mu     sync.Mutex
	cfg    Config
	failed bool

	// ready gates the data callback; it renders silence until
	// Initialize has fully set up the stream.
	ready atomic.Bool

	srcMu   sync.Mutex
	sources []*Source

	clipMu sync.Mutex
	clips  map[uint64]ClipRelease

	clockMu    sync.Mutex
	lastUpdate time.Time

	masterChain *Chain
	masterOut   *Snapshot
}

// New creates an uninitialized context.
func New(opts ...ContextOption) (*Context, error) {
	c := &Context{
		logger:      slog.Default(),
		masterChain: NewChain(),
		clips:       make(map[uint64]ClipRelease),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.backend == nil {
		c.backend = NewOtoBackend()
	}

	return c, nil
}

// Initialized reports whether the stream is up.
func (c *Context) Initialized() bool { return c.ready.Load() }

// MasterChain returns the effect chain applied to the mixed output.
func (c *Context) MasterChain() *Chain { return c.masterChain }

// Initialize opens and starts the backend stream. A second call on a
// live context is a no-op, as is any call after an open failure; the
// failure is logged once and the context stays silent.
func (c *Context) Initialize(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready.Load() || c.failed {
		return
	}

	if err := cfg.validate(); err != nil {
		c.logger.Error("audio init rejected", "err", err)
		c.failed = true

		return
	}

	if err := c.backend.Open(cfg, c.render); err != nil {
		c.logger.Error("audio backend open failed", "err", err)
		c.failed = true

		return
	}

	if err := c.backend.Start(); err != nil {
		c.logger.Error("audio backend start failed", "err", err)
		_ = c.backend.Close()
		c.failed = true

		return
	}

	c.cfg = cfg
	c.masterOut = NewSnapshot(cfg.PeriodFrames * cfg.Channels)

	c.srcMu.Lock()
	for _, s := range c.sources {
		s.bind(cfg.PeriodFrames, cfg.Channels)
	}
	c.srcMu.Unlock()

	c.clockMu.Lock()
	c.lastUpdate = time.Now()
	c.clockMu.Unlock()

	c.ready.Store(true)

	c.logger.Info("audio initialized",
		"sampleRate", cfg.SampleRate,
		"channels", cfg.Channels,
		"periodFrames", cfg.PeriodFrames)
}

// Deinitialize stops the backend, releases every registered clip and
// returns the context to its constructed state. Safe to call on an
// uninitialized context.
func (c *Context) Deinitialize() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready.Load() {
		c.ready.Store(false)

		if err := c.backend.Stop(); err != nil {
			c.logger.Warn("audio backend stop failed", "err", err)
		}

		if err := c.backend.Close(); err != nil {
			c.logger.Warn("audio backend close failed", "err", err)
		}
	}

	c.clipMu.Lock()
	for hash, release := range c.clips {
		if release != nil {
			release()
		}

		delete(c.clips, hash)
	}
	c.clipMu.Unlock()

	c.failed = false
	c.masterOut = nil
}

// Update advances the wall clock and returns the time elapsed since
// the previous Update. The first call after Initialize measures from
// the moment the stream came up. Main thread only.
func (c *Context) Update() time.Duration {
	c.clockMu.Lock()
	defer c.clockMu.Unlock()

	now := time.Now()
	if c.lastUpdate.IsZero() {
		c.lastUpdate = now

		return 0
	}

	dt := now.Sub(c.lastUpdate)
	c.lastUpdate = now

	return dt
}

// ReadOutput copies the latest master block into dst. The returned
// length is 0 before the first callback has published.
func (c *Context) ReadOutput(dst []float32) ([]float32, int) {
	c.mu.Lock()
	snap := c.masterOut
	c.mu.Unlock()

	if snap == nil {
		return dst, 0
	}

	return snap.Read(dst)
}

// RegisterClip stores a release handle under hash. Registering the
// same hash twice replaces the handle after releasing the old one.
func (c *Context) RegisterClip(hash uint64, release ClipRelease) {
	c.clipMu.Lock()
	defer c.clipMu.Unlock()

	if old, ok := c.clips[hash]; ok && old != nil {
		old()
	}

	c.clips[hash] = release
}

// FreeClip releases the clip registered under hash. Freeing an unknown
// or already freed hash is a no-op.
func (c *Context) FreeClip(hash uint64) {
	c.clipMu.Lock()
	defer c.clipMu.Unlock()

	release, ok := c.clips[hash]
	if !ok {
		return
	}

	delete(c.clips, hash)

	if release != nil {
		release()
	}
}

// ClipCount reports the number of registered clips.
func (c *Context) ClipCount() int {
	c.clipMu.Lock()
	defer c.clipMu.Unlock()

	return len(c.clips)
}

// MasterVolume returns the backend output scale.
func (c *Context) MasterVolume() float64 {
	return c.backend.MasterVolume()
}

// SetMasterVolume sets the backend output scale in [0, 1].
func (c *Context) SetMasterVolume(v float64) error {
	return c.backend.SetMasterVolume(v)
}

// AddSource attaches a source to the mix. On a live context the source
// is sized for the open stream immediately.
func (c *Context) AddSource(s *Source) {
	if s == nil {
		return
	}

	if c.ready.Load() {
		c.mu.Lock()
		cfg := c.cfg
		c.mu.Unlock()
		s.bind(cfg.PeriodFrames, cfg.Channels)
	}

	c.srcMu.Lock()
	defer c.srcMu.Unlock()

	c.sources = append(c.sources, s)
}

// RemoveSource detaches a source. Removing an unattached source is a
// no-op.
func (c *Context) RemoveSource(s *Source) {
	c.srcMu.Lock()
	defer c.srcMu.Unlock()

	for i, cur := range c.sources {
		if cur == s {
			c.sources = append(c.sources[:i], c.sources[i+1:]...)

			return
		}
	}
}

// render is the data callback: mix every playing source, run the
// master chain, publish. out arrives zeroed from the backend bridge.
// No allocation happens here in the steady state.
//
// The snapshot pointer and stream layout are captured under the state
// lock so a concurrent Deinitialize can tear down while a callback is
// mid-flight; the callback then finishes against its own copies and
// never faults.
func (c *Context) render(out, in []float32, frames int) {
	_ = in

	if !c.ready.Load() {
		return
	}

	c.mu.Lock()
	channels := c.cfg.Channels
	snap := c.masterOut
	c.mu.Unlock()

	if snap == nil {
		return
	}

	c.srcMu.Lock()
	for _, s := range c.sources {
		s.render(out, frames, channels)
	}
	c.srcMu.Unlock()

	c.masterChain.Process(out, channels)

	if c.subscriber != nil {
		c.subscriber(out, frames, channels)
	}

	snap.Write(out)
}
