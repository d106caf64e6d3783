package ksaudio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultLoopbackSize is one second of 48 kHz 16-bit stereo audio.
const DefaultLoopbackSize = 192000

// Clock is the tick source of stream positions.
type Clock interface {
	// Ticks returns a monotonic tick count.
	Ticks() int64
	// Frequency returns the number of ticks per second.
	Frequency() int64
}

type monotonicClock struct {
	start time.Time
}

func (c monotonicClock) Ticks() int64 {
	return int64(time.Since(c.start))
}

func (c monotonicClock) Frequency() int64 {
	return int64(time.Second)
}

// DeviceConfig holds the device settings. Zero values select the defaults.
type DeviceConfig struct {
	// LoopbackSize is the size of the shared fallback buffer, DefaultLoopbackSize when zero.
	LoopbackSize uint32
	// DisableLoopback turns the fallback buffer off.
	DisableLoopback bool
	// Allocator provides stream buffers, an MmapAllocator when nil.
	Allocator Allocator
	// LoopbackAllocator provides the fallback buffer, Allocator when nil.
	LoopbackAllocator Allocator
	// Clock drives stream positions, the monotonic clock in nanoseconds when nil.
	Clock Clock
	// Logger receives debug output, discarded when nil.
	Logger *log.Logger
	// LockBuffers locks the memory of the default allocator.
	LockBuffers bool
}

// Device is the adapter-wide context shared by all endpoints: allocator, clock, logger and the loopback buffer.
type Device struct {
	allocator         Allocator
	loopbackAllocator Allocator
	clock             Clock
	logger            *log.Logger
	loopback          atomic.Pointer[loopback]

	mu     sync.Mutex
	closed bool
}

// NewDevice creates a device. A nil config selects the defaults.
// Failure to allocate the loopback buffer is not fatal, the device then runs without fallback.
func NewDevice(config *DeviceConfig) (*Device, error) {
	var cfg DeviceConfig
	if config != nil {
		cfg = *config
	}

	if cfg.LoopbackSize == 0 {
		cfg.LoopbackSize = DefaultLoopbackSize
	}

	if cfg.Allocator == nil {
		cfg.Allocator = MmapAllocator{Lock: cfg.LockBuffers}
	}

	if cfg.LoopbackAllocator == nil {
		cfg.LoopbackAllocator = cfg.Allocator
	}

	if cfg.Clock == nil {
		cfg.Clock = monotonicClock{start: time.Now()}
	}

	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}

	if cfg.Clock.Frequency() <= 0 {
		return nil, fmt.Errorf("clock frequency %d: %w", cfg.Clock.Frequency(), ErrInvalidParameter)
	}

	d := &Device{
		allocator:         cfg.Allocator,
		loopbackAllocator: cfg.LoopbackAllocator,
		clock:             cfg.Clock,
		logger:            cfg.Logger,
	}

	if !cfg.DisableLoopback {
		data, err := cfg.LoopbackAllocator.Alloc(int(cfg.LoopbackSize))
		if err != nil {
			d.logf("loopback buffer of %d bytes unavailable: %v", cfg.LoopbackSize, err)
		} else {
			d.loopback.Store(&loopback{data: data})
		}
	}

	return d, nil
}

// HasLoopback reports whether the fallback buffer is available.
func (d *Device) HasLoopback() bool {
	return d.loopback.Load() != nil
}

// LoopbackSize returns the size of the fallback buffer, 0 when there is none.
func (d *Device) LoopbackSize() uint32 {
	lb := d.loopback.Load()
	if lb == nil {
		return 0
	}

	return uint32(len(lb.data))
}

// Close frees the loopback buffer. It fails with ErrAlreadyCommitted while a stream still borrows it.
func (d *Device) Close() error {
	if d == nil {
		return fmt.Errorf("nil device: %w", ErrInvalidParameter)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	if lb := d.loopback.Load(); lb != nil {
		// Holding the token keeps streams from binding the region while it is freed.
		if !lb.bound.CompareAndSwap(false, true) {
			return fmt.Errorf("loopback buffer still in use: %w", ErrAlreadyCommitted)
		}

		if err := d.loopbackAllocator.Free(lb.data); err != nil {
			lb.unbind()

			return fmt.Errorf("free loopback buffer: %w", err)
		}

		d.loopback.Store(nil)
	}

	d.closed = true

	return nil
}

// Endpoints is the set of endpoints of the device.
type Endpoints struct {
	WaveRender      *Endpoint
	WaveCapture     *Endpoint
	TopologyRender  *Endpoint
	TopologyCapture *Endpoint
}

// All returns the endpoints in a fixed order.
func (e *Endpoints) All() []*Endpoint {
	return []*Endpoint{e.WaveRender, e.WaveCapture, e.TopologyRender, e.TopologyCapture}
}

// Close closes every endpoint.
func (e *Endpoints) Close() error {
	var errs []error
	for _, ep := range e.All() {
		if err := ep.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Endpoints creates and initializes the wave and topology endpoints of both directions.
func (d *Device) Endpoints() (*Endpoints, error) {
	if d == nil {
		return nil, fmt.Errorf("nil device: %w", ErrInvalidParameter)
	}

	eps := &Endpoints{
		WaveRender:      NewWaveEndpoint(d, false),
		WaveCapture:     NewWaveEndpoint(d, true),
		TopologyRender:  NewTopologyEndpoint(d, false),
		TopologyCapture: NewTopologyEndpoint(d, true),
	}

	for _, ep := range eps.All() {
		if err := ep.Init(); err != nil {
			return nil, fmt.Errorf("init %s: %w", ep.Name(), err)
		}
	}

	return eps, nil
}

func (d *Device) logf(format string, args ...any) {
	d.logger.Printf(format, args...)
}
