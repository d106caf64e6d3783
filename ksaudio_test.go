package ksaudio_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gen2brain/ksaudio"
)

// fakeClock is a manually advanced clock. One tick is one microsecond.
type fakeClock struct {
	ticks atomic.Int64
}

func (c *fakeClock) Ticks() int64     { return c.ticks.Load() }
func (c *fakeClock) Frequency() int64 { return 1_000_000 }

// Advance moves the clock forward by us microseconds.
func (c *fakeClock) Advance(us int64) { c.ticks.Add(us) }

var errOutOfMemory = errors.New("out of memory")

// heapAllocator allocates from the Go heap and counts frees.
type heapAllocator struct {
	mu     sync.Mutex
	allocs int
	frees  int
	fail   bool
}

func (a *heapAllocator) Alloc(size int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.fail {
		return nil, errOutOfMemory
	}

	a.allocs++

	return make([]byte, size), nil
}

func (a *heapAllocator) Free([]byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.frees++

	return nil
}

func (a *heapAllocator) setFail(fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.fail = fail
}

func (a *heapAllocator) counts() (allocs, frees int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.allocs, a.frees
}

// testDevice bundles a device built on test doubles.
type testDevice struct {
	dev      *ksaudio.Device
	eps      *ksaudio.Endpoints
	clock    *fakeClock
	primary  *heapAllocator
	loopback *heapAllocator
}

func newTestDevice(t *testing.T, cfg *ksaudio.DeviceConfig) *testDevice {
	t.Helper()

	td := &testDevice{
		clock:    &fakeClock{},
		primary:  &heapAllocator{},
		loopback: &heapAllocator{},
	}

	if cfg == nil {
		cfg = &ksaudio.DeviceConfig{}
	}

	cfg.Clock = td.clock
	cfg.Allocator = td.primary
	cfg.LoopbackAllocator = td.loopback

	dev, err := ksaudio.NewDevice(cfg)
	require.NoError(t, err)

	eps, err := dev.Endpoints()
	require.NoError(t, err)

	td.dev = dev
	td.eps = eps

	t.Cleanup(func() {
		_ = eps.Close()
		_ = dev.Close()
	})

	return td
}

// pcmFormat is the canonical 48 kHz 16-bit stereo PCM format.
func pcmFormat() *ksaudio.FormatDescriptor {
	f := ksaudio.NewWaveFormat(ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 2, 16, 48000)

	return &f
}

// newRenderStream creates a render stream on the wave sink pin.
func newRenderStream(t *testing.T, td *testDevice) *ksaudio.Stream {
	t.Helper()

	s, err := td.eps.WaveRender.CreateStream(ksaudio.KSPIN_WAVE_SINK, false, pcmFormat())
	require.NoError(t, err)

	return s
}
