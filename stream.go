package ksaudio

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// timeline is an immutable snapshot of everything the position depends on.
// Writers build a new snapshot under the stream lock and publish it with one atomic store,
// so position readers never see a torn update.
type timeline struct {
	state  StreamState
	epoch  int64  // Clock ticks at the last transition to RUN.
	banked uint64 // Bytes played before the current epoch.
	size   uint64 // Size of the bound buffer, 0 when none.
}

// LatencyInfo mirrors KSRTAUDIO_HWLATENCY.
type LatencyInfo struct {
	FifoSize     uint32
	ChipsetDelay uint32
	CodecDelay   uint32
}

// Stream is one instance of a streaming pin: a state machine, a cyclic buffer and a clock-derived position.
// Position may be called from any goroutine while another goroutine changes the state.
type Stream struct {
	endpoint *Endpoint
	pin      uint32
	capture  bool
	format   FormatDescriptor
	byteRate uint32

	mu     sync.Mutex // Serializes state, buffer and lifetime changes.
	buffer *BufferDescriptor
	closed bool

	timeline atomic.Pointer[timeline]
}

func newStream(e *Endpoint, pin uint32, capture bool, format FormatDescriptor) *Stream {
	s := &Stream{
		endpoint: e,
		pin:      pin,
		capture:  capture,
		format:   format,
		byteRate: format.AvgBytesPerSec,
	}
	s.timeline.Store(&timeline{state: KSSTATE_STOP})

	return s
}

// Pin returns the pin index the stream was created on.
func (s *Stream) Pin() uint32 {
	return s.pin
}

// IsCapture reports whether the stream is a capture stream.
func (s *Stream) IsCapture() bool {
	return s.capture
}

// Format returns the format the stream was created with.
func (s *Stream) Format() FormatDescriptor {
	return s.format
}

// ByteRate returns the bytes per second the position advances by. It is fixed at creation.
func (s *Stream) ByteRate() uint32 {
	return s.byteRate
}

// State returns the current state.
func (s *Stream) State() StreamState {
	return s.timeline.Load().state
}

// Buffer returns the bound buffer, or nil.
func (s *Stream) Buffer() *BufferDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buffer
}

// String returns a short identifier used in log lines.
func (s *Stream) String() string {
	return fmt.Sprintf("%s/pin%d", s.endpoint.descriptor.Name, s.pin)
}

// SetState moves the stream to state.
// Every transition to RUN records a new clock epoch; a RUN while running first banks the bytes
// played so far, so the position does not jump. PAUSE freezes the position, STOP and ACQUIRE reset it to zero.
func (s *Stream) SetState(state StreamState) error {
	if s == nil {
		return fmt.Errorf("nil stream: %w", ErrInvalidParameter)
	}

	if state < KSSTATE_STOP || state > KSSTATE_RUN {
		return fmt.Errorf("state %d: %w", state, ErrInvalidParameter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clock := s.endpoint.device.clock
	now := clock.Ticks()

	cur := s.timeline.Load()
	next := *cur

	switch state {
	case KSSTATE_STOP, KSSTATE_ACQUIRE:
		next.epoch = 0
		next.banked = 0
	case KSSTATE_PAUSE:
		if cur.state == KSSTATE_RUN {
			next.banked = cur.banked + ticksToBytes(now-cur.epoch, clock.Frequency(), s.byteRate)
		}

		next.epoch = 0
	case KSSTATE_RUN:
		if cur.state == KSSTATE_RUN {
			next.banked = cur.banked + ticksToBytes(now-cur.epoch, clock.Frequency(), s.byteRate)
		}

		next.epoch = now
	}

	next.state = state
	s.timeline.Store(&next)

	s.endpoint.device.logf("stream %s: %s -> %s", s, cur.state, state)

	return nil
}

// Position returns the current byte offset within the buffer.
// It is zero unless the stream is running or paused with a buffer bound.
func (s *Stream) Position() (uint64, error) {
	if s == nil {
		return 0, fmt.Errorf("nil stream: %w", ErrInvalidParameter)
	}

	t := s.timeline.Load()
	if t.size == 0 {
		return 0, nil
	}

	var played uint64

	switch t.state {
	case KSSTATE_RUN:
		clock := s.endpoint.device.clock
		played = t.banked + ticksToBytes(clock.Ticks()-t.epoch, clock.Frequency(), s.byteRate)
	case KSSTATE_PAUSE:
		played = t.banked
	default:
		return 0, nil
	}

	return played % t.size, nil
}

// SetFormat accepts a format change request. The byte rate fixed at creation is kept.
func (s *Stream) SetFormat(f *FormatDescriptor) error {
	if s == nil || f == nil {
		return fmt.Errorf("nil stream or format: %w", ErrInvalidParameter)
	}

	s.endpoint.device.logf("stream %s: ignoring format change to %s", s, f)

	return nil
}

// HWLatency returns the hardware latency, which is zero for the virtual device.
func (s *Stream) HWLatency() LatencyInfo {
	return LatencyInfo{}
}

// PositionRegister is not available on the virtual device.
func (s *Stream) PositionRegister() error {
	return fmt.Errorf("position register: %w", ErrUnsuccessful)
}

// ClockRegister is not available on the virtual device.
func (s *Stream) ClockRegister() error {
	return fmt.Errorf("clock register: %w", ErrUnsuccessful)
}

// Close releases the buffer and removes the stream from its endpoint. It is safe to call more than once.
func (s *Stream) Close() error {
	if s == nil {
		return fmt.Errorf("nil stream: %w", ErrInvalidParameter)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.ReleaseBuffer()
	s.endpoint.removeStream(s)

	return err
}

// bindBuffer records b as the stream buffer. Called with s.mu held.
func (s *Stream) bindBuffer(b *BufferDescriptor) {
	s.buffer = b

	next := *s.timeline.Load()
	next.size = uint64(b.Size())

	if next.state == KSSTATE_STOP {
		next.state = KSSTATE_ACQUIRE
	}

	s.timeline.Store(&next)
}

// unbindBuffer drops the stream buffer and resets the timeline. Called with s.mu held.
func (s *Stream) unbindBuffer() {
	s.buffer = nil
	s.timeline.Store(&timeline{state: KSSTATE_STOP})
}

// ticksToBytes converts elapsed clock ticks to bytes at rate bytes per second without overflowing the product.
func ticksToBytes(elapsed, frequency int64, rate uint32) uint64 {
	if elapsed <= 0 || frequency <= 0 {
		return 0
	}

	e, f, r := uint64(elapsed), uint64(frequency), uint64(rate)

	return (e/f)*r + (e%f)*r/f
}
