package ksaudio

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// CachingType is the memory caching type of a stream buffer.
type CachingType int32

const (
	MmNonCached     CachingType = 0
	MmCached        CachingType = 1
	MmWriteCombined CachingType = 2
)

// String returns the name of the caching type.
func (c CachingType) String() string {
	switch c {
	case MmNonCached:
		return "non-cached"
	case MmCached:
		return "cached"
	case MmWriteCombined:
		return "write-combined"
	default:
		return "unknown"
	}
}

// Allocator provides the memory of stream buffers.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte) error
}

// MmapAllocator allocates anonymous shared mappings, optionally locked into memory.
type MmapAllocator struct {
	Lock bool
}

// Alloc maps size bytes of zeroed memory.
func (a MmapAllocator) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", size)
	}

	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes failed: %w", size, err)
	}

	if a.Lock {
		if err := unix.Mlock(buf); err != nil {
			_ = unix.Munmap(buf)

			return nil, fmt.Errorf("mlock %d bytes failed: %w", size, err)
		}
	}

	return buf, nil
}

// Free unmaps a buffer returned by Alloc.
func (a MmapAllocator) Free(buf []byte) error {
	if a.Lock {
		_ = unix.Munlock(buf)
	}

	if err := unix.Munmap(buf); err != nil {
		return fmt.Errorf("munmap failed: %w", err)
	}

	return nil
}

// BufferDescriptor is the cyclic buffer bound to a stream.
// An owned buffer is freed when the stream releases it, a borrowed one is the device loopback region.
type BufferDescriptor struct {
	data    []byte
	caching CachingType
	owned   bool
	valid   atomic.Bool

	// lender is the loopback region a borrowed buffer came from.
	lender *loopback
}

// Bytes returns the buffer memory.
func (b *BufferDescriptor) Bytes() []byte {
	return b.data
}

// Size returns the buffer size in bytes.
func (b *BufferDescriptor) Size() uint32 {
	return uint32(len(b.data))
}

// Caching returns the caching type of the buffer memory.
func (b *BufferDescriptor) Caching() CachingType {
	return b.caching
}

// Owned reports whether the stream owns the memory.
func (b *BufferDescriptor) Owned() bool {
	return b.owned
}

// PageOffset returns the offset of the buffer start within its first page.
func (b *BufferDescriptor) PageOffset() uint32 {
	if len(b.data) == 0 {
		return 0
	}

	return uint32(uintptr(unsafe.Pointer(&b.data[0])) % uintptr(unix.Getpagesize()))
}

// String returns a human-readable representation of the buffer.
func (b *BufferDescriptor) String() string {
	kind := "owned"
	if !b.owned {
		kind = "loopback"
	}

	return fmt.Sprintf("%d bytes, %s, %s", len(b.data), kind, b.caching)
}

// release frees owned memory once. Later calls are no-ops.
func (b *BufferDescriptor) release(a Allocator) error {
	if !b.owned || !b.valid.CompareAndSwap(true, false) {
		return nil
	}

	return a.Free(b.data)
}

// loopback is the shared fallback region. At most one stream borrows it at a time.
type loopback struct {
	data  []byte
	bound atomic.Bool
}

func (l *loopback) bind() bool {
	return l != nil && len(l.data) > 0 && l.bound.CompareAndSwap(false, true)
}

func (l *loopback) unbind() {
	l.bound.Store(false)
}

// AcquireBuffer binds a cyclic buffer of the requested size to the stream.
// When the primary allocation fails the device loopback region is borrowed instead, with its own size.
// A stream holds at most one buffer; a second call fails with ErrAlreadyCommitted.
func (s *Stream) AcquireBuffer(size uint32) (*BufferDescriptor, error) {
	if s == nil {
		return nil, fmt.Errorf("nil stream: %w", ErrInvalidParameter)
	}

	if size == 0 {
		return nil, fmt.Errorf("zero buffer size: %w", ErrInvalidParameter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("stream %s is closed: %w", s, ErrInvalidParameter)
	}

	if s.buffer != nil {
		return nil, fmt.Errorf("stream already holds %s: %w", s.buffer, ErrAlreadyCommitted)
	}

	dev := s.endpoint.device

	data, err := dev.allocator.Alloc(int(size))
	if err == nil {
		b := &BufferDescriptor{data: data, caching: MmCached, owned: true}
		b.valid.Store(true)

		s.bindBuffer(b)
		dev.logf("stream %s: acquired %s", s, b)

		return b, nil
	}

	if lb := dev.loopback.Load(); lb.bind() {
		b := &BufferDescriptor{data: lb.data, caching: MmCached, lender: lb}

		s.bindBuffer(b)
		dev.logf("stream %s: allocation failed (%v), borrowed %s", s, err, b)

		return b, nil
	}

	dev.logf("stream %s: allocation of %d bytes failed: %v", s, size, err)

	return nil, fmt.Errorf("allocate %d bytes: %v: %w", size, err, ErrInsufficientResources)
}

// ReleaseBuffer unbinds the buffer from the stream. Owned memory is freed once and a borrowed
// loopback region is returned to the device. Releasing a stream without a buffer is a no-op.
func (s *Stream) ReleaseBuffer() error {
	if s == nil {
		return fmt.Errorf("nil stream: %w", ErrInvalidParameter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.buffer
	if b == nil {
		return nil
	}

	s.unbindBuffer()

	dev := s.endpoint.device
	if !b.owned {
		b.lender.unbind()
		dev.logf("stream %s: returned loopback buffer", s)

		return nil
	}

	if err := b.release(dev.allocator); err != nil {
		return fmt.Errorf("release buffer: %w", err)
	}

	dev.logf("stream %s: released %s", s, b)

	return nil
}
