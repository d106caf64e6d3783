package ksaudio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"runtime"
	"unsafe"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteAt copies interleaved samples into the cyclic buffer starting at byte offset off, wrapping at the end.
// The provided `data` argument must be a slice of a supported numeric type (e.g., []int16, []float32).
// Returns the number of bytes written.
func (s *Stream) WriteAt(off uint64, data any) (int, error) {
	ptr, byteLen, err := checkSliceAndGetData(data)
	if err != nil {
		return 0, fmt.Errorf("invalid data type for WriteAt: %w", err)
	}

	defer runtime.KeepAlive(data)

	if byteLen == 0 {
		return 0, nil
	}

	return s.writeBytes(off, unsafe.Slice((*byte)(ptr), byteLen))
}

// ReadAt copies interleaved samples out of the cyclic buffer starting at byte offset off, wrapping at the end.
// The provided `data` argument must be a slice of a supported numeric type (e.g., []int16, []float32).
// Returns the number of bytes read.
func (s *Stream) ReadAt(off uint64, data any) (int, error) {
	ptr, byteLen, err := checkSliceAndGetData(data)
	if err != nil {
		return 0, fmt.Errorf("invalid buffer type for ReadAt: %w", err)
	}

	defer runtime.KeepAlive(data)

	if byteLen == 0 {
		return 0, nil
	}

	return s.readBytes(off, unsafe.Slice((*byte)(ptr), byteLen))
}

// WriteInts encodes the samples of buf in the stream format and writes them at byte offset off.
// For float streams the integer samples are scaled by buf.SourceBitDepth.
func (s *Stream) WriteInts(off uint64, buf *audio.IntBuffer) (int, error) {
	if buf == nil {
		return 0, fmt.Errorf("nil buffer: %w", ErrInvalidParameter)
	}

	width := int(s.format.BitsPerSample / 8)
	out := make([]byte, len(buf.Data)*width)

	scale := intScale(buf.SourceBitDepth)

	for i, v := range buf.Data {
		b := out[i*width:]

		switch {
		case s.format.IsFloat():
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(float64(v)/scale)))
		case width == 1:
			b[0] = byte(v + 128)
		case width == 2:
			binary.LittleEndian.PutUint16(b, uint16(int16(v)))
		case width == 3:
			b[0], b[1], b[2] = byte(v), byte(v>>8), byte(v>>16)
		case width == 4:
			binary.LittleEndian.PutUint32(b, uint32(int32(v)))
		default:
			return 0, fmt.Errorf("unsupported sample width %d: %w", width, ErrInvalidParameter)
		}
	}

	return s.writeBytes(off, out)
}

// ReadInts decodes len(buf.Data) samples at byte offset off into buf.
// For float streams the samples are scaled to buf.SourceBitDepth, 16 when unset.
func (s *Stream) ReadInts(off uint64, buf *audio.IntBuffer) (int, error) {
	if buf == nil {
		return 0, fmt.Errorf("nil buffer: %w", ErrInvalidParameter)
	}

	width := int(s.format.BitsPerSample / 8)
	in := make([]byte, len(buf.Data)*width)

	if _, err := s.readBytes(off, in); err != nil {
		return 0, err
	}

	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(s.format.BitsPerSample)
		if s.format.IsFloat() {
			buf.SourceBitDepth = 16
		}
	}

	buf.Format = s.format.AudioFormat()
	scale := intScale(buf.SourceBitDepth)

	for i := range buf.Data {
		b := in[i*width:]

		switch {
		case s.format.IsFloat():
			buf.Data[i] = int(math.Round(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))) * scale))
		case width == 1:
			buf.Data[i] = int(b[0]) - 128
		case width == 2:
			buf.Data[i] = int(int16(binary.LittleEndian.Uint16(b)))
		case width == 3:
			buf.Data[i] = int(int32(uint32(b[0])|uint32(b[1])<<8|uint32(b[2])<<16) << 8 >> 8)
		case width == 4:
			buf.Data[i] = int(int32(binary.LittleEndian.Uint32(b)))
		default:
			return 0, fmt.Errorf("unsupported sample width %d: %w", width, ErrInvalidParameter)
		}
	}

	return len(buf.Data), nil
}

// SaveWAV writes the whole cyclic buffer as a WAV file in the stream format.
// Float streams are written as 16-bit PCM.
func (s *Stream) SaveWAV(w io.WriteSeeker) error {
	b := s.Buffer()
	if b == nil {
		return fmt.Errorf("stream %s has no buffer: %w", s, ErrDeviceNotReady)
	}

	bits := int(s.format.BitsPerSample)
	if s.format.IsFloat() {
		bits = 16
	}

	frames := int(b.Size()) / int(s.format.BlockAlign)

	buf := &audio.IntBuffer{
		Data:           make([]int, frames*int(s.format.Channels)),
		SourceBitDepth: bits,
	}

	if _, err := s.ReadInts(0, buf); err != nil {
		return err
	}

	enc := wav.NewEncoder(w, int(s.format.SampleRate), bits, int(s.format.Channels), int(WAVE_FORMAT_PCM))
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav write failed: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav close failed: %w", err)
	}

	return nil
}

func (s *Stream) writeBytes(off uint64, src []byte) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("nil stream: %w", ErrInvalidParameter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ring, err := s.ring(len(src))
	if err != nil {
		return 0, err
	}

	start := int(off % uint64(len(ring)))
	n := copy(ring[start:], src)
	copy(ring, src[n:])

	return len(src), nil
}

func (s *Stream) readBytes(off uint64, dst []byte) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("nil stream: %w", ErrInvalidParameter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ring, err := s.ring(len(dst))
	if err != nil {
		return 0, err
	}

	start := int(off % uint64(len(ring)))
	n := copy(dst, ring[start:])
	copy(dst[n:], ring)

	return len(dst), nil
}

// ring returns the buffer memory, checking that n bytes fit in it.
// Called with s.mu held, so the memory stays mapped while the caller copies.
func (s *Stream) ring(n int) ([]byte, error) {
	b := s.buffer
	if b == nil {
		return nil, fmt.Errorf("stream %s has no buffer: %w", s, ErrDeviceNotReady)
	}

	ring := b.Bytes()
	if n > len(ring) {
		return nil, fmt.Errorf("%d bytes do not fit in a %d byte buffer: %w", n, len(ring), ErrInvalidParameter)
	}

	return ring, nil
}

func intScale(bitDepth int) float64 {
	if bitDepth <= 0 {
		bitDepth = 16
	}

	return float64(int64(1) << (bitDepth - 1))
}

// checkSlice validates that the input is a slice of a supported numeric type.
// It returns the total length of the slice data in bytes.
func checkSlice(data any) (byteLen uint32, err error) {
	if data == nil {
		return 0, errors.New("data cannot be nil")
	}

	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Slice {
		return 0, fmt.Errorf("expected a slice, got %T", data)
	}

	if rv.Len() == 0 {
		return 0, nil
	}

	switch rv.Type().Elem().Kind() {
	case reflect.Int8, reflect.Uint8,
		reflect.Int16, reflect.Uint16,
		reflect.Int32, reflect.Uint32,
		reflect.Float32, reflect.Float64:
	default:
		return 0, fmt.Errorf("unsupported slice element type: %s", rv.Type().Elem().Kind())
	}

	return uint32(rv.Len()) * uint32(rv.Type().Elem().Size()), nil
}

// checkSliceAndGetData is a helper that combines slice validation and getting the data pointer.
func checkSliceAndGetData(data any) (ptr unsafe.Pointer, byteLen uint32, err error) {
	byteLen, err = checkSlice(data)
	if err != nil {
		return nil, 0, err
	}

	if byteLen > 0 {
		ptr = unsafe.Pointer(reflect.ValueOf(data).Index(0).Addr().Pointer())
	}

	return ptr, byteLen, nil
}
