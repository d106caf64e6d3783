package main

import (
	"encoding/binary"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/gen2brain/ksaudio"
)

// AudioDecoder is a source of interleaved integer samples for the render loop.
type AudioDecoder interface {
	// PCMBuffer fills buf.Data and returns the number of samples (not frames) read.
	PCMBuffer(buf *audio.IntBuffer) (n int, err error)
	Duration() (time.Duration, error)
	NumChans() uint16
	SampleRate() uint32
	BitDepth() uint16
	IsFloat() bool
}

// openDecoder picks the decoder by file extension.
func openDecoder(path string, r io.ReadSeeker) (AudioDecoder, error) {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		return newMp3Decoder(r)
	}

	return newWavDecoder(r)
}

// requestRange is the data range the render pin is asked for: exactly the file format.
// The pin answers with its canonical format, which may differ.
func requestRange(d AudioDecoder) ksaudio.FormatRange {
	sub := ksaudio.KSDATAFORMAT_SUBTYPE_PCM
	if d.IsFloat() {
		sub = ksaudio.KSDATAFORMAT_SUBTYPE_IEEE_FLOAT
	}

	bits := uint32(d.BitDepth())

	return ksaudio.NewAudioRange(sub, uint32(d.NumChans()), bits, bits, d.SampleRate(), d.SampleRate())
}

type wavDecoder struct {
	*wav.Decoder
}

func newWavDecoder(r io.ReadSeeker) (AudioDecoder, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	return &wavDecoder{Decoder: decoder}, nil
}

func (w *wavDecoder) SampleRate() uint32 { return w.Decoder.SampleRate }
func (w *wavDecoder) NumChans() uint16   { return w.Decoder.NumChans }
func (w *wavDecoder) BitDepth() uint16   { return w.Decoder.BitDepth }
func (w *wavDecoder) IsFloat() bool      { return w.Decoder.WavAudioFormat == ksaudio.WAVE_FORMAT_IEEE_FLOAT }

// mp3Decoder always produces 16-bit stereo.
type mp3Decoder struct {
	decoder    *mp3.Decoder
	sampleRate uint32
	length     int64 // Decoded size in bytes.
	scratch    []byte
}

func newMp3Decoder(r io.Reader) (AudioDecoder, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	return &mp3Decoder{
		decoder:    decoder,
		sampleRate: uint32(decoder.SampleRate()),
		length:     decoder.Length(),
	}, nil
}

func (m *mp3Decoder) PCMBuffer(buf *audio.IntBuffer) (n int, err error) {
	size := len(buf.Data) * 2
	if cap(m.scratch) < size {
		m.scratch = make([]byte, size)
	}

	b := m.scratch[:size]

	read, err := io.ReadFull(m.decoder, b)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}

	n = read / 2
	for i := 0; i < n; i++ {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(b[i*2:])))
	}

	if n > 0 && errors.Is(err, io.EOF) {
		err = nil
	}

	return n, err
}

func (m *mp3Decoder) Duration() (time.Duration, error) {
	frames := m.length / 4
	if m.sampleRate == 0 {
		return 0, errors.New("invalid sample rate")
	}

	return time.Duration(frames) * time.Second / time.Duration(m.sampleRate), nil
}

func (m *mp3Decoder) SampleRate() uint32 { return m.sampleRate }
func (m *mp3Decoder) NumChans() uint16   { return 2 }
func (m *mp3Decoder) BitDepth() uint16   { return 16 }
func (m *mp3Decoder) IsFloat() bool      { return false }
