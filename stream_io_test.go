package ksaudio_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/ksaudio"
)

func TestWriteReadAtWraps(t *testing.T) {
	td := newTestDevice(t, nil)
	s := newRenderStream(t, td)

	_, err := s.AcquireBuffer(16)
	require.NoError(t, err)

	n, err := s.WriteAt(12, []int16{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	got := make([]int16, 4)
	n, err = s.ReadAt(12, got)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []int16{1, 2, 3, 4}, got)

	head := make([]int16, 2)
	_, err = s.ReadAt(0, head)
	require.NoError(t, err)
	assert.Equal(t, []int16{3, 4}, head, "tail of the write lands at the start")

	// Offsets past the end are taken modulo the buffer size.
	_, err = s.ReadAt(16+12, got)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2, 3, 4}, got)

	_, err = s.WriteAt(0, make([]int16, 9))
	assert.ErrorIs(t, err, ksaudio.ErrInvalidParameter)

	_, err = s.WriteAt(0, []string{"a"})
	assert.Error(t, err)

	_, err = s.ReadAt(0, 42)
	assert.Error(t, err)

	n, err = s.WriteAt(0, []int16{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStreamIONoBuffer(t *testing.T) {
	td := newTestDevice(t, nil)
	s := newRenderStream(t, td)

	_, err := s.WriteAt(0, []int16{1})
	assert.ErrorIs(t, err, ksaudio.ErrDeviceNotReady)

	_, err = s.ReadInts(0, &audio.IntBuffer{Data: make([]int, 2)})
	assert.ErrorIs(t, err, ksaudio.ErrDeviceNotReady)

	f, err := os.Create(filepath.Join(t.TempDir(), "empty.wav"))
	require.NoError(t, err)
	defer f.Close()

	assert.ErrorIs(t, s.SaveWAV(f), ksaudio.ErrDeviceNotReady)

	_, err = s.WriteInts(0, nil)
	assert.ErrorIs(t, err, ksaudio.ErrInvalidParameter)
}

func TestWriteReadInts(t *testing.T) {
	td := newTestDevice(t, nil)
	s := newRenderStream(t, td)

	_, err := s.AcquireBuffer(64)
	require.NoError(t, err)

	samples := []int{0, 1000, -1000, 32767, -32768, 1}

	_, err = s.WriteInts(60, &audio.IntBuffer{Data: samples, SourceBitDepth: 16})
	require.NoError(t, err)

	raw := make([]int16, len(samples))
	_, err = s.ReadAt(60, raw)
	require.NoError(t, err)
	assert.Equal(t, []int16{0, 1000, -1000, 32767, -32768, 1}, raw)

	buf := &audio.IntBuffer{Data: make([]int, len(samples))}
	n, err := s.ReadInts(60, buf)
	require.NoError(t, err)
	assert.Equal(t, len(samples), n)
	assert.Equal(t, samples, buf.Data)
	assert.Equal(t, 16, buf.SourceBitDepth)
	assert.Equal(t, &audio.Format{NumChannels: 2, SampleRate: 48000}, buf.Format)
}

func TestWriteReadIntsFloat(t *testing.T) {
	td := newTestDevice(t, nil)

	format := ksaudio.NewWaveFormat(ksaudio.KSDATAFORMAT_SUBTYPE_IEEE_FLOAT, 2, 32, 48000)

	s, err := td.eps.WaveRender.CreateStream(ksaudio.KSPIN_WAVE_SINK, false, &format)
	require.NoError(t, err)

	_, err = s.AcquireBuffer(64)
	require.NoError(t, err)

	_, err = s.WriteInts(0, &audio.IntBuffer{Data: []int{16384, -16384, 0, 8192}, SourceBitDepth: 16})
	require.NoError(t, err)

	raw := make([]float32, 4)
	_, err = s.ReadAt(0, raw)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.5, 0, 0.25}, raw)

	buf := &audio.IntBuffer{Data: make([]int, 4), SourceBitDepth: 24}
	_, err = s.ReadInts(0, buf)
	require.NoError(t, err)
	assert.Equal(t, []int{4194304, -4194304, 0, 2097152}, buf.Data)
}

func TestSaveWAV(t *testing.T) {
	td := newTestDevice(t, nil)

	s, err := td.eps.WaveCapture.CreateStream(ksaudio.KSPIN_WAVE_SINK, true, pcmFormat())
	require.NoError(t, err)

	// 25 ms of audio.
	_, err = s.AcquireBuffer(4800)
	require.NoError(t, err)

	samples := make([]int, 2400)
	for i := range samples {
		samples[i] = (i%200)*100 - 10000
	}

	_, err = s.WriteInts(0, &audio.IntBuffer{Data: samples, SourceBitDepth: 16})
	require.NoError(t, err)

	f, err := os.Create(filepath.Join(t.TempDir(), "capture.wav"))
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, s.SaveWAV(f))

	_, err = f.Seek(0, 0)
	require.NoError(t, err)

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())

	pcm, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, uint32(48000), dec.SampleRate)
	assert.Equal(t, uint16(2), dec.NumChans)
	assert.Equal(t, uint16(16), dec.BitDepth)
	assert.Equal(t, samples, pcm.Data)
}

func TestWriteAtDuringRelease(t *testing.T) {
	dev, err := ksaudio.NewDevice(&ksaudio.DeviceConfig{Clock: &fakeClock{}, DisableLoopback: true})
	require.NoError(t, err)

	ep := ksaudio.NewWaveEndpoint(dev, false)
	require.NoError(t, ep.Init())

	s, err := ep.CreateStream(ksaudio.KSPIN_WAVE_SINK, false, pcmFormat())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = ep.Close()
		_ = dev.Close()
	})

	samples := make([]int16, 512)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()

		for i := 0; i < 500; i++ {
			_, err := s.WriteAt(uint64(i*64), samples)
			if err != nil {
				assert.ErrorIs(t, err, ksaudio.ErrDeviceNotReady)
			}
		}
	}()

	go func() {
		defer wg.Done()

		for i := 0; i < 100; i++ {
			if _, err := s.AcquireBuffer(4096); err != nil {
				assert.ErrorIs(t, err, ksaudio.ErrAlreadyCommitted)
			}

			assert.NoError(t, s.ReleaseBuffer())
		}
	}()

	wg.Wait()
}
