package ksaudio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/ksaudio"
)

func TestWireSizes(t *testing.T) {
	assert.Equal(t, 40, ksaudio.SizeofPropertyDescription)
	assert.Equal(t, 72, ksaudio.SizeofVolumeBasicSupport)
	assert.Equal(t, 88, ksaudio.SizeofDataFormatWaveFormatEx)
	assert.Equal(t, 104, ksaudio.SizeofDataFormatWaveFormatExtensible)

	pcm := ksaudio.NewWaveFormat(ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 2, 16, 48000)
	assert.Equal(t, uint32(88), pcm.Size())

	ext := ksaudio.NewExtensibleFormat(ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 2, 16, 48000, 3)
	assert.Equal(t, uint32(104), ext.Size())

	bridge := ksaudio.NewBridgeFormat()
	assert.Equal(t, uint32(64), bridge.Size())
}

func TestNewWaveFormat(t *testing.T) {
	tests := []struct {
		name       string
		sub        ksaudio.GUID
		channels   uint16
		bits       uint16
		rate       uint32
		blockAlign uint16
		byteRate   uint32
		tag        uint16
	}{
		{"PCM16", ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 2, 16, 48000, 4, 192000, ksaudio.WAVE_FORMAT_PCM},
		{"PCM24Mono", ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 1, 24, 44100, 3, 132300, ksaudio.WAVE_FORMAT_PCM},
		{"Float32", ksaudio.KSDATAFORMAT_SUBTYPE_IEEE_FLOAT, 2, 32, 48000, 8, 384000, ksaudio.WAVE_FORMAT_IEEE_FLOAT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ksaudio.NewWaveFormat(tt.sub, tt.channels, tt.bits, tt.rate)
			assert.Equal(t, tt.blockAlign, f.BlockAlign)
			assert.Equal(t, tt.byteRate, f.AvgBytesPerSec)
			assert.Equal(t, tt.tag, f.FormatTag())
			assert.NoError(t, f.Validate())

			af := f.AudioFormat()
			assert.Equal(t, int(tt.channels), af.NumChannels)
			assert.Equal(t, int(tt.rate), af.SampleRate)
		})
	}
}

func TestFormatValidate(t *testing.T) {
	var nilFormat *ksaudio.FormatDescriptor
	assert.ErrorIs(t, nilFormat.Validate(), ksaudio.ErrInvalidParameter)

	f := ksaudio.NewWaveFormat(ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 2, 16, 48000)
	f.BlockAlign = 3
	assert.ErrorIs(t, f.Validate(), ksaudio.ErrInvalidParameter)

	f = ksaudio.NewWaveFormat(ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 2, 16, 48000)
	f.AvgBytesPerSec = 1
	assert.ErrorIs(t, f.Validate(), ksaudio.ErrInvalidParameter)

	f = ksaudio.NewWaveFormat(ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 2, 12, 48000)
	assert.ErrorIs(t, f.Validate(), ksaudio.ErrInvalidParameter)

	f = ksaudio.NewWaveFormat(ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 2, 16, 48000)
	f.MajorFormat = ksaudio.KSDATAFORMAT_TYPE_VIDEO
	assert.ErrorIs(t, f.Validate(), ksaudio.ErrInvalidParameter)

	bridge := ksaudio.NewBridgeFormat()
	assert.NoError(t, bridge.Validate())
}

func TestFormatDecode(t *testing.T) {
	in := ksaudio.NewExtensibleFormat(ksaudio.KSDATAFORMAT_SUBTYPE_IEEE_FLOAT, 2, 32, 96000, 3)

	b, err := in.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, 104)

	var out ksaudio.FormatDescriptor
	require.NoError(t, out.UnmarshalBinary(b))
	assert.Equal(t, in, out)

	// A truncated extensible record is rejected.
	assert.ErrorIs(t, out.UnmarshalBinary(b[:90]), ksaudio.ErrInvalidBufferSize)
	assert.ErrorIs(t, out.UnmarshalBinary(b[:10]), ksaudio.ErrInvalidBufferSize)
}

func TestFormatRangeContains(t *testing.T) {
	r := ksaudio.NewAudioRange(ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 2, 8, 32, 8000, 192000)

	f := ksaudio.NewWaveFormat(ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 2, 16, 44100)
	assert.True(t, r.Contains(&f))

	f = ksaudio.NewWaveFormat(ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 6, 16, 44100)
	assert.False(t, r.Contains(&f), "too many channels")

	f = ksaudio.NewWaveFormat(ksaudio.KSDATAFORMAT_SUBTYPE_IEEE_FLOAT, 2, 32, 44100)
	assert.False(t, r.Contains(&f), "wrong sub format")

	bridge := ksaudio.NewBridgeRange()
	bf := ksaudio.NewBridgeFormat()
	assert.True(t, bridge.Contains(&bf))

	point := ksaudio.RangeFromFormat(ksaudio.NewWaveFormat(ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 2, 16, 44100))
	assert.Equal(t, uint32(44100), point.MinimumSampleFrequency)
	assert.Equal(t, uint32(44100), point.MaximumSampleFrequency)
	assert.Contains(t, point.String(), "PCM")
}

func TestGUID(t *testing.T) {
	g, err := ksaudio.ParseGUID("45FFAAA0-6E1B-11D0-BCF2-444553540000")
	require.NoError(t, err)
	assert.Equal(t, ksaudio.KSPROPSETID_Audio, g)
	assert.Equal(t, "45ffaaa0-6e1b-11d0-bcf2-444553540000", g.String())
	assert.False(t, g.IsNull())
	assert.True(t, ksaudio.GUID_NULL.IsNull())

	_, err = ksaudio.ParseGUID("not-a-guid")
	assert.Error(t, err)
}
