package ksaudio

import (
	"fmt"
	"strings"

	"github.com/go-audio/audio"
)

// FormatDescriptor is a concrete wire format: a data-format header plus, for wave formats,
// the WAVEFORMATEX or WAVEFORMATEXTENSIBLE fields.
// For wave formats BlockAlign is Channels*BitsPerSample/8 and AvgBytesPerSec is SampleRate*BlockAlign.
type FormatDescriptor struct {
	MajorFormat GUID
	SubFormat   GUID
	Specifier   GUID

	Channels       uint16
	BitsPerSample  uint16
	SampleRate     uint32
	BlockAlign     uint16
	AvgBytesPerSec uint32

	// Extensible selects the WAVEFORMATEXTENSIBLE layout.
	Extensible         bool
	ValidBitsPerSample uint16
	ChannelMask        uint32
}

// NewWaveFormat returns a WAVEFORMATEX format of the given sub kind with derived block alignment and byte rate.
func NewWaveFormat(subFormat GUID, channels, bits uint16, rate uint32) FormatDescriptor {
	blockAlign := channels * bits / 8

	return FormatDescriptor{
		MajorFormat:    KSDATAFORMAT_TYPE_AUDIO,
		SubFormat:      subFormat,
		Specifier:      KSDATAFORMAT_SPECIFIER_WAVEFORMATEX,
		Channels:       channels,
		BitsPerSample:  bits,
		SampleRate:     rate,
		BlockAlign:     blockAlign,
		AvgBytesPerSec: rate * uint32(blockAlign),
	}
}

// NewExtensibleFormat returns a WAVEFORMATEXTENSIBLE format with all bits valid.
func NewExtensibleFormat(subFormat GUID, channels, bits uint16, rate uint32, channelMask uint32) FormatDescriptor {
	f := NewWaveFormat(subFormat, channels, bits, rate)
	f.Extensible = true
	f.ValidBitsPerSample = bits
	f.ChannelMask = channelMask

	return f
}

// NewBridgeFormat returns the analog format carried by bridge pins. It has no wave fields.
func NewBridgeFormat() FormatDescriptor {
	return FormatDescriptor{
		MajorFormat: KSDATAFORMAT_TYPE_AUDIO,
		SubFormat:   KSDATAFORMAT_SUBTYPE_ANALOG,
		Specifier:   KSDATAFORMAT_SPECIFIER_NONE,
	}
}

// DefaultProposedFormat is the format reported by the proposed data format property: 48 kHz 16-bit stereo PCM.
var DefaultProposedFormat = NewExtensibleFormat(KSDATAFORMAT_SUBTYPE_PCM, 2, 16, 48000, KSAUDIO_SPEAKER_STEREO)

// IsBridge reports whether f is a bridge format without wave fields.
func (f *FormatDescriptor) IsBridge() bool {
	return f.Specifier == KSDATAFORMAT_SPECIFIER_NONE
}

// IsPCM reports whether f carries integer PCM samples.
func (f *FormatDescriptor) IsPCM() bool {
	return f.SubFormat == KSDATAFORMAT_SUBTYPE_PCM
}

// IsFloat reports whether f carries IEEE float samples.
func (f *FormatDescriptor) IsFloat() bool {
	return f.SubFormat == KSDATAFORMAT_SUBTYPE_IEEE_FLOAT
}

// Size returns the size of the wire record of f.
func (f *FormatDescriptor) Size() uint32 {
	switch {
	case f.IsBridge():
		return SizeofDataFormat
	case f.Extensible:
		return SizeofDataFormatWaveFormatExtensible
	default:
		return SizeofDataFormatWaveFormatEx
	}
}

// FormatTag returns the WAVEFORMATEX tag of f.
func (f *FormatDescriptor) FormatTag() uint16 {
	switch {
	case f.Extensible:
		return WAVE_FORMAT_EXTENSIBLE
	case f.IsFloat():
		return WAVE_FORMAT_IEEE_FLOAT
	default:
		return WAVE_FORMAT_PCM
	}
}

// Validate checks the derived fields of a wave format.
func (f *FormatDescriptor) Validate() error {
	if f == nil {
		return fmt.Errorf("nil format: %w", ErrInvalidParameter)
	}

	if f.MajorFormat != KSDATAFORMAT_TYPE_AUDIO {
		return fmt.Errorf("major format %s is not audio: %w", f.MajorFormat, ErrInvalidParameter)
	}

	if f.IsBridge() {
		return nil
	}

	if f.Channels == 0 || f.SampleRate == 0 || f.BitsPerSample == 0 || f.BitsPerSample%8 != 0 {
		return fmt.Errorf("format %s: %w", f, ErrInvalidParameter)
	}

	if f.BlockAlign != f.Channels*f.BitsPerSample/8 {
		return fmt.Errorf("block align %d does not match %d channels of %d bits: %w", f.BlockAlign, f.Channels, f.BitsPerSample, ErrInvalidParameter)
	}

	if f.AvgBytesPerSec != f.SampleRate*uint32(f.BlockAlign) {
		return fmt.Errorf("byte rate %d does not match %d Hz * %d: %w", f.AvgBytesPerSec, f.SampleRate, f.BlockAlign, ErrInvalidParameter)
	}

	return nil
}

// AudioFormat converts f to a go-audio format.
func (f *FormatDescriptor) AudioFormat() *audio.Format {
	return &audio.Format{
		NumChannels: int(f.Channels),
		SampleRate:  int(f.SampleRate),
	}
}

// put encodes f into b, which must hold at least Size bytes.
func (f *FormatDescriptor) put(b []byte) {
	size := f.Size()

	h := DataFormat{
		FormatSize:  size,
		SampleSize:  uint32(f.BlockAlign),
		MajorFormat: f.MajorFormat,
		SubFormat:   f.SubFormat,
		Specifier:   f.Specifier,
	}
	h.put(b)

	if f.IsBridge() {
		return
	}

	clear(b[SizeofDataFormat:size])

	wfx := WaveFormatEx{
		FormatTag:      f.FormatTag(),
		Channels:       f.Channels,
		SamplesPerSec:  f.SampleRate,
		AvgBytesPerSec: f.AvgBytesPerSec,
		BlockAlign:     f.BlockAlign,
		BitsPerSample:  f.BitsPerSample,
	}

	if !f.Extensible {
		wfx.put(b[SizeofDataFormat:])

		return
	}

	wfx.CbSize = SizeofWaveFormatExtensible - SizeofWaveFormatEx

	ext := WaveFormatExtensible{
		Format:             wfx,
		ValidBitsPerSample: f.ValidBitsPerSample,
		ChannelMask:        f.ChannelMask,
		SubFormat:          f.SubFormat,
	}
	ext.put(b[SizeofDataFormat:])
}

// MarshalBinary encodes f in its wire layout.
func (f *FormatDescriptor) MarshalBinary() ([]byte, error) {
	b := make([]byte, f.Size())
	f.put(b)

	return b, nil
}

// UnmarshalBinary decodes a KSDATAFORMAT record, followed by WAVEFORMATEX or WAVEFORMATEXTENSIBLE
// when the specifier says so.
func (f *FormatDescriptor) UnmarshalBinary(b []byte) error {
	if err := checkSize(b, SizeofDataFormat); err != nil {
		return err
	}

	var h DataFormat
	h.get(b)

	*f = FormatDescriptor{
		MajorFormat: h.MajorFormat,
		SubFormat:   h.SubFormat,
		Specifier:   h.Specifier,
	}

	if h.Specifier != KSDATAFORMAT_SPECIFIER_WAVEFORMATEX {
		return nil
	}

	if err := checkSize(b, SizeofDataFormat+SizeofWaveFormatEx); err != nil {
		return err
	}

	var wfx WaveFormatEx
	wfx.get(b[SizeofDataFormat:])

	f.Channels = wfx.Channels
	f.BitsPerSample = wfx.BitsPerSample
	f.SampleRate = wfx.SamplesPerSec
	f.BlockAlign = wfx.BlockAlign
	f.AvgBytesPerSec = wfx.AvgBytesPerSec

	if wfx.FormatTag != WAVE_FORMAT_EXTENSIBLE {
		return nil
	}

	if err := checkSize(b, SizeofDataFormatWaveFormatExtensible); err != nil {
		return err
	}

	var ext WaveFormatExtensible
	ext.get(b[SizeofDataFormat:])

	f.Extensible = true
	f.ValidBitsPerSample = ext.ValidBitsPerSample
	f.ChannelMask = ext.ChannelMask
	f.SubFormat = ext.SubFormat

	return nil
}

// String returns a human-readable representation of the format.
func (f *FormatDescriptor) String() string {
	if f == nil {
		return "<nil>"
	}

	if f.IsBridge() {
		return fmt.Sprintf("%s/%s", guidName(f.MajorFormat), guidName(f.SubFormat))
	}

	s := fmt.Sprintf("%s %dch %dHz %dbit align=%d rate=%d", guidName(f.SubFormat), f.Channels, f.SampleRate, f.BitsPerSample, f.BlockAlign, f.AvgBytesPerSec)
	if f.Extensible {
		s += fmt.Sprintf(" valid=%d mask=%#x", f.ValidBitsPerSample, f.ChannelMask)
	}

	return s
}

// FormatRange is a data range: a set of formats a pin accepts.
// Bridge ranges carry only the kind GUIDs, audio ranges carry the KSDATARANGE_AUDIO limits.
type FormatRange struct {
	MajorFormat GUID
	SubFormat   GUID
	Specifier   GUID

	MaximumChannels        uint32
	MinimumBitsPerSample   uint32
	MaximumBitsPerSample   uint32
	MinimumSampleFrequency uint32
	MaximumSampleFrequency uint32
}

// NewAudioRange returns an audio range of the given sub kind.
func NewAudioRange(subFormat GUID, maxChannels, minBits, maxBits, minRate, maxRate uint32) FormatRange {
	return FormatRange{
		MajorFormat:            KSDATAFORMAT_TYPE_AUDIO,
		SubFormat:              subFormat,
		Specifier:              KSDATAFORMAT_SPECIFIER_WAVEFORMATEX,
		MaximumChannels:        maxChannels,
		MinimumBitsPerSample:   minBits,
		MaximumBitsPerSample:   maxBits,
		MinimumSampleFrequency: minRate,
		MaximumSampleFrequency: maxRate,
	}
}

// NewBridgeRange returns the analog range of bridge pins.
func NewBridgeRange() FormatRange {
	return FormatRange{
		MajorFormat: KSDATAFORMAT_TYPE_AUDIO,
		SubFormat:   KSDATAFORMAT_SUBTYPE_ANALOG,
		Specifier:   KSDATAFORMAT_SPECIFIER_NONE,
	}
}

// RangeFromFormat returns the range holding exactly f.
func RangeFromFormat(f FormatDescriptor) FormatRange {
	if f.IsBridge() {
		return FormatRange{
			MajorFormat: f.MajorFormat,
			SubFormat:   f.SubFormat,
			Specifier:   f.Specifier,
		}
	}

	return FormatRange{
		MajorFormat:            f.MajorFormat,
		SubFormat:              f.SubFormat,
		Specifier:              f.Specifier,
		MaximumChannels:        uint32(f.Channels),
		MinimumBitsPerSample:   uint32(f.BitsPerSample),
		MaximumBitsPerSample:   uint32(f.BitsPerSample),
		MinimumSampleFrequency: f.SampleRate,
		MaximumSampleFrequency: f.SampleRate,
	}
}

// IsAudio reports whether r is a wave range with audio limits.
func (r *FormatRange) IsAudio() bool {
	return r.Specifier == KSDATAFORMAT_SPECIFIER_WAVEFORMATEX
}

// Contains reports whether f lies within r.
func (r *FormatRange) Contains(f *FormatDescriptor) bool {
	if r.MajorFormat != f.MajorFormat || r.SubFormat != f.SubFormat || r.Specifier != f.Specifier {
		return false
	}

	if !r.IsAudio() {
		return true
	}

	return uint32(f.Channels) <= r.MaximumChannels &&
		uint32(f.BitsPerSample) >= r.MinimumBitsPerSample && uint32(f.BitsPerSample) <= r.MaximumBitsPerSample &&
		f.SampleRate >= r.MinimumSampleFrequency && f.SampleRate <= r.MaximumSampleFrequency
}

// validate checks that the limits of an audio range are ordered.
func (r *FormatRange) validate() error {
	if !r.IsAudio() {
		return nil
	}

	if r.MaximumChannels == 0 {
		return fmt.Errorf("range allows no channels: %w", ErrInvalidParameter)
	}

	if r.MinimumBitsPerSample > r.MaximumBitsPerSample {
		return fmt.Errorf("range bits %d > %d: %w", r.MinimumBitsPerSample, r.MaximumBitsPerSample, ErrInvalidParameter)
	}

	if r.MinimumSampleFrequency > r.MaximumSampleFrequency {
		return fmt.Errorf("range rate %d > %d: %w", r.MinimumSampleFrequency, r.MaximumSampleFrequency, ErrInvalidParameter)
	}

	return nil
}

// String returns a human-readable representation of the range.
func (r *FormatRange) String() string {
	if r == nil {
		return "<nil>"
	}

	var b strings.Builder
	b.WriteString(guidName(r.MajorFormat))
	b.WriteString("/")
	b.WriteString(guidName(r.SubFormat))

	if r.IsAudio() {
		b.WriteString(fmt.Sprintf(" channels<=%d bits=%d-%d rate=%d-%dHz", r.MaximumChannels,
			r.MinimumBitsPerSample, r.MaximumBitsPerSample, r.MinimumSampleFrequency, r.MaximumSampleFrequency))
	}

	return b.String()
}
