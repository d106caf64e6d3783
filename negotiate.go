package ksaudio

import (
	"fmt"
)

// intersect negotiates the format of a pin against the caller's range.
// Wave pins collapse every acceptable range to 2 channels at 48 kHz, 16-bit for PCM and 32-bit for float.
// Bridge pins accept only the analog kind with no specifier.
func intersect(pin *PinDescriptor, r *FormatRange) (FormatDescriptor, error) {
	if r == nil {
		return FormatDescriptor{}, fmt.Errorf("nil data range: %w", ErrInvalidParameter)
	}

	if err := r.validate(); err != nil {
		return FormatDescriptor{}, err
	}

	if pin.IsBridge() {
		return intersectBridge(pin, r)
	}

	return intersectWave(pin, r)
}

func intersectWave(pin *PinDescriptor, r *FormatRange) (FormatDescriptor, error) {
	if r.MajorFormat != KSDATAFORMAT_TYPE_AUDIO {
		return FormatDescriptor{}, fmt.Errorf("major format %s: %w", r.MajorFormat, ErrNoMatch)
	}

	if r.Specifier != KSDATAFORMAT_SPECIFIER_WAVEFORMATEX {
		return FormatDescriptor{}, fmt.Errorf("specifier %s: %w", r.Specifier, ErrNoMatch)
	}

	var bits uint16

	switch r.SubFormat {
	case KSDATAFORMAT_SUBTYPE_PCM:
		bits = canonicalPCMBits
	case KSDATAFORMAT_SUBTYPE_IEEE_FLOAT:
		bits = canonicalFloatBits
	default:
		return FormatDescriptor{}, fmt.Errorf("sub format %s: %w", r.SubFormat, ErrNoMatch)
	}

	if !pin.acceptsSubFormat(r.SubFormat) {
		return FormatDescriptor{}, fmt.Errorf("pin has no %s range: %w", guidName(r.SubFormat), ErrNoMatch)
	}

	return NewWaveFormat(r.SubFormat, canonicalChannels, bits, canonicalSampleRate), nil
}

func intersectBridge(pin *PinDescriptor, r *FormatRange) (FormatDescriptor, error) {
	if r.MajorFormat != KSDATAFORMAT_TYPE_AUDIO || r.SubFormat != KSDATAFORMAT_SUBTYPE_ANALOG || r.Specifier != KSDATAFORMAT_SPECIFIER_NONE {
		return FormatDescriptor{}, fmt.Errorf("bridge pin accepts analog only, got %s: %w", r, ErrNoMatch)
	}

	if !pin.acceptsSubFormat(r.SubFormat) {
		return FormatDescriptor{}, fmt.Errorf("pin has no analog range: %w", ErrNoMatch)
	}

	return NewBridgeFormat(), nil
}

// intersectInto negotiates and encodes the result into out.
// An empty out is the probe: the required size is returned with ErrBufferTooSmall.
func intersectInto(pin *PinDescriptor, r *FormatRange, out []byte) (uint32, error) {
	f, err := intersect(pin, r)
	if err != nil {
		return 0, err
	}

	size := f.Size()

	switch {
	case len(out) == 0:
		return size, ErrBufferTooSmall
	case uint32(len(out)) < size:
		return size, fmt.Errorf("need %d bytes, got %d: %w", size, len(out), ErrInvalidBufferSize)
	}

	f.put(out)

	return size, nil
}
