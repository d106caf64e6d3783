// Package ksaudio implements the streaming core of a virtual audio device, modeled after the kernel streaming (KS) audio model.
// It answers property requests against a static capability graph, negotiates wire formats and runs per-stream buffer and position engines.
package ksaudio

// Verb is the bitmask of operations requested by a PropertyRequest.
// These values correspond to the KSPROPERTY_TYPE_* constants.
type Verb uint32

const (
	KSPROPERTY_TYPE_GET          Verb = 0x00000001
	KSPROPERTY_TYPE_SET          Verb = 0x00000002
	KSPROPERTY_TYPE_BASICSUPPORT Verb = 0x00000200
)

// Access masks reported by capability queries.
const (
	accessRead      = KSPROPERTY_TYPE_GET | KSPROPERTY_TYPE_BASICSUPPORT
	accessReadWrite = KSPROPERTY_TYPE_GET | KSPROPERTY_TYPE_SET | KSPROPERTY_TYPE_BASICSUPPORT
)

// Property identifiers within their property sets.
const (
	KSPROPERTY_GENERAL_COMPONENTID uint32 = 0

	KSPROPERTY_PIN_CATEGORY           uint32 = 11
	KSPROPERTY_PIN_NAME               uint32 = 12
	KSPROPERTY_PIN_PROPOSEDATAFORMAT  uint32 = 14
	KSPROPERTY_PIN_PROPOSEDATAFORMAT2 uint32 = 15

	KSPROPERTY_JACK_DESCRIPTION  uint32 = 1
	KSPROPERTY_JACK_DESCRIPTION2 uint32 = 2

	KSPROPERTY_AUDIO_VOLUMELEVEL uint32 = 4
	KSPROPERTY_AUDIO_MUTE        uint32 = 5

	KSPROPERTY_AUDIOEFFECTSDISCOVERY_EFFECTSLIST uint32 = 1

	KSPROPERTY_AUDIOMODULE_DESCRIPTORS            uint32 = 1
	KSPROPERTY_AUDIOMODULE_COMMAND                uint32 = 2
	KSPROPERTY_AUDIOMODULE_NOTIFICATION_DEVICE_ID uint32 = 3
)

// Variant types reported in the PropTypeSet of a property description.
const (
	VT_I4   uint32 = 3
	VT_BOOL uint32 = 11
)

// KSPROPERTY_MEMBER_STEPPEDRANGES marks a members list made of stepping ranges.
const KSPROPERTY_MEMBER_STEPPEDRANGES uint32 = 2

// StreamState is the state of a Stream.
// These values correspond to the KSSTATE_* constants.
type StreamState int32

const (
	KSSTATE_STOP    StreamState = 0 // No buffer activity, position is zero.
	KSSTATE_ACQUIRE StreamState = 1 // Buffer acquired, not started.
	KSSTATE_PAUSE   StreamState = 2 // Started but paused.
	KSSTATE_RUN     StreamState = 3 // Running, position advances.
)

// String returns the KS name of the state.
func (s StreamState) String() string {
	switch s {
	case KSSTATE_STOP:
		return "STOP"
	case KSSTATE_ACQUIRE:
		return "ACQUIRE"
	case KSSTATE_PAUSE:
		return "PAUSE"
	case KSSTATE_RUN:
		return "RUN"
	default:
		return "UNKNOWN"
	}
}

// DataFlow is the direction of data through a pin, seen from the filter.
type DataFlow uint32

const (
	KSPIN_DATAFLOW_IN  DataFlow = 1
	KSPIN_DATAFLOW_OUT DataFlow = 2
)

// Communication is the communication mode of a pin.
type Communication uint32

const (
	KSPIN_COMMUNICATION_NONE   Communication = 0
	KSPIN_COMMUNICATION_SINK   Communication = 1
	KSPIN_COMMUNICATION_SOURCE Communication = 2
	KSPIN_COMMUNICATION_BOTH   Communication = 3
	KSPIN_COMMUNICATION_BRIDGE Communication = 4
)

// Pin indices of the wave and topology filters.
const (
	KSPIN_WAVE_SINK   uint32 = 0
	KSPIN_WAVE_BRIDGE uint32 = 1

	KSPIN_TOPO_BRIDGE  uint32 = 0
	KSPIN_TOPO_LINEOUT uint32 = 1

	KSPIN_TOPO_MIC            uint32 = 0
	KSPIN_TOPO_CAPTURE_BRIDGE uint32 = 1
)

// Node indices of the render topology filter.
const (
	KSNODE_TOPO_VOLUME uint32 = 0
	KSNODE_TOPO_MUTE   uint32 = 1
)

// KSFILTER_NODE identifies the filter itself as the end point of a connection.
const KSFILTER_NODE = ^uint32(0)

// KSINTERFACE_STANDARD_STREAMING is the standard streaming interface id.
const KSINTERFACE_STANDARD_STREAMING uint32 = 0

// Wave format tags.
const (
	WAVE_FORMAT_PCM        uint16 = 0x0001
	WAVE_FORMAT_IEEE_FLOAT uint16 = 0x0003
	WAVE_FORMAT_EXTENSIBLE uint16 = 0xFFFE
)

// KSAUDIO_SPEAKER_STEREO is the front left | front right channel mask.
const KSAUDIO_SPEAKER_STEREO uint32 = 0x3

// Canonical negotiated point.
const (
	canonicalChannels   = 2
	canonicalSampleRate = 48000
	canonicalPCMBits    = 16
	canonicalFloatBits  = 32
)

// Volume stepping range in 1/65536 dB units.
const (
	VolumeMinimum int32  = -96 * 0x10000
	VolumeMaximum int32  = 0
	VolumeStep    uint32 = 0x10000
)
