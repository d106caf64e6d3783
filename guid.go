package ksaudio

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// GUID is a 128-bit identifier used for property sets, format kinds, categories and node types.
// It is stored in canonical (RFC 4122 text) byte order and encoded in the mixed-endian Windows layout on the wire.
type GUID uuid.UUID

// GUID_NULL is the all-zero GUID.
var GUID_NULL GUID

// MustGUID parses a GUID string and panics on error. It is used for the static tables.
func MustGUID(s string) GUID {
	return GUID(uuid.MustParse(s))
}

// ParseGUID parses a GUID in any form accepted by uuid.Parse.
func ParseGUID(s string) (GUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return GUID_NULL, fmt.Errorf("invalid GUID %q: %w", s, err)
	}

	return GUID(u), nil
}

// String returns the lower-case hyphenated form.
func (g GUID) String() string {
	return uuid.UUID(g).String()
}

// IsNull reports whether g is GUID_NULL.
func (g GUID) IsNull() bool {
	return g == GUID_NULL
}

// put writes g into b[0:16] in the Windows layout (Data1, Data2, Data3 little-endian, Data4 as is).
func (g GUID) put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], binary.BigEndian.Uint32(g[0:4]))
	binary.LittleEndian.PutUint16(b[4:], binary.BigEndian.Uint16(g[4:6]))
	binary.LittleEndian.PutUint16(b[6:], binary.BigEndian.Uint16(g[6:8]))
	copy(b[8:16], g[8:16])
}

// getGUID reads a GUID stored in the Windows layout from b[0:16].
func getGUID(b []byte) GUID {
	var g GUID
	binary.BigEndian.PutUint32(g[0:], binary.LittleEndian.Uint32(b[0:4]))
	binary.BigEndian.PutUint16(g[4:], binary.LittleEndian.Uint16(b[4:6]))
	binary.BigEndian.PutUint16(g[6:], binary.LittleEndian.Uint16(b[6:8]))
	copy(g[8:16], b[8:16])

	return g
}

// Property sets.
var (
	KSPROPSETID_General               = MustGUID("1464EDA5-6A8F-11D1-9AA7-00A0C9223196")
	KSPROPSETID_Pin                   = MustGUID("8C134960-51AD-11CF-878A-94F801C10000")
	KSPROPSETID_Jack                  = MustGUID("4509F757-2D46-4637-8E62-CE7DB944F57B")
	KSPROPSETID_Audio                 = MustGUID("45FFAAA0-6E1B-11D0-BCF2-444553540000")
	KSPROPSETID_AudioEffectsDiscovery = MustGUID("B49EEC73-C88F-40E1-8848-D3CE2C4B0051")
	KSPROPSETID_AudioModule           = MustGUID("C034FDB0-FF4C-4788-B3B6-BF3E15CDC3E9")

	KSPROPTYPESETID_General = MustGUID("97E99BA0-BDEA-11CF-A5D6-28DB04C10000")
)

// Data format kinds.
var (
	KSDATAFORMAT_TYPE_AUDIO              = MustGUID("73647561-0000-0010-8000-00AA00389B71")
	KSDATAFORMAT_TYPE_VIDEO              = MustGUID("73646976-0000-0010-8000-00AA00389B71")
	KSDATAFORMAT_SUBTYPE_PCM             = MustGUID("00000001-0000-0010-8000-00AA00389B71")
	KSDATAFORMAT_SUBTYPE_IEEE_FLOAT      = MustGUID("00000003-0000-0010-8000-00AA00389B71")
	KSDATAFORMAT_SUBTYPE_ANALOG          = MustGUID("6DBA3190-67BD-11CF-A0F7-0020AFD156E4")
	KSDATAFORMAT_SUBTYPE_NONE            = MustGUID("E436EB8E-524F-11CE-9F53-0020AF0BA770")
	KSDATAFORMAT_SPECIFIER_WAVEFORMATEX  = MustGUID("05589F81-C356-11CE-BF01-00AA0055595A")
	KSDATAFORMAT_SPECIFIER_NONE          = MustGUID("0F6417D6-C318-11D0-A43F-00A0C9223196")
	KSDATAFORMAT_SPECIFIER_DSOUND        = MustGUID("518590A2-A184-11D0-8522-00C04FD9BAF3")
	KSINTERFACESETID_Standard            = MustGUID("1A8766A0-62CE-11CF-A5D6-28DB04C10000")
)

// Filter categories and node types.
var (
	KSCATEGORY_AUDIO    = MustGUID("6994AD04-93EF-11D0-A3CC-00A0C9223196")
	KSCATEGORY_RENDER   = MustGUID("65E8773E-8F56-11D0-A3B9-00A0C9223196")
	KSCATEGORY_CAPTURE  = MustGUID("65E8773D-8F56-11D0-A3B9-00A0C9223196")
	KSCATEGORY_REALTIME = MustGUID("EB115FFC-10C8-4964-831D-6DCB02E6F23F")
	KSCATEGORY_TOPOLOGY = MustGUID("DDA54A40-1E4C-11D1-A050-405705C10000")

	KSNODETYPE_VOLUME     = MustGUID("3A5ACC00-C557-11D0-8A2B-00A0C9255AC1")
	KSNODETYPE_MUTE       = MustGUID("02B223C0-C557-11D0-8A2B-00A0C9255AC1")
	KSNODETYPE_SPEAKER    = MustGUID("DFF21CE1-F70F-11D0-B917-00A0C9223196")
	KSNODETYPE_MICROPHONE = MustGUID("DFF21BE1-F70F-11D0-B917-00A0C9223196")

	KSAUDFNAME_MASTER_VOLUME = MustGUID("185FEDE0-9905-11D1-95A9-00C04FB925D3")
	KSAUDFNAME_MASTER_MUTE   = MustGUID("185FEDE1-9905-11D1-95A9-00C04FB925D3")
)

// Identifiers reported by the component id property.
var (
	ComponentManufacturer = MustGUID("0000534C-4154-4547-5241-594445563131")
	ComponentProduct      = MustGUID("00004C45-594C-494E-4541-5544494F3131")
	ComponentComponent    = MustGUID("DEADBEEF-CAFE-FEED-4C45-594C494E4531")
)

// guidNames maps the well-known GUIDs to short names for String output.
var guidNames = map[GUID]string{
	KSDATAFORMAT_TYPE_AUDIO:             "AUDIO",
	KSDATAFORMAT_SUBTYPE_PCM:            "PCM",
	KSDATAFORMAT_SUBTYPE_IEEE_FLOAT:     "IEEE_FLOAT",
	KSDATAFORMAT_SUBTYPE_ANALOG:         "ANALOG",
	KSDATAFORMAT_SUBTYPE_NONE:           "NONE",
	KSDATAFORMAT_SPECIFIER_WAVEFORMATEX: "WAVEFORMATEX",
	KSDATAFORMAT_SPECIFIER_NONE:         "SPECIFIER_NONE",
	KSCATEGORY_AUDIO:                    "AUDIO",
	KSCATEGORY_RENDER:                   "RENDER",
	KSCATEGORY_CAPTURE:                  "CAPTURE",
	KSCATEGORY_REALTIME:                 "REALTIME",
	KSCATEGORY_TOPOLOGY:                 "TOPOLOGY",
	KSNODETYPE_VOLUME:                   "VOLUME",
	KSNODETYPE_MUTE:                     "MUTE",
	KSNODETYPE_SPEAKER:                  "SPEAKER",
	KSNODETYPE_MICROPHONE:               "MICROPHONE",
	KSPROPSETID_General:                 "General",
	KSPROPSETID_Pin:                     "Pin",
	KSPROPSETID_Jack:                    "Jack",
	KSPROPSETID_Audio:                   "Audio",
	KSPROPSETID_AudioEffectsDiscovery:   "AudioEffectsDiscovery",
	KSPROPSETID_AudioModule:             "AudioModule",
}

// Name returns the short name of a well-known GUID, or its string form.
func (g GUID) Name() string {
	return guidName(g)
}

// guidName returns the short name of a well-known GUID, or its string form.
func guidName(g GUID) string {
	if name, ok := guidNames[g]; ok {
		return name
	}

	return g.String()
}
