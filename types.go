package ksaudio

import (
	"encoding/binary"
	"fmt"
)

// Wire sizes of the fixed-layout records, in bytes.
const (
	SizeofULONG                          = 4
	SizeofIdentifier                     = 24
	SizeofPropertyDescription            = 40
	SizeofMembersHeader                  = 16
	SizeofSteppingLong                   = 16
	SizeofVolumeBasicSupport             = SizeofPropertyDescription + SizeofMembersHeader + SizeofSteppingLong
	SizeofComponentID                    = 72
	SizeofJackDescription                = 28
	SizeofJackDescription2               = 8
	SizeofDataFormat                     = 64
	SizeofWaveFormatEx                   = 18
	SizeofWaveFormatExtensible           = 40
	SizeofDataFormatWaveFormatEx         = 88 // 64 + 18, padded to 8
	SizeofDataFormatWaveFormatExtensible = SizeofDataFormat + SizeofWaveFormatExtensible
)

var le = binary.LittleEndian

// Identifier mirrors KSIDENTIFIER.
type Identifier struct {
	Set   GUID
	ID    uint32
	Flags uint32
}

func (r *Identifier) put(b []byte) {
	r.Set.put(b[0:])
	le.PutUint32(b[16:], r.ID)
	le.PutUint32(b[20:], r.Flags)
}

func (r *Identifier) get(b []byte) {
	r.Set = getGUID(b[0:])
	r.ID = le.Uint32(b[16:])
	r.Flags = le.Uint32(b[20:])
}

// PropertyDescription mirrors KSPROPERTY_DESCRIPTION, the header of a basic-support answer.
type PropertyDescription struct {
	AccessFlags      Verb
	DescriptionSize  uint32
	PropTypeSet      Identifier
	MembersListCount uint32
	Reserved         uint32
}

func (r *PropertyDescription) put(b []byte) {
	le.PutUint32(b[0:], uint32(r.AccessFlags))
	le.PutUint32(b[4:], r.DescriptionSize)
	r.PropTypeSet.put(b[8:])
	le.PutUint32(b[32:], r.MembersListCount)
	le.PutUint32(b[36:], r.Reserved)
}

// MarshalBinary encodes the record in its wire layout.
func (r *PropertyDescription) MarshalBinary() ([]byte, error) {
	b := make([]byte, SizeofPropertyDescription)
	r.put(b)

	return b, nil
}

// UnmarshalBinary decodes the record from its wire layout.
func (r *PropertyDescription) UnmarshalBinary(b []byte) error {
	if err := checkSize(b, SizeofPropertyDescription); err != nil {
		return err
	}

	r.AccessFlags = Verb(le.Uint32(b[0:]))
	r.DescriptionSize = le.Uint32(b[4:])
	r.PropTypeSet.get(b[8:])
	r.MembersListCount = le.Uint32(b[32:])
	r.Reserved = le.Uint32(b[36:])

	return nil
}

// MembersHeader mirrors KSPROPERTY_MEMBERSHEADER.
type MembersHeader struct {
	MembersFlags uint32
	MembersSize  uint32
	MembersCount uint32
	Flags        uint32
}

func (r *MembersHeader) put(b []byte) {
	le.PutUint32(b[0:], r.MembersFlags)
	le.PutUint32(b[4:], r.MembersSize)
	le.PutUint32(b[8:], r.MembersCount)
	le.PutUint32(b[12:], r.Flags)
}

// SteppingLong mirrors KSPROPERTY_STEPPING_LONG.
type SteppingLong struct {
	SteppingDelta uint32
	Reserved      uint32
	SignedMinimum int32
	SignedMaximum int32
}

func (r *SteppingLong) put(b []byte) {
	le.PutUint32(b[0:], r.SteppingDelta)
	le.PutUint32(b[4:], r.Reserved)
	le.PutUint32(b[8:], uint32(r.SignedMinimum))
	le.PutUint32(b[12:], uint32(r.SignedMaximum))
}

// VolumeBasicSupport is the full capability answer of the volume attribute:
// a description, one members header and one stepping range.
type VolumeBasicSupport struct {
	Description PropertyDescription
	Members     MembersHeader
	Range       SteppingLong
}

func (r *VolumeBasicSupport) put(b []byte) {
	r.Description.put(b[0:])
	r.Members.put(b[SizeofPropertyDescription:])
	r.Range.put(b[SizeofPropertyDescription+SizeofMembersHeader:])
}

// UnmarshalBinary decodes the record from its wire layout.
func (r *VolumeBasicSupport) UnmarshalBinary(b []byte) error {
	if err := checkSize(b, SizeofVolumeBasicSupport); err != nil {
		return err
	}

	if err := r.Description.UnmarshalBinary(b); err != nil {
		return err
	}

	m := b[SizeofPropertyDescription:]
	r.Members = MembersHeader{
		MembersFlags: le.Uint32(m[0:]),
		MembersSize:  le.Uint32(m[4:]),
		MembersCount: le.Uint32(m[8:]),
		Flags:        le.Uint32(m[12:]),
	}

	s := m[SizeofMembersHeader:]
	r.Range = SteppingLong{
		SteppingDelta: le.Uint32(s[0:]),
		Reserved:      le.Uint32(s[4:]),
		SignedMinimum: int32(le.Uint32(s[8:])),
		SignedMaximum: int32(le.Uint32(s[12:])),
	}

	return nil
}

// ComponentID mirrors KSCOMPONENTID.
type ComponentID struct {
	Manufacturer GUID
	Product      GUID
	Component    GUID
	Name         GUID
	Version      uint32
	Revision     uint32
}

func (r *ComponentID) put(b []byte) {
	r.Manufacturer.put(b[0:])
	r.Product.put(b[16:])
	r.Component.put(b[32:])
	r.Name.put(b[48:])
	le.PutUint32(b[64:], r.Version)
	le.PutUint32(b[68:], r.Revision)
}

// UnmarshalBinary decodes the record from its wire layout.
func (r *ComponentID) UnmarshalBinary(b []byte) error {
	if err := checkSize(b, SizeofComponentID); err != nil {
		return err
	}

	r.Manufacturer = getGUID(b[0:])
	r.Product = getGUID(b[16:])
	r.Component = getGUID(b[32:])
	r.Name = getGUID(b[48:])
	r.Version = le.Uint32(b[64:])
	r.Revision = le.Uint32(b[68:])

	return nil
}

// JackDescription mirrors KSJACK_DESCRIPTION.
type JackDescription struct {
	ChannelMapping uint32
	Color          uint32
	ConnectionType uint32
	GeoLocation    uint32
	GenLocation    uint32
	PortConnection uint32
	IsConnected    bool
}

func (r *JackDescription) put(b []byte) {
	le.PutUint32(b[0:], r.ChannelMapping)
	le.PutUint32(b[4:], r.Color)
	le.PutUint32(b[8:], r.ConnectionType)
	le.PutUint32(b[12:], r.GeoLocation)
	le.PutUint32(b[16:], r.GenLocation)
	le.PutUint32(b[20:], r.PortConnection)
	le.PutUint32(b[24:], boolToUint32(r.IsConnected))
}

// UnmarshalBinary decodes the record from its wire layout.
func (r *JackDescription) UnmarshalBinary(b []byte) error {
	if err := checkSize(b, SizeofJackDescription); err != nil {
		return err
	}

	r.ChannelMapping = le.Uint32(b[0:])
	r.Color = le.Uint32(b[4:])
	r.ConnectionType = le.Uint32(b[8:])
	r.GeoLocation = le.Uint32(b[12:])
	r.GenLocation = le.Uint32(b[16:])
	r.PortConnection = le.Uint32(b[20:])
	r.IsConnected = le.Uint32(b[24:]) != 0

	return nil
}

// JackDescription2 mirrors KSJACK_DESCRIPTION2.
type JackDescription2 struct {
	DeviceStateInfo  uint32
	JackCapabilities uint32
}

func (r *JackDescription2) put(b []byte) {
	le.PutUint32(b[0:], r.DeviceStateInfo)
	le.PutUint32(b[4:], r.JackCapabilities)
}

// UnmarshalBinary decodes the record from its wire layout.
func (r *JackDescription2) UnmarshalBinary(b []byte) error {
	if err := checkSize(b, SizeofJackDescription2); err != nil {
		return err
	}

	r.DeviceStateInfo = le.Uint32(b[0:])
	r.JackCapabilities = le.Uint32(b[4:])

	return nil
}

// DataFormat mirrors KSDATAFORMAT. The same layout is used for KSDATARANGE headers.
type DataFormat struct {
	FormatSize  uint32
	Flags       uint32
	SampleSize  uint32
	Reserved    uint32
	MajorFormat GUID
	SubFormat   GUID
	Specifier   GUID
}

func (r *DataFormat) put(b []byte) {
	le.PutUint32(b[0:], r.FormatSize)
	le.PutUint32(b[4:], r.Flags)
	le.PutUint32(b[8:], r.SampleSize)
	le.PutUint32(b[12:], r.Reserved)
	r.MajorFormat.put(b[16:])
	r.SubFormat.put(b[32:])
	r.Specifier.put(b[48:])
}

func (r *DataFormat) get(b []byte) {
	r.FormatSize = le.Uint32(b[0:])
	r.Flags = le.Uint32(b[4:])
	r.SampleSize = le.Uint32(b[8:])
	r.Reserved = le.Uint32(b[12:])
	r.MajorFormat = getGUID(b[16:])
	r.SubFormat = getGUID(b[32:])
	r.Specifier = getGUID(b[48:])
}

// WaveFormatEx mirrors the packed WAVEFORMATEX.
type WaveFormatEx struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	CbSize         uint16
}

func (r *WaveFormatEx) put(b []byte) {
	le.PutUint16(b[0:], r.FormatTag)
	le.PutUint16(b[2:], r.Channels)
	le.PutUint32(b[4:], r.SamplesPerSec)
	le.PutUint32(b[8:], r.AvgBytesPerSec)
	le.PutUint16(b[12:], r.BlockAlign)
	le.PutUint16(b[14:], r.BitsPerSample)
	le.PutUint16(b[16:], r.CbSize)
}

func (r *WaveFormatEx) get(b []byte) {
	r.FormatTag = le.Uint16(b[0:])
	r.Channels = le.Uint16(b[2:])
	r.SamplesPerSec = le.Uint32(b[4:])
	r.AvgBytesPerSec = le.Uint32(b[8:])
	r.BlockAlign = le.Uint16(b[12:])
	r.BitsPerSample = le.Uint16(b[14:])
	r.CbSize = le.Uint16(b[16:])
}

// WaveFormatExtensible mirrors WAVEFORMATEXTENSIBLE.
type WaveFormatExtensible struct {
	Format             WaveFormatEx
	ValidBitsPerSample uint16
	ChannelMask        uint32
	SubFormat          GUID
}

func (r *WaveFormatExtensible) put(b []byte) {
	r.Format.put(b[0:])
	le.PutUint16(b[18:], r.ValidBitsPerSample)
	le.PutUint32(b[20:], r.ChannelMask)
	r.SubFormat.put(b[24:])
}

func (r *WaveFormatExtensible) get(b []byte) {
	r.Format.get(b[0:])
	r.ValidBitsPerSample = le.Uint16(b[18:])
	r.ChannelMask = le.Uint32(b[20:])
	r.SubFormat = getGUID(b[24:])
}

func checkSize(b []byte, size int) error {
	if len(b) < size {
		return fmt.Errorf("record needs %d bytes, got %d: %w", size, len(b), ErrInvalidBufferSize)
	}

	return nil
}

func boolToUint32(v bool) uint32 {
	if v {
		return 1
	}

	return 0
}
