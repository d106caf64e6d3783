package ksaudio

import (
	"fmt"
)

// DefaultComponentID is the identity reported by the general component id property.
var DefaultComponentID = ComponentID{
	Manufacturer: ComponentManufacturer,
	Product:      ComponentProduct,
	Component:    ComponentComponent,
	Name:         GUID_NULL,
	Version:      1,
	Revision:     0,
}

// DefaultJackDescription is the jack reported by the jack description property: a connected stereo line jack.
var DefaultJackDescription = JackDescription{
	ChannelMapping: KSAUDIO_SPEAKER_STEREO,
	Color:          0,
	ConnectionType: 1, // eConnType3Point5mm
	GeoLocation:    1, // eGeoLocRear
	GenLocation:    0, // eGenLocPrimaryBox
	PortConnection: 0, // ePortConnJack
	IsConnected:    true,
}

// ComponentIDHandler answers KSPROPERTY_GENERAL_COMPONENTID.
type ComponentIDHandler struct {
	ID ComponentID
}

// HandleProperty implements PropertyHandler.
func (h ComponentIDHandler) HandleProperty(req *PropertyRequest) error {
	if err := checkRequest(req); err != nil {
		return err
	}

	if req.Item.ID != KSPROPERTY_GENERAL_COMPONENTID {
		return fmt.Errorf("component id: unknown id %d: %w", req.Item.ID, ErrNotImplemented)
	}

	if req.isBasicSupport() {
		return basicSupport(req, accessRead, VT_I4)
	}

	if req.isSet() {
		return fmt.Errorf("component id is read-only: %w", ErrNotImplemented)
	}

	if err := req.reserve(SizeofComponentID); err != nil {
		return err
	}

	if b := req.value(SizeofComponentID); b != nil {
		h.ID.put(b)
	}

	return nil
}

// JackHandler answers KSPROPERTY_JACK_DESCRIPTION and KSPROPERTY_JACK_DESCRIPTION2.
type JackHandler struct {
	Description  JackDescription
	Description2 JackDescription2
}

// HandleProperty implements PropertyHandler.
func (h JackHandler) HandleProperty(req *PropertyRequest) error {
	if err := checkRequest(req); err != nil {
		return err
	}

	var size uint32

	switch req.Item.ID {
	case KSPROPERTY_JACK_DESCRIPTION:
		size = SizeofJackDescription
	case KSPROPERTY_JACK_DESCRIPTION2:
		size = SizeofJackDescription2
	default:
		return fmt.Errorf("jack: unknown id %d: %w", req.Item.ID, ErrNotImplemented)
	}

	if req.isBasicSupport() {
		return basicSupport(req, accessRead, VT_I4)
	}

	if req.isSet() {
		return fmt.Errorf("jack description is read-only: %w", ErrNotImplemented)
	}

	if err := req.reserve(size); err != nil {
		return err
	}

	if b := req.value(size); b != nil {
		if size == SizeofJackDescription {
			h.Description.put(b)
		} else {
			h.Description2.put(b)
		}
	}

	return nil
}

// VolumeHandler answers KSPROPERTY_AUDIO_VOLUMELEVEL on a volume node.
// The level is a signed 16.16 fixed-point dB value, always reported as 0 dB.
type VolumeHandler struct{}

// HandleProperty implements PropertyHandler.
func (VolumeHandler) HandleProperty(req *PropertyRequest) error {
	if err := checkRequest(req); err != nil {
		return err
	}

	if req.Item.ID != KSPROPERTY_AUDIO_VOLUMELEVEL {
		return fmt.Errorf("volume: unknown id %d: %w", req.Item.ID, ErrNotImplemented)
	}

	if req.isBasicSupport() {
		return volumeBasicSupport(req)
	}

	if err := req.reserve(SizeofULONG); err != nil {
		return err
	}

	if req.isSet() {
		return nil
	}

	if b := req.value(SizeofULONG); b != nil {
		le.PutUint32(b, 0)
	}

	return nil
}

func volumeBasicSupport(req *PropertyRequest) error {
	const full = SizeofVolumeBasicSupport

	switch {
	case req.ValueSize == 0:
		req.ValueSize = full

		return ErrBufferTooSmall
	case req.ValueSize >= full:
		if b := req.value(full); b != nil {
			r := VolumeBasicSupport{
				Description: PropertyDescription{
					AccessFlags:     accessReadWrite,
					DescriptionSize: full,
					PropTypeSet: Identifier{
						Set: KSPROPTYPESETID_General,
						ID:  VT_I4,
					},
					MembersListCount: 1,
				},
				Members: MembersHeader{
					MembersFlags: KSPROPERTY_MEMBER_STEPPEDRANGES,
					MembersSize:  SizeofSteppingLong,
					MembersCount: 1,
				},
				Range: SteppingLong{
					SteppingDelta: VolumeStep,
					SignedMinimum: VolumeMinimum,
					SignedMaximum: VolumeMaximum,
				},
			}
			r.put(b)
		}

		req.ValueSize = full

		return nil
	case req.ValueSize >= SizeofULONG:
		accessOnly(req, accessReadWrite)

		return nil
	}

	return basicSupportTooSmall(req, full)
}

// MuteHandler answers KSPROPERTY_AUDIO_MUTE on a mute node. The value is a BOOL, always reported as unmuted.
type MuteHandler struct{}

// HandleProperty implements PropertyHandler.
func (MuteHandler) HandleProperty(req *PropertyRequest) error {
	if err := checkRequest(req); err != nil {
		return err
	}

	if req.Item.ID != KSPROPERTY_AUDIO_MUTE {
		return fmt.Errorf("mute: unknown id %d: %w", req.Item.ID, ErrNotImplemented)
	}

	if req.isBasicSupport() {
		return basicSupport(req, accessReadWrite, VT_BOOL)
	}

	if err := req.reserve(SizeofULONG); err != nil {
		return err
	}

	if req.isSet() {
		return nil
	}

	if b := req.value(SizeofULONG); b != nil {
		le.PutUint32(b, 0)
	}

	return nil
}

// ProposedFormatHandler answers KSPROPERTY_PIN_PROPOSEDATAFORMAT and KSPROPERTY_PIN_PROPOSEDATAFORMAT2.
// GET reports the preferred format, SET accepts any proposal.
type ProposedFormatHandler struct {
	Format FormatDescriptor
}

// HandleProperty implements PropertyHandler.
func (h ProposedFormatHandler) HandleProperty(req *PropertyRequest) error {
	if err := checkRequest(req); err != nil {
		return err
	}

	if req.Item.ID != KSPROPERTY_PIN_PROPOSEDATAFORMAT && req.Item.ID != KSPROPERTY_PIN_PROPOSEDATAFORMAT2 {
		return fmt.Errorf("proposed format: unknown id %d: %w", req.Item.ID, ErrNotImplemented)
	}

	if req.isBasicSupport() {
		return basicSupport(req, accessReadWrite, VT_I4)
	}

	if req.isSet() {
		return nil
	}

	size := h.Format.Size()
	if err := req.reserve(size); err != nil {
		return err
	}

	if b := req.value(size); b != nil {
		h.Format.put(b)
	}

	return nil
}

// EffectsDiscoveryHandler answers KSPROPERTY_AUDIOEFFECTSDISCOVERY_EFFECTSLIST.
// Only the capability query is supported, the device exposes no effects.
type EffectsDiscoveryHandler struct{}

// HandleProperty implements PropertyHandler.
func (EffectsDiscoveryHandler) HandleProperty(req *PropertyRequest) error {
	if err := checkRequest(req); err != nil {
		return err
	}

	if req.Item.ID != KSPROPERTY_AUDIOEFFECTSDISCOVERY_EFFECTSLIST {
		return fmt.Errorf("effects discovery: unknown id %d: %w", req.Item.ID, ErrNotImplemented)
	}

	if req.isBasicSupport() {
		return flagsSupport(req, accessRead)
	}

	return fmt.Errorf("effects list: %w", ErrNotImplemented)
}

// AudioModuleHandler answers the KSPROPSETID_AudioModule properties.
// Only the capability query is supported, the device exposes no modules.
type AudioModuleHandler struct{}

// HandleProperty implements PropertyHandler.
func (AudioModuleHandler) HandleProperty(req *PropertyRequest) error {
	if err := checkRequest(req); err != nil {
		return err
	}

	var access Verb

	switch req.Item.ID {
	case KSPROPERTY_AUDIOMODULE_DESCRIPTORS, KSPROPERTY_AUDIOMODULE_NOTIFICATION_DEVICE_ID:
		access = accessRead
	case KSPROPERTY_AUDIOMODULE_COMMAND:
		access = accessReadWrite
	default:
		return fmt.Errorf("audio module: unknown id %d: %w", req.Item.ID, ErrNotImplemented)
	}

	if req.isBasicSupport() {
		return flagsSupport(req, access)
	}

	return fmt.Errorf("audio module %d: %w", req.Item.ID, ErrNotImplemented)
}

// PinCategoryHandler answers KSPROPERTY_PIN_CATEGORY. The host falls back to the pin descriptor category.
type PinCategoryHandler struct{}

// HandleProperty implements PropertyHandler.
func (PinCategoryHandler) HandleProperty(req *PropertyRequest) error {
	if err := checkRequest(req); err != nil {
		return err
	}

	return fmt.Errorf("pin category: %w", ErrNotImplemented)
}

// PinNameHandler answers KSPROPERTY_PIN_NAME. The host falls back to the pin descriptor category.
type PinNameHandler struct{}

// HandleProperty implements PropertyHandler.
func (PinNameHandler) HandleProperty(req *PropertyRequest) error {
	if err := checkRequest(req); err != nil {
		return err
	}

	return fmt.Errorf("pin name: %w", ErrNotImplemented)
}
