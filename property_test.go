package ksaudio_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/ksaudio"
)

func TestAutomationTableDispatch(t *testing.T) {
	var calls int
	handler := handlerFunc(func(req *ksaudio.PropertyRequest) error {
		calls++
		require.NotNil(t, req.Item, "item should be attached before the handler runs")

		return nil
	})

	table := ksaudio.AutomationTable{
		{Set: ksaudio.KSPROPSETID_General, ID: 0, Flags: ksaudio.KSPROPERTY_TYPE_GET | ksaudio.KSPROPERTY_TYPE_BASICSUPPORT, Handler: handler},
	}

	t.Run("Routed", func(t *testing.T) {
		req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_General, 0, ksaudio.KSPROPERTY_TYPE_GET, 4)
		require.NoError(t, table.Handle(req))
		assert.Equal(t, 1, calls)
		assert.Equal(t, ksaudio.KSPROPSETID_General, req.Item.Set)
	})

	t.Run("UnknownID", func(t *testing.T) {
		req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_General, 7, ksaudio.KSPROPERTY_TYPE_GET, 4)
		assert.ErrorIs(t, table.Handle(req), ksaudio.ErrNotImplemented)
	})

	t.Run("UnknownSet", func(t *testing.T) {
		req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_Audio, 0, ksaudio.KSPROPERTY_TYPE_GET, 4)
		assert.ErrorIs(t, table.Handle(req), ksaudio.ErrNotImplemented)
	})

	t.Run("VerbNotDeclared", func(t *testing.T) {
		req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_General, 0, ksaudio.KSPROPERTY_TYPE_SET, 4)
		assert.ErrorIs(t, table.Handle(req), ksaudio.ErrNotImplemented)
	})

	t.Run("NilRequest", func(t *testing.T) {
		assert.ErrorIs(t, table.Handle(nil), ksaudio.ErrInvalidParameter)
	})

	t.Run("EmptyVerb", func(t *testing.T) {
		req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_General, 0, 0, 4)
		assert.ErrorIs(t, table.Handle(req), ksaudio.ErrInvalidParameter)
	})

	t.Run("ShortValueBuffer", func(t *testing.T) {
		req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_General, 0, ksaudio.KSPROPERTY_TYPE_GET, 4)
		req.ValueSize = 64
		assert.ErrorIs(t, table.Handle(req), ksaudio.ErrInvalidParameter)
	})

	assert.Equal(t, 1, calls, "rejected requests must not reach the handler")
}

func TestHandlersRequireItem(t *testing.T) {
	handlers := map[string]ksaudio.PropertyHandler{
		"ComponentID":      ksaudio.ComponentIDHandler{ID: ksaudio.DefaultComponentID},
		"Jack":             ksaudio.JackHandler{Description: ksaudio.DefaultJackDescription},
		"Volume":           ksaudio.VolumeHandler{},
		"Mute":             ksaudio.MuteHandler{},
		"ProposedFormat":   ksaudio.ProposedFormatHandler{Format: ksaudio.DefaultProposedFormat},
		"EffectsDiscovery": ksaudio.EffectsDiscoveryHandler{},
		"AudioModule":      ksaudio.AudioModuleHandler{},
		"PinCategory":      ksaudio.PinCategoryHandler{},
		"PinName":          ksaudio.PinNameHandler{},
	}

	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, h.HandleProperty(nil), ksaudio.ErrInvalidParameter)

			req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_General, 0, ksaudio.KSPROPERTY_TYPE_GET, 128)
			assert.ErrorIs(t, h.HandleProperty(req), ksaudio.ErrInvalidParameter, "request without item")
			assert.Equal(t, uint32(128), req.ValueSize, "size must be untouched")
		})
	}
}

func TestPinIndex(t *testing.T) {
	req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_Pin, ksaudio.KSPROPERTY_PIN_CATEGORY, ksaudio.KSPROPERTY_TYPE_GET, 16)
	assert.Equal(t, ksaudio.KSFILTER_NODE, req.PinIndex())

	req.SetPinIndex(1)
	assert.Equal(t, uint32(1), req.PinIndex())
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(req.Instance))
}

func TestBasicSupportDescription(t *testing.T) {
	td := newTestDevice(t, nil)

	req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_General, ksaudio.KSPROPERTY_GENERAL_COMPONENTID, ksaudio.KSPROPERTY_TYPE_BASICSUPPORT, ksaudio.SizeofPropertyDescription)
	require.NoError(t, td.eps.WaveRender.Property(req))
	require.Equal(t, uint32(ksaudio.SizeofPropertyDescription), req.ValueSize)

	var d ksaudio.PropertyDescription
	require.NoError(t, d.UnmarshalBinary(req.Value))

	assert.Equal(t, ksaudio.KSPROPERTY_TYPE_GET|ksaudio.KSPROPERTY_TYPE_BASICSUPPORT, d.AccessFlags)
	assert.Equal(t, uint32(ksaudio.SizeofPropertyDescription), d.DescriptionSize)
	assert.Equal(t, ksaudio.KSPROPTYPESETID_General, d.PropTypeSet.Set)
	assert.Equal(t, ksaudio.VT_I4, d.PropTypeSet.ID)
	assert.Zero(t, d.MembersListCount)
}

func TestBasicSupportDegradesToFlags(t *testing.T) {
	td := newTestDevice(t, nil)

	for _, size := range []uint32{4, 8, 39} {
		req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_General, ksaudio.KSPROPERTY_GENERAL_COMPONENTID, ksaudio.KSPROPERTY_TYPE_BASICSUPPORT, size)
		require.NoError(t, td.eps.WaveRender.Property(req), "size %d", size)
		assert.Equal(t, uint32(4), req.ValueSize)
		assert.Equal(t, uint32(ksaudio.KSPROPERTY_TYPE_GET|ksaudio.KSPROPERTY_TYPE_BASICSUPPORT), binary.LittleEndian.Uint32(req.Value))
	}

	req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_General, ksaudio.KSPROPERTY_GENERAL_COMPONENTID, ksaudio.KSPROPERTY_TYPE_BASICSUPPORT, 2)
	err := td.eps.WaveRender.Property(req)
	assert.ErrorIs(t, err, ksaudio.ErrInvalidBufferSize)
	assert.NotErrorIs(t, err, ksaudio.ErrBufferTooSmall)
}

func TestNilValueBuffer(t *testing.T) {
	td := newTestDevice(t, nil)

	// A caller may pass a size without a buffer, the size is still answered.
	req := &ksaudio.PropertyRequest{
		Set:       ksaudio.KSPROPSETID_General,
		ID:        ksaudio.KSPROPERTY_GENERAL_COMPONENTID,
		Verb:      ksaudio.KSPROPERTY_TYPE_GET,
		ValueSize: ksaudio.SizeofComponentID,
	}

	require.NoError(t, td.eps.WaveRender.Property(req))
	assert.Equal(t, uint32(ksaudio.SizeofComponentID), req.ValueSize)
}

type handlerFunc func(req *ksaudio.PropertyRequest) error

func (f handlerFunc) HandleProperty(req *ksaudio.PropertyRequest) error { return f(req) }
