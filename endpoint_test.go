package ksaudio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/ksaudio"
)

func TestCreateStreamBeforeInit(t *testing.T) {
	dev, err := ksaudio.NewDevice(&ksaudio.DeviceConfig{Allocator: &heapAllocator{}, Clock: &fakeClock{}})
	require.NoError(t, err)

	ep := ksaudio.NewWaveEndpoint(dev, false)

	_, err = ep.CreateStream(ksaudio.KSPIN_WAVE_SINK, false, pcmFormat())
	assert.ErrorIs(t, err, ksaudio.ErrDeviceNotReady)

	require.NoError(t, ep.Init())

	s, err := ep.CreateStream(ksaudio.KSPIN_WAVE_SINK, false, pcmFormat())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	orphan := ksaudio.NewWaveEndpoint(nil, false)
	assert.ErrorIs(t, orphan.Init(), ksaudio.ErrInvalidParameter)
}

func TestCreateStreamValidation(t *testing.T) {
	td := newTestDevice(t, nil)

	_, err := td.eps.WaveRender.CreateStream(ksaudio.KSPIN_WAVE_SINK, false, nil)
	assert.ErrorIs(t, err, ksaudio.ErrInvalidParameter, "nil format")

	_, err = td.eps.WaveRender.CreateStream(ksaudio.KSPIN_WAVE_BRIDGE, false, pcmFormat())
	assert.ErrorIs(t, err, ksaudio.ErrInvalidParameter, "bridge pin")

	_, err = td.eps.WaveRender.CreateStream(5, false, pcmFormat())
	assert.ErrorIs(t, err, ksaudio.ErrInvalidParameter, "missing pin")

	_, err = td.eps.WaveRender.CreateStream(ksaudio.KSPIN_WAVE_SINK, true, pcmFormat())
	assert.ErrorIs(t, err, ksaudio.ErrInvalidParameter, "direction mismatch")

	_, err = td.eps.TopologyRender.CreateStream(ksaudio.KSPIN_TOPO_BRIDGE, false, pcmFormat())
	assert.ErrorIs(t, err, ksaudio.ErrInvalidParameter, "topology has no streaming pin")

	bridge := ksaudio.NewBridgeFormat()
	_, err = td.eps.WaveRender.CreateStream(ksaudio.KSPIN_WAVE_SINK, false, &bridge)
	assert.ErrorIs(t, err, ksaudio.ErrInvalidParameter, "bridge format")

	var nilEndpoint *ksaudio.Endpoint
	_, err = nilEndpoint.CreateStream(ksaudio.KSPIN_WAVE_SINK, false, pcmFormat())
	assert.ErrorIs(t, err, ksaudio.ErrInvalidParameter)
}

func TestCreateStreamInstanceLimit(t *testing.T) {
	td := newTestDevice(t, nil)

	streams := make([]*ksaudio.Stream, 0, 4)
	for i := 0; i < 4; i++ {
		s, err := td.eps.WaveCapture.CreateStream(ksaudio.KSPIN_WAVE_SINK, true, pcmFormat())
		require.NoError(t, err)
		assert.True(t, s.IsCapture())
		streams = append(streams, s)
	}

	assert.Equal(t, 4, td.eps.WaveCapture.Streams())

	_, err := td.eps.WaveCapture.CreateStream(ksaudio.KSPIN_WAVE_SINK, true, pcmFormat())
	assert.ErrorIs(t, err, ksaudio.ErrInsufficientResources)

	require.NoError(t, streams[0].Close())
	require.NoError(t, streams[0].Close(), "close is idempotent")
	assert.Equal(t, 3, td.eps.WaveCapture.Streams())

	_, err = td.eps.WaveCapture.CreateStream(ksaudio.KSPIN_WAVE_SINK, true, pcmFormat())
	assert.NoError(t, err)
}

func TestEndpointClose(t *testing.T) {
	td := newTestDevice(t, nil)

	for i := 0; i < 3; i++ {
		s := newRenderStream(t, td)
		_, err := s.AcquireBuffer(4800)
		require.NoError(t, err)
	}

	require.NoError(t, td.eps.WaveRender.Close())
	assert.Zero(t, td.eps.WaveRender.Streams())

	allocs, frees := td.primary.counts()
	assert.Equal(t, 3, allocs)
	assert.Equal(t, 3, frees)
}

func TestEndpointsFlavors(t *testing.T) {
	td := newTestDevice(t, nil)

	tests := []struct {
		ep       *ksaudio.Endpoint
		name     string
		capture  bool
		category ksaudio.GUID
	}{
		{td.eps.WaveRender, "WaveRender", false, ksaudio.KSCATEGORY_RENDER},
		{td.eps.WaveCapture, "WaveCapture", true, ksaudio.KSCATEGORY_CAPTURE},
		{td.eps.TopologyRender, "TopologyRender", false, ksaudio.KSCATEGORY_TOPOLOGY},
		{td.eps.TopologyCapture, "TopologyCapture", true, ksaudio.KSCATEGORY_TOPOLOGY},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.ep.Name())
			assert.Equal(t, tt.capture, tt.ep.IsCapture())
			assert.True(t, tt.ep.Describe().HasCategory(tt.category))
		})
	}
}

func TestEndpointPropertyNil(t *testing.T) {
	td := newTestDevice(t, nil)

	assert.ErrorIs(t, td.eps.WaveRender.Property(nil), ksaudio.ErrInvalidParameter)
	assert.ErrorIs(t, td.eps.WaveRender.PinProperty(0, nil), ksaudio.ErrInvalidParameter)
	assert.ErrorIs(t, td.eps.TopologyRender.NodeProperty(0, nil), ksaudio.ErrInvalidParameter)

	var nilEndpoint *ksaudio.Endpoint
	req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_General, ksaudio.KSPROPERTY_GENERAL_COMPONENTID, ksaudio.KSPROPERTY_TYPE_GET, 72)
	assert.ErrorIs(t, nilEndpoint.Property(req), ksaudio.ErrInvalidParameter)
}

func TestCreateStreamAfterClose(t *testing.T) {
	td := newTestDevice(t, nil)
	ep := td.eps.WaveRender

	newRenderStream(t, td)
	require.NoError(t, ep.Close())

	_, err := ep.CreateStream(ksaudio.KSPIN_WAVE_SINK, false, pcmFormat())
	assert.ErrorIs(t, err, ksaudio.ErrDeviceNotReady)
	assert.Zero(t, ep.Streams())

	require.NoError(t, ep.Close())
}

func TestEndpointNilAccessors(t *testing.T) {
	var nilEndpoint *ksaudio.Endpoint

	assert.Nil(t, nilEndpoint.Describe())
	assert.Empty(t, nilEndpoint.Name())
	assert.False(t, nilEndpoint.IsCapture())
	assert.Zero(t, nilEndpoint.Streams())
	assert.ErrorIs(t, nilEndpoint.Close(), ksaudio.ErrInvalidParameter)
}
