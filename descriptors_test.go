package ksaudio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/ksaudio"
)

func TestDescriptorsValidate(t *testing.T) {
	td := newTestDevice(t, nil)

	for _, ep := range td.eps.All() {
		t.Run(ep.Name(), func(t *testing.T) {
			d := ep.Describe()
			require.NotNil(t, d)
			assert.NoError(t, d.Validate())
			assert.NotEmpty(t, d.String())
		})
	}

	var nilDesc *ksaudio.FilterDescriptor
	assert.ErrorIs(t, nilDesc.Validate(), ksaudio.ErrInvalidParameter)
	assert.Equal(t, "<nil>", nilDesc.String())
}

func TestDescriptorsValidateBrokenConnection(t *testing.T) {
	d := &ksaudio.FilterDescriptor{
		Name: "Broken",
		Pins: []ksaudio.PinDescriptor{{
			MaxFilterInstances: 1,
			DataRanges:         []ksaudio.FormatRange{ksaudio.NewBridgeRange()},
		}},
		Connections: []ksaudio.Connection{
			{FromNode: ksaudio.KSFILTER_NODE, FromPin: 0, ToNode: 3, ToPin: 1},
		},
	}
	assert.ErrorIs(t, d.Validate(), ksaudio.ErrInvalidParameter)

	d.Connections = []ksaudio.Connection{
		{FromNode: ksaudio.KSFILTER_NODE, FromPin: 0, ToNode: ksaudio.KSFILTER_NODE, ToPin: 4},
	}
	assert.ErrorIs(t, d.Validate(), ksaudio.ErrInvalidParameter)

	d.Connections = nil
	assert.NoError(t, d.Validate())
}

func TestWaveDescriptors(t *testing.T) {
	td := newTestDevice(t, nil)

	render := td.eps.WaveRender.Describe()
	assert.True(t, render.HasCategory(ksaudio.KSCATEGORY_AUDIO))
	assert.True(t, render.HasCategory(ksaudio.KSCATEGORY_RENDER))
	assert.True(t, render.HasCategory(ksaudio.KSCATEGORY_REALTIME))
	assert.False(t, render.HasCategory(ksaudio.KSCATEGORY_CAPTURE))

	sink, err := render.Pin(ksaudio.KSPIN_WAVE_SINK)
	require.NoError(t, err)
	assert.True(t, sink.IsStreaming())
	assert.False(t, sink.IsBridge())
	assert.Equal(t, uint32(4), sink.MaxFilterInstances)
	assert.Equal(t, ksaudio.KSPIN_DATAFLOW_IN, sink.DataFlow)
	assert.Equal(t, ksaudio.KSPIN_COMMUNICATION_SINK, sink.Communication)
	require.Len(t, sink.DataRanges, 2)
	assert.Equal(t, uint32(2), sink.DataRanges[0].MaximumChannels)
	assert.Equal(t, uint32(8000), sink.DataRanges[0].MinimumSampleFrequency)
	assert.Equal(t, uint32(192000), sink.DataRanges[0].MaximumSampleFrequency)

	bridge, err := render.Pin(ksaudio.KSPIN_WAVE_BRIDGE)
	require.NoError(t, err)
	assert.True(t, bridge.IsBridge())
	assert.False(t, bridge.IsStreaming())
	assert.Equal(t, ksaudio.KSPIN_DATAFLOW_OUT, bridge.DataFlow)

	require.Len(t, render.Connections, 1)
	assert.Equal(t, ksaudio.KSPIN_WAVE_SINK, render.Connections[0].FromPin)
	assert.Equal(t, ksaudio.KSPIN_WAVE_BRIDGE, render.Connections[0].ToPin)

	capture := td.eps.WaveCapture.Describe()
	assert.True(t, capture.HasCategory(ksaudio.KSCATEGORY_CAPTURE))

	csink, err := capture.Pin(ksaudio.KSPIN_WAVE_SINK)
	require.NoError(t, err)
	assert.Equal(t, ksaudio.KSPIN_DATAFLOW_OUT, csink.DataFlow)

	require.Len(t, capture.Connections, 1)
	assert.Equal(t, ksaudio.KSPIN_WAVE_BRIDGE, capture.Connections[0].FromPin)
	assert.Equal(t, ksaudio.KSPIN_WAVE_SINK, capture.Connections[0].ToPin)

	_, err = render.Pin(2)
	assert.ErrorIs(t, err, ksaudio.ErrInvalidParameter)
}

func TestTopologyDescriptors(t *testing.T) {
	td := newTestDevice(t, nil)

	render := td.eps.TopologyRender.Describe()
	assert.True(t, render.HasCategory(ksaudio.KSCATEGORY_TOPOLOGY))
	require.Len(t, render.Nodes, 2)
	assert.Equal(t, ksaudio.KSNODETYPE_VOLUME, render.Nodes[ksaudio.KSNODE_TOPO_VOLUME].Type)
	assert.Equal(t, ksaudio.KSAUDFNAME_MASTER_VOLUME, render.Nodes[ksaudio.KSNODE_TOPO_VOLUME].Name)
	assert.Equal(t, ksaudio.KSNODETYPE_MUTE, render.Nodes[ksaudio.KSNODE_TOPO_MUTE].Type)

	assert.Equal(t, []ksaudio.Connection{
		{FromNode: ksaudio.KSFILTER_NODE, FromPin: 0, ToNode: 0, ToPin: 1},
		{FromNode: 0, FromPin: 0, ToNode: 1, ToPin: 1},
		{FromNode: 1, FromPin: 0, ToNode: ksaudio.KSFILTER_NODE, ToPin: 1},
	}, render.Connections)

	lineOut, err := render.Pin(ksaudio.KSPIN_TOPO_LINEOUT)
	require.NoError(t, err)
	assert.Equal(t, ksaudio.KSNODETYPE_SPEAKER, lineOut.Category)

	capture := td.eps.TopologyCapture.Describe()
	mic, err := capture.Pin(ksaudio.KSPIN_TOPO_MIC)
	require.NoError(t, err)
	assert.Equal(t, ksaudio.KSNODETYPE_MICROPHONE, mic.Category)
	assert.Empty(t, capture.Nodes)

	s := render.String()
	assert.Contains(t, s, "TopologyRender")
	assert.Contains(t, s, "VOLUME")
	assert.Contains(t, s, "node0:0 -> node1:1")
}
