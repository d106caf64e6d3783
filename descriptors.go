package ksaudio

import (
	"fmt"
	"strings"
)

// PinDescriptor describes one pin of a filter.
type PinDescriptor struct {
	MaxGlobalInstances uint32
	MaxFilterInstances uint32
	MinFilterInstances uint32

	Properties    AutomationTable
	Interfaces    []Identifier
	DataRanges    []FormatRange
	DataFlow      DataFlow
	Communication Communication
	Category      GUID
}

// IsStreaming reports whether streams can be created on the pin.
func (p *PinDescriptor) IsStreaming() bool {
	return len(p.Interfaces) > 0 && p.Communication == KSPIN_COMMUNICATION_SINK
}

// IsBridge reports whether the pin only carries analog bridge ranges.
func (p *PinDescriptor) IsBridge() bool {
	if len(p.DataRanges) == 0 {
		return false
	}

	for i := range p.DataRanges {
		if p.DataRanges[i].IsAudio() {
			return false
		}
	}

	return true
}

func (p *PinDescriptor) acceptsSubFormat(sub GUID) bool {
	for i := range p.DataRanges {
		if p.DataRanges[i].SubFormat == sub {
			return true
		}
	}

	return false
}

// NodeDescriptor describes one node of a topology filter.
type NodeDescriptor struct {
	Properties AutomationTable
	Type       GUID
	Name       GUID
}

// Connection links an output pin of a node (or the filter) to an input pin of another node (or the filter).
// Node pin 1 is the input and node pin 0 is the output.
type Connection struct {
	FromNode uint32
	FromPin  uint32
	ToNode   uint32
	ToPin    uint32
}

// FilterDescriptor is the static capability graph of an endpoint.
type FilterDescriptor struct {
	Name        string
	Properties  AutomationTable
	Pins        []PinDescriptor
	Nodes       []NodeDescriptor
	Connections []Connection
	Categories  []GUID
}

// Pin returns the pin at index i.
func (d *FilterDescriptor) Pin(i uint32) (*PinDescriptor, error) {
	if d == nil || i >= uint32(len(d.Pins)) {
		return nil, fmt.Errorf("pin %d out of range: %w", i, ErrInvalidParameter)
	}

	return &d.Pins[i], nil
}

// Node returns the node at index i.
func (d *FilterDescriptor) Node(i uint32) (*NodeDescriptor, error) {
	if d == nil || i >= uint32(len(d.Nodes)) {
		return nil, fmt.Errorf("node %d out of range: %w", i, ErrInvalidParameter)
	}

	return &d.Nodes[i], nil
}

// HasCategory reports whether the filter is registered under category c.
func (d *FilterDescriptor) HasCategory(c GUID) bool {
	for _, g := range d.Categories {
		if g == c {
			return true
		}
	}

	return false
}

// Validate checks that every connection references an existing pin or node.
func (d *FilterDescriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("nil descriptor: %w", ErrInvalidParameter)
	}

	check := func(node, pin uint32) error {
		if node == KSFILTER_NODE {
			if pin >= uint32(len(d.Pins)) {
				return fmt.Errorf("%s: connection to missing filter pin %d: %w", d.Name, pin, ErrInvalidParameter)
			}

			return nil
		}

		if node >= uint32(len(d.Nodes)) {
			return fmt.Errorf("%s: connection to missing node %d: %w", d.Name, node, ErrInvalidParameter)
		}

		return nil
	}

	for _, c := range d.Connections {
		if err := check(c.FromNode, c.FromPin); err != nil {
			return err
		}

		if err := check(c.ToNode, c.ToPin); err != nil {
			return err
		}
	}

	for i := range d.Pins {
		p := &d.Pins[i]
		if p.MinFilterInstances > p.MaxFilterInstances {
			return fmt.Errorf("%s: pin %d needs more instances than it allows: %w", d.Name, i, ErrInvalidParameter)
		}

		if len(p.DataRanges) == 0 {
			return fmt.Errorf("%s: pin %d has no data ranges: %w", d.Name, i, ErrInvalidParameter)
		}
	}

	return nil
}

// String returns a human-readable representation of the capability graph.
func (d *FilterDescriptor) String() string {
	if d == nil {
		return "<nil>"
	}

	var b strings.Builder

	categories := make([]string, 0, len(d.Categories))
	for _, c := range d.Categories {
		categories = append(categories, guidName(c))
	}

	b.WriteString(fmt.Sprintf("Filter %s [%s]\n", d.Name, strings.Join(categories, ", ")))

	for i := range d.Pins {
		p := &d.Pins[i]

		flow := "in"
		if p.DataFlow == KSPIN_DATAFLOW_OUT {
			flow = "out"
		}

		kind := "bridge"
		if p.IsStreaming() {
			kind = "streaming"
		}

		b.WriteString(fmt.Sprintf("  Pin %d: %s %s instances=%d category=%s\n", i, kind, flow, p.MaxFilterInstances, guidName(p.Category)))
		for j := range p.DataRanges {
			b.WriteString(fmt.Sprintf("    Range: %s\n", p.DataRanges[j].String()))
		}
	}

	for i, n := range d.Nodes {
		b.WriteString(fmt.Sprintf("  Node %d: %s\n", i, guidName(n.Type)))
	}

	end := func(node, pin uint32) string {
		if node == KSFILTER_NODE {
			return fmt.Sprintf("filter:%d", pin)
		}

		return fmt.Sprintf("node%d:%d", node, pin)
	}

	for _, c := range d.Connections {
		b.WriteString(fmt.Sprintf("  %s -> %s\n", end(c.FromNode, c.FromPin), end(c.ToNode, c.ToPin)))
	}

	return b.String()
}

var streamingInterfaces = []Identifier{{
	Set: KSINTERFACESETID_Standard,
	ID:  KSINTERFACE_STANDARD_STREAMING,
}}

func waveDataRanges() []FormatRange {
	return []FormatRange{
		NewAudioRange(KSDATAFORMAT_SUBTYPE_PCM, 2, 8, 32, 8000, 192000),
		NewAudioRange(KSDATAFORMAT_SUBTYPE_IEEE_FLOAT, 2, 8, 32, 8000, 192000),
	}
}

func bridgeDataRanges() []FormatRange {
	return []FormatRange{NewBridgeRange()}
}

func generalProperties() AutomationTable {
	return AutomationTable{
		{Set: KSPROPSETID_General, ID: KSPROPERTY_GENERAL_COMPONENTID, Flags: accessRead, Handler: ComponentIDHandler{ID: DefaultComponentID}},
	}
}

func jackProperties() AutomationTable {
	h := JackHandler{Description: DefaultJackDescription}

	return AutomationTable{
		{Set: KSPROPSETID_Jack, ID: KSPROPERTY_JACK_DESCRIPTION, Flags: accessRead, Handler: h},
		{Set: KSPROPSETID_Jack, ID: KSPROPERTY_JACK_DESCRIPTION2, Flags: accessRead, Handler: h},
	}
}

func waveFilterProperties() AutomationTable {
	format := ProposedFormatHandler{Format: DefaultProposedFormat}

	t := generalProperties()
	t = append(t,
		PropertyItem{Set: KSPROPSETID_Pin, ID: KSPROPERTY_PIN_PROPOSEDATAFORMAT, Flags: accessReadWrite, Handler: format},
		PropertyItem{Set: KSPROPSETID_Pin, ID: KSPROPERTY_PIN_PROPOSEDATAFORMAT2, Flags: accessReadWrite, Handler: format},
	)
	t = append(t, jackProperties()...)
	t = append(t,
		PropertyItem{Set: KSPROPSETID_AudioEffectsDiscovery, ID: KSPROPERTY_AUDIOEFFECTSDISCOVERY_EFFECTSLIST, Flags: accessRead, Handler: EffectsDiscoveryHandler{}},
		PropertyItem{Set: KSPROPSETID_AudioModule, ID: KSPROPERTY_AUDIOMODULE_DESCRIPTORS, Flags: accessRead, Handler: AudioModuleHandler{}},
		PropertyItem{Set: KSPROPSETID_AudioModule, ID: KSPROPERTY_AUDIOMODULE_COMMAND, Flags: accessReadWrite, Handler: AudioModuleHandler{}},
		PropertyItem{Set: KSPROPSETID_AudioModule, ID: KSPROPERTY_AUDIOMODULE_NOTIFICATION_DEVICE_ID, Flags: accessRead, Handler: AudioModuleHandler{}},
	)

	return t
}

func topologyFilterProperties() AutomationTable {
	return append(generalProperties(), jackProperties()...)
}

func pinProperties() AutomationTable {
	t := AutomationTable{
		{Set: KSPROPSETID_Pin, ID: KSPROPERTY_PIN_CATEGORY, Flags: accessRead, Handler: PinCategoryHandler{}},
		{Set: KSPROPSETID_Pin, ID: KSPROPERTY_PIN_NAME, Flags: accessRead, Handler: PinNameHandler{}},
	}

	return append(t, jackProperties()...)
}

// newWaveFilter returns the wave filter: a streaming sink pin and a bridge pin.
// Render data flows from the sink pin to the bridge pin, capture data the other way.
func newWaveFilter(capture bool) *FilterDescriptor {
	sink := PinDescriptor{
		MaxGlobalInstances: 4,
		MaxFilterInstances: 4,
		MinFilterInstances: 1,
		Properties:         pinProperties(),
		Interfaces:         streamingInterfaces,
		DataRanges:         waveDataRanges(),
		DataFlow:           KSPIN_DATAFLOW_IN,
		Communication:      KSPIN_COMMUNICATION_SINK,
		Category:           KSCATEGORY_AUDIO,
	}

	bridge := PinDescriptor{
		MaxGlobalInstances: 1,
		MaxFilterInstances: 1,
		MinFilterInstances: 1,
		Properties:         pinProperties(),
		DataRanges:         bridgeDataRanges(),
		DataFlow:           KSPIN_DATAFLOW_OUT,
		Communication:      KSPIN_COMMUNICATION_NONE,
		Category:           KSCATEGORY_AUDIO,
	}

	d := &FilterDescriptor{
		Name:       "WaveRender",
		Properties: waveFilterProperties(),
		Categories: []GUID{KSCATEGORY_AUDIO, KSCATEGORY_RENDER, KSCATEGORY_REALTIME},
		Connections: []Connection{
			{FromNode: KSFILTER_NODE, FromPin: KSPIN_WAVE_SINK, ToNode: KSFILTER_NODE, ToPin: KSPIN_WAVE_BRIDGE},
		},
	}

	if capture {
		sink.DataFlow = KSPIN_DATAFLOW_OUT
		bridge.DataFlow = KSPIN_DATAFLOW_IN

		d.Name = "WaveCapture"
		d.Categories = []GUID{KSCATEGORY_AUDIO, KSCATEGORY_CAPTURE, KSCATEGORY_REALTIME}
		d.Connections = []Connection{
			{FromNode: KSFILTER_NODE, FromPin: KSPIN_WAVE_BRIDGE, ToNode: KSFILTER_NODE, ToPin: KSPIN_WAVE_SINK},
		}
	}

	d.Pins = []PinDescriptor{sink, bridge}

	return d
}

// newTopologyRenderFilter returns the render topology: bridge -> volume -> mute -> speaker.
func newTopologyRenderFilter() *FilterDescriptor {
	return &FilterDescriptor{
		Name:       "TopologyRender",
		Properties: topologyFilterProperties(),
		Categories: []GUID{KSCATEGORY_AUDIO, KSCATEGORY_TOPOLOGY},
		Pins: []PinDescriptor{
			{
				MaxGlobalInstances: 1,
				MaxFilterInstances: 1,
				MinFilterInstances: 1,
				Properties:         pinProperties(),
				DataRanges:         bridgeDataRanges(),
				DataFlow:           KSPIN_DATAFLOW_IN,
				Communication:      KSPIN_COMMUNICATION_NONE,
				Category:           KSCATEGORY_AUDIO,
			},
			{
				MaxGlobalInstances: 1,
				MaxFilterInstances: 1,
				MinFilterInstances: 1,
				Properties:         pinProperties(),
				DataRanges:         bridgeDataRanges(),
				DataFlow:           KSPIN_DATAFLOW_OUT,
				Communication:      KSPIN_COMMUNICATION_NONE,
				Category:           KSNODETYPE_SPEAKER,
			},
		},
		Nodes: []NodeDescriptor{
			{
				Properties: AutomationTable{{Set: KSPROPSETID_Audio, ID: KSPROPERTY_AUDIO_VOLUMELEVEL, Flags: accessReadWrite, Handler: VolumeHandler{}}},
				Type:       KSNODETYPE_VOLUME,
				Name:       KSAUDFNAME_MASTER_VOLUME,
			},
			{
				Properties: AutomationTable{{Set: KSPROPSETID_Audio, ID: KSPROPERTY_AUDIO_MUTE, Flags: accessReadWrite, Handler: MuteHandler{}}},
				Type:       KSNODETYPE_MUTE,
				Name:       KSAUDFNAME_MASTER_MUTE,
			},
		},
		Connections: []Connection{
			{FromNode: KSFILTER_NODE, FromPin: KSPIN_TOPO_BRIDGE, ToNode: KSNODE_TOPO_VOLUME, ToPin: 1},
			{FromNode: KSNODE_TOPO_VOLUME, FromPin: 0, ToNode: KSNODE_TOPO_MUTE, ToPin: 1},
			{FromNode: KSNODE_TOPO_MUTE, FromPin: 0, ToNode: KSFILTER_NODE, ToPin: KSPIN_TOPO_LINEOUT},
		},
	}
}

// newTopologyCaptureFilter returns the capture topology: microphone -> bridge.
func newTopologyCaptureFilter() *FilterDescriptor {
	return &FilterDescriptor{
		Name:       "TopologyCapture",
		Properties: topologyFilterProperties(),
		Categories: []GUID{KSCATEGORY_AUDIO, KSCATEGORY_TOPOLOGY},
		Pins: []PinDescriptor{
			{
				MaxGlobalInstances: 1,
				MaxFilterInstances: 1,
				MinFilterInstances: 1,
				Properties:         pinProperties(),
				DataRanges:         bridgeDataRanges(),
				DataFlow:           KSPIN_DATAFLOW_IN,
				Communication:      KSPIN_COMMUNICATION_NONE,
				Category:           KSNODETYPE_MICROPHONE,
			},
			{
				MaxGlobalInstances: 1,
				MaxFilterInstances: 1,
				MinFilterInstances: 1,
				Properties:         pinProperties(),
				DataRanges:         bridgeDataRanges(),
				DataFlow:           KSPIN_DATAFLOW_OUT,
				Communication:      KSPIN_COMMUNICATION_NONE,
				Category:           KSCATEGORY_AUDIO,
			},
		},
		Connections: []Connection{
			{FromNode: KSFILTER_NODE, FromPin: KSPIN_TOPO_MIC, ToNode: KSFILTER_NODE, ToPin: KSPIN_TOPO_CAPTURE_BRIDGE},
		},
	}
}
