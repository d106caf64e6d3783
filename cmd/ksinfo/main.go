package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gen2brain/ksaudio"
)

func main() {
	var (
		endpoint string
		probe    bool
		verbose  bool
	)

	flag.StringVar(&endpoint, "endpoint", "all", "The endpoint to describe ('wave-render', 'wave-capture', 'topo-render', 'topo-capture' or 'all').")
	flag.BoolVar(&probe, "probe", true, "Query every readable property with the size probe followed by a GET.")
	flag.BoolVar(&verbose, "verbose", false, "Log every property request to stderr.")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Displays the capability graph of the virtual audio device.")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}

	flag.Parse()

	config := &ksaudio.DeviceConfig{}
	if verbose {
		config.Logger = log.New(os.Stderr, "ksaudio: ", log.Lmicroseconds)
	}

	dev, err := ksaudio.NewDevice(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating device: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()

	eps, err := dev.Endpoints()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating endpoints: %v\n", err)
		os.Exit(1)
	}
	defer eps.Close()

	var selected []*ksaudio.Endpoint

	switch strings.ToLower(endpoint) {
	case "all":
		selected = eps.All()
	case "wave-render":
		selected = []*ksaudio.Endpoint{eps.WaveRender}
	case "wave-capture":
		selected = []*ksaudio.Endpoint{eps.WaveCapture}
	case "topo-render":
		selected = []*ksaudio.Endpoint{eps.TopologyRender}
	case "topo-capture":
		selected = []*ksaudio.Endpoint{eps.TopologyCapture}
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid endpoint '%s'.\n", endpoint)
		os.Exit(1)
	}

	fmt.Printf("Loopback buffer: %d bytes\n\n", dev.LoopbackSize())

	for _, ep := range selected {
		d := ep.Describe()

		fmt.Println(d)

		if err := d.Validate(); err != nil {
			fmt.Printf("  Invalid graph: %v\n", err)
		}

		if !probe {
			fmt.Println()

			continue
		}

		fmt.Println("  Properties:")
		queryTable("filter", d.Properties, ep.Property)

		for i := range d.Pins {
			pin := uint32(i)
			queryTable(fmt.Sprintf("pin%d", pin), d.Pins[i].Properties, func(req *ksaudio.PropertyRequest) error {
				return ep.PinProperty(pin, req)
			})
		}

		for i := range d.Nodes {
			node := uint32(i)
			queryTable(fmt.Sprintf("node%d", node), d.Nodes[i].Properties, func(req *ksaudio.PropertyRequest) error {
				return ep.NodeProperty(node, req)
			})
		}

		fmt.Println()
	}
}

// queryTable runs the capability query, the size probe and a GET for every item of the table.
func queryTable(scope string, table ksaudio.AutomationTable, do func(*ksaudio.PropertyRequest) error) {
	for _, item := range table {
		name := fmt.Sprintf("%s %s/%d", scope, item.Set.Name(), item.ID)

		support := ksaudio.NewPropertyRequest(item.Set, item.ID, ksaudio.KSPROPERTY_TYPE_BASICSUPPORT, ksaudio.SizeofPropertyDescription)

		err := do(support)
		switch {
		case err == nil:
			// Handlers with a larger description answer a short buffer with the access flags only.
			var desc ksaudio.PropertyDescription
			if err := desc.UnmarshalBinary(support.Value[:support.ValueSize]); err == nil {
				fmt.Printf("    %-28s access=%#x type=%d\n", name, uint32(desc.AccessFlags), desc.PropTypeSet.ID)
			} else {
				fmt.Printf("    %-28s access=%#x\n", name, binary.LittleEndian.Uint32(support.Value))
			}
		case errors.Is(err, ksaudio.ErrNotImplemented):
			fmt.Printf("    %-28s not implemented\n", name)

			continue
		default:
			fmt.Printf("    %-28s error: %v\n", name, err)

			continue
		}

		if item.Flags&ksaudio.KSPROPERTY_TYPE_GET == 0 {
			continue
		}

		req := ksaudio.NewPropertyRequest(item.Set, item.ID, ksaudio.KSPROPERTY_TYPE_GET, 0)

		err = do(req)
		if !errors.Is(err, ksaudio.ErrBufferTooSmall) {
			fmt.Printf("      probe: %v\n", err)

			continue
		}

		req = ksaudio.NewPropertyRequest(item.Set, item.ID, ksaudio.KSPROPERTY_TYPE_GET, req.ValueSize)
		if err := do(req); err != nil {
			fmt.Printf("      get: %v\n", err)

			continue
		}

		fmt.Printf("      %d bytes: %s\n", req.ValueSize, describeValue(item, req.Value))
	}
}

// describeValue decodes the value records this tool knows about.
func describeValue(item ksaudio.PropertyItem, value []byte) string {
	switch {
	case item.Set == ksaudio.KSPROPSETID_General && item.ID == ksaudio.KSPROPERTY_GENERAL_COMPONENTID:
		var id ksaudio.ComponentID
		if err := id.UnmarshalBinary(value); err == nil {
			return fmt.Sprintf("component %s version %d.%d", id.Component, id.Version, id.Revision)
		}
	case item.Set == ksaudio.KSPROPSETID_Jack && item.ID == ksaudio.KSPROPERTY_JACK_DESCRIPTION:
		var jack ksaudio.JackDescription
		if err := jack.UnmarshalBinary(value); err == nil {
			return fmt.Sprintf("jack mask=%#x connected=%t", jack.ChannelMapping, jack.IsConnected)
		}
	case item.Set == ksaudio.KSPROPSETID_Pin && item.ID == ksaudio.KSPROPERTY_PIN_PROPOSEDATAFORMAT:
		var f ksaudio.FormatDescriptor
		if err := f.UnmarshalBinary(value); err == nil {
			return f.String()
		}
	}

	return fmt.Sprintf("% x", value)
}
