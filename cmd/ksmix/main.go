package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gen2brain/ksaudio"
)

func main() {
	var (
		capture bool
		list    bool
	)

	flag.BoolVar(&capture, "capture", false, "Use the capture topology instead of the render topology.")
	flag.BoolVar(&list, "list", false, "List all nodes.")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [node] [value]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nOptions:")
		for _, name := range []string{"capture", "list"} {
			f := flag.Lookup(name)
			if f != nil {
				fmt.Fprintf(os.Stderr, "  --%s\n    \t%v (default %q)\n", f.Name, f.Usage, f.DefValue)
			}
		}
		fmt.Fprintln(os.Stderr, "\nTo set a node, provide the node index and the desired value (dB for volume, on/off for mute).")
		fmt.Fprintln(os.Stderr, "If no node is specified, all nodes and their values are listed.")
	}

	flag.Parse()

	dev, err := ksaudio.NewDevice(nil)
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

	ep := eps.TopologyRender
	if capture {
		ep = eps.TopologyCapture
	}

	args := flag.Args()

	if list || len(args) == 0 {
		printAllNodes(ep, list)

		return
	}

	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid node index '%s'\n", args[0])
		os.Exit(1)
	}

	node, err := ep.Describe().Node(uint32(id))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot find node %d: %v\n", id, err)
		os.Exit(1)
	}

	if len(args) == 1 {
		printNode(ep, uint32(id), node, false)

		return
	}

	if err := setNodeValue(ep, uint32(id), node, args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting value for node %d: %v\n", id, err)
		os.Exit(1)
	}

	fmt.Printf("Set node %d (%s) successfully.\n", id, node.Name.Name())
}

// printAllNodes lists the nodes of the topology and optionally their values.
func printAllNodes(ep *ksaudio.Endpoint, listOnly bool) {
	d := ep.Describe()

	fmt.Printf("Topology '%s' has %d nodes.\n", d.Name, len(d.Nodes))
	fmt.Println("---------------------------------------")

	for i := range d.Nodes {
		printNode(ep, uint32(i), &d.Nodes[i], listOnly)
	}
}

// printNode prints the range and value of a single node.
func printNode(ep *ksaudio.Endpoint, id uint32, node *ksaudio.NodeDescriptor, listOnly bool) {
	if listOnly {
		fmt.Printf("%d: %s\n", id, node.Type.Name())

		return
	}

	fmt.Printf("%d: %s (%s)\n", id, node.Type.Name(), node.Name.Name())

	switch node.Type {
	case ksaudio.KSNODETYPE_VOLUME:
		printVolumeNode(ep, id)
	case ksaudio.KSNODETYPE_MUTE:
		printMuteNode(ep, id)
	default:
		fmt.Println("  Value: <unsupported type>")
	}

	fmt.Println()
}

func printVolumeNode(ep *ksaudio.Endpoint, id uint32) {
	req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_Audio, ksaudio.KSPROPERTY_AUDIO_VOLUMELEVEL, ksaudio.KSPROPERTY_TYPE_BASICSUPPORT, ksaudio.SizeofVolumeBasicSupport)

	var support ksaudio.VolumeBasicSupport
	if err := ep.NodeProperty(id, req); err == nil && support.UnmarshalBinary(req.Value) == nil {
		fmt.Printf("  Range: %.2f dB - %.2f dB, step %.4f dB\n",
			fixedToDB(support.Range.SignedMinimum), fixedToDB(support.Range.SignedMaximum), fixedToDB(int32(support.Range.SteppingDelta)))
	}

	v, err := getULONG(ep, id, ksaudio.KSPROPERTY_AUDIO_VOLUMELEVEL)
	if err != nil {
		fmt.Printf("  Value: <error: %v>\n", err)

		return
	}

	fmt.Printf("  Value: %.2f dB\n", fixedToDB(int32(v)))
}

func printMuteNode(ep *ksaudio.Endpoint, id uint32) {
	v, err := getULONG(ep, id, ksaudio.KSPROPERTY_AUDIO_MUTE)
	if err != nil {
		fmt.Printf("  Value: <error: %v>\n", err)

		return
	}

	if v != 0 {
		fmt.Println("  Value: On")
	} else {
		fmt.Println("  Value: Off")
	}
}

// setNodeValue parses the string argument and sets the node's value.
func setNodeValue(ep *ksaudio.Endpoint, id uint32, node *ksaudio.NodeDescriptor, valueStr string) error {
	var (
		prop  uint32
		value uint32
	)

	switch node.Type {
	case ksaudio.KSNODETYPE_VOLUME:
		db, err := strconv.ParseFloat(strings.TrimSuffix(valueStr, "dB"), 64)
		if err != nil {
			return fmt.Errorf("invalid volume value '%s'", valueStr)
		}

		fixed := int32(db * 65536)
		if fixed < ksaudio.VolumeMinimum || fixed > ksaudio.VolumeMaximum {
			return fmt.Errorf("volume %.2f dB out of range", db)
		}

		prop, value = ksaudio.KSPROPERTY_AUDIO_VOLUMELEVEL, uint32(fixed)
	case ksaudio.KSNODETYPE_MUTE:
		v, err := parseBool(valueStr)
		if err != nil {
			return err
		}

		prop, value = ksaudio.KSPROPERTY_AUDIO_MUTE, v
	default:
		return fmt.Errorf("cannot set value for node type %s", node.Type.Name())
	}

	req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_Audio, prop, ksaudio.KSPROPERTY_TYPE_SET, ksaudio.SizeofULONG)
	binary.LittleEndian.PutUint32(req.Value, value)

	return ep.NodeProperty(id, req)
}

func getULONG(ep *ksaudio.Endpoint, id, prop uint32) (uint32, error) {
	req := ksaudio.NewPropertyRequest(ksaudio.KSPROPSETID_Audio, prop, ksaudio.KSPROPERTY_TYPE_GET, ksaudio.SizeofULONG)
	if err := ep.NodeProperty(id, req); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(req.Value), nil
}

// fixedToDB converts a signed 16.16 fixed-point value to dB.
func fixedToDB(v int32) float64 {
	return float64(v) / 65536
}

// parseBool is a helper to interpret various string representations of a boolean.
func parseBool(s string) (uint32, error) {
	s = strings.ToLower(s)
	switch s {
	case "1", "on", "true", "yes":
		return 1, nil
	case "0", "off", "false", "no":
		return 0, nil
	}

	return 0, fmt.Errorf("invalid boolean value '%s'", s)
}
