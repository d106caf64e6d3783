package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-audio/audio"

	"github.com/gen2brain/ksaudio"
)

func main() {
	var (
		bufferMs   int
		periodSize int
		loopback   bool
		verbose    bool
	)

	flag.IntVar(&bufferMs, "buffer", 100, "The size of the cyclic buffer in milliseconds")
	flag.IntVar(&periodSize, "period-size", 1024, "The number of frames written per step")
	flag.BoolVar(&loopback, "loopback", false, "Force the shared loopback buffer instead of a private one")
	flag.BoolVar(&verbose, "verbose", false, "Log device activity to stderr")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <wav-or-mp3-file>\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nOptions:")
		for _, name := range []string{"buffer", "period-size", "loopback", "verbose"} {
			f := flag.Lookup(name)
			if f != nil {
				fmt.Fprintf(os.Stderr, "  --%s\n    \t%v (default %q)\n", f.Name, f.Usage, f.DefValue)
			}
		}
	}

	flag.Parse()

	if flag.NArg() != 1 || bufferMs <= 0 || periodSize <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	path := flag.Arg(0)

	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	decoder, err := openDecoder(path, file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding file: %v\n", err)
		os.Exit(1)
	}

	config := &ksaudio.DeviceConfig{}
	if loopback {
		config.Allocator = failingAllocator{}
		config.LoopbackAllocator = ksaudio.MmapAllocator{}
	}

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

	r := requestRange(decoder)

	format, err := eps.WaveRender.Negotiate(ksaudio.KSPIN_WAVE_SINK, &r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error negotiating format for %s: %v\n", &r, err)
		os.Exit(1)
	}

	stream, err := eps.WaveRender.CreateStream(ksaudio.KSPIN_WAVE_SINK, false, &format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating stream: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	size := format.AvgBytesPerSec / 1000 * uint32(bufferMs)
	size -= size % uint32(format.BlockAlign)

	buffer, err := stream.AcquireBuffer(size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error acquiring buffer: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Playing file: %s\n", path)
	fmt.Printf("Source: %d channels, %d Hz, %d bit\n", decoder.NumChans(), decoder.SampleRate(), decoder.BitDepth())
	fmt.Printf("Stream: %s\n", &format)
	fmt.Printf("Buffer: %s\n", buffer)

	if decoder.SampleRate() != format.SampleRate {
		fmt.Printf("Warning: the device runs at %d Hz, the file is not resampled\n", format.SampleRate)
	}

	total, err := decoder.Duration()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting duration: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	bytesPerPeriod := uint64(periodSize) * uint64(format.BlockAlign)
	ring := uint64(buffer.Size())

	if bytesPerPeriod > ring {
		bytesPerPeriod = ring
	}

	src := &audio.IntBuffer{Data: make([]int, int(bytesPerPeriod/uint64(format.BlockAlign))*int(decoder.NumChans()))}
	dst := &audio.IntBuffer{SourceBitDepth: 16}

	var written, played, last uint64

	// Prefill the whole buffer before starting the clock.
	eof := false
	for !eof && written+bytesPerPeriod <= ring {
		n, err := fill(stream, decoder, src, dst, written)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to stream: %v\n", err)
			os.Exit(1)
		}

		written += n
		eof = n < bytesPerPeriod
	}

	if err := stream.SetState(ksaudio.KSSTATE_RUN); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting stream: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Starting playback... Press Ctrl+C to stop early.")
	startTime := time.Now()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	keepRunning := true
	for keepRunning && played < written {
		select {
		case <-sigChan:
			fmt.Println("\nPlayback interrupted by user.")
			keepRunning = false
		case <-ticker.C:
			pos, err := stream.Position()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading position: %v\n", err)
				keepRunning = false

				continue
			}

			played += (pos + ring - last) % ring
			last = pos

			// Refill everything the position has moved past.
			for !eof && written+bytesPerPeriod <= played+ring {
				n, err := fill(stream, decoder, src, dst, written)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error writing to stream: %v\n", err)
					keepRunning = false

					break
				}

				written += n
				eof = n < bytesPerPeriod
			}
		}
	}

	if err := stream.SetState(ksaudio.KSSTATE_STOP); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping stream: %v\n", err)
	}

	frames := min(played, written) / uint64(format.BlockAlign)
	fmt.Printf("Playback finished in %v. (%d frames played, file length %v)\n", time.Since(startTime).Round(time.Millisecond), frames, total.Round(time.Millisecond))
}

// fill decodes one period, converts it to the stream layout and writes it at offset off.
// It returns the number of bytes written, which is less than a period at the end of the file.
func fill(s *ksaudio.Stream, d AudioDecoder, src, dst *audio.IntBuffer, off uint64) (uint64, error) {
	n, err := d.PCMBuffer(src)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}

	if n == 0 {
		return 0, nil
	}

	format := s.Format()
	channels := int(d.NumChans())
	frames := n / channels

	dst.Data = dst.Data[:0]
	for i := 0; i < frames; i++ {
		for c := 0; c < int(format.Channels); c++ {
			// Mono sources are duplicated, extra source channels are dropped.
			dst.Data = append(dst.Data, to16(src.Data[i*channels+min(c, channels-1)], d))
		}
	}

	if _, err := s.WriteInts(off, dst); err != nil {
		return 0, err
	}

	return uint64(frames) * uint64(format.BlockAlign), nil
}

// to16 scales a decoded sample to 16 bits.
func to16(v int, d AudioDecoder) int {
	bits := int(d.BitDepth())

	switch {
	case d.IsFloat():
		// Float sources are decoded as raw 32-bit patterns.
		return int(math.Float32frombits(uint32(v)) * 32767)
	case bits == 8:
		return (v - 128) << 8
	case bits > 16:
		return v >> (bits - 16)
	default:
		return v
	}
}

// failingAllocator forces streams onto the loopback buffer.
type failingAllocator struct{}

func (failingAllocator) Alloc(int) ([]byte, error) { return nil, errors.New("private buffers disabled") }
func (failingAllocator) Free([]byte) error         { return nil }
