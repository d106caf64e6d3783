package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/gen2brain/ksaudio"
)

func main() {
	var (
		bufferMs  int
		formatStr string
		duration  int
		tone      float64
		snapshot  bool
		verbose   bool
	)

	flag.IntVar(&bufferMs, "buffer", 100, "The size of the cyclic buffer in milliseconds")
	flag.StringVar(&formatStr, "format", "s16", "The sample format requested from the pin (s16, float)")
	flag.IntVar(&duration, "duration", 5, "The duration of the capture in seconds")
	flag.Float64Var(&tone, "tone", 440, "Frequency of the test tone the simulated source produces, 0 for silence")
	flag.BoolVar(&snapshot, "snapshot", false, "Save only the cyclic buffer content at the end of the capture")
	flag.BoolVar(&verbose, "verbose", false, "Log device activity to stderr")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <output-wav-file>\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nOptions:")
		for _, name := range []string{"buffer", "format", "duration", "tone", "snapshot", "verbose"} {
			f := flag.Lookup(name)
			if f != nil {
				fmt.Fprintf(os.Stderr, "  --%s\n    \t%v (default %q)\n", f.Name, f.Usage, f.DefValue)
			}
		}
	}

	flag.Parse()

	if flag.NArg() != 1 || bufferMs <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	outputPath := flag.Arg(0)

	r, err := determineRange(formatStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error determining format: %v\n", err)
		os.Exit(1)
	}

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

	format, err := eps.WaveCapture.Negotiate(ksaudio.KSPIN_WAVE_SINK, &r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error negotiating format: %v\n", err)
		os.Exit(1)
	}

	stream, err := eps.WaveCapture.CreateStream(ksaudio.KSPIN_WAVE_SINK, true, &format)
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

	wavFile, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating WAV file: %v\n", err)
		os.Exit(1)
	}
	defer wavFile.Close()

	fmt.Printf("Capturing from %s\n", eps.WaveCapture.Name())
	fmt.Printf("Stream: %s\n", &format)
	fmt.Printf("Buffer: %s\n", buffer)
	fmt.Printf("Capture duration: %d seconds\n", duration)

	ring := uint64(buffer.Size())
	blockAlign := uint64(format.BlockAlign)
	src := &source{stream: stream, freq: tone}

	// The simulated source stays one buffer ahead of the capture position.
	if err := src.produce(ring); err != nil {
		fmt.Fprintf(os.Stderr, "Error filling buffer: %v\n", err)
		os.Exit(1)
	}

	var encoder *wav.Encoder
	if !snapshot {
		// Float streams are saved as 16-bit PCM.
		encoder = wav.NewEncoder(wavFile, int(format.SampleRate), 16, int(format.Channels), int(ksaudio.WAVE_FORMAT_PCM))
	}

	if err := stream.SetState(ksaudio.KSSTATE_RUN); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting stream: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fmt.Println("Starting capture... Press Ctrl+C to stop early.")

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	totalBytes := uint64(duration) * uint64(format.AvgBytesPerSec)

	var captured, last uint64

	keepRunning := true
	for keepRunning && captured < totalBytes {
		select {
		case <-sigChan:
			fmt.Println("\nCapture interrupted by user.")
			keepRunning = false
		case <-ticker.C:
			pos, err := stream.Position()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading position: %v\n", err)
				keepRunning = false

				continue
			}

			n := (pos + ring - last) % ring
			n -= n % blockAlign
			n = min(n, totalBytes-captured)
			if n == 0 {
				continue
			}

			if encoder != nil {
				buf := &audio.IntBuffer{Data: make([]int, n/blockAlign*uint64(format.Channels)), SourceBitDepth: 16}
				if _, err := stream.ReadInts(captured, buf); err != nil {
					fmt.Fprintf(os.Stderr, "Error reading from stream: %v\n", err)
					keepRunning = false

					continue
				}

				if err := encoder.Write(buf); err != nil {
					fmt.Fprintf(os.Stderr, "Error writing to WAV file: %v\n", err)
					keepRunning = false

					continue
				}
			}

			captured += n
			last = (last + n) % ring

			if err := src.produce(captured + ring); err != nil {
				fmt.Fprintf(os.Stderr, "Error filling buffer: %v\n", err)
				keepRunning = false
			}
		}
	}

	if err := stream.SetState(ksaudio.KSSTATE_PAUSE); err != nil {
		fmt.Fprintf(os.Stderr, "Error pausing stream: %v\n", err)
	}

	if encoder != nil {
		if err := encoder.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing WAV file: %v\n", err)
			os.Exit(1)
		}
	} else if err := stream.SaveWAV(wavFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving buffer: %v\n", err)
		os.Exit(1)
	}

	frames := captured / blockAlign
	fmt.Printf("Capture finished. Wrote %d frames (%.2f seconds) to %s\n", frames, float64(frames)/float64(format.SampleRate), outputPath)
}

// determineRange maps a string identifier to the data range requested from the capture pin.
func determineRange(formatStr string) (ksaudio.FormatRange, error) {
	switch formatStr {
	case "s16":
		return ksaudio.NewAudioRange(ksaudio.KSDATAFORMAT_SUBTYPE_PCM, 2, 16, 16, 48000, 48000), nil
	case "float":
		return ksaudio.NewAudioRange(ksaudio.KSDATAFORMAT_SUBTYPE_IEEE_FLOAT, 2, 32, 32, 48000, 48000), nil
	default:
		return ksaudio.FormatRange{}, fmt.Errorf("unsupported format: '%s'. Supported formats are s16, float", formatStr)
	}
}

// source plays the part of the microphone: it writes a sine tone into the ring up to a byte offset.
type source struct {
	stream  *ksaudio.Stream
	freq    float64
	written uint64
	frame   uint64
}

func (s *source) produce(until uint64) error {
	format := s.stream.Format()
	blockAlign := uint64(format.BlockAlign)

	if until <= s.written {
		return nil
	}

	frames := (until - s.written) / blockAlign
	buf := &audio.IntBuffer{Data: make([]int, frames*uint64(format.Channels)), SourceBitDepth: 16}

	for i := uint64(0); i < frames; i++ {
		v := 0
		if s.freq > 0 {
			v = int(math.Sin(2*math.Pi*s.freq*float64(s.frame)/float64(format.SampleRate)) * 16384)
		}

		for c := uint64(0); c < uint64(format.Channels); c++ {
			buf.Data[i*uint64(format.Channels)+c] = v
		}

		s.frame++
	}

	if _, err := s.stream.WriteInts(s.written, buf); err != nil {
		return err
	}

	s.written += frames * blockAlign

	return nil
}
