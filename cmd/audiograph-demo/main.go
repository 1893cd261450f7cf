// audiograph-demo plays a filtered, panned oscillator tone through the
// real audio output for a fixed duration, exercising the graph
// construction and scheduling API end to end.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/intuitionamiga/audiograph"
)

func main() {
	freq := flag.Float64("freq", 440, "oscillator frequency in Hz")
	duration := flag.Duration("duration", 3*time.Second, "how long to play")
	cutoff := flag.Float64("cutoff", 2000, "low-pass cutoff frequency in Hz")
	pan := flag.Float64("pan", 0, "stereo pan, -1 (left) to 1 (right)")
	headless := flag.Bool("headless", false, "use a headless device that opens no audio output and renders nothing")
	sampleRate := flag.Float64("rate", 44100, "sample rate in Hz")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: audiograph-demo [options]\n\nPlays a tone through a biquad filter and stereo panner.\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*freq, *cutoff, *pan, *sampleRate, *duration, *headless); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(freq, cutoff, pan, sampleRate float64, duration time.Duration, headless bool) error {
	var device audiograph.AudioDevice
	if headless {
		device = audiograph.NewHeadlessDevice()
	} else {
		oto, err := audiograph.NewOtoDevice(int(sampleRate))
		if err != nil {
			return err
		}
		device = oto
	}

	ctx, err := audiograph.NewContext(audiograph.Config{SampleRate: sampleRate, Device: device})
	if err != nil {
		return err
	}
	defer ctx.Stop()

	osc := audiograph.NewOscillatorNode(ctx, audiograph.Sine)
	osc.Param("frequency").SetValueImmediate(freq)

	filter := audiograph.NewBiquadFilterNode(ctx, audiograph.LowPass)
	filter.Param("frequency").SetValueImmediate(cutoff)

	panner := audiograph.NewStereoPannerNode(ctx)
	panner.Param("pan").SetValueImmediate(pan)

	gain := audiograph.NewGainNode(ctx)
	gain.Param("gain").SetValueImmediate(0.3)

	ctx.Connect(filter, osc, 0, 0)
	ctx.Connect(panner, filter, 0, 0)
	ctx.Connect(gain, panner, 0, 0)
	ctx.Connect(ctx.Destination, gain, 0, 0)

	osc.Start(0)
	osc.StopAt(ctx.CurrentTime() + duration.Seconds())

	// Give the coordinator a tick to apply the connect edits before the
	// device starts pulling real-time audio (spec §4.5: edits land at
	// ~100Hz, not immediately).
	time.Sleep(15 * time.Millisecond)

	if err := device.Start(); err != nil {
		return err
	}
	defer device.Stop()

	time.Sleep(duration + 100*time.Millisecond)
	return nil
}
