// delay_node.go - DelayNode: a circular buffer with fractional, smoothed
// read offset (spec §4.7).
//
// Grounded on the teacher's CombFilter in audio_chip.go (a fixed-size
// ring buffer read one sample behind the write head with linear
// interpolation) — generalized from a fixed comb delay to an
// automatable delayTime, with the one-pole smoothing the teacher already
// uses for its filter cutoff reapplied here to delayTime.

package audiograph

import "math"

type delayBehavior struct {
	ring       []float32
	extraRings [][]float32 // one extra ring per channel beyond the first
	writePos   int
	maxDelay   float64 // seconds
	smoothedMs float64 // current smoothed delay in seconds, k-rate path only
	primed     bool
}

// NewDelayNode constructs a DelayNode whose ring buffer is sized from
// maxDelaySeconds (spec §6 DelayNode{delayTime, maxDelayTime}):
// ceil(maxDelay*sampleRate)+1 frames.
func NewDelayNode(ctx *Context, maxDelaySeconds float64) *Node {
	size := int(math.Ceil(maxDelaySeconds*ctx.sampleRate)) + 1
	if size < 1 {
		size = 1
	}
	b := &delayBehavior{ring: make([]float32, size), maxDelay: maxDelaySeconds}
	n := ctx.newNode(KindDelay, b, 2, Max, Speakers, 1, 1)
	delayTime := NewParam(0)
	delayTime.SetRange(0, maxDelaySeconds)
	n.addParam("delayTime", delayTime)
	return n
}

const delaySmoothingTimeConstant = 0.020 // 20ms one-pole, spec §4.7

func (d *delayBehavior) Process(n *Node, frames int) {
	in := n.Inputs[0].Bus()
	out := n.Outputs[0]
	channels := in.NumChannels()
	if channels == 0 {
		channels = 1
	}
	out.bus.Resize(channels)

	qStart := float64(quantumStartFrame(n)) / n.sampleRate
	result := n.params["delayTime"].Render(qStart, n.sampleRate)

	// Only channel 0's ring buffer position is tracked; every channel
	// shares the same delay-time envelope and ring length, written
	// independently per channel below by reusing the same read offsets.
	if !d.primed {
		if result.Constant {
			d.smoothedMs = result.Value
		} else if len(result.Samples) > 0 {
			d.smoothedMs = float64(result.Samples[0])
		}
		d.primed = true
	}

	sr := n.sampleRate
	size := len(d.ring)

	// Each input frame is written into the ring before that frame's read,
	// so a zero delay passes the input through in the same quantum
	// (spec §4.7).
	for i := 0; i < Q; i++ {
		var delaySeconds float64
		if result.Constant {
			alpha := 1 - math.Exp(-1.0/(sr*delaySmoothingTimeConstant))
			d.smoothedMs += (result.Value - d.smoothedMs) * alpha
			delaySeconds = d.smoothedMs
		} else {
			v := float64(result.Samples[i])
			if v < 0 {
				v = 0
			}
			if v > d.maxDelay {
				v = d.maxDelay
			}
			delaySeconds = v
		}

		delayFrames := delaySeconds * sr
		readPosF := float64(d.writePos) - delayFrames
		for readPosF < 0 {
			readPosF += float64(size)
		}
		i0 := int(readPosF) % size
		i1 := (i0 + 1) % size
		frac := float32(readPosF - math.Floor(readPosF))

		for c := 0; c < channels; c++ {
			ring := d.ringFor(c, channels, size)
			var inVal float32
			if c < in.NumChannels() {
				inVal = in.Channel(c).Data()[i]
			}
			ring[d.writePos] = inVal

			v := ring[i0]*(1-frac) + ring[i1]*frac
			out.bus.Channel(c).Set(i, v)
		}
		d.writePos = (d.writePos + 1) % size
	}
}

// ringFor returns the ring buffer for a channel: channel 0 uses d.ring,
// and every further channel gets its own slice of the same size in
// d.extraRings, allocated on first use.
func (d *delayBehavior) ringFor(channel, channels, size int) []float32 {
	if channel == 0 {
		return d.ring
	}
	for len(d.extraRings) < channels-1 {
		d.extraRings = append(d.extraRings, make([]float32, size))
	}
	return d.extraRings[channel-1]
}

func (d *delayBehavior) TailTime() float64    { return d.maxDelay }
func (d *delayBehavior) LatencyTime() float64 { return 0 }
func (d *delayBehavior) Reset() {
	for i := range d.ring {
		d.ring[i] = 0
	}
	for _, r := range d.extraRings {
		for i := range r {
			r[i] = 0
		}
	}
	d.writePos = 0
	d.primed = false
}
