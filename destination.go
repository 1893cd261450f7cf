// destination.go - destination node behavior and the pull-to-device
// adapter (spec §4.10, §6 AudioDevice trait).

package audiograph

// destinationBehavior sums its single input into the output bus and
// clips to [-1, 1] (spec §4.10). The destination has no tail — it is the
// sink, not a source of sustained output.
type destinationBehavior struct{}

func (d *destinationBehavior) Process(n *Node, frames int) {
	in := n.Inputs[0].Bus()
	out := n.Outputs[0]
	out.bus.CopyFrom(in, Speakers)
	for _, ch := range out.bus.channels {
		for i, v := range ch.data {
			if v > 1 {
				ch.data[i] = 1
			} else if v < -1 {
				ch.data[i] = -1
			}
		}
	}
}

func (d *destinationBehavior) TailTime() float64    { return 0 }
func (d *destinationBehavior) LatencyTime() float64 { return 0 }
func (d *destinationBehavior) Reset()               {}

// AudioDevice is the out-of-scope host collaborator (spec §1, §6): audio
// device enumeration and the OS-specific callback that drives the engine
// live behind this trait; the engine only needs start/stop and a way to
// hand the device a render source.
type AudioDevice interface {
	Start() error
	Stop() error
	IsRunning() bool
	// SetRenderSource installs the Context this device pulls quanta from.
	SetRenderSource(ctx *Context)
}

// Residual adapts the quantum pull to a host-provided fixed-size
// interleaved buffer, keeping a residual-frame accumulator across calls
// so the device's callback size need not be a multiple of Q (spec §4.10).
//
// out must be sized frames*channels; channels is the destination's
// channel count (2, per the fixed stereo destination).
type Residual struct {
	ctx      *Context
	leftover []float32 // interleaved samples carried from a partially consumed quantum
}

// NewResidual creates a pull adapter over ctx.
func NewResidual(ctx *Context) *Residual {
	return &Residual{ctx: ctx}
}

// Render fills out (length frames*channels, interleaved) by pulling
// render quanta from the context as needed.
func (r *Residual) Render(out []float32, frames, channels int) {
	need := frames * channels
	pos := 0

	if len(r.leftover) > 0 {
		n := copy(out, r.leftover)
		pos = n
		r.leftover = r.leftover[n:]
		if len(r.leftover) == 0 {
			r.leftover = nil
		}
	}

	for pos < need {
		bus := r.ctx.renderQuantum()
		interleaved := interleave(bus, channels)
		n := copy(out[pos:], interleaved)
		pos += n
		if n < len(interleaved) {
			r.leftover = append(r.leftover, interleaved[n:]...)
		}
	}
}

func interleave(bus *Bus, channels int) []float32 {
	frames := bus.Frames()
	out := make([]float32, frames*channels)
	n := bus.NumChannels()
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			var v float32
			if c < n {
				v = bus.Channel(c).Data()[i]
			} else if n > 0 {
				v = bus.Channel(n - 1).Data()[i]
			}
			out[i*channels+c] = v
		}
	}
	return out
}
