// waveshaper_node.go - WaveShaperNode: a curve lookup or tanh-style
// distortion, with None/2x/4x oversampling (spec §6 WaveShaperNode{curve,
// oversample}).
//
// Grounded on the teacher's applyOverdrive tanh-based saturation in
// audio_chip.go (GenerateSample), generalized from a fixed drive amount
// to an arbitrary user-supplied transfer curve, falling back to
// fastTanh (dsp_lut.go) when no curve is set.

package audiograph

// Oversample selects the WaveShaperNode's internal oversampling factor.
type Oversample int

const (
	OversampleNone Oversample = iota
	Oversample2x
	Oversample4x
)

type waveShaperBehavior struct {
	curve      []float32 // nil means "use fastTanh as the default transfer function"
	oversample Oversample
}

// NewWaveShaperNode constructs a WaveShaperNode. A nil curve uses a
// built-in tanh saturation curve.
func NewWaveShaperNode(ctx *Context, curve []float32, oversample Oversample) *Node {
	b := &waveShaperBehavior{curve: curve, oversample: oversample}
	n := ctx.newNode(KindWaveShaper, b, 2, Max, Speakers, 1, 1)
	return n
}

func (w *waveShaperBehavior) Process(n *Node, frames int) {
	in := n.Inputs[0].Bus()
	out := n.Outputs[0]
	channels := in.NumChannels()
	if channels == 0 {
		channels = 1
	}
	out.bus.Resize(channels)

	factor := 1
	switch w.oversample {
	case Oversample2x:
		factor = 2
	case Oversample4x:
		factor = 4
	}

	for c := 0; c < channels; c++ {
		inData := in.Channel(c).Data()
		outData := out.bus.Channel(c).Data()
		if factor == 1 {
			for i, x := range inData {
				outData[i] = w.shape(x)
			}
			continue
		}
		w.processOversampled(inData, outData, factor)
	}
	out.bus.ClearSilent()
}

// processOversampled upsamples by linear interpolation, shapes at the
// higher rate (reducing aliasing from the curve's harmonics), then
// decimates back down by averaging.
func (w *waveShaperBehavior) processOversampled(in, out []float32, factor int) {
	n := len(in)
	up := make([]float32, n*factor)
	for i := 0; i < n; i++ {
		up[i*factor] = in[i]
		for k := 1; k < factor; k++ {
			var next float32
			if i+1 < n {
				next = in[i+1]
			} else {
				next = in[i]
			}
			frac := float32(k) / float32(factor)
			up[i*factor+k] = in[i]*(1-frac) + next*frac
		}
	}
	for i := range up {
		up[i] = w.shape(up[i])
	}
	for i := 0; i < n; i++ {
		var sum float32
		for k := 0; k < factor; k++ {
			sum += up[i*factor+k]
		}
		out[i] = sum / float32(factor)
	}
}

func (w *waveShaperBehavior) shape(x float32) float32 {
	if w.curve == nil {
		return fastTanh(x * 2)
	}
	if len(w.curve) == 0 {
		return 0
	}
	if len(w.curve) == 1 {
		return w.curve[0]
	}
	// Map x from [-1,1] to a curve index (spec: WaveShaperNode's curve is
	// a lookup over the input's normalized range).
	pos := (x + 1) / 2 * float32(len(w.curve)-1)
	if pos < 0 {
		pos = 0
	}
	if pos > float32(len(w.curve)-1) {
		pos = float32(len(w.curve) - 1)
	}
	i0 := int(pos)
	if i0 >= len(w.curve)-1 {
		return w.curve[len(w.curve)-1]
	}
	frac := pos - float32(i0)
	return w.curve[i0]*(1-frac) + w.curve[i0+1]*frac
}

func (w *waveShaperBehavior) TailTime() float64    { return 0 }
func (w *waveShaperBehavior) LatencyTime() float64 { return 0 }
func (w *waveShaperBehavior) Reset()               {}
