// gain_node.go - GainNode: one input, one output, one param (spec §4.7).
//
// Grounded on the teacher's volume/overdrive scaling path in
// GenerateSample (audio_chip.go), generalized from a fixed per-channel
// scalar to an automatable, optionally a-rate Param with de-zippered
// k-rate ramping via Bus.CopyWithGainFrom.

package audiograph

type gainBehavior struct {
	lastMixGain float32
}

// NewGainNode constructs a GainNode with its "gain" param defaulted to 1
// (spec §6 GainNode{gain}).
func NewGainNode(ctx *Context) *Node {
	b := &gainBehavior{lastMixGain: 1}
	n := ctx.newNode(KindGain, b, 2, Max, Speakers, 1, 1)
	gain := NewParam(1)
	n.addParam("gain", gain)
	return n
}

func (g *gainBehavior) Process(n *Node, frames int) {
	in := n.Inputs[0].Bus()
	out := n.Outputs[0]
	out.bus.Resize(in.NumChannels())

	qStart := float64(quantumStartFrame(n)) / n.sampleRate
	result := n.params["gain"].Render(qStart, n.sampleRate)

	if result.Constant {
		out.bus.CopyWithGainFrom(in, &g.lastMixGain, float32(result.Value))
		return
	}
	out.bus.CopyWithSampleAccurateGainFrom(in, result.Samples)
	if len(result.Samples) > 0 {
		g.lastMixGain = result.Samples[len(result.Samples)-1]
	}
}

func (g *gainBehavior) TailTime() float64    { return 0 }
func (g *gainBehavior) LatencyTime() float64 { return 0 }
func (g *gainBehavior) Reset()               { g.lastMixGain = 1 }
