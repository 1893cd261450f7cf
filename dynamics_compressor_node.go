// dynamics_compressor_node.go - DynamicsCompressorNode: a feed-forward
// compressor with knee, ratio, and attack/release envelope smoothing
// (spec §6 DynamicsCompressorNode{threshold, knee, ratio, attack,
// release}).
//
// Grounded on the teacher's updateEnvelope ADSR smoothing in
// audio_chip.go for the attack/release one-pole envelope shape,
// generalized from a note-trigger envelope to a continuously-driven
// sidechain gain-reduction envelope.

package audiograph

import "math"

type dynamicsCompressorBehavior struct {
	envelope float64 // current detected level, 0..1+
}

// NewDynamicsCompressorNode constructs the node with its five params at
// the Web Audio API's conventional defaults.
func NewDynamicsCompressorNode(ctx *Context) *Node {
	b := &dynamicsCompressorBehavior{}
	n := ctx.newNode(KindDynamicsCompressor, b, 2, ClampedMax, Speakers, 1, 1)

	threshold := NewParam(-24)
	threshold.SetRange(-100, 0)
	n.addParam("threshold", threshold)

	knee := NewParam(30)
	knee.SetRange(0, 40)
	n.addParam("knee", knee)

	ratio := NewParam(12)
	ratio.SetRange(1, 20)
	n.addParam("ratio", ratio)

	attack := NewParam(0.003)
	attack.SetRange(0, 1)
	n.addParam("attack", attack)

	release := NewParam(0.25)
	release.SetRange(0, 1)
	n.addParam("release", release)

	reduction := NewParam(0)
	n.addParam("reduction", reduction) // informational, read-only by convention

	return n
}

func (d *dynamicsCompressorBehavior) Process(n *Node, frames int) {
	in := n.Inputs[0].Bus()
	out := n.Outputs[0]
	channels := in.NumChannels()
	if channels == 0 {
		channels = 1
	}
	out.bus.Resize(channels)

	threshold := n.params["threshold"].Value()
	knee := n.params["knee"].Value()
	ratio := n.params["ratio"].Value()
	attack := n.params["attack"].Value()
	release := n.params["release"].Value()
	sr := n.sampleRate

	attackCoeff := math.Exp(-1.0 / (sr * math.Max(attack, 1e-4)))
	releaseCoeff := math.Exp(-1.0 / (sr * math.Max(release, 1e-4)))

	var lastGainDB float64
	for i := 0; i < Q; i++ {
		var peak float64
		for c := 0; c < channels; c++ {
			v := math.Abs(float64(in.Channel(c).Data()[i]))
			if v > peak {
				peak = v
			}
		}

		if peak > d.envelope {
			d.envelope = attackCoeff*d.envelope + (1-attackCoeff)*peak
		} else {
			d.envelope = releaseCoeff*d.envelope + (1-releaseCoeff)*peak
		}

		inputDB := 20 * math.Log10(d.envelope+1e-12)
		gainDB := computeGainReductionDB(inputDB, threshold, knee, ratio)
		lastGainDB = gainDB
		gainLinear := float32(math.Pow(10, gainDB/20))

		for c := 0; c < channels; c++ {
			out.bus.Channel(c).Set(i, in.Channel(c).Data()[i]*gainLinear)
		}
	}
	n.params["reduction"].SetValueImmediate(lastGainDB)
}

// computeGainReductionDB implements the standard soft-knee compressor
// transfer function: 0 dB reduction below threshold-knee/2, a quadratic
// knee region, and a linear 1/ratio slope above threshold+knee/2.
func computeGainReductionDB(inputDB, threshold, knee, ratio float64) float64 {
	if knee <= 0 {
		if inputDB < threshold {
			return 0
		}
		excess := inputDB - threshold
		return (threshold + excess/ratio) - inputDB
	}

	kneeStart := threshold - knee/2
	kneeEnd := threshold + knee/2

	switch {
	case inputDB < kneeStart:
		return 0
	case inputDB <= kneeEnd:
		x := inputDB - kneeStart
		slope := (1/ratio - 1) / (2 * knee)
		return slope * x * x
	default:
		excess := inputDB - threshold
		return (threshold + excess/ratio) - inputDB
	}
}

func (d *dynamicsCompressorBehavior) TailTime() float64    { return 0.3 }
func (d *dynamicsCompressorBehavior) LatencyTime() float64 { return 0 }
func (d *dynamicsCompressorBehavior) Reset()               { d.envelope = 0 }
