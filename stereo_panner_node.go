// stereo_panner_node.go - StereoPannerNode: equal-power stereo panning
// (spec §6 StereoPannerNode{pan}), the non-HRTF panning path.

package audiograph

import "math"

type stereoPannerBehavior struct{}

// NewStereoPannerNode constructs a StereoPannerNode with "pan" in
// [-1, 1].
func NewStereoPannerNode(ctx *Context) *Node {
	b := &stereoPannerBehavior{}
	n := ctx.newNode(KindStereoPanner, b, 2, ClampedMax, Speakers, 1, 1)
	pan := NewParam(0)
	pan.SetRange(-1, 1)
	n.addParam("pan", pan)
	return n
}

func (s *stereoPannerBehavior) Process(n *Node, frames int) {
	in := n.Inputs[0].Bus()
	out := n.Outputs[0]
	out.bus.Resize(2)

	qStart := float64(quantumStartFrame(n)) / n.sampleRate
	result := n.params["pan"].Render(qStart, n.sampleRate)

	inChannels := in.NumChannels()
	outL := out.bus.Channel(0).Data()
	outR := out.bus.Channel(1).Data()

	for i := 0; i < Q; i++ {
		pan := paramValueAt(result, i)
		if pan < -1 {
			pan = -1
		} else if pan > 1 {
			pan = 1
		}

		if inChannels == 1 {
			mono := in.Channel(0).Data()[i]
			x := (pan + 1) / 2 * math.Pi / 2
			outL[i] = mono * float32(math.Cos(x))
			outR[i] = mono * float32(math.Sin(x))
			continue
		}

		var inL, inR float32
		if inChannels >= 2 {
			inL = in.Channel(0).Data()[i]
			inR = in.Channel(1).Data()[i]
		}

		if pan <= 0 {
			x := (pan + 1) * math.Pi / 2
			outL[i] = inL + inR*float32(math.Cos(x))
			outR[i] = inR * float32(math.Sin(x))
		} else {
			x := pan * math.Pi / 2
			outL[i] = inL * float32(math.Cos(x))
			outR[i] = inR + inL*float32(math.Sin(x))
		}
	}
	out.bus.ClearSilent()
}

func (s *stereoPannerBehavior) TailTime() float64    { return 0 }
func (s *stereoPannerBehavior) LatencyTime() float64 { return 0 }
func (s *stereoPannerBehavior) Reset()               {}
