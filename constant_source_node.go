// constant_source_node.go - ConstantSourceNode: a scheduled DC offset
// source (spec §6 ConstantSourceNode{offset}), most often used to drive
// another node's Param as an a-rate automation source.

package audiograph

type constantSourceBehavior struct {
	ScheduledSource
}

// NewConstantSourceNode constructs a ConstantSourceNode with its
// "offset" param defaulted to 1.
func NewConstantSourceNode(ctx *Context) *Node {
	b := &constantSourceBehavior{}
	n := ctx.newNode(KindConstantSource, b, 1, Explicit, Speakers, 0, 1)
	offset := NewParam(1)
	n.addParam("offset", offset)
	return n
}

func (c *constantSourceBehavior) Process(n *Node, frames int) {
	out := n.Outputs[0].bus
	qStart := quantumStartFrame(n)
	activeStart, activeEnd, justFinished := c.quantumWindow(qStart)

	out.Zero()
	if activeStart >= activeEnd {
		if justFinished {
			c.fireEnded()
		}
		return
	}

	sr := n.sampleRate
	result := n.params["offset"].Render(float64(qStart)/sr, sr)
	data := out.Channel(0).Data()
	for i := activeStart; i < activeEnd; i++ {
		data[i] = float32(paramValueAt(result, i))
	}
	out.ClearSilent()

	if justFinished {
		c.fireEnded()
	}
}

func (c *constantSourceBehavior) TailTime() float64    { return 0 }
func (c *constantSourceBehavior) LatencyTime() float64 { return 0 }
func (c *constantSourceBehavior) Reset()               {}
