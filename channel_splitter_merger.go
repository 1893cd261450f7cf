// channel_splitter_merger.go - ChannelSplitterNode and ChannelMergerNode
// (spec §6 ChannelSplitterNode(n)/ChannelMergerNode(n)): explicit,
// Discrete-interpretation routing nodes used to break a multi-channel
// bus into independent mono outputs and reassemble independent inputs
// into one bus.

package audiograph

type channelSplitterBehavior struct {
	numChannels int
}

// NewChannelSplitterNode constructs a node with one input and
// numChannels mono outputs, each output carrying one input channel.
func NewChannelSplitterNode(ctx *Context, numChannels int) *Node {
	b := &channelSplitterBehavior{numChannels: numChannels}
	// Max mode on the single input: it must carry however many channels
	// its upstream actually provides (e.g. 6 for a 5.1 source), not a
	// fixed explicit count — only the per-output channel count (1, mono)
	// is fixed.
	n := ctx.newNode(KindChannelSplitter, b, 1, Max, Discrete, 1, numChannels)
	return n
}

func (s *channelSplitterBehavior) Process(n *Node, frames int) {
	in := n.Inputs[0].Bus()
	for idx, out := range n.Outputs {
		out.bus.Resize(1)
		if idx < in.NumChannels() {
			copy(out.bus.Channel(0).Data(), in.Channel(idx).Data())
			out.bus.Channel(0).MarkSilent(in.Channel(idx).IsSilent())
		} else {
			out.bus.Zero()
		}
	}
}

func (s *channelSplitterBehavior) TailTime() float64    { return 0 }
func (s *channelSplitterBehavior) LatencyTime() float64 { return 0 }
func (s *channelSplitterBehavior) Reset()               {}

type channelMergerBehavior struct {
	numChannels int
}

// NewChannelMergerNode constructs a node with numChannels mono inputs and
// one output bus of numChannels channels, each channel taken from input
// i's first channel.
func NewChannelMergerNode(ctx *Context, numChannels int) *Node {
	b := &channelMergerBehavior{numChannels: numChannels}
	n := ctx.newNode(KindChannelMerger, b, numChannels, Explicit, Discrete, numChannels, 1)
	// Each of the numChannels inputs is explicitly mono; newNode's
	// channelCount parameter above was the *output* bus width, so
	// override the input-negotiation count separately.
	n.channelCount = 1
	return n
}

func (m *channelMergerBehavior) Process(n *Node, frames int) {
	out := n.Outputs[0]
	out.bus.Resize(m.numChannels)
	for idx, in := range n.Inputs {
		b := in.Bus()
		if idx >= out.bus.NumChannels() {
			break
		}
		if b.NumChannels() == 0 || b.IsSilent() {
			out.bus.Channel(idx).Zero()
			continue
		}
		copy(out.bus.Channel(idx).Data(), b.Channel(0).Data())
		out.bus.Channel(idx).MarkSilent(false)
	}
}

func (m *channelMergerBehavior) TailTime() float64    { return 0 }
func (m *channelMergerBehavior) LatencyTime() float64 { return 0 }
func (m *channelMergerBehavior) Reset()               {}
