// analyser_node.go - AnalyserNode: a pass-through tap that maintains a
// running time-domain ring buffer and an FFT-derived frequency bin array
// for external polling (spec §6 AnalyserNode{fftSize,
// smoothingTimeConstant, minDecibels, maxDecibels}).

package audiograph

import "math"

type analyserBehavior struct {
	fftSize               int
	smoothingTimeConstant float64
	minDecibels           float64
	maxDecibels           float64

	timeDomain   []float32 // ring buffer, length fftSize
	writePos     int
	smoothedMags []float64 // length fftSize/2, exponentially smoothed magnitude
}

// NewAnalyserNode constructs an AnalyserNode; fftSize must be a power of
// two (callers get nextPow2 applied defensively).
func NewAnalyserNode(ctx *Context, fftSize int, smoothingTimeConstant, minDecibels, maxDecibels float64) *Node {
	fftSize = nextPow2(fftSize)
	b := &analyserBehavior{
		fftSize:               fftSize,
		smoothingTimeConstant: smoothingTimeConstant,
		minDecibels:           minDecibels,
		maxDecibels:           maxDecibels,
		timeDomain:            make([]float32, fftSize),
		smoothedMags:          make([]float64, fftSize/2),
	}
	n := ctx.newNode(KindAnalyser, b, 2, Max, Speakers, 1, 1)
	return n
}

func (a *analyserBehavior) Process(n *Node, frames int) {
	in := n.Inputs[0].Bus()
	out := n.Outputs[0]
	out.bus.CopyFrom(in, Speakers)

	mono := monoDownmix(in)
	for _, v := range mono {
		a.timeDomain[a.writePos] = v
		a.writePos = (a.writePos + 1) % a.fftSize
	}

	frame := ForwardReal(a.orderedTimeDomain(), a.fftSize)
	for i := range a.smoothedMags {
		mag := frame.magnitudeAt(i)
		a.smoothedMags[i] = a.smoothingTimeConstant*a.smoothedMags[i] + (1-a.smoothingTimeConstant)*mag
	}
}

// orderedTimeDomain returns the ring buffer contents in chronological
// order (oldest first).
func (a *analyserBehavior) orderedTimeDomain() []float32 {
	ordered := make([]float32, a.fftSize)
	copy(ordered, a.timeDomain[a.writePos:])
	copy(ordered[a.fftSize-a.writePos:], a.timeDomain[:a.writePos])
	return ordered
}

// FrequencyBinCount is half the FFT size (spec's AnalyserNode convention).
func (a *analyserBehavior) FrequencyBinCount() int { return a.fftSize / 2 }

// FloatFrequencyData writes the current smoothed magnitudes in dB into
// out, clamped to [minDecibels, maxDecibels].
func (a *analyserBehavior) FloatFrequencyData(out []float32) {
	for i := 0; i < len(out) && i < len(a.smoothedMags); i++ {
		db := 20 * math.Log10(a.smoothedMags[i]+1e-12)
		if db < a.minDecibels {
			db = a.minDecibels
		}
		if db > a.maxDecibels {
			db = a.maxDecibels
		}
		out[i] = float32(db)
	}
}

// FloatTimeDomainData copies the current ring buffer, chronologically
// ordered, into out.
func (a *analyserBehavior) FloatTimeDomainData(out []float32) {
	ordered := a.orderedTimeDomain()
	copy(out, ordered)
}

func (a *analyserBehavior) TailTime() float64    { return 0 }
func (a *analyserBehavior) LatencyTime() float64 { return 0 }
func (a *analyserBehavior) Reset() {
	for i := range a.timeDomain {
		a.timeDomain[i] = 0
	}
	for i := range a.smoothedMags {
		a.smoothedMags[i] = 0
	}
	a.writePos = 0
}
