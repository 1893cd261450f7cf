// biquad_node.go - BiquadFilterNode: Audio-EQ-Cookbook coefficients for
// eight filter types (spec §4.7).
//
// Grounded on the teacher's CombFilter/state-variable filtering in
// audio_chip.go for the per-channel direct-form-II-transposed state
// shape; the coefficient formulas themselves come from LabSound's
// Biquad.cpp (original_source), the standard Audio-EQ-Cookbook.

package audiograph

import "math"

// BiquadType selects which Audio-EQ-Cookbook formula computes the
// coefficients (spec §6 BiquadFilterNode{type,...}).
type BiquadType int

const (
	LowPass BiquadType = iota
	HighPass
	BandPass
	LowShelf
	HighShelf
	Peaking
	Notch
	AllPass
)

type biquadState struct {
	x1, x2, y1, y2 float32
}

type biquadBehavior struct {
	filterType BiquadType

	b0, b1, b2, a1, a2 float64
	coeffsValid        bool

	states []biquadState

	firstQuantum bool
}

// NewBiquadFilterNode constructs a BiquadFilterNode with frequency, Q,
// gain and detune params (spec §6 BiquadFilterNode{type, frequency, Q,
// gain, detune}).
func NewBiquadFilterNode(ctx *Context, filterType BiquadType) *Node {
	b := &biquadBehavior{filterType: filterType, firstQuantum: true}
	n := ctx.newNode(KindBiquadFilter, b, 2, Max, Speakers, 1, 1)

	freq := NewParam(350)
	freq.SetRange(0, ctx.sampleRate/2)
	n.addParam("frequency", freq)

	q := NewParam(1)
	n.addParam("Q", q)

	gain := NewParam(0)
	n.addParam("gain", gain)

	detune := NewParam(0)
	n.addParam("detune", detune)

	return n
}

func (b *biquadBehavior) Process(n *Node, frames int) {
	in := n.Inputs[0].Bus()
	out := n.Outputs[0]
	channels := in.NumChannels()
	if channels == 0 {
		channels = 1
	}
	out.bus.Resize(channels)
	for len(b.states) < channels {
		b.states = append(b.states, biquadState{})
	}

	qStart := float64(quantumStartFrame(n)) / n.sampleRate
	sr := n.sampleRate

	freq := n.params["frequency"].Value()
	detune := n.params["detune"].Value()
	q := n.params["Q"].Value()
	gain := n.params["gain"].Value()

	// Coefficients are recomputed from the params' k-rate values once per
	// quantum, never per sample (spec §4.7); the crossfade below engages
	// only when they differ from the previous quantum's.
	n.params["frequency"].Render(qStart, sr)
	n.params["detune"].Render(qStart, sr)
	n.params["Q"].Render(qStart, sr)
	n.params["gain"].Render(qStart, sr)

	effectiveFreq := freq * math.Exp2(detune/1200.0)

	prevB0, prevB1, prevB2, prevA1, prevA2 := b.b0, b.b1, b.b2, b.a1, b.a2
	wasValid := b.coeffsValid
	b.computeCoefficients(effectiveFreq, q, gain, sr)

	// A target change mid-life smooths the input toward the new response
	// over one quantum rather than snapping the coefficients outright; the
	// very first quantum (and a Reset()) instead settles directly against
	// the target, avoiding a pointless fade-in from silence (spec §4.7).
	changed := wasValid && !b.firstQuantum &&
		(b.b0 != prevB0 || b.b1 != prevB1 || b.b2 != prevB2 || b.a1 != prevA1 || b.a2 != prevA2)

	for c := 0; c < channels; c++ {
		st := &b.states[c]
		inData := in.Channel(min(c, in.NumChannels()-1)).Data()
		outData := out.bus.Channel(c).Data()

		if !changed {
			for i := 0; i < Q; i++ {
				x0 := inData[i]
				y0 := float32(b.b0)*x0 + float32(b.b1)*st.x1 + float32(b.b2)*st.x2 - float32(b.a1)*st.y1 - float32(b.a2)*st.y2
				st.x2, st.x1 = st.x1, x0
				st.y2, st.y1 = st.y1, y0
				outData[i] = y0
			}
		} else {
			old, nw := *st, *st
			for i := 0; i < Q; i++ {
				x0 := inData[i]

				yOld := float32(prevB0)*x0 + float32(prevB1)*old.x1 + float32(prevB2)*old.x2 - float32(prevA1)*old.y1 - float32(prevA2)*old.y2
				old.x2, old.x1 = old.x1, x0
				old.y2, old.y1 = old.y1, yOld

				yNew := float32(b.b0)*x0 + float32(b.b1)*nw.x1 + float32(b.b2)*nw.x2 - float32(b.a1)*nw.y1 - float32(b.a2)*nw.y2
				nw.x2, nw.x1 = nw.x1, x0
				nw.y2, nw.y1 = nw.y1, yNew

				frac := float32(i) / float32(Q)
				outData[i] = yOld*(1-frac) + yNew*frac
			}
			*st = nw
		}
		out.bus.Channel(c).MarkSilent(false)
	}
	b.firstQuantum = false
}

// computeCoefficients implements the Audio-EQ-Cookbook formulas with a
// normalized frequency f/nyquist (spec §4.7).
func (b *biquadBehavior) computeCoefficients(freq, q, gainDB, sampleRate float64) {
	nyquist := sampleRate / 2
	if nyquist <= 0 {
		return
	}
	normFreq := freq / nyquist
	if normFreq < 0 {
		normFreq = 0
	}
	if normFreq > 1 {
		normFreq = 1
	}
	w0 := math.Pi * normFreq
	sinW0, cosW0 := math.Sin(w0), math.Cos(w0)
	if q <= 0 {
		q = 0.0001
	}
	alpha := sinW0 / (2 * q)
	A := math.Pow(10, gainDB/40)

	var b0, b1, b2, a0, a1, a2 float64

	switch b.filterType {
	case LowPass:
		b0 = (1 - cosW0) / 2
		b1 = 1 - cosW0
		b2 = (1 - cosW0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case HighPass:
		b0 = (1 + cosW0) / 2
		b1 = -(1 + cosW0)
		b2 = (1 + cosW0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case BandPass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case Notch:
		b0 = 1
		b1 = -2 * cosW0
		b2 = 1
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case AllPass:
		b0 = 1 - alpha
		b1 = -2 * cosW0
		b2 = 1 + alpha
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case Peaking:
		b0 = 1 + alpha*A
		b1 = -2 * cosW0
		b2 = 1 - alpha*A
		a0 = 1 + alpha/A
		a1 = -2 * cosW0
		a2 = 1 - alpha/A
	case LowShelf:
		sqrtA := math.Sqrt(A)
		beta := math.Sqrt(A) * alpha * 2 // approximation consistent with cookbook shelving slope=1
		b0 = A * ((A + 1) - (A-1)*cosW0 + beta)
		b1 = 2 * A * ((A - 1) - (A+1)*cosW0)
		b2 = A * ((A + 1) - (A-1)*cosW0 - beta)
		a0 = (A + 1) + (A-1)*cosW0 + beta
		a1 = -2 * ((A - 1) + (A+1)*cosW0)
		a2 = (A + 1) + (A-1)*cosW0 - beta
		_ = sqrtA
	case HighShelf:
		beta := math.Sqrt(A) * alpha * 2
		b0 = A * ((A + 1) + (A-1)*cosW0 + beta)
		b1 = -2 * A * ((A - 1) + (A+1)*cosW0)
		b2 = A * ((A + 1) + (A-1)*cosW0 - beta)
		a0 = (A + 1) - (A-1)*cosW0 + beta
		a1 = 2 * ((A - 1) - (A+1)*cosW0)
		a2 = (A + 1) - (A-1)*cosW0 - beta
	}

	if a0 == 0 {
		a0 = 1
	}
	b.b0, b.b1, b.b2 = b0/a0, b1/a0, b2/a0
	b.a1, b.a2 = a1/a0, a2/a0
	b.coeffsValid = true
}

func (b *biquadBehavior) TailTime() float64    { return 0.1 }
func (b *biquadBehavior) LatencyTime() float64 { return 0 }
func (b *biquadBehavior) Reset() {
	for i := range b.states {
		b.states[i] = biquadState{}
	}
	b.firstQuantum = true
}
