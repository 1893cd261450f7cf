// oscillator_node.go - OscillatorNode: a scheduled periodic waveform
// source (spec §6 OscillatorNode{type, frequency, detune}).
//
// Grounded directly on the teacher's generateSample phase-accumulator in
// audio_chip.go (osc.phase advanced each sample by frequency/sampleRate,
// with polyBLEP anti-aliasing on the sawtooth/square/triangle shapes),
// reusing dsp_lut.go's fastSin/polyBLEP32 for the same lookup-table
// technique, now driven by an automatable Param instead of a register
// write.

package audiograph

import "math"

// WaveformType selects the oscillator's waveform shape.
type WaveformType int

const (
	Sine WaveformType = iota
	Square
	Sawtooth
	Triangle
)

type oscillatorBehavior struct {
	ScheduledSource

	waveform WaveformType
	phase    float32
}

// NewOscillatorNode constructs a periodic source with frequency and
// detune params (spec §6 OscillatorNode{type, frequency, detune}).
func NewOscillatorNode(ctx *Context, waveform WaveformType) *Node {
	b := &oscillatorBehavior{waveform: waveform}
	n := ctx.newNode(KindOscillator, b, 1, Explicit, Speakers, 0, 1)

	freq := NewParam(440)
	freq.SetRange(0, ctx.sampleRate/2)
	n.addParam("frequency", freq)

	detune := NewParam(0)
	detune.SetRange(-153600, 153600)
	n.addParam("detune", detune)

	return n
}

func (o *oscillatorBehavior) Process(n *Node, frames int) {
	out := n.Outputs[0].bus
	qStart := quantumStartFrame(n)
	activeStart, activeEnd, justFinished := o.quantumWindow(qStart)

	out.Zero()
	if activeStart >= activeEnd {
		if justFinished {
			o.fireEnded()
		}
		return
	}

	sr := n.sampleRate
	freqResult := n.params["frequency"].Render(float64(qStart)/sr, sr)
	detuneResult := n.params["detune"].Render(float64(qStart)/sr, sr)

	data := out.Channel(0).Data()
	for i := activeStart; i < activeEnd; i++ {
		freq := paramValueAt(freqResult, i) * math.Exp2(paramValueAt(detuneResult, i)/1200.0)
		dt := float32(freq / sr)

		var v float32
		t := o.phase / twoPi
		switch o.waveform {
		case Sine:
			v = fastSin(o.phase)
		case Square:
			v = 1
			if t >= 0.5 {
				v = -1
			}
			v += polyBLEP32(t, dt)
			v -= polyBLEP32(float32(math.Mod(float64(t+0.5), 1)), dt)
		case Sawtooth:
			v = 2*t - 1
			v -= polyBLEP32(t, dt)
		case Triangle:
			saw := 2*t - 1
			if saw < 0 {
				saw = -saw
			}
			v = 2*saw - 1
		}

		data[i] = v
		o.phase += dt * twoPi
		if o.phase >= twoPi {
			o.phase -= twoPi
		}
	}
	out.ClearSilent()

	if justFinished {
		o.fireEnded()
	}
}

func (o *oscillatorBehavior) TailTime() float64    { return 0 }
func (o *oscillatorBehavior) LatencyTime() float64 { return 0 }
func (o *oscillatorBehavior) Reset()               { o.phase = 0 }
