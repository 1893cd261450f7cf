// sampled_source_node.go - SampledAudioNode: plays a static Bus with
// sample-accurate start/stop, playback-rate/doppler resampling and
// looping (spec §3 L9, §4.6).
//
// Grounded on the teacher's generateSample oscillator-phase-accumulator
// pattern in audio_chip.go (a running fractional read position advanced
// by a rate each sample), generalized from a synthesized waveform table
// to an arbitrary decoded Bus, with linear interpolation standing in for
// the teacher's nearest-sample lookups.

package audiograph

import "math"

// SampledAudioNode plays back a shared, immutable Bus (spec §5 "Buses
// loaded from files are refcounted and immutable after load").
type SampledAudioNode struct {
	ScheduledSource

	buffer *Bus

	loop      bool
	loopStart float64 // seconds
	loopEnd   float64 // seconds; 0 means "end of buffer"

	readPos float64 // fractional frame offset into buffer, advanced across quanta
}

// NewSampledAudioNode constructs the node and wires its playbackRate,
// detune and dopplerRate params plus its loop settings (spec §6
// SampledAudioNode{bus, playbackRate, detune, loop}).
func NewSampledAudioNode(ctx *Context, buffer *Bus) *Node {
	b := &SampledAudioNode{buffer: buffer}
	channels := 1
	if buffer != nil {
		channels = buffer.NumChannels()
	}
	n := ctx.newNode(KindSampledSource, b, channels, Max, Speakers, 0, 1)

	playbackRate := NewParam(1)
	playbackRate.SetRange(0, 32)
	n.addParam("playbackRate", playbackRate)

	detune := NewParam(0)
	detune.SetRange(-153600, 153600)
	n.addParam("detune", detune)

	dopplerRate := NewParam(1)
	dopplerRate.SetRange(0, 32)
	n.addParam("dopplerRate", dopplerRate)

	n.addSetting("loop", NewBoolSetting(false))
	n.addSetting("loopStart", NewFloatSetting(0))
	n.addSetting("loopEnd", NewFloatSetting(0))

	return n
}

// SetLoop configures wrap-around within the source bus (spec §4.6); an
// end of 0 wraps at the buffer's own length.
func (s *SampledAudioNode) SetLoop(enable bool, startSeconds, endSeconds float64) {
	s.loop = enable
	s.loopStart = startSeconds
	s.loopEnd = endSeconds
}

func (s *SampledAudioNode) Process(n *Node, frames int) {
	out := n.Outputs[0].bus
	qStart := quantumStartFrame(n)
	activeStart, activeEnd, justFinished := s.quantumWindow(qStart)

	out.Zero()

	if s.buffer == nil || activeStart >= activeEnd {
		if justFinished {
			s.fireEnded()
		}
		return
	}

	sr := n.sampleRate
	rate := n.params["playbackRate"].Render(float64(qStart)/sr, sr)
	detune := n.params["detune"].Render(float64(qStart)/sr, sr)
	doppler := n.params["dopplerRate"].Render(float64(qStart)/sr, sr)

	loopEndFrames := float64(s.buffer.Frames())
	loopStartFrames := s.loopStart * s.buffer.SampleRate()
	if s.loop && s.loopEnd > 0 {
		loopEndFrames = s.loopEnd * s.buffer.SampleRate()
	}

	outChannels := out.NumChannels()
	srcChannels := s.buffer.NumChannels()

	for i := activeStart; i < activeEnd; i++ {
		detuneRatio := math.Exp2(paramValueAt(detune, i) / 1200.0)
		step := paramValueAt(rate, i) * paramValueAt(doppler, i) * detuneRatio
		if step < 0 {
			step = 0
		}

		pos := s.readPos
		if pos >= loopEndFrames {
			if s.loop {
				span := loopEndFrames - loopStartFrames
				if span <= 0 {
					pos = loopStartFrames
				} else {
					for pos >= loopEndFrames {
						pos -= span
					}
				}
			} else {
				s.readPos = pos
				break
			}
		}

		for c := 0; c < outChannels; c++ {
			srcChan := c
			if srcChan >= srcChannels {
				srcChan = srcChannels - 1
			}
			out.Channel(c).Set(i, linearSample(s.buffer.Channel(srcChan).Data(), pos))
		}

		s.readPos = pos + step
	}

	if justFinished {
		s.fireEnded()
	}
}

// paramValueAt reads a RenderResult at sample offset i, whether it came
// back as a k-rate constant or an a-rate sample array.
func paramValueAt(r RenderResult, i int) float64 {
	if r.Constant {
		return r.Value
	}
	if i < 0 {
		i = 0
	}
	if i >= len(r.Samples) {
		i = len(r.Samples) - 1
	}
	return float64(r.Samples[i])
}

// linearSample reads buf at a fractional frame position with linear
// interpolation between adjacent frames, clamping at the ends (spec
// §4.6: "no band-limiting, documented tradeoff").
func linearSample(buf []float32, pos float64) float32 {
	if len(buf) == 0 {
		return 0
	}
	if pos < 0 {
		return buf[0]
	}
	i0 := int(pos)
	if i0 >= len(buf)-1 {
		return buf[len(buf)-1]
	}
	frac := float32(pos - float64(i0))
	return buf[i0]*(1-frac) + buf[i0+1]*frac
}

// quantumStartFrame recovers the frame offset of the quantum currently
// being processed from the node's own last-pull quantum counter.
func quantumStartFrame(n *Node) uint64 {
	if n.lastPull == 0 {
		return 0
	}
	return (n.lastPull - 1) * Q
}

func (s *SampledAudioNode) TailTime() float64    { return 0 }
func (s *SampledAudioNode) LatencyTime() float64 { return 0 }
func (s *SampledAudioNode) Reset()               { s.readPos = 0 }
