// dsp_lut.go - lookup-table DSP helpers shared by the oscillator and
// waveshaper nodes.
//
// Adapted from the teacher's audio_lut.go: same sin/tanh lookup-table
// shapes and polyBLEP anti-aliasing correction, renamed into this
// package and kept float32 throughout to match Bus storage.

package audiograph

import "math"

const (
	sinLUTSize  = 8192
	sinLUTMask  = sinLUTSize - 1
	tanhLUTSize = 4096
	tanhLUTMin  = float32(-4.0)
	tanhLUTMax  = float32(4.0)
)

const (
	twoPi        = float32(2 * math.Pi)
	sinLUTScale  = float32(sinLUTSize) / twoPi
	tanhLUTScale = float32(tanhLUTSize-1) / (tanhLUTMax - tanhLUTMin)
)

var sinLUT [sinLUTSize]float32
var tanhLUT [tanhLUTSize]float32

func init() {
	for i := 0; i < sinLUTSize; i++ {
		phase := float64(i) * 2 * math.Pi / float64(sinLUTSize)
		sinLUT[i] = float32(math.Sin(phase))
	}
	for i := 0; i < tanhLUTSize; i++ {
		x := float64(tanhLUTMin) + float64(i)*float64(tanhLUTMax-tanhLUTMin)/float64(tanhLUTSize-1)
		tanhLUT[i] = float32(math.Tanh(x))
	}
}

// fastSin returns sin(phase) via a lookup table with linear interpolation.
// phase is wrapped to [0, 2π) first.
func fastSin(phase float32) float32 {
	if phase < 0 {
		phase += twoPi
		if phase < 0 {
			phase = phase - twoPi*float32(int(phase/twoPi)-1)
		}
	} else if phase >= twoPi {
		phase = phase - twoPi*float32(int(phase/twoPi))
	}

	indexF := phase * sinLUTScale
	index := int(indexF)
	frac := indexF - float32(index)

	index &= sinLUTMask
	nextIndex := (index + 1) & sinLUTMask

	return sinLUT[index] + frac*(sinLUT[nextIndex]-sinLUT[index])
}

// fastTanh returns tanh(x) via a lookup table with linear interpolation,
// clamped to [-4, 4] (tanh saturates quickly outside that range).
func fastTanh(x float32) float32 {
	if x <= tanhLUTMin {
		return -1.0
	}
	if x >= tanhLUTMax {
		return 1.0
	}

	indexF := (x - tanhLUTMin) * tanhLUTScale
	index := int(indexF)
	frac := indexF - float32(index)

	if index < 0 {
		return tanhLUT[0]
	}
	if index >= tanhLUTSize-1 {
		return tanhLUT[tanhLUTSize-1]
	}

	return tanhLUT[index] + frac*(tanhLUT[index+1]-tanhLUT[index])
}

// polyBLEP32 applies polynomial band-limited step correction, used by the
// oscillator's sawtooth and square waveforms to suppress aliasing at
// discontinuities. t is the normalized phase (0..1), dt the phase
// increment per sample (frequency/sampleRate).
func polyBLEP32(t, dt float32) float32 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1.0
	} else if t > 1.0-dt {
		t = (t - 1.0) / dt
		return t*t + t + t + 1.0
	}
	return 0.0
}
