// convolver_node.go - ConvolverNode: a NodeBehavior wrapper around
// ReverbConvolver exposing partitioned FFT convolution against a
// user-supplied impulse response as a graph node (spec §4.9, §6
// ConvolverNode{impulse, normalize}).
//
// Grounded on LabSound's ConvolverNode.cpp (original_source) for the
// mono/stereo impulse handling and the RMS-based normalize formula (the
// same GainCalibration constant the Web Audio API specification uses),
// layered on top of this module's own ReverbConvolver.

package audiograph

import "math"

const (
	convolverGainCalibration           = 0.00125
	convolverGainCalibrationSampleRate = 44100.0
	convolverMinPower                  = 0.000125
)

type convolverBehavior struct {
	rc        *ReverbConvolver
	normalize bool
	sampleRate float64
}

// NewConvolverNode builds a ConvolverNode from a mono or stereo impulse
// response (impulseR nil for mono). When normalize is true the impulse
// is scaled by an RMS-based calibration factor before partitioning,
// matching the Web Audio API specification's ConvolverNode.normalize
// default behavior (spec §6).
func NewConvolverNode(ctx *Context, impulseL, impulseR []float32, normalize bool) *Node {
	if normalize {
		scale := float32(calibrateGain(impulseL, impulseR, ctx.sampleRate))
		impulseL = scaleCopy(impulseL, scale)
		if impulseR != nil {
			impulseR = scaleCopy(impulseR, scale)
		}
	}

	b := &convolverBehavior{
		rc:         NewReverbConvolver(impulseL, impulseR),
		normalize:  normalize,
		sampleRate: ctx.sampleRate,
	}
	outChannels := 1
	if impulseR != nil {
		outChannels = 2
	}
	n := ctx.newNode(KindConvolver, b, outChannels, ClampedMax, Speakers, 1, 1)
	return n
}

// calibrateGain computes the RMS-based normalization scale factor: the
// impulse is scaled so that its power, referenced to a fixed calibration
// sample rate, matches convolverGainCalibration (Web Audio API
// ConvolverNode normalization algorithm).
func calibrateGain(impulseL, impulseR []float32, sampleRate float64) float64 {
	power := sumOfSquares(impulseL) + sumOfSquares(impulseR)
	if power < convolverMinPower {
		power = convolverMinPower
	}

	length := float64(len(impulseL))
	if len(impulseR) > len(impulseL) {
		length = float64(len(impulseR))
	}
	rmsPower := math.Sqrt(power / (2 * length))
	if rmsPower == 0 {
		rmsPower = 1
	}

	scale := 1.0 / rmsPower
	scale *= convolverGainCalibration
	scale *= convolverGainCalibrationSampleRate / sampleRate
	return scale
}

func sumOfSquares(buf []float32) float64 {
	var sum float64
	for _, v := range buf {
		sum += float64(v) * float64(v)
	}
	return sum
}

func scaleCopy(buf []float32, scale float32) []float32 {
	out := make([]float32, len(buf))
	for i, v := range buf {
		out[i] = v * scale
	}
	return out
}

func (c *convolverBehavior) Process(n *Node, frames int) {
	in := n.Inputs[0].Bus()
	out := n.Outputs[0]

	left := monoOrChannel(in, 0)
	var right []float32
	if out.bus.NumChannels() > 1 {
		if in.NumChannels() > 1 {
			right = monoOrChannel(in, 1)
		} else {
			right = left
		}
	}

	outL, outR := c.rc.Process(left, right)
	copy(out.bus.Channel(0).Data(), outL)
	if out.bus.NumChannels() > 1 {
		copy(out.bus.Channel(1).Data(), outR)
	}
	out.bus.ClearSilent()
}

func (c *convolverBehavior) TailTime() float64 {
	return float64(c.rc.impulseLength) / c.sampleRate
}
func (c *convolverBehavior) LatencyTime() float64 { return 0 }
func (c *convolverBehavior) Reset()               { c.rc.Reset() }
