// hrtf_kernel.go - HRTFKernel: a frequency-domain impulse response plus
// its extracted frame delay (spec §3 "HRTFKernel", GLOSSARY).
//
// Grounded on LabSound's HRTFKernel.cpp/.h (original_source). The frame
// delay is taken as the impulse's peak sample index and removed by a
// circular shift; no group-delay (phase-slope) averaging is done.

package audiograph

// HRTFKernel holds one ear's impulse response for one (azimuth,
// elevation) position: its FFT frame (with the bulk group delay removed,
// spec GLOSSARY) plus the frame delay in samples.
type HRTFKernel struct {
	frame      *FrequencyFrame
	frameDelay float64 // samples
	fftSize    int
}

// NewHRTFKernel extracts the coarse frame delay (the impulse's peak
// index) from impulse, removes it by circularly shifting the impulse to
// start at time zero, and builds the resulting FFT frame.
func NewHRTFKernel(impulse []float32, fftSize int, sampleRate float64) *HRTFKernel {
	peakIndex := 0
	peakValue := float32(0)
	for i, v := range impulse {
		a := v
		if a < 0 {
			a = -a
		}
		if a > peakValue {
			peakValue = a
			peakIndex = i
		}
	}

	shifted := make([]float32, len(impulse))
	copy(shifted, impulse[peakIndex:])
	copy(shifted[len(impulse)-peakIndex:], impulse[:peakIndex])

	return &HRTFKernel{
		frame:      ForwardReal(shifted, fftSize),
		frameDelay: float64(peakIndex),
		fftSize:    fftSize,
	}
}

func (k *HRTFKernel) FFTFrame() *FrequencyFrame { return k.frame }
func (k *HRTFKernel) FrameDelay() float64        { return k.frameDelay }

// InterpolateHRTFKernels produces a new kernel whose magnitude/phase and
// frame delay are linearly interpolated between kernel1 and kernel2 at
// position x in [0,1] (spec §4.8 step 4 "interpolated per-ear frame
// delays").
func InterpolateHRTFKernels(k1, k2 *HRTFKernel, x float64) *HRTFKernel {
	return &HRTFKernel{
		frame:      InterpolateMagnitudePhase(k1.frame, k2.frame, x),
		frameDelay: (1-x)*k1.frameDelay + x*k2.frameDelay,
		fftSize:    k1.fftSize,
	}
}
