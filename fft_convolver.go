// fft_convolver.go - a single overlap-add FFT convolution stage, shared
// by the HRTF panner's per-ear convolvers (spec §4.8) and each partition
// of the reverb convolver (spec §4.9).
//
// Grounded on LabSound's FFTConvolver.cpp (original_source): a
// precomputed frequency-domain kernel, one forward transform per input
// block, and a carried-over overlap tail added into the next block's
// output.

package audiograph

// OverlapAddConvolver performs block convolution with a fixed
// frequency-domain kernel using the overlap-add method: each Process
// call consumes len(input) fresh samples and returns the same number of
// convolved output samples, carrying the linear-convolution tail forward
// into the next call.
type OverlapAddConvolver struct {
	fftSize int
	overlap []float32
}

// NewOverlapAddConvolver creates a convolver whose FFT size is large
// enough to cover blockSize+kernelSize-1 without circular wrap-around.
func NewOverlapAddConvolver(blockSize, kernelSize int) *OverlapAddConvolver {
	fftSize := nextPow2(blockSize + kernelSize - 1)
	return &OverlapAddConvolver{fftSize: fftSize, overlap: make([]float32, fftSize)}
}

// Process convolves input (length <= fftSize) against kernel (a
// FrequencyFrame already transformed at this convolver's fftSize) and
// returns len(input) output samples.
func (c *OverlapAddConvolver) Process(kernel *FrequencyFrame, input []float32) []float32 {
	n := len(input)
	inputFrame := ForwardReal(input, c.fftSize)
	product := inputFrame.Multiply(kernel)
	full := product.Inverse(c.fftSize)

	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = full[i] + c.overlap[i]
	}

	newOverlap := make([]float32, c.fftSize)
	for i := 0; i+n < c.fftSize; i++ {
		newOverlap[i] = full[i+n] + c.overlap[i+n]
	}
	c.overlap = newOverlap

	return out
}

func (c *OverlapAddConvolver) Reset() {
	for i := range c.overlap {
		c.overlap[i] = 0
	}
}
