// fft.go - power-of-two real FFT wrapper (spec §L2, §4.8, §4.9).
//
// Wraps github.com/MeKo-Christian/algo-fft so the HRTF kernel loader and
// the partitioned reverb convolver never touch complex arithmetic
// directly. Kept to one file: a signature mismatch against the real
// library is a one-file fix (see DESIGN.md).

package audiograph

import (
	"math"
	"math/cmplx"

	fft "github.com/MeKo-Christian/algo-fft"
)

// nextPow2 returns the smallest power of two >= n.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// FrequencyFrame holds a forward-transformed, zero-padded real signal.
type FrequencyFrame struct {
	bins []complex128
	size int // time-domain (padded) size this frame corresponds to
}

// ForwardReal zero-pads real to the next power of two at least as large
// as minSize and returns its forward FFT.
func ForwardReal(real []float32, minSize int) *FrequencyFrame {
	n := nextPow2(minSize)
	if n < nextPow2(len(real)) {
		n = nextPow2(len(real))
	}
	in := make([]complex128, n)
	for i, v := range real {
		in[i] = complex(float64(v), 0)
	}
	return &FrequencyFrame{bins: fft.Forward(in), size: n}
}

// Inverse runs the inverse FFT and returns the real part, truncated/
// zero-padded to outLen samples.
func (f *FrequencyFrame) Inverse(outLen int) []float32 {
	td := fft.Inverse(f.bins)
	out := make([]float32, outLen)
	for i := 0; i < outLen && i < len(td); i++ {
		out[i] = float32(real(td[i]))
	}
	return out
}

func (f *FrequencyFrame) Size() int { return f.size }

// magnitudeAt returns the magnitude of bin i (used by AnalyserNode's
// frequency-domain tap).
func (f *FrequencyFrame) magnitudeAt(i int) float64 {
	if i < 0 || i >= len(f.bins) {
		return 0
	}
	return cmplx.Abs(f.bins[i])
}

// Multiply returns the pointwise (complex) product of two equal-length
// frequency-domain frames — the frequency-domain equivalent of time-domain
// convolution (used by the reverb convolver's per-stage multiply, §4.9).
func (f *FrequencyFrame) Multiply(other *FrequencyFrame) *FrequencyFrame {
	n := len(f.bins)
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		out[i] = f.bins[i] * other.bins[i]
	}
	return &FrequencyFrame{bins: out, size: f.size}
}

// InterpolateMagnitudePhase builds a new frequency frame whose magnitude
// and unwrapped phase are linearly interpolated between a and b at
// position x in [0,1] — used by HRTF kernel interpolation (spec §L2,
// §4.8: "interpolation at x=0 equals kernel A, x=1 equals kernel B").
func InterpolateMagnitudePhase(a, b *FrequencyFrame, x float64) *FrequencyFrame {
	n := len(a.bins)
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		ma, pa := cmplx.Polar(a.bins[i])
		mb, pb := cmplx.Polar(b.bins[i])
		pb = unwrapPhase(pa, pb)
		m := ma + (mb-ma)*x
		p := pa + (pb-pa)*x
		out[i] = cmplx.Rect(m, p)
	}
	return &FrequencyFrame{bins: out, size: a.size}
}

// unwrapPhase adjusts pb by a multiple of 2π so it is the representative
// closest to pa, avoiding interpolation artefacts across the +-π seam.
func unwrapPhase(pa, pb float64) float64 {
	for pb-pa > math.Pi {
		pb -= 2 * math.Pi
	}
	for pb-pa < -math.Pi {
		pb += 2 * math.Pi
	}
	return pb
}
