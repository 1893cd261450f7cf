package audiograph

import (
	"math"
	"testing"
)

func TestParam_LinearRampInterpolatesAndHoldsAfter(t *testing.T) {
	t.Log("a linear ramp from 0 to 1 over one second should sit at the midpoint at t=0.5 and hold at 1 afterward")
	p := NewParam(0)
	p.SetValueAt(0, 0)
	p.LinearRampTo(1, 1.0)

	if v := p.evalAt(0.5); math.Abs(v-0.5) > 1e-9 {
		t.Fatalf("expected midpoint 0.5, got %v", v)
	}
	if v := p.evalAt(2.0); v != 1 {
		t.Fatalf("expected the ramp to hold at its final value after it completes, got %v", v)
	}
}

func TestParam_ExponentialRampInterpolatesGeometrically(t *testing.T) {
	p := NewParam(1)
	p.SetValueAt(1, 0)
	p.ExponentialRampTo(100, 1.0)

	got := p.evalAt(0.5)
	want := math.Sqrt(100) // geometric midpoint of 1 -> 100
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("expected geometric interpolation %v, got %v", want, got)
	}
}

func TestParam_ExponentialRampToNonPositiveFallsBackToLinear(t *testing.T) {
	t.Log("ramping to zero or below must fall back to a linear ramp rather than producing NaN/Inf")
	p := NewParam(1)
	p.SetValueAt(1, 0)
	p.ExponentialRampTo(0, 1.0)

	got := p.evalAt(0.5)
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("expected a finite fallback value, got %v", got)
	}
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected the linear-ramp fallback midpoint 0.5, got %v", got)
	}
}

func TestParam_SetTargetApproachesAsymptotically(t *testing.T) {
	p := NewParam(0)
	p.SetTargetAt(1, 0, 0.1)

	v1 := p.evalAt(0.1)
	v2 := p.evalAt(1.0)
	if !(v1 > 0 && v1 < v2 && v2 < 1) {
		t.Fatalf("expected a monotonically increasing approach toward but never reaching 1, got v1=%v v2=%v", v1, v2)
	}
}

func TestParam_SetValueCurveInterpolatesAcrossTable(t *testing.T) {
	p := NewParam(0)
	p.SetValueCurveAt([]float64{0, 1, 0}, 0, 1.0)

	if v := p.evalAt(0.25); math.Abs(v-0.5) > 1e-9 {
		t.Fatalf("expected 0.5 a quarter through the up-ramp, got %v", v)
	}
	if v := p.evalAt(0.5); math.Abs(v-1) > 1e-9 {
		t.Fatalf("expected the curve's peak at the midpoint, got %v", v)
	}
	if v := p.evalAt(1.5); v != 0 {
		t.Fatalf("expected the curve's final value to hold past its duration, got %v", v)
	}
}

func TestParam_CancelScheduledValuesRemovesFutureEvents(t *testing.T) {
	p := NewParam(0)
	p.SetValueAt(1, 0)
	p.LinearRampTo(2, 1)
	p.CancelScheduledValues(0.5)

	if v := p.evalAt(2.0); v != 1 {
		t.Fatalf("expected the canceled ramp's target to no longer apply, got %v", v)
	}
}

func TestParam_RenderReturnsConstantWhenNoEventSpansQuantum(t *testing.T) {
	t.Log("a param with no automation in-flight should render as a single k-rate constant, not Q samples")
	p := NewParam(0.75)
	result := p.Render(0, 44100)
	if !result.Constant || result.Value != 0.75 {
		t.Fatalf("expected a k-rate constant of 0.75, got %+v", result)
	}
}

func TestParam_RenderFillsSamplesWhenEventSpansQuantum(t *testing.T) {
	p := NewParam(0)
	p.SetValueAt(0, 0)
	p.LinearRampTo(1, float64(Q)/44100/2) // ramp completes mid-quantum

	result := p.Render(0, 44100)
	if result.Constant {
		t.Fatal("expected a-rate sample-accurate rendering while a ramp is in-flight")
	}
	if len(result.Samples) != Q {
		t.Fatalf("expected exactly Q=%d samples, got %d", Q, len(result.Samples))
	}
	if result.Samples[0] != 0 {
		t.Fatalf("expected the ramp to start at 0, got %v", result.Samples[0])
	}
	if result.Samples[Q-1] != 1 {
		t.Fatalf("expected the ramp to have reached 1 by quantum end, got %v", result.Samples[Q-1])
	}
}

func TestParam_ValueContinuityAcrossQuantumBoundary(t *testing.T) {
	t.Log("Render must leave the intrinsic value at the last sample computed, so the next quantum picks up without a jump")
	p := NewParam(0)
	p.SetValueAt(0, 0)
	p.LinearRampTo(1, 2*float64(Q)/44100) // spans two quanta

	r1 := p.Render(0, 44100)
	boundary := r1.Samples[Q-1]
	if v := p.Value(); v != float64(boundary) {
		t.Fatalf("expected the intrinsic value to equal the last rendered sample %v, got %v", boundary, v)
	}

	r2 := p.Render(float64(Q)/44100, 44100)
	step := boundary - r1.Samples[Q-2]
	if r2.Samples[0] != boundary+step {
		t.Fatalf("expected the second quantum's first sample %v to continue one ramp step past the first quantum's last sample %v without a jump", r2.Samples[0], boundary)
	}
}

func TestParam_SetRangeClampsIntrinsicAndRender(t *testing.T) {
	p := NewParam(0)
	p.SetRange(-1, 1)
	p.SetValueImmediate(5)
	if v := p.Value(); v != 1 {
		t.Fatalf("expected SetValueImmediate to clamp to the range max, got %v", v)
	}

	p.SetValueAt(10, 0)
	result := p.Render(0, 44100)
	if !result.Constant || result.Value != 1 {
		t.Fatalf("expected Render to clamp the constant path too, got %+v", result)
	}
}
