package audiograph

import (
	"math"
	"testing"
)

func TestDelayNode_ImpulseResponseLandsAtExpectedOffset(t *testing.T) {
	t.Log("a unit impulse through a 50-sample delay should reappear ~50 samples later and nowhere else in the quantum")
	ctx := newTestContext(t, 44100)

	const delayFrames = 50
	delaySeconds := float64(delayFrames) / ctx.sampleRate

	delay := NewDelayNode(ctx, 0.01)
	delay.Param("delayTime").SetValueImmediate(delaySeconds)

	in := delay.Inputs[0].Bus()
	in.Resize(1)
	in.Channel(0).Set(0, 1.0)

	delay.behavior.Process(delay, Q)

	out := delay.Outputs[0].Bus().Channel(0).Data()

	var peakIdx int
	var peak float32
	for i, v := range out {
		if a := float32(math.Abs(float64(v))); a > peak {
			peak = a
			peakIdx = i
		}
	}
	if peak < 0.9 {
		t.Fatalf("expected the impulse echo to be near full amplitude, got peak %v at index %d", peak, peakIdx)
	}
	if d := peakIdx - delayFrames; d < -1 || d > 1 {
		t.Fatalf("expected the echo near sample %d, found it at %d", delayFrames, peakIdx)
	}
	for i, v := range out {
		if i >= peakIdx-1 && i <= peakIdx+1 {
			continue
		}
		if math.Abs(float64(v)) > 1e-4 {
			t.Fatalf("expected near-silence away from the echo, got %v at index %d", v, i)
		}
	}
}

func TestDelayNode_ZeroDelayPassesThroughSameQuantum(t *testing.T) {
	t.Log("a delayTime of zero should let the signal pass through within the same quantum (spec §4.7)")
	ctx := newTestContext(t, 44100)

	delay := NewDelayNode(ctx, 0.01)
	delay.Param("delayTime").SetValueImmediate(0)

	in := delay.Inputs[0].Bus()
	in.Resize(1)
	in.Channel(0).Set(10, 1.0)

	delay.behavior.Process(delay, Q)

	out := delay.Outputs[0].Bus().Channel(0).Data()
	if math.Abs(float64(out[10])-1.0) > 1e-4 {
		t.Fatalf("expected zero-delay passthrough at index 10, got %v", out[10])
	}
}
