package audiograph

import (
	"math"
	"testing"
)

func fillDC(b *Bus, values ...float32) {
	for ci, v := range values {
		ch := b.Channel(ci)
		for i := 0; i < ch.Len(); i++ {
			ch.data[i] = v
		}
		ch.silent = false
	}
}

func TestBus_CopyFromIsIdempotent(t *testing.T) {
	t.Log("CopyFrom then CopyFrom again with the same source must leave the bus unchanged (spec §8)")
	src := NewBus(2, Q, 44100)
	fillDC(src, 0.3, -0.6)

	dst := NewBus(2, Q, 44100)
	dst.CopyFrom(src, Speakers)
	first := append([]float32(nil), dst.Channel(0).Data()...)

	dst.CopyFrom(src, Speakers)
	second := dst.Channel(0).Data()

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected idempotent CopyFrom, sample %d changed from %v to %v", i, first[i], second[i])
		}
	}
}

func TestBus_SumFromSilentSourceIsNoOp(t *testing.T) {
	t.Log("SumFrom of a silent source must not alter the destination (spec §8)")
	dst := NewBus(1, Q, 44100)
	fillDC(dst, 0.5)
	before := append([]float32(nil), dst.Channel(0).Data()...)

	silentSrc := NewBus(1, Q, 44100) // fresh bus is silent/zeroed
	dst.SumFrom(silentSrc, Speakers)

	after := dst.Channel(0).Data()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("expected no change from summing a silent source, sample %d was %v now %v", i, before[i], after[i])
		}
	}
}

func TestBus_MonoToStereoUpmixDuplicatesChannel(t *testing.T) {
	src := NewBus(1, Q, 44100)
	fillDC(src, 0.4)
	dst := NewBus(2, Q, 44100)
	dst.CopyFrom(src, Speakers)

	if dst.Channel(0).Data()[0] != 0.4 || dst.Channel(1).Data()[0] != 0.4 {
		t.Fatalf("expected mono source duplicated to both stereo channels, got L=%v R=%v", dst.Channel(0).Data()[0], dst.Channel(1).Data()[0])
	}
}

func TestBus_StereoToMonoDownmixAverages(t *testing.T) {
	src := NewBus(2, Q, 44100)
	fillDC(src, 1.0, -0.5)
	dst := NewBus(1, Q, 44100)
	dst.CopyFrom(src, Speakers)

	want := float32(0.25)
	if got := dst.Channel(0).Data()[0]; math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("expected stereo downmix average %v, got %v", want, got)
	}
}

func TestBus_QuadToMonoDownmixAverages(t *testing.T) {
	src := NewBus(4, Q, 44100)
	fillDC(src, 1.0, 0.5, -0.5, 0.0)
	dst := NewBus(1, Q, 44100)
	dst.CopyFrom(src, Speakers)

	want := float32(0.25) // (1 + 0.5 - 0.5 + 0) / 4
	if got := dst.Channel(0).Data()[0]; math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("expected quad downmix average %v, got %v", want, got)
	}
}

func TestBus_FiveOneToStereoDownmixAppliesSqrtHalf(t *testing.T) {
	src := NewBus(6, Q, 44100) // L R C LFE SL SR
	fillDC(src, 1, 0, 0, 0, 0, 0)
	dst := NewBus(2, Q, 44100)
	dst.CopyFrom(src, Speakers)

	if got := dst.Channel(0).Data()[0]; math.Abs(float64(got)-1.0) > 1e-6 {
		t.Fatalf("expected L to pass straight through to the left channel, got %v", got)
	}

	centerOnly := NewBus(6, Q, 44100)
	fillDC(centerOnly, 0, 0, 1, 0, 0, 0)
	dst2 := NewBus(2, Q, 44100)
	dst2.CopyFrom(centerOnly, Speakers)
	want := sqrtHalf
	if got := dst2.Channel(0).Data()[0]; math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("expected center bled into left at sqrt(0.5), got %v want %v", got, want)
	}
}

func TestBus_FiveOneToMonoDownmixCombinesAllChannels(t *testing.T) {
	src := NewBus(6, Q, 44100) // L R C LFE SL SR
	fillDC(src, 1, 1, 0, 0, 0, 0)
	dst := NewBus(1, Q, 44100)
	dst.CopyFrom(src, Speakers)

	want := float32(2 * sqrtHalf) // sqrtHalf*(L+R)
	if got := dst.Channel(0).Data()[0]; math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("expected 5.1-to-mono L+R contribution %v, got %v", want, got)
	}
}

func TestBus_CopyWithGainFromRampsFromLastGain(t *testing.T) {
	t.Log("CopyWithGainFrom must ramp linearly from the previous gain to the target across the quantum, not jump")
	src := NewBus(1, Q, 44100)
	fillDC(src, 1.0)
	dst := NewBus(1, Q, 44100)

	lastGain := float32(0)
	dst.CopyWithGainFrom(src, &lastGain, 1.0)

	data := dst.Channel(0).Data()
	if data[0] != 0 {
		t.Fatalf("expected the ramp to start at the previous gain 0, got %v", data[0])
	}
	lastStep := float32(1.0 / Q)
	if math.Abs(float64(data[Q-1]-(1-lastStep))) > 1e-5 {
		t.Fatalf("expected the last sample one step short of the target gain, got %v", data[Q-1])
	}
	if lastGain != 1.0 {
		t.Fatalf("expected lastGain updated to the target, got %v", lastGain)
	}

	// A second call with the same target should now start already at 1.0 (no further ramp).
	dst2 := NewBus(1, Q, 44100)
	dst2.CopyWithGainFrom(src, &lastGain, 1.0)
	for _, v := range dst2.Channel(0).Data() {
		if math.Abs(float64(v)-1.0) > 1e-6 {
			t.Fatalf("expected a steady unity gain once the ramp has settled, got %v", v)
		}
	}
}
