package audiograph

import (
	"math"
	"testing"
	"time"
)

func TestHRTFKernel_InterpolationBoundariesMatchSourceKernels(t *testing.T) {
	t.Log("interpolating at x=0 must reproduce kernel1 exactly and x=1 must reproduce kernel2 exactly (spec §4.8)")
	sampleRate := 44100.0
	k1 := synthesizeHRTFKernel(0, 0, true, sampleRate)
	k2 := synthesizeHRTFKernel(90, 0, true, sampleRate)

	at0 := InterpolateHRTFKernels(k1, k2, 0)
	if math.Abs(at0.FrameDelay()-k1.FrameDelay()) > 1e-9 {
		t.Fatalf("x=0 frame delay should equal kernel1's, got %v want %v", at0.FrameDelay(), k1.FrameDelay())
	}
	for i := 0; i < 8; i++ {
		got := at0.FFTFrame().magnitudeAt(i)
		want := k1.FFTFrame().magnitudeAt(i)
		if math.Abs(got-want) > 1e-4 {
			t.Fatalf("x=0 bin %d magnitude should match kernel1, got %v want %v", i, got, want)
		}
	}

	at1 := InterpolateHRTFKernels(k1, k2, 1)
	if math.Abs(at1.FrameDelay()-k2.FrameDelay()) > 1e-9 {
		t.Fatalf("x=1 frame delay should equal kernel2's, got %v want %v", at1.FrameDelay(), k2.FrameDelay())
	}
	for i := 0; i < 8; i++ {
		got := at1.FFTFrame().magnitudeAt(i)
		want := k2.FFTFrame().magnitudeAt(i)
		if math.Abs(got-want) > 1e-4 {
			t.Fatalf("x=1 bin %d magnitude should match kernel2, got %v want %v", i, got, want)
		}
	}
}

func TestHRTF_ILDAttenuatesContralateralEarAsAzimuthIncreases(t *testing.T) {
	t.Log("as a sound source sweeps toward one side, the contralateral ear's synthesized level should fall monotonically while the other ear holds steady")
	sampleRate := 44100.0
	azimuths := []float64{0, 15, 30, 45, 60, 75, 90}

	var prevContra, prevIpsi float64
	for i, az := range azimuths {
		contraEar := synthesizeHRTFKernel(az, 0, false, sampleRate) // earSign=+1: contra = sin(az) >= 0 here
		ipsiEar := synthesizeHRTFKernel(az, 0, true, sampleRate)    // earSign=-1: contra = -sin(az) <= 0, ild stays 1

		contraLevel := contraEar.FFTFrame().magnitudeAt(0)
		ipsiLevel := ipsiEar.FFTFrame().magnitudeAt(0)

		if i > 0 {
			if contraLevel > prevContra+1e-9 {
				t.Fatalf("expected the contralateral ear's level to be non-increasing as azimuth grows, went from %v to %v at az=%v", prevContra, contraLevel, az)
			}
			if math.Abs(ipsiLevel-prevIpsi) > 1e-6 {
				t.Fatalf("expected the ipsilateral ear's level to hold steady, went from %v to %v at az=%v", prevIpsi, ipsiLevel, az)
			}
		}
		prevContra, prevIpsi = contraLevel, ipsiLevel
	}
	if prevContra >= synthesizeHRTFKernel(0, 0, false, sampleRate).FFTFrame().magnitudeAt(0) {
		t.Fatal("expected the contralateral ear's level at 90 degrees to be strictly below its level at 0 degrees")
	}
}

func TestHRTFDatabase_BecomesReadyAndServesInterpolatedKernels(t *testing.T) {
	db := NewHRTFDatabase(44100)

	deadline := time.Now().Add(2 * time.Second)
	for !db.Ready() {
		if time.Now().After(deadline) {
			t.Fatal("expected the database to finish its asynchronous load within 2s")
		}
		time.Sleep(time.Millisecond)
	}

	kL, kR, delayL, delayR := db.KernelsFromAzimuthElevation(0.5, 0, 0)
	if kL == nil || kR == nil {
		t.Fatal("expected non-nil interpolated kernels once the database is ready")
	}
	if delayL < 0 || delayR < 0 {
		t.Fatalf("expected non-negative frame delays, got L=%v R=%v", delayL, delayR)
	}
}
