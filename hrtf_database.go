// hrtf_database.go - HRTFDatabase and HRTFElevation: the loaded set of
// per-(azimuth,elevation) kernel pairs the panner consults (spec §3
// "HRTFDatabase"/"HRTFElevation", §4.8, §L11).
//
// Grounded on LabSound's HRTFDatabase.cpp/HRTFElevation.cpp
// (original_source) for the elevation range (-45..+90 in 15-degree
// steps) and the 8x azimuth interpolation factor; since no actual IRCAM
// measurement files are available to this module, kernels are
// synthesized from a spherical-head ITD/ILD model instead of loaded
// from disk (documented in DESIGN.md) — the database's consumer-facing
// shape (indexing, interpolation, "ready" flag) matches the original
// exactly, only the impulse source differs.

package audiograph

import (
	"math"
	"sync/atomic"
)

const (
	hrtfMinElevation           = -45
	hrtfMaxElevation           = 90
	hrtfRawElevationSpacing    = 15
	hrtfNumberOfRawElevations  = 10
	hrtfMeasuredAzimuths       = 24 // spec §3: "measured 24-azimuth set"
	hrtfAzimuthInterpolation   = 8  // spec §3: "interpolated 8x"
	hrtfNumberOfAzimuths       = hrtfMeasuredAzimuths * hrtfAzimuthInterpolation
	hrtfKernelFFTSize          = 512
)

// HRTFElevation holds, for one elevation angle, the left/right kernel
// arrays indexed by (interpolated) azimuth index, plus their frame
// delays (spec §3 "HRTFElevation").
type HRTFElevation struct {
	elevationAngle float64

	kernelsL []*HRTFKernel
	kernelsR []*HRTFKernel
}

func newHRTFElevation(elevationAngle, sampleRate float64) *HRTFElevation {
	e := &HRTFElevation{elevationAngle: elevationAngle}
	e.kernelsL = make([]*HRTFKernel, hrtfNumberOfAzimuths)
	e.kernelsR = make([]*HRTFKernel, hrtfNumberOfAzimuths)
	for i := 0; i < hrtfNumberOfAzimuths; i++ {
		azimuth := float64(i) * 360.0 / float64(hrtfNumberOfAzimuths)
		e.kernelsL[i] = synthesizeHRTFKernel(azimuth, elevationAngle, true, sampleRate)
		e.kernelsR[i] = synthesizeHRTFKernel(azimuth, elevationAngle, false, sampleRate)
	}
	return e
}

// synthesizeHRTFKernel builds a parametric impulse response for the
// given (azimuth, elevation, ear) using a spherical-head interaural time
// and level difference model (Woodworth's formula for ITD, a simple
// cosine-shaped ILD), since no measured IRCAM data is bundled.
func synthesizeHRTFKernel(azimuthDeg, elevationDeg float64, leftEar bool, sampleRate float64) *HRTFKernel {
	const headRadius = 0.0875 // meters, average adult head
	const speedOfSound = 343.0

	az := azimuthDeg * math.Pi / 180
	if azimuthDeg > 180 {
		az = (azimuthDeg - 360) * math.Pi / 180
	}
	el := elevationDeg * math.Pi / 180

	earSign := 1.0
	if leftEar {
		earSign = -1.0
	}
	// Woodworth ITD model: delay is 0 at the ipsilateral-neutral front,
	// maximal at +-90 degrees azimuth.
	itdSeconds := (headRadius / speedOfSound) * (az + earSign*math.Sin(az))
	if itdSeconds < 0 {
		itdSeconds = 0
	}
	delaySamples := itdSeconds * sampleRate

	length := hrtfKernelFFTSize / 2
	impulse := make([]float32, length)

	// Interaural level difference: attenuate the contralateral ear by a
	// cosine falloff across azimuth, and apply a mild elevation-dependent
	// high-shelf to emulate pinna filtering.
	ild := 1.0
	contra := earSign * math.Sin(az)
	if contra > 0 {
		ild = 1 - 0.6*contra
	}
	elevationShelf := 1 - 0.2*math.Sin(el)

	peakIdx := int(delaySamples)
	if peakIdx >= length {
		peakIdx = length - 1
	}
	impulse[peakIdx] = float32(ild * elevationShelf)

	// A short decaying tail gives the convolver something resembling a
	// real pinna reflection pattern rather than a bare Dirac impulse.
	for i := peakIdx + 1; i < length && i < peakIdx+32; i++ {
		decay := math.Exp(-float64(i-peakIdx) / 6.0)
		impulse[i] = float32(0.15 * ild * decay)
	}

	return NewHRTFKernel(impulse, hrtfKernelFFTSize, sampleRate)
}

// HRTFDatabase is the ordered set of HRTFElevations from -45 to +90
// degrees (spec §3 "HRTFDatabase").
type HRTFDatabase struct {
	sampleRate float64
	elevations []*HRTFElevation
	ready      atomic.Bool
}

// NewHRTFDatabase starts an asynchronous load (spec §3: "loading is
// asynchronous and the database is not consulted until its 'ready' flag
// is observable") and returns immediately; Ready() reports completion.
func NewHRTFDatabase(sampleRate float64) *HRTFDatabase {
	db := &HRTFDatabase{sampleRate: sampleRate}
	go db.load()
	return db
}

func (db *HRTFDatabase) load() {
	elevations := make([]*HRTFElevation, hrtfNumberOfRawElevations)
	for i := 0; i < hrtfNumberOfRawElevations; i++ {
		angle := float64(hrtfMinElevation + i*hrtfRawElevationSpacing)
		elevations[i] = newHRTFElevation(angle, db.sampleRate)
	}
	db.elevations = elevations
	db.ready.Store(true)
}

// Ready reports whether the database has finished loading (spec §3).
func (db *HRTFDatabase) Ready() bool { return db.ready.Load() }

func (db *HRTFDatabase) NumberOfAzimuths() int { return hrtfNumberOfAzimuths }

// indexFromElevationAngle maps an elevation in degrees to the raw
// elevation index at or below it (the division truncates), clamped to
// the loaded range (LabSound's
// HRTFDatabaseInfo::indexFromElevationAngle).
func (db *HRTFDatabase) indexFromElevationAngle(elevationAngle float64) int {
	if elevationAngle < hrtfMinElevation {
		elevationAngle = hrtfMinElevation
	}
	if elevationAngle > hrtfMaxElevation {
		elevationAngle = hrtfMaxElevation
	}
	idx := int((elevationAngle - hrtfMinElevation) / hrtfRawElevationSpacing)
	if idx >= len(db.elevations) {
		idx = len(db.elevations) - 1
	}
	return idx
}

// KernelsFromAzimuthElevation fetches the interpolated (by azimuthBlend)
// left/right kernel pair and their frame delays for the given azimuth
// index and elevation (spec §4.8 step 4).
func (db *HRTFDatabase) KernelsFromAzimuthElevation(azimuthBlend float64, azimuthIndex int, elevation float64) (kernelL, kernelR *HRTFKernel, delayL, delayR float64) {
	elevIdx := db.indexFromElevationAngle(elevation)
	e := db.elevations[elevIdx]

	n := hrtfNumberOfAzimuths
	idx1 := azimuthIndex % n
	idx2 := (azimuthIndex + 1) % n

	kernelL = InterpolateHRTFKernels(e.kernelsL[idx1], e.kernelsL[idx2], azimuthBlend)
	kernelR = InterpolateHRTFKernels(e.kernelsR[idx1], e.kernelsR[idx2], azimuthBlend)
	return kernelL, kernelR, kernelL.FrameDelay(), kernelR.FrameDelay()
}
