// hrtf_panner_node.go - PannerNode in its HRTF path: position-driven
// two-kernel crossfade, per-ear delay and FFT convolution (spec §4.8,
// §6 PannerNode{...}).
//
// Grounded closely on LabSound's HRTFPanner.cpp (original_source): same
// azimuth-index/blend computation, same front-fold symmetry, same
// 2048/4096-frame crossfade thresholds keyed on sample rate, and the
// same four-convolver/two-delay-line layout — adapted from LabSound's
// push-style ContextRenderLock processing to this engine's pull-based
// NodeBehavior.Process.

package audiograph

import "math"

// DistanceModel names a distance-attenuation law stored on a PannerNode
// (spec §6 PannerNode{distanceModel,...}). The panner's Process applies
// no distance attenuation.
type DistanceModel int

const (
	DistanceLinear DistanceModel = iota
	DistanceInverse
	DistanceExponential
)

type pannerBehavior struct {
	ctx *Context

	position    [3]float64
	orientation [3]float64
	listener    [3]float64 // listener position, simplified to the origin-facing-forward default

	distanceModel  DistanceModel
	refDistance    float64
	maxDistance    float64
	rolloffFactor  float64
	coneInnerAngle float64
	coneOuterAngle float64
	coneOuterGain  float64

	azimuthIndex1, azimuthIndex2 int
	elevation1, elevation2       float64
	azimuthInitialized           bool

	crossfadeX    float32
	crossfadeIncr float32
	selection2    bool // false = convolver set 1 is "live" when not crossfading

	convL1, convR1, convL2, convR2 *OverlapAddConvolver
	delayL, delayR                 *hrtfDelayLine

	tempL1, tempR1, tempL2, tempR2 []float32
}

const hrtfMaxDelaySeconds = 0.002 // spec/LabSound: larger than any kernel's frame delay

// NewPannerNode constructs an HRTF-panning PannerNode. Inputs: mono or
// stereo; output is always stereo (spec §4.8).
func NewPannerNode(ctx *Context) *Node {
	const kernelLen = hrtfKernelFFTSize / 2
	b := &pannerBehavior{
		ctx:            ctx,
		distanceModel:  DistanceInverse,
		refDistance:    1,
		maxDistance:    10000,
		rolloffFactor:  1,
		coneInnerAngle: 360,
		coneOuterAngle: 360,
		coneOuterGain:  0,
		convL1:         NewOverlapAddConvolver(Q, kernelLen),
		convR1:         NewOverlapAddConvolver(Q, kernelLen),
		convL2:         NewOverlapAddConvolver(Q, kernelLen),
		convR2:         NewOverlapAddConvolver(Q, kernelLen),
		delayL:         newHRTFDelayLine(hrtfMaxDelaySeconds, ctx.sampleRate),
		delayR:         newHRTFDelayLine(hrtfMaxDelaySeconds, ctx.sampleRate),
		tempL1:         make([]float32, Q),
		tempR1:         make([]float32, Q),
		tempL2:         make([]float32, Q),
		tempR2:         make([]float32, Q),
	}
	n := ctx.newNode(KindPannerHRTF, b, 2, ClampedMax, Speakers, 1, 1)

	posX, posY, posZ := NewParam(0), NewParam(0), NewParam(0)
	n.addParam("positionX", posX)
	n.addParam("positionY", posY)
	n.addParam("positionZ", posZ)

	orientX, orientY, orientZ := NewParam(1), NewParam(0), NewParam(0)
	n.addParam("orientationX", orientX)
	n.addParam("orientationY", orientY)
	n.addParam("orientationZ", orientZ)

	return n
}

// position3 returns the source position last read by Process from the
// positionX/Y/Z params, which are read once per quantum as k-rate values.
func (p *pannerBehavior) position3() [3]float64 { return p.position }

func (p *pannerBehavior) Process(n *Node, frames int) {
	in := n.Inputs[0].Bus()
	out := n.Outputs[0]
	out.bus.Resize(2)

	db := p.ctx.HRTFDatabase()
	if db == nil || !db.Ready() {
		out.bus.Zero()
		return
	}

	p.position[0] = n.params["positionX"].Value()
	p.position[1] = n.params["positionY"].Value()
	p.position[2] = n.params["positionZ"].Value()

	azimuth, elevation := p.computeAzimuthElevation()

	sourceL := monoOrChannel(in, 0)
	var sourceR []float32
	if in.NumChannels() > 1 {
		sourceR = monoOrChannel(in, 1)
	} else {
		sourceR = sourceL
	}

	numberOfAzimuths := db.NumberOfAzimuths()
	angleBetween := 360.0 / float64(numberOfAzimuths)
	az := azimuth
	if az < 0 {
		az += 360
	}
	desiredIndexFloat := az / angleBetween
	desiredIndex := int(desiredIndexFloat)
	azimuthBlend := desiredIndexFloat - float64(desiredIndex)
	if desiredIndex < 0 {
		desiredIndex = 0
	}
	if desiredIndex >= numberOfAzimuths {
		desiredIndex = numberOfAzimuths - 1
	}

	if !p.azimuthInitialized {
		p.azimuthIndex1 = desiredIndex
		p.elevation1 = elevation
		p.azimuthIndex2 = desiredIndex
		p.elevation2 = elevation
		p.azimuthInitialized = true
	}

	fadeFrames := 2048.0
	if p.ctx.sampleRate > 48000 {
		fadeFrames = 4096
	}

	if p.crossfadeX == 0 && !p.selection2 {
		if desiredIndex != p.azimuthIndex1 || elevation != p.elevation1 {
			p.crossfadeIncr = float32(1 / fadeFrames)
			p.azimuthIndex2 = desiredIndex
			p.elevation2 = elevation
		}
	}
	if p.crossfadeX == 1 && p.selection2 {
		if desiredIndex != p.azimuthIndex2 || elevation != p.elevation2 {
			p.crossfadeIncr = float32(-1 / fadeFrames)
			p.azimuthIndex1 = desiredIndex
			p.elevation1 = elevation
		}
	}

	kernelL1, kernelR1, delayL1, delayR1 := db.KernelsFromAzimuthElevation(azimuthBlend, p.azimuthIndex1, p.elevation1)
	kernelL2, kernelR2, delayL2, delayR2 := db.KernelsFromAzimuthElevation(azimuthBlend, p.azimuthIndex2, p.elevation2)

	frameDelayL := (1-float64(p.crossfadeX))*delayL1 + float64(p.crossfadeX)*delayL2
	frameDelayR := (1-float64(p.crossfadeX))*delayR1 + float64(p.crossfadeX)*delayR2

	destL := out.bus.Channel(0).Data()
	destR := out.bus.Channel(1).Data()

	p.delayL.setDelayFrames(frameDelayL)
	p.delayR.setDelayFrames(frameDelayR)
	p.delayL.process(sourceL, destL)
	p.delayR.process(sourceR, destR)

	needsCrossfading := p.crossfadeIncr != 0

	var destL1, destR1, destL2, destR2 []float32
	if needsCrossfading {
		destL1, destR1, destL2, destR2 = p.tempL1, p.tempR1, p.tempL2, p.tempR2
	} else {
		destL1, destR1, destL2, destR2 = destL, destR, destL, destR
	}

	if !p.selection2 || needsCrossfading {
		copy(destL1, p.convL1.Process(kernelL1.FFTFrame(), destL))
		copy(destR1, p.convR1.Process(kernelR1.FFTFrame(), destR))
	}
	if p.selection2 || needsCrossfading {
		copy(destL2, p.convL2.Process(kernelL2.FFTFrame(), destL))
		copy(destR2, p.convR2.Process(kernelR2.FFTFrame(), destR))
	}

	if needsCrossfading {
		x := p.crossfadeX
		incr := p.crossfadeIncr
		for i := 0; i < len(destL); i++ {
			destL[i] = (1-x)*destL1[i] + x*destL2[i]
			destR[i] = (1-x)*destR1[i] + x*destR2[i]
			x += incr
		}
		p.crossfadeX = x

		if incr > 0 && float32(math.Abs(float64(p.crossfadeX-1))) < incr {
			p.selection2 = true
			p.crossfadeX = 1
			p.crossfadeIncr = 0
		} else if incr < 0 && float32(math.Abs(float64(p.crossfadeX))) < -incr {
			p.selection2 = false
			p.crossfadeX = 0
			p.crossfadeIncr = 0
		}
	}

	out.bus.ClearSilent()
}

// computeAzimuthElevation maps the source position relative to an
// origin-facing-forward listener into (azimuth, elevation) degrees, with
// the front/back fold symmetry LabSound documents (spec §4.8 step 1).
func (p *pannerBehavior) computeAzimuthElevation() (azimuth, elevation float64) {
	x, y, z := p.position[0], p.position[1], p.position[2]
	r := math.Sqrt(x*x + y*y + z*z)
	if r == 0 {
		return 0, 0
	}
	azimuth = math.Atan2(x, -z) * 180 / math.Pi
	if azimuth < -180 {
		azimuth += 360
	}
	if azimuth > 180 {
		azimuth -= 360
	}
	elevation = math.Asin(clampUnit(y/r)) * 180 / math.Pi
	// Fold behind-listener azimuths into the front hemisphere, matching
	// the -90<->-180 / +90<->+180 symmetry; elevation is left unchanged.
	if azimuth < -90 {
		azimuth = -180 - azimuth
	} else if azimuth > 90 {
		azimuth = 180 - azimuth
	}
	return azimuth, elevation
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func monoOrChannel(bus *Bus, idx int) []float32 {
	if idx < bus.NumChannels() {
		return bus.Channel(idx).Data()
	}
	return bus.Channel(0).Data()
}

func (p *pannerBehavior) TailTime() float64 {
	return hrtfMaxDelaySeconds + float64(hrtfKernelFFTSize/2)/p.ctx.sampleRate
}
func (p *pannerBehavior) LatencyTime() float64 {
	return float64(hrtfKernelFFTSize/2) / p.ctx.sampleRate
}
func (p *pannerBehavior) Reset() {
	p.convL1.Reset()
	p.convR1.Reset()
	p.convL2.Reset()
	p.convR2.Reset()
	p.delayL.reset()
	p.delayR.reset()
	p.azimuthInitialized = false
	p.crossfadeX = 0
	p.crossfadeIncr = 0
	p.selection2 = false
}

// hrtfDelayLine is a small fractional-sample delay line used for the
// panner's per-ear interaural time difference (spec §4.8 step 5).
type hrtfDelayLine struct {
	buf         []float32
	writePos    int
	delayFrames float64
}

func newHRTFDelayLine(maxDelaySeconds, sampleRate float64) *hrtfDelayLine {
	size := int(maxDelaySeconds*sampleRate) + 2
	return &hrtfDelayLine{buf: make([]float32, size)}
}

func (d *hrtfDelayLine) setDelayFrames(frames float64) { d.delayFrames = frames }

func (d *hrtfDelayLine) process(in, out []float32) {
	size := len(d.buf)
	for i, v := range in {
		d.buf[d.writePos] = v
		readPos := float64(d.writePos) - d.delayFrames
		for readPos < 0 {
			readPos += float64(size)
		}
		i0 := int(readPos) % size
		i1 := (i0 + 1) % size
		frac := float32(readPos - math.Floor(readPos))
		out[i] = d.buf[i0]*(1-frac) + d.buf[i1]*frac
		d.writePos = (d.writePos + 1) % size
	}
}

func (d *hrtfDelayLine) reset() {
	for i := range d.buf {
		d.buf[i] = 0
	}
	d.writePos = 0
}
