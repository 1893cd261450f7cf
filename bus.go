// bus.go - planar sample storage and channel mixing (spec §3, §4.1).
//
// Bus is the unit of audio passed between nodes: an ordered set of
// same-length Channels plus a sample-rate tag. Mixing rules are
// reproduced exactly per spec §4.1 — these coefficients come from
// LabSound's AudioBus up/down-mix tables (original_source), not invented.

package audiograph

import "math"

// Q is the fixed render quantum: the engine always pulls audio in blocks
// of this many frames (spec GLOSSARY).
const Q = 128

// Interpretation selects how a SummingJunction up/down-mixes channels
// that don't already match (spec §3, §4.1).
type Interpretation int

const (
	Speakers Interpretation = iota
	Discrete
)

// Channel owns one stream of planar float32 samples, either in its own
// storage or pointing at externally owned storage (used to avoid a copy
// when wrapping the device's output buffer, spec §3).
type Channel struct {
	data   []float32
	silent bool // informational only: a silent channel may still hold zeros
}

// NewChannel allocates an owned, zeroed channel of the given frame length.
func NewChannel(frames int) *Channel {
	return &Channel{data: make([]float32, frames), silent: true}
}

// WrapChannel builds a Channel over externally owned storage without
// copying it (e.g. a device's interleaved output buffer after deinterleave).
func WrapChannel(data []float32) *Channel {
	return &Channel{data: data, silent: false}
}

func (c *Channel) Len() int                 { return len(c.data) }
func (c *Channel) Data() []float32          { return c.data }
func (c *Channel) IsSilent() bool           { return c.silent }
func (c *Channel) MarkSilent(silent bool)   { c.silent = silent }
func (c *Channel) Zero() {
	for i := range c.data {
		c.data[i] = 0
	}
	c.silent = true
}

// Set writes a single sample and clears the silence bit for this channel,
// per the Bus invariant in spec §3.
func (c *Channel) Set(i int, v float32) {
	c.data[i] = v
	c.silent = false
}

// Bus is an ordered sequence of equal-length Channels with a sample-rate
// tag (spec §3).
type Bus struct {
	channels   []*Channel
	sampleRate float64
}

// NewBus allocates a Bus of numChannels owned channels, each `frames` long.
func NewBus(numChannels, frames int, sampleRate float64) *Bus {
	b := &Bus{channels: make([]*Channel, numChannels), sampleRate: sampleRate}
	for i := range b.channels {
		b.channels[i] = NewChannel(frames)
	}
	return b
}

func (b *Bus) NumChannels() int       { return len(b.channels) }
func (b *Bus) SampleRate() float64    { return b.sampleRate }
func (b *Bus) Channel(i int) *Channel { return b.channels[i] }
func (b *Bus) Frames() int {
	if len(b.channels) == 0 {
		return 0
	}
	return b.channels[0].Len()
}

// Zero silences every channel.
func (b *Bus) Zero() {
	for _, c := range b.channels {
		c.Zero()
	}
}

// ClearSilent marks every channel non-silent without touching data
// (used after an external writer fills the bus directly, e.g. a decoded
// source buffer).
func (b *Bus) ClearSilent() {
	for _, c := range b.channels {
		c.silent = false
	}
}

// IsSilent reports whether every channel is marked silent.
func (b *Bus) IsSilent() bool {
	for _, c := range b.channels {
		if !c.silent {
			return false
		}
	}
	return true
}

// Resize grows or shrinks the channel count, reusing existing channels
// where possible and allocating new ones at the bus's current frame
// length (used by SummingJunction's per-quantum channel negotiation,
// spec §4.3).
func (b *Bus) Resize(numChannels int) {
	frames := b.Frames()
	if numChannels == len(b.channels) {
		return
	}
	if numChannels < len(b.channels) {
		b.channels = b.channels[:numChannels]
		return
	}
	for len(b.channels) < numChannels {
		b.channels = append(b.channels, NewChannel(frames))
	}
}

// MaxAbsValue returns the peak absolute sample value across all channels.
func (b *Bus) MaxAbsValue() float32 {
	var peak float32
	for _, c := range b.channels {
		for _, v := range c.data {
			a := float32(math.Abs(float64(v)))
			if a > peak {
				peak = a
			}
		}
	}
	return peak
}

// Normalize scales every sample so the peak becomes 1.0. A silent bus is
// left untouched.
func (b *Bus) Normalize() {
	peak := b.MaxAbsValue()
	if peak == 0 {
		return
	}
	b.Scale(1.0 / peak)
}

// Scale multiplies every sample by s.
func (b *Bus) Scale(s float32) {
	for _, c := range b.channels {
		if c.silent {
			continue
		}
		for i := range c.data {
			c.data[i] *= s
		}
	}
}

// CopyFrom replaces this bus's contents with src's, up/down-mixed per
// interpretation if the channel counts differ. CopyFrom then CopyFrom
// again is idempotent (spec §8).
func (b *Bus) CopyFrom(src *Bus, interp Interpretation) {
	if src == nil {
		b.Zero()
		return
	}
	if src.IsSilent() {
		b.Zero()
		return
	}
	if b.NumChannels() == src.NumChannels() {
		for i, c := range b.channels {
			copy(c.data, src.channels[i].data)
			c.silent = src.channels[i].silent
		}
		return
	}
	b.Zero()
	mixInto(b, src, interp, 1.0)
}

// SumFrom adds an up/down-mixed copy of src into this bus (spec §4.1,
// §4.3). SumFrom of a silent src is a no-op (spec §8).
func (b *Bus) SumFrom(src *Bus, interp Interpretation) {
	if src == nil || src.IsSilent() {
		return
	}
	mixInto(b, src, interp, 1.0)
}

// CopyWithGainFrom applies a de-zippered linear ramp from *lastMixGain to
// targetGain across the quantum, then updates *lastMixGain to the value
// actually reached (spec §4.1). Channel counts must already match
// (callers mix first, then apply gain, or apply gain per-channel after
// a same-topology copy).
func (b *Bus) CopyWithGainFrom(src *Bus, lastMixGain *float32, targetGain float32) {
	if src == nil || src.NumChannels() != b.NumChannels() {
		b.Zero()
		return
	}
	frames := b.Frames()
	if frames == 0 {
		return
	}
	start := *lastMixGain
	step := (targetGain - start) / float32(frames)
	for ci, c := range b.channels {
		sc := src.channels[ci]
		g := start
		for i := 0; i < frames; i++ {
			c.data[i] = sc.data[i] * g
			g += step
		}
		c.silent = sc.silent && start == 0 && targetGain == 0
	}
	*lastMixGain = targetGain
}

// CopyWithSampleAccurateGainFrom multiplies src by a per-sample gain
// envelope (used when the gain param is a-rate, spec §4.2/§4.7).
func (b *Bus) CopyWithSampleAccurateGainFrom(src *Bus, gains []float32) {
	if src == nil || src.NumChannels() != b.NumChannels() {
		b.Zero()
		return
	}
	frames := b.Frames()
	for ci, c := range b.channels {
		sc := src.channels[ci]
		for i := 0; i < frames && i < len(gains); i++ {
			c.data[i] = sc.data[i] * gains[i]
		}
		c.silent = sc.silent
	}
}

const sqrtHalf = float32(0.7071067811865476)

// mixInto up/down-mixes src into dst per the Speakers/Discrete rules of
// spec §4.1, adding (not replacing) dst's existing samples scaled by
// weight. dst must already be the target channel count.
func mixInto(dst, src *Bus, interp Interpretation, weight float32) {
	sn, dn := src.NumChannels(), dst.NumChannels()
	frames := dst.Frames()
	if src.Frames() < frames {
		frames = src.Frames()
	}

	if interp == Speakers {
		switch {
		case sn == 1 && dn == 2:
			s := src.channels[0].data
			for ci := 0; ci < 2; ci++ {
				d := dst.channels[ci].data
				for i := 0; i < frames; i++ {
					d[i] += s[i] * weight
				}
				dst.channels[ci].silent = dst.channels[ci].silent && src.channels[0].silent
			}
			return
		case sn == 1 && dn == 4:
			// L=R=0, SL=SR=mono (spec §4.1).
			s := src.channels[0].data
			for _, ci := range []int{2, 3} {
				d := dst.channels[ci].data
				for i := 0; i < frames; i++ {
					d[i] += s[i] * weight
				}
				dst.channels[ci].silent = dst.channels[ci].silent && src.channels[0].silent
			}
			return
		case sn == 2 && dn == 1:
			l, r := src.channels[0].data, src.channels[1].data
			d := dst.channels[0].data
			for i := 0; i < frames; i++ {
				d[i] += 0.5 * (l[i] + r[i]) * weight
			}
			dst.channels[0].silent = dst.channels[0].silent && src.IsSilent()
			return
		case sn == 4 && dn == 1:
			d := dst.channels[0].data
			for i := 0; i < frames; i++ {
				var sum float32
				for ci := 0; ci < 4; ci++ {
					sum += src.channels[ci].data[i]
				}
				d[i] += (sum / 4) * weight
			}
			dst.channels[0].silent = dst.channels[0].silent && src.IsSilent()
			return
		case sn == 6 && dn == 1:
			l, r, c, lfe, sl, sr := src.channels[0].data, src.channels[1].data, src.channels[2].data, src.channels[3].data, src.channels[4].data, src.channels[5].data
			_ = lfe
			d := dst.channels[0].data
			for i := 0; i < frames; i++ {
				d[i] += (sqrtHalf*(l[i]+r[i]) + c[i] + 0.5*(sl[i]+sr[i])) * weight
			}
			dst.channels[0].silent = dst.channels[0].silent && src.IsSilent()
			return
		case sn == 6 && dn == 2:
			l, r, c, lfe, sl, sr := src.channels[0].data, src.channels[1].data, src.channels[2].data, src.channels[3].data, src.channels[4].data, src.channels[5].data
			_ = lfe
			dl, dr := dst.channels[0].data, dst.channels[1].data
			for i := 0; i < frames; i++ {
				dl[i] += (l[i] + sqrtHalf*(c[i]+sl[i])) * weight
				dr[i] += (r[i] + sqrtHalf*(c[i]+sr[i])) * weight
			}
			dst.channels[0].silent = dst.channels[0].silent && src.IsSilent()
			dst.channels[1].silent = dst.channels[1].silent && src.IsSilent()
			return
		}
	}

	// Discrete, or an unsupported Speakers combination falling back to
	// Discrete per spec §4.1: copy min(sn,dn) channels, zero the rest.
	n := sn
	if dn < n {
		n = dn
	}
	for ci := 0; ci < n; ci++ {
		s := src.channels[ci].data
		d := dst.channels[ci].data
		for i := 0; i < frames; i++ {
			d[i] += s[i] * weight
		}
		dst.channels[ci].silent = dst.channels[ci].silent && src.channels[ci].silent
	}
}
