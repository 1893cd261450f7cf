// param.go - automatable scalar parameter and its event timeline
// (spec §3 "Param", §4.2).

package audiograph

import (
	"math"
	"sort"
	"sync"
)

// EventKind identifies one automation event's interpolation rule (§4.2).
type EventKind int

const (
	SetValueAtTime EventKind = iota
	LinearRampToValueAtTime
	ExponentialRampToValueAtTime
	SetTargetAtTime
	SetValueCurveAtTime
)

// Event is one scheduled automation point.
type Event struct {
	Kind      EventKind
	Value     float64
	StartTime float64
	TimeConst float64   // SetTargetAtTime's τ
	Duration  float64   // SetValueCurveAtTime's duration
	Curve     []float64 // SetValueCurveAtTime's piecewise-linear lookup table
}

// Param holds a last-computed intrinsic value, a sorted event timeline,
// and a set of connected driver outputs summed into the a-rate output
// (spec §3).
type Param struct {
	mu        sync.Mutex
	intrinsic float64
	events    []Event
	drivers   []*Output

	minValue, maxValue float64
	hasRange           bool
}

// NewParam creates a Param with the given default intrinsic value.
func NewParam(defaultValue float64) *Param {
	return &Param{intrinsic: defaultValue}
}

// SetRange constrains future intrinsic reads/writes to [min,max]. Used by
// nodes like DelayNode whose delayTime must stay within maxDelayTime.
func (p *Param) SetRange(min, max float64) {
	p.mu.Lock()
	p.minValue, p.maxValue, p.hasRange = min, max, true
	p.mu.Unlock()
}

func (p *Param) clamp(v float64) float64 {
	if !p.hasRange {
		return v
	}
	if v < p.minValue {
		return p.minValue
	}
	if v > p.maxValue {
		return p.maxValue
	}
	return v
}

// SetValueImmediate sets the intrinsic value with no automation event
// (used for direct main-thread assignment outside any schedule).
func (p *Param) SetValueImmediate(v float64) {
	p.mu.Lock()
	p.intrinsic = p.clamp(v)
	p.mu.Unlock()
}

// Value returns the last-computed intrinsic scalar (the k-rate value from
// the most recent quantum, or the construction default if never rendered).
func (p *Param) Value() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.intrinsic
}

func (p *Param) insert(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// Events with equal start times keep insertion order (stable sort,
	// spec §4.2 "Ordering and tie-breaks").
	idx := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].StartTime > e.StartTime
	})
	p.events = append(p.events, Event{})
	copy(p.events[idx+1:], p.events[idx:])
	p.events[idx] = e
}

func (p *Param) SetValueAt(v, t float64) {
	p.insert(Event{Kind: SetValueAtTime, Value: v, StartTime: t})
}

func (p *Param) LinearRampTo(v, t float64) {
	p.insert(Event{Kind: LinearRampToValueAtTime, Value: v, StartTime: t})
}

// ExponentialRampTo schedules an exponential ramp. If v or the previous
// event's value is non-positive, the spec (§4.2, §9 Open Question) directs
// falling back to a linear ramp and recording a diagnostic (see
// DrainDiagnostics) rather than inferring LabSound's original
// (inconsistent) behavior.
func (p *Param) ExponentialRampTo(v, t float64) {
	p.mu.Lock()
	prevPositive := p.intrinsic > 0
	if len(p.events) > 0 {
		prevPositive = p.events[len(p.events)-1].Value > 0
	}
	p.mu.Unlock()
	if v <= 0 || !prevPositive {
		recordFailure(0, "Param", "exponential ramp to non-positive value or from non-positive value; falling back to linear ramp")
		p.insert(Event{Kind: LinearRampToValueAtTime, Value: v, StartTime: t})
		return
	}
	p.insert(Event{Kind: ExponentialRampToValueAtTime, Value: v, StartTime: t})
}

func (p *Param) SetTargetAt(target, t, timeConstant float64) {
	p.insert(Event{Kind: SetTargetAtTime, Value: target, StartTime: t, TimeConst: timeConstant})
}

func (p *Param) SetValueCurveAt(curve []float64, t, duration float64) {
	p.insert(Event{Kind: SetValueCurveAtTime, Curve: curve, StartTime: t, Duration: duration})
}

// CancelScheduledValues removes every event with StartTime >= t (§4.2).
func (p *Param) CancelScheduledValues(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.events[:0]
	for _, e := range p.events {
		if e.StartTime < t {
			kept = append(kept, e)
		}
	}
	p.events = kept
}

// ConnectDriver adds an a-rate driver output to this param's summed set
// (Context.connect_param, spec §4.2, §6).
func (p *Param) ConnectDriver(out *Output) {
	p.mu.Lock()
	p.drivers = append(p.drivers, out)
	p.mu.Unlock()
}

func (p *Param) DisconnectDriver(out *Output) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, d := range p.drivers {
		if d == out {
			p.drivers = append(p.drivers[:i], p.drivers[i+1:]...)
			return
		}
	}
}

// hasDrivers reports whether any a-rate driver is connected.
func (p *Param) hasDrivers() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.drivers) > 0
}

// spansQuantum reports whether the automation can change within
// (quantumStart, quantumStart+quantumDuration): an event starts strictly
// inside it, a SetTarget event is already armed, or a ramp's segment
// overlaps it — if not, and there are no drivers, the param can be
// evaluated once as a k-rate constant (§4.2).
func (p *Param) spansQuantum(quantumStart, quantumDuration float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	quantumEnd := quantumStart + quantumDuration
	prevTime := 0.0
	for _, e := range p.events {
		if e.StartTime > quantumStart && e.StartTime < quantumEnd {
			return true
		}
		if e.Kind == SetTargetAtTime && e.StartTime <= quantumStart {
			return true // approaches target continuously; always sample-accurate once armed
		}
		// A ramp already in progress (started before this quantum, still
		// interpolating past it) must still be sampled per-frame even
		// though it doesn't start within this quantum's window.
		if (e.Kind == LinearRampToValueAtTime || e.Kind == ExponentialRampToValueAtTime) &&
			e.StartTime >= quantumEnd && prevTime < quantumEnd {
			return true
		}
		prevTime = e.StartTime
	}
	return false
}

// evalAt computes the scalar automation value at time t (ignoring
// drivers), per the event-selection rule in spec §4.2: the last event
// with StartTime <= t governs, except that a linear or exponential ramp
// event governs the segment from the previous event up to its own
// StartTime.
func (p *Param) evalAt(t float64) float64 {
	p.mu.Lock()
	events := p.events
	intrinsic := p.intrinsic
	p.mu.Unlock()

	if len(events) == 0 {
		return intrinsic
	}

	// Find the last event with StartTime <= t.
	idx := -1
	for i, e := range events {
		if e.StartTime <= t {
			idx = i
		} else {
			break
		}
	}
	// A ramp ends its segment at its own StartTime, so it also governs the
	// times leading up to it.
	if next := idx + 1; next < len(events) &&
		(events[next].Kind == LinearRampToValueAtTime || events[next].Kind == ExponentialRampToValueAtTime) {
		idx = next
	}
	if idx == -1 {
		return intrinsic
	}

	cur := events[idx]
	var prevValue, prevTime float64
	if idx == 0 {
		prevValue, prevTime = intrinsic, 0
	} else {
		prevValue, prevTime = events[idx-1].Value, events[idx-1].StartTime
	}

	switch cur.Kind {
	case SetValueAtTime:
		return cur.Value
	case LinearRampToValueAtTime:
		if t >= cur.StartTime {
			return cur.Value
		}
		if cur.StartTime == prevTime {
			return cur.Value
		}
		frac := (t - prevTime) / (cur.StartTime - prevTime)
		return prevValue + (cur.Value-prevValue)*frac
	case ExponentialRampToValueAtTime:
		if t >= cur.StartTime {
			return cur.Value
		}
		if prevValue <= 0 || cur.Value <= 0 || cur.StartTime == prevTime {
			return cur.Value
		}
		frac := (t - prevTime) / (cur.StartTime - prevTime)
		return prevValue * math.Pow(cur.Value/prevValue, frac)
	case SetTargetAtTime:
		if cur.TimeConst <= 0 {
			return cur.Value
		}
		return cur.Value - (cur.Value-prevValue)*math.Exp(-(t-cur.StartTime)/cur.TimeConst)
	case SetValueCurveAtTime:
		if cur.Duration <= 0 || len(cur.Curve) == 0 {
			return cur.Value
		}
		frac := (t - cur.StartTime) / cur.Duration
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		pos := frac * float64(len(cur.Curve)-1)
		i0 := int(pos)
		if i0 >= len(cur.Curve)-1 {
			return cur.Curve[len(cur.Curve)-1]
		}
		f := pos - float64(i0)
		return cur.Curve[i0] + (cur.Curve[i0+1]-cur.Curve[i0])*f
	}
	return intrinsic
}

// RenderResult is the outcome of evaluating a Param for one quantum.
type RenderResult struct {
	Constant bool
	Value    float64   // valid iff Constant
	Samples  []float32 // valid iff !Constant, length Q
}

// Render evaluates the param across one render quantum starting at
// quantumStart seconds. If there are no drivers and no event spans the
// quantum, it returns a single k-rate constant (§4.2 step 1); otherwise
// it fills Q a-rate samples, stepping the timeline and summing all driver
// buses down-mixed to mono (§4.2 step 2).
func (p *Param) Render(quantumStart, sampleRate float64) RenderResult {
	p.mu.Lock()
	drivers := append([]*Output(nil), p.drivers...)
	p.mu.Unlock()

	duration := float64(Q) / sampleRate
	if len(drivers) == 0 && !p.spansQuantum(quantumStart, duration) {
		v := p.clamp(p.evalAt(quantumStart))
		p.mu.Lock()
		p.intrinsic = v
		p.mu.Unlock()
		return RenderResult{Constant: true, Value: v}
	}

	samples := make([]float32, Q)
	for i := 0; i < Q; i++ {
		t := quantumStart + float64(i)/sampleRate
		samples[i] = float32(p.clamp(p.evalAt(t)))
	}
	for _, d := range drivers {
		bus := d.bus
		if bus == nil || bus.IsSilent() {
			continue
		}
		mono := monoDownmix(bus)
		for i := 0; i < Q && i < len(mono); i++ {
			samples[i] += mono[i]
		}
	}
	if p.hasRange {
		for i := range samples {
			samples[i] = float32(p.clamp(float64(samples[i])))
		}
	}
	p.mu.Lock()
	p.intrinsic = float64(samples[Q-1])
	p.mu.Unlock()
	return RenderResult{Samples: samples}
}

func monoDownmix(bus *Bus) []float32 {
	n := bus.NumChannels()
	frames := bus.Frames()
	out := make([]float32, frames)
	if n == 0 {
		return out
	}
	for ci := 0; ci < n; ci++ {
		d := bus.Channel(ci).Data()
		for i := 0; i < frames; i++ {
			out[i] += d[i]
		}
	}
	inv := float32(1) / float32(n)
	for i := range out {
		out[i] *= inv
	}
	return out
}
