// scheduled_source.go - the ScheduledSource state machine shared by every
// timed source node (spec §3 "ScheduledSource < Node", §4.6).
//
// Grounded on the teacher's envelope state machine in audio_chip.go
// (updateEnvelope's Attack/Decay/Sustain/Release phases driven by a
// per-sample comparison against stored timestamps) — generalized from a
// fixed four-phase envelope to an arbitrary start/stop schedule with an
// on-ended callback.

package audiograph

import "sync"

type sourceState int

const (
	Unscheduled sourceState = iota
	Scheduled
	Playing
	Finished
)

func (s sourceState) String() string {
	switch s {
	case Unscheduled:
		return "Unscheduled"
	case Scheduled:
		return "Scheduled"
	case Playing:
		return "Playing"
	case Finished:
		return "Finished"
	default:
		return "unknown"
	}
}

// ScheduledSource is embedded by every source-like NodeBehavior
// (SampledAudioNode, OscillatorNode, ConstantSourceNode) to provide the
// common start/stop/on_ended timing logic of spec §4.6.
type ScheduledSource struct {
	mu sync.Mutex

	state sourceState

	startFrame uint64
	stopFrame  uint64
	hasStop    bool

	onEnded      func()
	endedFired   bool
}

// Schedule arms playback to begin at startSeconds (spec §6
// ScheduledSource::schedule). loopCount is accepted for API parity but
// looping is actually controlled by SetLoop on the owning node.
func (s *ScheduledSource) Schedule(startSeconds float64, sampleRate float64, loopCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startFrame = secondsToFrame(startSeconds, sampleRate)
	s.state = Scheduled
	s.endedFired = false
}

// Stop arms playback to end at whenSeconds.
func (s *ScheduledSource) Stop(whenSeconds float64, sampleRate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopFrame = secondsToFrame(whenSeconds, sampleRate)
	s.hasStop = true
}

// SetOnEnded installs the callback fired exactly once on the transition
// into Finished (spec §3, §6).
func (s *ScheduledSource) SetOnEnded(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnded = cb
}

func secondsToFrame(seconds, sampleRate float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(seconds * sampleRate)
}

// quantumWindow computes, for the quantum [qStart, qStart+Q), the active
// sub-range within it that the source should emit real samples for, and
// advances the state machine (spec §4.6). activeStart/activeEnd are
// frame offsets within the quantum, 0<=activeStart<=activeEnd<=Q.
func (s *ScheduledSource) quantumWindow(qStart uint64) (activeStart, activeEnd int, justFinished bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qEnd := qStart + Q

	switch s.state {
	case Unscheduled, Finished:
		return 0, 0, false
	}

	if s.hasStop && s.stopFrame <= qStart {
		wasFinished := s.state == Finished
		s.state = Finished
		if !wasFinished && !s.endedFired {
			s.endedFired = true
			justFinished = true
		}
		return 0, 0, justFinished
	}

	if s.startFrame >= qEnd {
		s.state = Scheduled
		return 0, 0, false
	}

	s.state = Playing

	start := uint64(0)
	if s.startFrame > qStart {
		start = s.startFrame - qStart
	}
	end := uint64(Q)
	if s.hasStop && s.stopFrame < qEnd {
		if s.stopFrame <= qStart {
			end = 0
		} else {
			end = s.stopFrame - qStart
		}
	}
	if end > Q {
		end = Q
	}
	if start > end {
		start = end
	}
	return int(start), int(end), false
}

// fireEnded invokes the on-ended callback outside the state lock, if one
// is installed and this quantum's transition triggered it.
func (s *ScheduledSource) fireEnded() {
	s.mu.Lock()
	cb := s.onEnded
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// State returns the current lifecycle state (for tests/diagnostics).
func (s *ScheduledSource) State() sourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// scheduledBehavior is satisfied by every NodeBehavior that embeds
// ScheduledSource, letting Node expose start/stop/onended without the
// caller reaching past the behavior field (spec §6
// AudioScheduledSourceNode.start/stop/onended).
type scheduledBehavior interface {
	Schedule(startSeconds, sampleRate float64, loopCount int)
	Stop(whenSeconds, sampleRate float64)
	SetOnEnded(cb func())
}

// Start schedules this node (an AudioBufferSourceNode, OscillatorNode, or
// ConstantSourceNode) to begin producing output at whenSeconds. A no-op
// on any other node kind.
func (n *Node) Start(whenSeconds float64) {
	if s, ok := n.behavior.(scheduledBehavior); ok {
		s.Schedule(whenSeconds, n.sampleRate, 0)
	}
}

// StopAt schedules this node to stop producing output at whenSeconds. A
// no-op on any other node kind.
func (n *Node) StopAt(whenSeconds float64) {
	if s, ok := n.behavior.(scheduledBehavior); ok {
		s.Stop(whenSeconds, n.sampleRate)
	}
}

// SetOnEnded installs the callback fired once this node's playback
// finishes. A no-op on any other node kind.
func (n *Node) SetOnEnded(cb func()) {
	if s, ok := n.behavior.(scheduledBehavior); ok {
		s.SetOnEnded(cb)
	}
}
