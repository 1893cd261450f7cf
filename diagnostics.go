// diagnostics.go - bounded diagnostic channel that never blocks on the hot path.
//
// The render thread must never block on log I/O (spec §5), so a node
// failure inside Process is recorded into a small fixed-size ring instead
// of being logged directly; the main thread drains it opportunistically.
// This generalises the teacher's log.Printf("invalid register address...")
// diagnostic (audio_chip.go) into something safe to call from the audio
// callback.

package audiograph

import (
	"log"
	"sync"
	"sync/atomic"
)

const diagnosticRingSize = 64

// Diagnostic is one recorded render-thread failure.
type Diagnostic struct {
	NodeID  NodeID
	Node    string
	Message string
}

type diagnosticRing struct {
	mu      sync.Mutex
	entries [diagnosticRingSize]Diagnostic
	next    uint32
	dropped uint64
}

var globalDiagnostics diagnosticRing

func (r *diagnosticRing) record(d Diagnostic) {
	if !r.mu.TryLock() {
		atomic.AddUint64(&r.dropped, 1) // a concurrent Drain holds the lock
		return
	}
	idx := r.next % diagnosticRingSize
	r.entries[idx] = d
	r.next++
	r.mu.Unlock()
}

// Drain returns and clears the diagnostics recorded since the last Drain.
// The ring keeps at most diagnosticRingSize entries; older ones are
// overwritten.
func (r *diagnosticRing) Drain() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.next
	if n > diagnosticRingSize {
		n = diagnosticRingSize
	}
	out := make([]Diagnostic, n)
	copy(out, r.entries[:n])
	r.next = 0
	return out
}

// DrainDiagnostics returns the render-thread failures recorded since the
// last call (at most diagnosticRingSize of them), for opportunistic
// main-thread inspection (spec §7).
func DrainDiagnostics() []Diagnostic {
	return globalDiagnostics.Drain()
}

var logger atomic.Pointer[log.Logger]

// SetLogger installs the *log.Logger used for graph-coordinator
// diagnostics (dropped edits) and for the reverb convolver's warning when
// its background queue overflows; that warning is issued from the render
// thread. A nil logger disables logging.
func SetLogger(l *log.Logger) {
	logger.Store(l)
}

func logf(format string, args ...any) {
	if l := logger.Load(); l != nil {
		l.Printf(format, args...)
	}
}

func recordFailure(id NodeID, name, msg string) {
	globalDiagnostics.record(Diagnostic{NodeID: id, Node: name, Message: msg})
}
