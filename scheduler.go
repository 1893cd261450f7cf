// scheduler.go - the graph-edit coordinator (spec §4.5, §5).
//
// All user-facing graph mutations are non-blocking: they enqueue an edit
// that a dedicated coordinator goroutine later applies under the
// exclusive graph lock, between render quanta. Modeled on the teacher's
// render/graph split between SoundChip.GenerateSample (RLock) and
// SoundChip.HandleRegisterWrite (Lock) in audio_chip.go, generalized from
// "always available" register writes to a deferred, time-gated queue.

package audiograph

import (
	"sync"
	"time"
)

type editKind int

const (
	editConnect editKind = iota
	editDisconnect
	editConnectParam
	editDisconnectParam
)

type pendingEdit struct {
	kind editKind

	dstNode  *Node
	dstInput int
	srcNode  *Node
	srcOut   int

	param *Param

	notBefore float64 // seconds; edits due later are re-queued (spec §4.5 step 2)
}

// editQueue is the FIFO of pending topology edits, drained by the
// coordinator goroutine.
type editQueue struct {
	mu      sync.Mutex
	pending []pendingEdit
}

func (q *editQueue) push(e pendingEdit) {
	q.mu.Lock()
	q.pending = append(q.pending, e)
	q.mu.Unlock()
}

// drain removes and returns every edit due by `now`, re-queueing (in
// order) any whose not-before time is more than 100ms in the future
// (spec §4.5 step 2).
func (q *editQueue) drain(now float64) []pendingEdit {
	q.mu.Lock()
	defer q.mu.Unlock()
	var due []pendingEdit
	var keep []pendingEdit
	for _, e := range q.pending {
		if e.notBefore > now+0.1 {
			keep = append(keep, e)
			continue
		}
		due = append(due, e)
	}
	q.pending = keep
	return due
}

const coordinatorTick = 10 * time.Millisecond // ~100Hz, spec §4.5

// coordinator drains ctx.edits at ~100Hz under the exclusive graph lock.
// It is the only goroutine permitted to mutate Node.Inputs/Outputs
// topology (spec §3, §5).
func (ctx *Context) runCoordinator() {
	defer close(ctx.coordinatorDone)
	ticker := time.NewTicker(coordinatorTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.coordinatorStop:
			return
		case <-ticker.C:
			ctx.applyPendingEdits()
		}
	}
}

func (ctx *Context) applyPendingEdits() {
	ctx.lock.Lock()
	defer ctx.lock.Unlock()

	now := ctx.CurrentTime()
	for _, e := range ctx.edits.drain(now) {
		switch e.kind {
		case editConnect:
			if e.dstInput < 0 || e.dstInput >= len(e.dstNode.Inputs) ||
				e.srcOut < 0 || e.srcOut >= len(e.srcNode.Outputs) {
				logf("audiograph: dropping malformed Connect edit (out of range indices)")
				continue
			}
			e.dstNode.Inputs[e.dstInput].connect(e.srcNode.Outputs[e.srcOut])
		case editDisconnect:
			applyDisconnect(e)
		case editConnectParam:
			if e.srcOut < 0 || e.srcOut >= len(e.srcNode.Outputs) {
				logf("audiograph: dropping malformed ConnectParam edit")
				continue
			}
			e.param.ConnectDriver(e.srcNode.Outputs[e.srcOut])
		case editDisconnectParam:
			if e.srcNode != nil && e.srcOut >= 0 && e.srcOut < len(e.srcNode.Outputs) {
				e.param.DisconnectDriver(e.srcNode.Outputs[e.srcOut])
			}
		}
	}
}

// applyDisconnect implements spec §4.5 step 4: if both dst and src are
// specified, remove that one pairing; if only one side is given, disconnect
// all pairings on that side.
func applyDisconnect(e pendingEdit) {
	switch {
	case e.dstNode != nil && e.srcNode != nil:
		if e.dstInput >= 0 && e.dstInput < len(e.dstNode.Inputs) &&
			e.srcOut >= 0 && e.srcOut < len(e.srcNode.Outputs) {
			e.dstNode.Inputs[e.dstInput].disconnect(e.srcNode.Outputs[e.srcOut])
		}
	case e.dstNode != nil:
		if e.dstInput >= 0 && e.dstInput < len(e.dstNode.Inputs) {
			e.dstNode.Inputs[e.dstInput].disconnect(nil)
		} else {
			for _, in := range e.dstNode.Inputs {
				in.disconnect(nil)
			}
		}
	case e.srcNode != nil:
		if e.srcOut >= 0 && e.srcOut < len(e.srcNode.Outputs) {
			e.srcNode.Outputs[e.srcOut].DisconnectAllDownstream()
		} else {
			for _, out := range e.srcNode.Outputs {
				out.DisconnectAllDownstream()
			}
		}
	}
}
