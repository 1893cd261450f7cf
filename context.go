// context.go - the Context: node arena, lock pair, scheduler, public API
// (spec §3 "Context", §4.5, §5, §6).

package audiograph

import (
	"sync"
	"sync/atomic"
)

// Context owns every node, the destination, and the render/graph lock
// pair. Per spec §9's redesign note, a single sync.RWMutex models both
// tokens: the render thread holds it RLock'd for one quantum, and the
// coordinator goroutine holds it Lock'd briefly between quanta — the two
// can never be held simultaneously, which is exactly RWMutex's contract.
type Context struct {
	lock sync.RWMutex

	sampleRate float64

	mu       sync.Mutex // guards nodes/nextID (arena bookkeeping, not the audio path)
	nodes    map[NodeID]*Node
	nextID   NodeID

	Destination *Node

	currentFrame atomic.Uint64
	quantumIndex uint64

	edits editQueue

	coordinatorStop chan struct{}
	coordinatorDone chan struct{}
	stopped         atomic.Bool

	hrtf *HRTFDatabase
}

// Config configures a new Context (the ambient "Configuration" stack
// item in SPEC_FULL.md, modeled on the teacher's NewSoundChip(backend)).
type Config struct {
	SampleRate   float64
	Device       AudioDevice // nil uses a HeadlessDevice
	HRTFDatabase *HRTFDatabase
}

// NewContext creates a Context, its destination node, and starts the
// graph-edit coordinator goroutine (spec §4.5, §6 Context::new).
func NewContext(cfg Config) (*Context, error) {
	if cfg.SampleRate <= 0 {
		return nil, newError(InvalidArgument, "NewContext", "sample rate must be positive")
	}
	ctx := &Context{
		sampleRate:      cfg.SampleRate,
		nodes:           make(map[NodeID]*Node),
		coordinatorStop: make(chan struct{}),
		coordinatorDone: make(chan struct{}),
		hrtf:            cfg.HRTFDatabase,
	}
	ctx.Destination = ctx.newNode(KindDestination, &destinationBehavior{}, 2, Explicit, Speakers, 1, 1)

	go ctx.runCoordinator()

	if cfg.Device == nil {
		cfg.Device = NewHeadlessDevice()
	}
	cfg.Device.SetRenderSource(ctx)
	return ctx, nil
}

// newNode allocates a Node in the arena with the given input/output
// counts, wires its channel negotiation defaults, and returns it. Only
// called from the main thread (construction time), never the render
// thread or coordinator.
func (ctx *Context) newNode(kind NodeKind, behavior NodeBehavior, outputChannels int, countMode ChannelCountMode, interp Interpretation, numInputs, numOutputs int) *Node {
	ctx.mu.Lock()
	id := ctx.nextID
	ctx.nextID++
	ctx.mu.Unlock()

	n := &Node{
		ID:             id,
		Kind:           kind,
		behavior:       behavior,
		params:         make(map[string]*Param),
		settings:       make(map[string]*Setting),
		channelCount:   outputChannels,
		countMode:      countMode,
		interpretation: interp,
		sampleRate:     ctx.sampleRate,
		ctx:            ctx,
	}
	for i := 0; i < numInputs; i++ {
		n.Inputs = append(n.Inputs, newInput(n, i, ctx.sampleRate))
	}
	for i := 0; i < numOutputs; i++ {
		n.Outputs = append(n.Outputs, newOutput(n, i, outputChannels, ctx.sampleRate))
	}

	ctx.mu.Lock()
	ctx.nodes[id] = n
	ctx.mu.Unlock()
	return n
}

// SampleRate returns the context's fixed sample rate.
func (ctx *Context) SampleRate() float64 { return ctx.sampleRate }

// CurrentSampleFrame returns the monotonic sample-frame counter (spec §6,
// §8: strictly monotonic, advances by exactly Q per quantum processed).
func (ctx *Context) CurrentSampleFrame() uint64 { return ctx.currentFrame.Load() }

// CurrentTime returns CurrentSampleFrame converted to seconds.
func (ctx *Context) CurrentTime() float64 {
	return float64(ctx.currentFrame.Load()) / ctx.sampleRate
}

// Connect enqueues a Connect edit (spec §6 Context::connect).
func (ctx *Context) Connect(dst, src *Node, dstInput, srcOutput int) {
	ctx.edits.push(pendingEdit{kind: editConnect, dstNode: dst, dstInput: dstInput, srcNode: src, srcOut: srcOutput})
}

// Disconnect enqueues a Disconnect edit. Either dst or src may be nil,
// meaning "all matching" on the non-nil side (spec §6).
func (ctx *Context) Disconnect(dst, src *Node, dstInput, srcOutput int) {
	if dst == nil {
		ctx.edits.push(pendingEdit{kind: editDisconnect, srcNode: src, srcOut: srcOutput, dstInput: -1})
		return
	}
	if src == nil {
		ctx.edits.push(pendingEdit{kind: editDisconnect, dstNode: dst, dstInput: dstInput, srcOut: -1})
		return
	}
	ctx.edits.push(pendingEdit{kind: editDisconnect, dstNode: dst, dstInput: dstInput, srcNode: src, srcOut: srcOutput})
}

// ConnectParam enqueues a ConnectParam edit, wiring srcNode's output as
// an a-rate driver of param (spec §6 Context::connect_param).
func (ctx *Context) ConnectParam(param *Param, src *Node, srcOutput int) {
	ctx.edits.push(pendingEdit{kind: editConnectParam, param: param, srcNode: src, srcOut: srcOutput})
}

// DisconnectParam enqueues removal of srcNode's output as a driver of param.
func (ctx *Context) DisconnectParam(param *Param, src *Node, srcOutput int) {
	ctx.edits.push(pendingEdit{kind: editDisconnectParam, param: param, srcNode: src, srcOut: srcOutput})
}

// renderQuantum pulls the destination node through exactly one quantum
// under the shared render lock (spec §4.4, §5), then advances the
// monotonic frame counter by exactly Q.
func (ctx *Context) renderQuantum() *Bus {
	ctx.lock.RLock()
	defer ctx.lock.RUnlock()

	ctx.quantumIndex++
	ctx.Destination.pull(ctx.quantumIndex)
	ctx.currentFrame.Add(Q)

	return ctx.Destination.Outputs[0].Bus()
}

// Stop sets a teardown flag, joins the coordinator goroutine (bounded by
// the goroutine's own select), and rejects further edits (spec §5).
func (ctx *Context) Stop() {
	if !ctx.stopped.CompareAndSwap(false, true) {
		return
	}
	close(ctx.coordinatorStop)
	<-ctx.coordinatorDone
}

// HRTFDatabase returns the database configured for HRTF panning, or nil.
func (ctx *Context) HRTFDatabase() *HRTFDatabase { return ctx.hrtf }
