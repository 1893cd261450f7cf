// headless_device.go - a no-OS-output AudioDevice, used by tests and any
// build without a real sound backend. Modeled directly on the teacher's
// audio_backend_headless.go.

package audiograph

import "sync/atomic"

// HeadlessDevice implements AudioDevice without touching any OS audio
// API; Pull can be called directly by tests to drive rendering.
type HeadlessDevice struct {
	ctx     *Context
	running atomic.Bool
}

func NewHeadlessDevice() *HeadlessDevice { return &HeadlessDevice{} }

func (h *HeadlessDevice) SetRenderSource(ctx *Context) { h.ctx = ctx }

func (h *HeadlessDevice) Start() error {
	h.running.Store(true)
	return nil
}

func (h *HeadlessDevice) Stop() error {
	h.running.Store(false)
	return nil
}

func (h *HeadlessDevice) IsRunning() bool { return h.running.Load() }

// Pull renders `frames` interleaved stereo frames directly, for tests
// that don't want to stand up a real output stream.
func (h *HeadlessDevice) Pull(out []float32, frames int) {
	if h.ctx == nil {
		for i := range out {
			out[i] = 0
		}
		return
	}
	r := NewResidual(h.ctx)
	r.Render(out, frames, 2)
}
