//go:build !headless

// oto_device.go - real AudioDevice backed by ebitengine/oto/v3.
//
// Modeled on the teacher's OtoPlayer (audio_backend_oto.go): an
// atomically-published render source for a lock-free Read() hot path,
// plus a pre-allocated sample buffer, generalized from mono single-chip
// sample generation to stereo quantum-pull rendering.

package audiograph

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// OtoDevice adapts the engine's quantum pull to oto's io.Reader-driven
// player.
type OtoDevice struct {
	octx    *oto.Context
	player  *oto.Player
	source  atomic.Pointer[Residual]
	sampleBuf []float32

	mu      sync.Mutex
	started bool
}

// NewOtoDevice opens an oto output context at the given sample rate,
// stereo, 32-bit float — the format the destination bus already produces.
func NewOtoDevice(sampleRate int) (*OtoDevice, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0, // oto default
	}
	octx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, newError(DeviceError, "NewOtoDevice", err.Error())
	}
	<-ready

	d := &OtoDevice{octx: octx, sampleBuf: make([]float32, 4096)}
	d.player = octx.NewPlayer(d)
	return d, nil
}

func (d *OtoDevice) SetRenderSource(ctx *Context) {
	d.source.Store(NewResidual(ctx))
}

// Read implements io.Reader for oto.Context.NewPlayer: it is invoked by
// oto's own playback goroutine, never by the render thread.
func (d *OtoDevice) Read(p []byte) (int, error) {
	r := d.source.Load()
	if r == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	numSamples := len(p) / 4 // float32LE, interleaved stereo
	if len(d.sampleBuf) < numSamples {
		d.sampleBuf = make([]float32, numSamples)
	}
	samples := d.sampleBuf[:numSamples]
	r.Render(samples, numSamples/2, 2)

	for i, v := range samples {
		putFloat32LE(p[i*4:i*4+4], v)
	}
	return len(p), nil
}

func putFloat32LE(b []byte, v float32) {
	bits := math.Float32bits(v)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}

func (d *OtoDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		d.player.Play()
		d.started = true
	}
	return nil
}

func (d *OtoDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		_ = d.player.Close()
		d.started = false
	}
	return nil
}

func (d *OtoDevice) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}
