package spectrum

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// ringBuffer is a fixed-capacity circular buffer of float32 samples,
// used to decouple the real-time capture callback's cadence from the
// FFT worker's fps (spec.md §4.4 "audio-graph capture": "pushes
// interleaved f32 stereo into two ring buffers of length n_samples").
type ringBuffer struct {
	buf    []float32
	pos    int
	filled bool
}

func newRingBuffer(n int) *ringBuffer {
	return &ringBuffer{buf: make([]float32, n)}
}

func (r *ringBuffer) push(v float32) {
	r.buf[r.pos] = v
	r.pos++
	if r.pos == len(r.buf) {
		r.pos = 0
		r.filled = true
	}
}

// snapshotInto copies the ring's contents into dst in chronological
// order (oldest first, most recent last), left-padding with zero
// while the ring has not yet filled once.
func (r *ringBuffer) snapshotInto(dst []float32) {
	n := len(r.buf)
	if !r.filled {
		for i := range dst {
			dst[i] = 0
		}
		copy(dst[n-r.pos:], r.buf[:r.pos])
		return
	}
	copy(dst, r.buf[r.pos:])
	copy(dst[n-r.pos:], r.buf[:r.pos])
}

// CaptureBackend is the audio-graph capture Backend (spec.md §4.4
// "Backend: audio-graph capture"): a real-time capture callback feeds
// ring buffers, and a separate worker wakes at fps to snapshot them
// and run the FFT. Built on malgo (miniaudio bindings), the
// cross-platform analog of the original's PipeWire-only backend.
type CaptureBackend struct {
	sampleRate uint32

	mu      sync.Mutex
	running bool
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	done    chan struct{}
	stop    atomic.Bool
}

// NewCaptureBackend builds a backend capturing at sampleRate Hz
// stereo float32 from the host's default capture device.
func NewCaptureBackend(sampleRate uint32) *CaptureBackend {
	return &CaptureBackend{sampleRate: sampleRate}
}

func (b *CaptureBackend) Start(output *Output, initial Params, live ParamsSource) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("spectrum: capture backend already running")
	}
	b.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return fmt.Errorf("spectrum: init audio context: %w", err)
	}

	nSamples := initial.NSamples
	ringLeft := newRingBuffer(nSamples)
	ringRight := newRingBuffer(nSamples)
	var ringMu sync.Mutex

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = 2
	deviceCfg.SampleRate = b.sampleRate
	deviceCfg.PeriodSizeInFrames = 960

	onRecvFrames := func(_, input []byte, frameCount uint32) {
		ringMu.Lock()
		defer ringMu.Unlock()
		const bytesPerSample = 4
		for i := uint32(0); i < frameCount; i++ {
			base := i * 2 * bytesPerSample
			if int(base+2*bytesPerSample) > len(input) {
				break
			}
			left := float32FromLEBytes(input[base : base+bytesPerSample])
			right := float32FromLEBytes(input[base+bytesPerSample : base+2*bytesPerSample])
			ringLeft.push(left)
			ringRight.push(right)
		}
	}

	device, err := malgo.InitDevice(ctx.Context, deviceCfg, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("spectrum: init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("spectrum: start capture device: %w", err)
	}

	b.mu.Lock()
	b.ctx = ctx
	b.device = device
	b.running = true
	b.done = make(chan struct{})
	done := b.done
	b.mu.Unlock()
	b.stop.Store(false)

	go b.runFFT(nSamples, ringLeft, ringRight, &ringMu, output, live, done)
	return nil
}

func (b *CaptureBackend) runFFT(nSamples int, ringLeft, ringRight *ringBuffer, ringMu *sync.Mutex, output *Output, live ParamsSource, done chan struct{}) {
	defer close(done)

	fftBufLeft := make([]float32, nSamples)
	fftBufRight := make([]float32, nSamples)
	var curStepLeft, curStepRight []float32
	mf := newMagnitudeFFT(nSamples)

	for {
		if b.stop.Load() {
			return
		}
		p := live.Params()

		ringMu.Lock()
		ringLeft.snapshotInto(fftBufLeft)
		ringRight.snapshotInto(fftBufRight)
		ringMu.Unlock()

		curStepLeft = getMagnitudes(mf, float64(b.sampleRate), fftBufLeft, curStepLeft, p.NBins, p.BinMode, p.MinHz, p.MaxHz)
		curStepRight = getMagnitudes(mf, float64(b.sampleRate), fftBufRight, curStepRight, p.NBins, p.BinMode, p.MinHz, p.MaxHz)

		output.Mu.Lock()
		output.Left = smoothInto(output.Left, curStepLeft, p.SmoothingAlpha)
		output.Right = smoothInto(output.Right, curStepRight, p.SmoothingAlpha)
		output.Mu.Unlock()

		fps := p.FPS
		if fps <= 0 {
			fps = 60
		}
		time.Sleep(time.Duration(float64(time.Second) / float64(fps)))
	}
}

func float32FromLEBytes(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}

func (b *CaptureBackend) Stop(block bool) {
	b.stop.Store(true)

	b.mu.Lock()
	device, ctx, done := b.device, b.ctx, b.done
	b.device, b.ctx = nil, nil
	b.running = false
	b.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
	if ctx != nil {
		ctx.Uninit()
		ctx.Free()
	}
	if block && done != nil {
		<-done
	}
}

func (b *CaptureBackend) Status() Status {
	b.mu.Lock()
	running := b.running
	b.mu.Unlock()
	if running {
		return StatusReading
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return StatusInvalid
	}
	defer func() {
		ctx.Uninit()
		ctx.Free()
	}()
	devices, err := ctx.Devices(malgo.Capture)
	if err != nil || len(devices) == 0 {
		return StatusInvalid
	}
	return StatusValidNotReading
}
