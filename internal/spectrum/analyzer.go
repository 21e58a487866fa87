package spectrum

import (
	"sync"

	"euphonica-core/internal/eventbus"
)

// Status mirrors the backend's state machine (spec.md §4.4):
// Invalid -> ValidNotReading -> Reading -> Stopping -> Invalid.
// "Valid" means the backend can currently open its input source.
type Status int

const (
	StatusInvalid Status = iota
	StatusValidNotReading
	StatusReading
	StatusStopping
)

func (s Status) String() string {
	switch s {
	case StatusValidNotReading:
		return "valid-not-reading"
	case StatusReading:
		return "reading"
	case StatusStopping:
		return "stopping"
	default:
		return "invalid"
	}
}

// Params are the on-the-fly-adjustable knobs a Backend reads at the
// top of every frame (spec.md §4.4, §6 Player/visualizer group).
type Params struct {
	FPS            int
	NSamples       int
	NBins          int
	BinMode        BinMode
	MinHz          float64
	MaxHz          float64
	SmoothingAlpha float64
}

// Output is the shared tuple the analyzer writes into and consumers
// read from: per-bin magnitudes for the left and right channels.
// Reads and writes both take Mu; the lock is only ever held for the
// duration of a slice copy or swap (spec.md §5 resource model).
type Output struct {
	Mu    sync.Mutex
	Left  []float32
	Right []float32
}

// Snapshot copies the current left/right bins into dst, resizing them
// if needed, and returns them. Safe to call from any goroutine.
func (o *Output) Snapshot(dstLeft, dstRight []float32) ([]float32, []float32) {
	o.Mu.Lock()
	defer o.Mu.Unlock()
	dstLeft = append(dstLeft[:0], o.Left...)
	dstRight = append(dstRight[:0], o.Right...)
	return dstLeft, dstRight
}

// ParamsSource lets a running backend re-read the fps/bin-mode/Hz
// range/smoothing knobs at the top of every frame, matching the
// original player reading its GSettings live rather than once at
// start. NSamples is only consulted at Start, since it sizes the
// sample buffers; NBins is re-read every frame and the output bins
// are resized when it changes.
type ParamsSource interface {
	Params() Params
}

// Backend is the capture-source abstraction (spec.md §4.4 Backend
// trait): start pushes frames into output until stopped; status
// reports whether the backend's input source is currently reachable.
type Backend interface {
	// Start begins producing frames into output at params.FPS,
	// returning an error if already running or if the input source
	// cannot be opened. Non-blocking: it owns its own goroutine(s).
	// initial.NSamples sizes the backend's buffers for this run;
	// live is consulted each frame for the rest of the knobs.
	Start(output *Output, initial Params, live ParamsSource) error
	// Stop halts the backend. If block is true, Stop waits for the
	// worker goroutine(s) to exit before returning.
	Stop(block bool)
	// Status reports the current position in the state machine.
	Status() Status
}

// Analyzer owns a Backend and republishes its status transitions on
// the event bus (eventbus.TopicSpectrumStatus) so the UI context can
// react without polling.
type Analyzer struct {
	mu      sync.Mutex
	backend Backend
	output  *Output
	params  Params
	bus     *eventbus.Bus
	last    Status
}

// NewAnalyzer wires backend to bus. params are the initial FFT/bin
// settings; call SetParams to change them while reading.
func NewAnalyzer(backend Backend, bus *eventbus.Bus, params Params) *Analyzer {
	return &Analyzer{
		backend: backend,
		output:  &Output{},
		params:  params,
		bus:     bus,
		last:    StatusInvalid,
	}
}

// Output returns the shared output buffer consumers should read from.
func (a *Analyzer) Output() *Output { return a.output }

// Start begins reading from the backend. Safe to call again after Stop.
func (a *Analyzer) Start() error {
	a.mu.Lock()
	params := a.params
	a.mu.Unlock()
	if err := a.backend.Start(a.output, params, a); err != nil {
		a.publishStatus()
		return err
	}
	a.publishStatus()
	return nil
}

// Stop halts the backend, optionally blocking until its worker(s) exit.
func (a *Analyzer) Stop(block bool) {
	a.backend.Stop(block)
	a.publishStatus()
}

// Status reports the backend's current state.
func (a *Analyzer) Status() Status { return a.backend.Status() }

// Params returns the current configuration, implementing ParamsSource
// so a running backend can re-read fps/bin-mode/Hz-range/alpha live.
func (a *Analyzer) Params() Params {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.params
}

// SetParams updates the FFT/bin configuration. Backends read Params
// fresh at the top of every frame, so changes apply on the next tick
// without a restart.
func (a *Analyzer) SetParams(params Params) {
	a.mu.Lock()
	a.params = params
	a.mu.Unlock()
}

func (a *Analyzer) publishStatus() {
	if a.bus == nil {
		return
	}
	s := a.backend.Status()
	a.mu.Lock()
	changed := s != a.last
	a.last = s
	a.mu.Unlock()
	if changed {
		a.bus.Publish(eventbus.TopicSpectrumStatus, s)
	}
}
