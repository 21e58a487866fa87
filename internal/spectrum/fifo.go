package spectrum

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// PCMFormat describes the daemon's FIFO output sink: sample rate,
// bit depth (0 means 32-bit float), and channel count. Parsed from
// the daemon's own "rate:bits:channels" format string, e.g.
// "44100:16:2" or "48000:f:2" for float32.
type PCMFormat struct {
	Rate     int
	Bits     int // 0 = 32-bit float
	Channels int
}

// ParsePCMFormat parses the MPD-style "rate:bits:channels" triple.
// "f" in the bits field selects 32-bit float samples.
func ParsePCMFormat(s string) (PCMFormat, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return PCMFormat{}, fmt.Errorf("spectrum: invalid audio format %q, want rate:bits:channels", s)
	}
	rate, err := strconv.Atoi(parts[0])
	if err != nil {
		return PCMFormat{}, fmt.Errorf("spectrum: invalid rate in %q: %w", s, err)
	}
	var bits int
	if parts[1] == "f" || parts[1] == "F" {
		bits = 0
	} else {
		bits, err = strconv.Atoi(parts[1])
		if err != nil {
			return PCMFormat{}, fmt.Errorf("spectrum: invalid bit depth in %q: %w", s, err)
		}
	}
	channels, err := strconv.Atoi(parts[2])
	if err != nil {
		return PCMFormat{}, fmt.Errorf("spectrum: invalid channel count in %q: %w", s, err)
	}
	return PCMFormat{Rate: rate, Bits: bits, Channels: channels}, nil
}

// bytesPerSample is the on-wire size of one channel's sample.
func (f PCMFormat) bytesPerSample() int {
	if f.Bits == 0 {
		return 4
	}
	return f.Bits / 8
}

// openNamedPipeReadonly opens path for non-blocking reads, matching
// the original player's O_NONBLOCK|O_RDONLY open of the MPD FIFO
// output sink so a not-yet-writing daemon never blocks the caller.
func openNamedPipeReadonly(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}

// FifoBackend is the named-pipe Backend (spec.md §4.4 "Backend:
// named-pipe sink"): it reads raw interleaved PCM from a daemon FIFO
// output sink as a sliding window, feeding the shared FFT stage.
type FifoBackend struct {
	path      string
	format    PCMFormat
	bigEndian bool

	stop    atomic.Bool
	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewFifoBackend builds a backend reading path as PCM in format.
// bigEndian selects big-endian sample parsing; little-endian is the
// default and is what MPD's fifo output plugin emits.
func NewFifoBackend(path string, format PCMFormat, bigEndian bool) *FifoBackend {
	return &FifoBackend{path: path, format: format, bigEndian: bigEndian}
}

func (b *FifoBackend) Start(output *Output, initial Params, live ParamsSource) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("spectrum: fifo backend already running")
	}
	b.stop.Store(false)
	f, err := openNamedPipeReadonly(b.path)
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("spectrum: open fifo %q: %w", b.path, err)
	}
	b.done = make(chan struct{})
	b.running = true
	b.mu.Unlock()

	go b.run(f, initial.NSamples, output, live)
	return nil
}

// run is the FFT worker goroutine. It keeps a sliding byte window of
// the most recently read PCM, advancing it by rate/fps samples every
// frame, padding with zeros when not enough data has arrived yet.
func (b *FifoBackend) run(f *os.File, nSamples int, output *Output, live ParamsSource) {
	defer func() {
		f.Close()
		b.mu.Lock()
		b.running = false
		close(b.done)
		b.mu.Unlock()
	}()

	bps := b.format.bytesPerSample()
	frameBytes := bps * 2
	window := make([]byte, 0, frameBytes*nSamples*4)
	readBuf := make([]byte, 4096)

	fftBufLeft := make([]float32, nSamples)
	fftBufRight := make([]float32, nSamples)
	var curStepLeft, curStepRight []float32
	mf := newMagnitudeFFT(nSamples)

	for {
		if b.stop.Load() {
			return
		}
		p := live.Params()

		fatal := b.topUpWindow(f, &window, readBuf, frameBytes*nSamples*4)
		if fatal != nil {
			return
		}

		fillStereoWindow(window, fftBufLeft, fftBufRight, b.format, b.bigEndian)

		curStepLeft = getMagnitudes(mf, float64(b.format.Rate), fftBufLeft, curStepLeft, p.NBins, p.BinMode, p.MinHz, p.MaxHz)
		curStepRight = getMagnitudes(mf, float64(b.format.Rate), fftBufRight, curStepRight, p.NBins, p.BinMode, p.MinHz, p.MaxHz)

		output.Mu.Lock()
		output.Left = smoothInto(output.Left, curStepLeft, p.SmoothingAlpha)
		output.Right = smoothInto(output.Right, curStepRight, p.SmoothingAlpha)
		output.Mu.Unlock()

		fps := p.FPS
		if fps <= 0 {
			fps = 60
		}
		advance := int(math.Ceil(float64(b.format.Rate) / float64(fps) * float64(frameBytes)))
		if advance > len(window) {
			advance = len(window)
		}
		window = append(window[:0], window[advance:]...)

		time.Sleep(time.Duration(float64(time.Second) / float64(fps)))
	}
}

// topUpWindow drains whatever bytes the non-blocking fd currently has
// to offer into window, capping it at maxLen bytes of the most recent
// data. Returns a non-nil error only for conditions other than "no
// data right now" or EOF, matching spec.md §7's "WouldBlock/EOF are
// silent; others terminate the frame".
func (b *FifoBackend) topUpWindow(f *os.File, window *[]byte, readBuf []byte, maxLen int) error {
	for {
		n, err := f.Read(readBuf)
		if n > 0 {
			*window = append(*window, readBuf[:n]...)
			if len(*window) > maxLen {
				*window = (*window)[len(*window)-maxLen:]
			}
		}
		if err != nil {
			if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// fillStereoWindow decodes window's trailing samples into left/right,
// left-padding with zero when window holds fewer than len(left)
// frames (spec.md §4.4: "pads leading samples with zeros when fewer
// than n_samples are available").
func fillStereoWindow(window []byte, left, right []float32, format PCMFormat, bigEndian bool) {
	bps := format.bytesPerSample()
	frameBytes := bps * 2
	for i := range left {
		left[i] = 0
		right[i] = 0
	}

	available := len(window) / frameBytes
	numSamples := len(left)
	n := numSamples
	if available < n {
		n = available
	}
	readOffset := (available - n) * frameBytes
	writeOffset := numSamples - n

	for i := 0; i < n; i++ {
		pos := readOffset + i*frameBytes
		left[writeOffset+i] = parseSample(window[pos:pos+bps], format, bigEndian)
		right[writeOffset+i] = parseSample(window[pos+bps:pos+frameBytes], format, bigEndian)
	}
}

// parseSample decodes one sample's raw bytes into a float32 in
// [-1, 1] (or already-normalized, for the float32 case).
func parseSample(raw []byte, format PCMFormat, bigEndian bool) float32 {
	if format.Bits == 0 {
		var bits uint32
		if bigEndian {
			bits = binary.BigEndian.Uint32(raw)
		} else {
			bits = binary.LittleEndian.Uint32(raw)
		}
		return math.Float32frombits(bits)
	}

	var raw32 [4]byte
	copy(raw32[:], raw)
	// Shift the sample into the top bits, then shift back arithmetically
	// so 8- and 16-bit samples are sign-extended.
	shift := 32 - 8*len(raw)
	var v int32
	if bigEndian {
		v = int32(binary.BigEndian.Uint32(raw32[:])) >> shift
	} else {
		v = int32(binary.LittleEndian.Uint32(raw32[:])<<shift) >> shift
	}

	var maxVal float32
	switch format.Bits {
	case 32:
		maxVal = math.MaxInt32
	case 16:
		maxVal = math.MaxInt16
	case 8:
		maxVal = math.MaxInt8
	default:
		maxVal = math.MaxInt32
	}
	return float32(v) / maxVal
}

func (b *FifoBackend) Stop(block bool) {
	b.stop.Store(true)
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	if block && done != nil {
		<-done
	}
}

func (b *FifoBackend) Status() Status {
	b.mu.Lock()
	running := b.running
	b.mu.Unlock()
	if running {
		return StatusReading
	}
	if f, err := openNamedPipeReadonly(b.path); err == nil {
		f.Close()
		return StatusValidNotReading
	}
	return StatusInvalid
}
