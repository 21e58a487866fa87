// Package spectrum implements the real-time audio spectrum analyzer
// (spec.md §4.4): a windowed FFT pipeline that turns raw PCM from
// either a named-pipe sink or a local audio-graph capture into
// per-bin left/right magnitude vectors, written on a fixed cadence
// into a shared, mutex-guarded output buffer.
//
// The FFT math itself is backend-agnostic and lives in this file;
// the two Backend implementations in fifo.go and capture.go only
// differ in how they keep fftBufLeft/fftBufRight filled with the
// latest n_samples of PCM.
package spectrum

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// BinMode selects how frequency bins are spaced across [MinHz, MaxHz].
type BinMode int

const (
	BinLinear BinMode = iota
	BinLogarithmic
)

// blackmanHarris4TermInplace applies a 4-term Blackman-Harris window
// to samples, in place. Reduces scalloping loss ahead of the FFT.
// Coefficients match the ones used by the spectrum-analyzer crate the
// original player built on.
func blackmanHarris4TermInplace(samples []float32) {
	alphas := [4]float64{0.35875, -0.48829, 0.14128, -0.01168}
	n := float64(len(samples) - 1)

	for i := range samples {
		var w float64
		for k, alpha := range alphas {
			twoPiK := 2.0 * float64(k) * math.Pi
			w += alpha * math.Cos(twoPiK*float64(i)/n)
		}
		samples[i] *= float32(w)
	}
}

// magnitudeFFT wraps a gonum real-to-complex FFT plan, reused across
// frames so repeated Coefficients() calls don't reallocate.
type magnitudeFFT struct {
	n       int
	plan    *fourier.FFT
	coeffs  []complex128
	scratch []float64
}

func newMagnitudeFFT(n int) *magnitudeFFT {
	return &magnitudeFFT{n: n, plan: fourier.NewFFT(n), scratch: make([]float64, n)}
}

// getMagnitudes windows input in place, runs a real FFT, and bins the
// resulting magnitudes within [minHz, maxHz] into output, which is
// resized to nBins if needed. Each bin holds the maximum magnitude of
// any frequency component that falls within it (spec.md §4.4 step 4).
func getMagnitudes(mf *magnitudeFFT, sampleRate float64, input []float32, output []float32, nBins int, mode BinMode, minHz, maxHz float64) []float32 {
	blackmanHarris4TermInplace(input)

	for i, v := range input {
		mf.scratch[i] = float64(v)
	}
	mf.coeffs = mf.plan.Coefficients(mf.coeffs, mf.scratch)

	if cap(output) < nBins {
		output = make([]float32, nBins)
	} else {
		output = output[:nBins]
		for i := range output {
			output[i] = 0
		}
	}

	logMin := math.Log10(minHz)
	logMax := math.Log10(maxHz)
	linSpacing := (maxHz - minHz) / float64(nBins)
	logSpacing := (logMax - logMin) / float64(nBins)

	// mf.plan.Freq(i) returns the normalized frequency (cycles/sample)
	// of bin i; multiplying by sampleRate converts to Hz.
	for i, c := range mf.coeffs {
		freq := mf.plan.Freq(i) * sampleRate
		if freq < minHz || freq > maxHz {
			continue
		}
		mag := float32(math.Hypot(real(c), imag(c)))

		var binIdx int
		switch mode {
		case BinLogarithmic:
			binIdx = int(math.Max(0, math.Floor((math.Log10(freq)-logMin)/logSpacing)))
		default:
			binIdx = int(math.Floor((freq - minHz) / linSpacing))
		}
		if binIdx >= nBins {
			binIdx = nBins - 1
		}
		if binIdx < 0 {
			binIdx = 0
		}
		if mag > output[binIdx] {
			output[binIdx] = mag
		}
	}
	return output
}

// smoothInto applies the temporal smoothing step (spec.md §4.4 step
// 5): out[i] = alpha*newVal[i] + (1-alpha)*out[i]. out is resized to
// match newVal if their lengths differ (step 6).
func smoothInto(out []float32, newVal []float32, alpha float64) []float32 {
	if len(out) != len(newVal) {
		out = make([]float32, len(newVal))
	}
	a := float32(alpha)
	for i, v := range newVal {
		out[i] = v*a + out[i]*(1-a)
	}
	return out
}
