package spectrum

import (
	"math"
	"testing"
)

func sineWave(n int, freq, sampleRate float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}
	return out
}

// TestGetMagnitudesLogBinPeaksAtExpectedBin matches spec.md §8
// scenario 5: a 3kHz sine at 48kHz, 2048 samples, 64 bins, log mode,
// [20, 20000]Hz range, should peak at
// floor((log10(3000) - log10(20)) / ((log10(20000) - log10(20)) / 64)).
func TestGetMagnitudesLogBinPeaksAtExpectedBin(t *testing.T) {
	const (
		sampleRate = 48000.0
		nSamples   = 2048
		nBins      = 64
		minHz      = 20.0
		maxHz      = 20000.0
		sineFreq   = 3000.0
	)
	input := sineWave(nSamples, sineFreq, sampleRate)
	mf := newMagnitudeFFT(nSamples)

	out := getMagnitudes(mf, sampleRate, input, nil, nBins, BinLogarithmic, minHz, maxHz)

	wantBin := int(math.Floor((math.Log10(sineFreq) - math.Log10(minHz)) / ((math.Log10(maxHz) - math.Log10(minHz)) / nBins)))

	gotBin := argmax(out)
	if gotBin != wantBin {
		t.Fatalf("peak bin = %d, want %d (out=%v)", gotBin, wantBin, out)
	}
}

func TestGetMagnitudesLinearBinPeaksAtExpectedBin(t *testing.T) {
	const (
		sampleRate = 48000.0
		nSamples   = 2048
		nBins      = 64
		minHz      = 20.0
		maxHz      = 20000.0
		sineFreq   = 3000.0
	)
	input := sineWave(nSamples, sineFreq, sampleRate)
	mf := newMagnitudeFFT(nSamples)

	out := getMagnitudes(mf, sampleRate, input, nil, nBins, BinLinear, minHz, maxHz)

	wantBin := int(math.Floor((sineFreq - minHz) / ((maxHz - minHz) / nBins)))

	gotBin := argmax(out)
	if gotBin != wantBin {
		t.Fatalf("peak bin = %d, want %d (out=%v)", gotBin, wantBin, out)
	}
}

func TestGetMagnitudesResizesOutputToBinCount(t *testing.T) {
	mf := newMagnitudeFFT(256)
	input := sineWave(256, 440, 44100)
	out := getMagnitudes(mf, 44100, input, make([]float32, 8), 32, BinLinear, 20, 20000)
	if len(out) != 32 {
		t.Fatalf("len(out) = %d, want 32", len(out))
	}
}

func TestSmoothIntoResizesAndBlends(t *testing.T) {
	out := smoothInto(nil, []float32{1, 2, 3}, 0.5)
	if len(out) != 3 {
		t.Fatalf("expected resize to 3, got %d", len(out))
	}
	out = smoothInto(out, []float32{1, 2, 3}, 0.5)
	for i, v := range out {
		// Two blends at alpha 0.5 from zeros: 0.5*x, then 0.5*x + 0.25*x.
		if math.Abs(float64(v)-0.75*float64(i+1)) > 1e-6 {
			t.Fatalf("two blends from zero should give 0.75 of the input, got %v", out)
		}
	}
}

func argmax(v []float32) int {
	best := 0
	for i, x := range v {
		if x > v[best] {
			best = i
		}
	}
	return best
}
