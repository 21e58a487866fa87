package spectrum

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestParsePCMFormat(t *testing.T) {
	cases := []struct {
		in   string
		want PCMFormat
	}{
		{"44100:16:2", PCMFormat{Rate: 44100, Bits: 16, Channels: 2}},
		{"48000:f:2", PCMFormat{Rate: 48000, Bits: 0, Channels: 2}},
		{"96000:32:1", PCMFormat{Rate: 96000, Bits: 32, Channels: 1}},
	}
	for _, c := range cases {
		got, err := ParsePCMFormat(c.in)
		if err != nil {
			t.Fatalf("ParsePCMFormat(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParsePCMFormat(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestParsePCMFormatRejectsMalformed(t *testing.T) {
	for _, in := range []string{"44100:16", "abc:16:2", "44100:16:2:extra"} {
		if _, err := ParsePCMFormat(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestParseSampleInt16Roundtrip(t *testing.T) {
	var raw [2]byte
	binary.LittleEndian.PutUint16(raw[:], uint16(int16(16384)))
	got := parseSample(raw[:], PCMFormat{Bits: 16}, false)
	want := float32(16384) / math.MaxInt16
	if math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("parseSample int16 = %v, want %v", got, want)
	}
}

func TestParseSampleFloat32Passthrough(t *testing.T) {
	var raw [4]byte
	binary.LittleEndian.PutUint32(raw[:], math.Float32bits(0.5))
	got := parseSample(raw[:], PCMFormat{Bits: 0}, false)
	if got != 0.5 {
		t.Fatalf("parseSample float32 = %v, want 0.5", got)
	}
}

func TestFillStereoWindowPadsWhenNotEnoughData(t *testing.T) {
	format := PCMFormat{Bits: 16, Channels: 2}
	// One stereo frame available (4 bytes), window wants 4 samples.
	var frame [4]byte
	binary.LittleEndian.PutUint16(frame[0:2], uint16(int16(100)))
	binary.LittleEndian.PutUint16(frame[2:4], uint16(int16(200)))

	left := make([]float32, 4)
	right := make([]float32, 4)
	fillStereoWindow(frame[:], left, right, format, false)

	for i := 0; i < 3; i++ {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("expected leading zero padding, got left=%v right=%v", left, right)
		}
	}
	if left[3] == 0 || right[3] == 0 {
		t.Fatalf("expected the single available frame in the last slot, got left=%v right=%v", left, right)
	}
}

func TestFillStereoWindowTakesMostRecentFrames(t *testing.T) {
	format := PCMFormat{Bits: 16, Channels: 2}
	window := make([]byte, 0, 4*3)
	for i := 0; i < 3; i++ {
		var frame [4]byte
		binary.LittleEndian.PutUint16(frame[0:2], uint16(int16((i+1)*10)))
		binary.LittleEndian.PutUint16(frame[2:4], uint16(int16((i+1)*20)))
		window = append(window, frame[:]...)
	}

	left := make([]float32, 2)
	right := make([]float32, 2)
	fillStereoWindow(window, left, right, format, false)

	wantL1 := float32(20) / math.MaxInt16
	wantL2 := float32(30) / math.MaxInt16
	if math.Abs(float64(left[0]-wantL1)) > 1e-6 || math.Abs(float64(left[1]-wantL2)) > 1e-6 {
		t.Fatalf("expected only the two most recent frames, got left=%v", left)
	}
}
