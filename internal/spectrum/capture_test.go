package spectrum

import "testing"

func TestRingBufferSnapshotBeforeFillPadsWithZero(t *testing.T) {
	r := newRingBuffer(5)
	r.push(1)
	r.push(2)

	dst := make([]float32, 5)
	r.snapshotInto(dst)

	want := []float32{0, 0, 0, 1, 2}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("snapshotInto = %v, want %v", dst, want)
		}
	}
}

func TestRingBufferSnapshotAfterWrapIsChronological(t *testing.T) {
	r := newRingBuffer(3)
	for _, v := range []float32{1, 2, 3, 4, 5} {
		r.push(v)
	}

	dst := make([]float32, 3)
	r.snapshotInto(dst)

	want := []float32{3, 4, 5}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("snapshotInto = %v, want %v", dst, want)
		}
	}
}

func TestFloat32FromLEBytes(t *testing.T) {
	// 1.0f little-endian bytes: 00 00 80 3F
	got := float32FromLEBytes([]byte{0x00, 0x00, 0x80, 0x3F})
	if got != 1.0 {
		t.Fatalf("float32FromLEBytes = %v, want 1.0", got)
	}
}
