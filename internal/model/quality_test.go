package model

import "testing"

func TestGradeQuality(t *testing.T) {
	cases := []struct {
		ext     string
		rate    int
		bits    int
		want    Quality
	}{
		{"flac", 96000, 24, QualityHiRes},
		{"flac", 44100, 16, QualityCD},
		{"dsf", 1, 352800, QualityDSD},
		{"mp3", 44100, 16, QualityLossy},
		{"FLAC", 192000, 24, QualityHiRes},
		{"dff", 44100, 16, QualityDSD}, // DSD extensions always grade DSD
	}
	for _, c := range cases {
		got := GradeQuality(c.ext, c.rate, c.bits)
		if got != c.want {
			t.Errorf("GradeQuality(%q, %d, %d) = %v, want %v", c.ext, c.rate, c.bits, got, c.want)
		}
	}
}

func TestGradeQualityDeterministic(t *testing.T) {
	// Pure function: same inputs always produce the same grade.
	a := GradeQuality("flac", 96000, 24)
	b := GradeQuality("flac", 96000, 24)
	if a != b {
		t.Fatalf("GradeQuality is not deterministic: %v != %v", a, b)
	}
}

func TestExtensionOf(t *testing.T) {
	cases := map[string]string{
		"foo/bar/track.flac":  "flac",
		"track.MP3":           "mp3",
		"noext":                "",
		"dir.with.dot/file":    "",
		"a/b.c/d.wav":          "wav",
	}
	for in, want := range cases {
		if got := ExtensionOf(in); got != want {
			t.Errorf("ExtensionOf(%q) = %q, want %q", in, got, want)
		}
	}
}
