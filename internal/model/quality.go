package model

import "strings"

// Quality is the derived grade of a song's audio quality.
type Quality int

const (
	QualityUnknown Quality = iota
	QualityLossy
	QualityCD
	QualityHiRes
	QualityDSD
)

func (q Quality) String() string {
	switch q {
	case QualityLossy:
		return "Lossy"
	case QualityCD:
		return "CD"
	case QualityHiRes:
		return "HiRes"
	case QualityDSD:
		return "DSD"
	default:
		return "Unknown"
	}
}

var dsdExtensions = map[string]bool{
	"dsf": true,
	"dff": true,
	"wsd": true,
}

var losslessExtensions = map[string]bool{
	"flac": true,
	"wav":  true,
	"ape":  true,
	"alac": true,
	"wv":   true,
	"aiff": true,
}

// GradeQuality derives a Quality grade from a file extension and the
// sample rate (Hz) / bit depth reported by the daemon. extension is
// matched case-insensitively and without a leading dot.
func GradeQuality(extension string, sampleRateHz int, bits int) Quality {
	ext := strings.ToLower(strings.TrimPrefix(extension, "."))
	if dsdExtensions[ext] {
		return QualityDSD
	}
	if losslessExtensions[ext] {
		if sampleRateHz > 48000 && bits >= 24 {
			return QualityHiRes
		}
		return QualityCD
	}
	return QualityLossy
}

// ExtensionOf returns the lowercase extension (without the dot) of a URI
// or file path, or "" if it has none.
func ExtensionOf(uri string) string {
	i := strings.LastIndexByte(uri, '.')
	if i < 0 || i == len(uri)-1 {
		return ""
	}
	slash := strings.LastIndexAny(uri, "/\\")
	if slash > i {
		return ""
	}
	return strings.ToLower(uri[i+1:])
}
