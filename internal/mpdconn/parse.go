package mpdconn

import (
	"strconv"
	"strings"
	"time"

	"euphonica-core/internal/model"

	"github.com/fhs/gompd/v2/mpd"
)

// songFromAttrs converts one daemon response tuple (from currentsong,
// playlistinfo, find, ...) into a SongInfo. Quality grading uses the
// extension from the URI plus whatever sample-rate/bit-depth the
// daemon reports for the *currently playing* song in "audio"
// (format "rate:bits:channels"); absent that, grading falls back to
// extension alone (CD/Lossy/DSD, never HiRes without confirmed specs).
func songFromAttrs(a mpd.Attrs, status mpd.Attrs) model.SongInfo {
	s := model.SongInfo{
		URI:            a["file"],
		Title:          a["Title"],
		ArtistTag:      a["Artist"],
		AlbumArtistTag: a["AlbumArtist"],
		ReleaseDate:    a["Date"],
		MBTrackID:      a["MUSICBRAINZ_TRACKID"],
		MBAlbumID:      a["MUSICBRAINZ_ALBUMID"],
		MBArtistID:     a["MUSICBRAINZ_ARTISTID"],
	}
	s.Track, _ = strconv.Atoi(a["Track"])
	s.Disc, _ = strconv.Atoi(a["Disc"])
	if durStr := a["duration"]; durStr != "" {
		if secs, err := strconv.ParseFloat(durStr, 64); err == nil {
			s.Duration = time.Duration(secs * float64(time.Second))
		}
	}
	if pos, ok := a["Pos"]; ok {
		if n, err := strconv.Atoi(pos); err == nil {
			s.QueuePosition = &n
		}
	}
	if id, ok := a["Id"]; ok {
		if n, err := strconv.Atoi(id); err == nil {
			s.QueueID = &n
		}
	}

	rate, bits := 0, 0
	if status != nil && status["songid"] == a["Id"] {
		rate, bits = parseAudioFormat(status["audio"])
		if status["state"] == "play" {
			s.IsPlaying = true
		}
	}
	s.Quality = model.GradeQuality(model.ExtensionOf(s.URI), rate, bits)
	s.Album = model.AlbumInfo{
		FolderURI:      s.FolderURI(),
		ExampleSongURI: s.URI,
		Title:          a["Album"],
		ReleaseDate:    a["Date"],
		MBAlbumID:      a["MUSICBRAINZ_ALBUMID"],
		Quality:        s.Quality,
	}
	if s.AlbumArtistTag != "" {
		s.Album.AlbumArtists = []string{s.AlbumArtistTag}
	}
	return s
}

// parseAudioFormat parses MPD's "samplerate:bits:channels" status field.
// bits may be "f" (floating point) per the protocol; that is treated as
// 32-bit for grading purposes.
func parseAudioFormat(audio string) (rate, bits int) {
	parts := strings.Split(audio, ":")
	if len(parts) < 2 {
		return 0, 0
	}
	rate, _ = strconv.Atoi(parts[0])
	if parts[1] == "f" {
		bits = 32
	} else {
		bits, _ = strconv.Atoi(parts[1])
	}
	return rate, bits
}

func inodeFromAttrs(a mpd.Attrs) model.INode {
	n := model.INode{}
	switch {
	case a["file"] != "":
		n.URI = a["file"]
		n.DisplayName = a["Title"]
		if n.DisplayName == "" {
			n.DisplayName = a["file"]
		}
		n.Type = model.INodeSong
	case a["directory"] != "":
		n.URI = a["directory"]
		n.DisplayName = a["directory"]
		n.Type = model.INodeFolder
	case a["playlist"] != "":
		n.URI = a["playlist"]
		n.DisplayName = a["playlist"]
		n.Type = model.INodePlaylist
	default:
		n.Type = model.INodeOther
	}
	if lm, ok := a["Last-Modified"]; ok {
		if t, err := time.Parse(time.RFC3339, lm); err == nil {
			n.LastModified = t
		}
	}
	return n
}
