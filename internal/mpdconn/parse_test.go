package mpdconn

import (
	"testing"
	"time"

	"euphonica-core/internal/model"

	"github.com/fhs/gompd/v2/mpd"
)

func TestSongFromAttrsBasicFields(t *testing.T) {
	attrs := mpd.Attrs{
		"file":                "Music/Artist/Album/01 Song.flac",
		"Title":                "Song",
		"Artist":               "Artist",
		"AlbumArtist":          "Artist",
		"Album":                "Album",
		"Date":                 "2020-01-01",
		"Track":                "1",
		"Disc":                 "1",
		"duration":             "245.3",
		"Pos":                  "3",
		"Id":                   "21",
		"MUSICBRAINZ_TRACKID":  "t-mbid",
		"MUSICBRAINZ_ALBUMID":  "al-mbid",
		"MUSICBRAINZ_ARTISTID": "ar-mbid",
	}
	status := mpd.Attrs{"songid": "21", "state": "play", "audio": "44100:16:2"}

	song := songFromAttrs(attrs, status)

	if song.Title != "Song" || song.ArtistTag != "Artist" {
		t.Fatalf("unexpected song: %+v", song)
	}
	if song.Track != 1 || song.Disc != 1 {
		t.Errorf("track/disc = %d/%d, want 1/1", song.Track, song.Disc)
	}
	if song.Duration != time.Duration(245.3*float64(time.Second)) {
		t.Errorf("duration = %v", song.Duration)
	}
	if song.QueuePosition == nil || *song.QueuePosition != 3 {
		t.Errorf("queue position = %v, want 3", song.QueuePosition)
	}
	if song.QueueID == nil || *song.QueueID != 21 {
		t.Errorf("queue id = %v, want 21", song.QueueID)
	}
	if !song.IsPlaying {
		t.Error("expected IsPlaying true when status songid matches")
	}
	if song.Quality != model.QualityCD {
		t.Errorf("quality = %v, want CD (44100/16 flac)", song.Quality)
	}
	if song.Album.FolderURI != "Music/Artist/Album" {
		t.Errorf("folder uri = %q", song.Album.FolderURI)
	}
}

func TestSongFromAttrsIgnoresStatusForOtherSong(t *testing.T) {
	attrs := mpd.Attrs{"file": "a.flac", "Id": "5"}
	status := mpd.Attrs{"songid": "999", "state": "play", "audio": "96000:24:2"}

	song := songFromAttrs(attrs, status)
	if song.IsPlaying {
		t.Error("IsPlaying should be false when status songid doesn't match")
	}
	if song.Quality == model.QualityHiRes {
		t.Error("quality should not borrow status audio format from a different song")
	}
}

func TestParseAudioFormat(t *testing.T) {
	rate, bits := parseAudioFormat("48000:24:2")
	if rate != 48000 || bits != 24 {
		t.Fatalf("got %d/%d, want 48000/24", rate, bits)
	}
	rate, bits = parseAudioFormat("96000:f:2")
	if rate != 96000 || bits != 32 {
		t.Fatalf("got %d/%d, want 96000/32 for float format", rate, bits)
	}
	rate, bits = parseAudioFormat("")
	if rate != 0 || bits != 0 {
		t.Fatalf("got %d/%d, want 0/0 for empty input", rate, bits)
	}
}

func TestINodeFromAttrs(t *testing.T) {
	n := inodeFromAttrs(mpd.Attrs{"directory": "Music/Artist", "Last-Modified": "2020-01-01T00:00:00Z"})
	if n.Type != model.INodeFolder || n.URI != "Music/Artist" {
		t.Fatalf("unexpected folder node: %+v", n)
	}

	n = inodeFromAttrs(mpd.Attrs{"file": "Music/Artist/song.flac", "Title": "Song"})
	if n.Type != model.INodeSong || n.DisplayName != "Song" {
		t.Fatalf("unexpected song node: %+v", n)
	}

	n = inodeFromAttrs(mpd.Attrs{"playlist": "favorites"})
	if n.Type != model.INodePlaylist || n.DisplayName != "favorites" {
		t.Fatalf("unexpected playlist node: %+v", n)
	}
}
