package model

import "testing"

func TestMergeAlbumMetaFillsEmptyScalarsAndConcatenatesVectors(t *testing.T) {
	base := AlbumMeta{
		Name: "Base",
		Tags: []Tag{{Name: "rock"}},
	}
	incoming := AlbumMeta{
		MBID:   "mb-1",
		Tags:   []Tag{{Name: "indie"}},
		Images: []ImageMeta{{URL: "http://x/cover.jpg", Size: ImageLarge}},
		URL:    "http://example.com/album",
	}

	merged := MergeAlbumMeta(base, incoming)

	if merged.MBID != "mb-1" {
		t.Errorf("MBID not filled: %q", merged.MBID)
	}
	if merged.URL != "http://example.com/album" {
		t.Errorf("URL not filled: %q", merged.URL)
	}
	if len(merged.Tags) != 2 || merged.Tags[0].Name != "rock" || merged.Tags[1].Name != "indie" {
		t.Errorf("tags not concatenated in order: %+v", merged.Tags)
	}
	if len(merged.Images) != 1 {
		t.Errorf("images not concatenated: %+v", merged.Images)
	}
}

func TestMergeAlbumMetaNeverOverwritesExistingScalar(t *testing.T) {
	base := AlbumMeta{MBID: "keep-me", URL: "http://keep"}
	incoming := AlbumMeta{MBID: "discard-me", URL: "http://discard"}

	merged := MergeAlbumMeta(base, incoming)

	if merged.MBID != "keep-me" || merged.URL != "http://keep" {
		t.Errorf("existing scalar fields were overwritten: %+v", merged)
	}
}

func TestMergeArtistMetaConcatenatesSimilar(t *testing.T) {
	base := ArtistMeta{Name: "A", Similar: []ArtistMeta{{Name: "B"}}}
	incoming := ArtistMeta{Similar: []ArtistMeta{{Name: "C"}}}

	merged := MergeArtistMeta(base, incoming)

	if len(merged.Similar) != 2 || merged.Similar[0].Name != "B" || merged.Similar[1].Name != "C" {
		t.Errorf("similar artists not concatenated in order: %+v", merged.Similar)
	}
}
