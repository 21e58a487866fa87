package cache

import (
	"context"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreAlbumRoundTripByMBID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.WriteAlbumMeta(ctx, "Music/A/B", "mb-album-1", "B", "A", []byte("bson-blob")); err != nil {
		t.Fatalf("WriteAlbumMeta: %v", err)
	}

	row, found, err := s.FindAlbumByMBID(ctx, "mb-album-1")
	if err != nil {
		t.Fatalf("FindAlbumByMBID: %v", err)
	}
	if !found {
		t.Fatal("expected album row to be found")
	}
	if row.Title != "B" || row.Artist != "A" || string(row.Data) != "bson-blob" {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestStoreAlbumLookupByCompositeKeyWithoutMBID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.WriteAlbumMeta(ctx, "Music/A/B", "", "B", "A", []byte("blob")); err != nil {
		t.Fatalf("WriteAlbumMeta: %v", err)
	}

	row, found, err := s.FindAlbumByTitleArtist(ctx, "B", "A")
	if err != nil {
		t.Fatalf("FindAlbumByTitleArtist: %v", err)
	}
	if !found || row.FolderURI != "Music/A/B" {
		t.Fatalf("expected composite lookup to find the row, got %+v found=%v", row, found)
	}
}

func TestStoreCoverKeyKnownAbsent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, found, _, err := s.CoverFilename(ctx, "Music/A/B", false)
	if err != nil {
		t.Fatalf("CoverFilename: %v", err)
	}
	if found {
		t.Fatal("expected no row before registration")
	}

	if err := s.RegisterCoverKey(ctx, "Music/A/B", false, ""); err != nil {
		t.Fatalf("RegisterCoverKey: %v", err)
	}
	filename, found, knownAbsent, err := s.CoverFilename(ctx, "Music/A/B", false)
	if err != nil {
		t.Fatalf("CoverFilename: %v", err)
	}
	if !found || !knownAbsent || filename != "" {
		t.Fatalf("expected known-absent row, got filename=%q found=%v knownAbsent=%v", filename, found, knownAbsent)
	}
}

func TestStoreCoverKeyRegisterThenOverwrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.RegisterCoverKey(ctx, "k", true, "123_thumb.png"); err != nil {
		t.Fatalf("RegisterCoverKey: %v", err)
	}
	if err := s.RegisterCoverKey(ctx, "k", true, "456_thumb.png"); err != nil {
		t.Fatalf("RegisterCoverKey (overwrite): %v", err)
	}
	filename, found, knownAbsent, err := s.CoverFilename(ctx, "k", true)
	if err != nil || !found || knownAbsent || filename != "456_thumb.png" {
		t.Fatalf("got filename=%q found=%v knownAbsent=%v err=%v", filename, found, knownAbsent, err)
	}
}

func TestStoreRecencyLogOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.AppendRecency(ctx, "a", base); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendRecency(ctx, "b", base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendRecency(ctx, "c", base.Add(2*time.Hour)); err != nil {
		t.Fatal(err)
	}

	recent, err := s.RecentSongURIs(ctx, 2)
	if err != nil {
		t.Fatalf("RecentSongURIs: %v", err)
	}
	if len(recent) != 2 || recent[0] != "c" || recent[1] != "b" {
		t.Fatalf("got %v, want [c b]", recent)
	}
}

func TestStoreLyricsKnownAbsent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.WriteLyrics(ctx, "song.flac", false, ""); err != nil {
		t.Fatalf("WriteLyrics: %v", err)
	}
	_, text, _, found, err := s.FindLyrics(ctx, "song.flac")
	if err != nil {
		t.Fatalf("FindLyrics: %v", err)
	}
	if !found || text != "" {
		t.Fatalf("expected known-absent lyrics row, got text=%q found=%v", text, found)
	}
}
