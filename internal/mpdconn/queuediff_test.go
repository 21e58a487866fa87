package mpdconn

import (
	"testing"

	"euphonica-core/internal/model"
)

func songWithID(id int, uri string) model.SongInfo {
	idCopy := id
	return model.SongInfo{URI: uri, QueueID: &idCopy}
}

// TestApplyChangesMatchesFullFetch verifies spec.md §8: applying a
// changesposid diff from v7 to v10 (ID 21 moves 2->1, ID 55 removed)
// produces the same ordered queue as a fresh full fetch at v10.
func TestApplyChangesMatchesFullFetch(t *testing.T) {
	cache := NewQueueCache(64)

	// v7: positions 0..4 with IDs 10,20,21,55,30.
	v7 := []model.SongInfo{
		songWithID(10, "a"),
		songWithID(20, "b"),
		songWithID(21, "c"),
		songWithID(55, "d"),
		songWithID(30, "e"),
	}
	cache.ReplaceAll(7, v7)

	// v10 (ground truth, as if freshly fetched via playlistinfo):
	// ID 21 moved to position 1, ID 55 removed, everything else
	// shifts down to fill the gap.
	wantOrder := []int{10, 21, 20, 30}

	// plchangesposid reports every position whose song changed: 21 and
	// 20 swapped places, and 30 shifted down into the removed slot.
	changes := []PosIDChange{
		{Position: 1, ID: 21},
		{Position: 2, ID: 20},
		{Position: 3, ID: 30},
	}
	removed := []int{55}

	got, unknown, ok := cache.ApplyChanges(7, 10, 4, changes, removed)
	if !ok {
		t.Fatal("ApplyChanges rejected a valid diff")
	}
	if len(unknown) != 0 {
		t.Fatalf("unexpected unknown IDs: %v", unknown)
	}

	if len(got) != len(wantOrder) {
		t.Fatalf("got %d songs, want %d: %+v", len(got), len(wantOrder), got)
	}
	for i, s := range got {
		if *s.QueueID != wantOrder[i] {
			t.Errorf("position %d: got ID %d, want %d", i, *s.QueueID, wantOrder[i])
		}
	}
	if cache.Version() != 10 {
		t.Fatalf("version = %d, want 10", cache.Version())
	}
}

func TestApplyChangesTruncatesTrailingRemoval(t *testing.T) {
	cache := NewQueueCache(64)
	cache.ReplaceAll(1, []model.SongInfo{
		songWithID(1, "a"),
		songWithID(2, "b"),
		songWithID(3, "c"),
	})

	// Last song removed with nothing behind it to shift forward:
	// plchangesposid reports no changed positions at all, so the only
	// signal is the new playlist length.
	got, unknown, ok := cache.ApplyChanges(1, 2, 2, nil, nil)
	if !ok {
		t.Fatal("ApplyChanges rejected a valid diff")
	}
	if len(unknown) != 0 {
		t.Fatalf("unexpected unknown IDs: %v", unknown)
	}
	if len(got) != 2 || *got[0].QueueID != 1 || *got[1].QueueID != 2 {
		t.Fatalf("got = %+v, want IDs [1 2]", got)
	}
}

func TestApplyChangesRejectsStaleVersion(t *testing.T) {
	cache := NewQueueCache(64)
	cache.ReplaceAll(5, []model.SongInfo{songWithID(1, "a")})

	_, _, ok := cache.ApplyChanges(4, 6, -1, nil, nil)
	if ok {
		t.Fatal("ApplyChanges accepted a diff from an older version than current")
	}
}

func TestApplyChangesUnknownIDRequiresResolve(t *testing.T) {
	cache := NewQueueCache(64)
	cache.ReplaceAll(1, []model.SongInfo{songWithID(1, "a")})

	_, unknown, ok := cache.ApplyChanges(1, 2, -1, []PosIDChange{{Position: 0, ID: 99}}, nil)
	if !ok {
		t.Fatal("ApplyChanges rejected a valid diff")
	}
	if len(unknown) != 1 || unknown[0] != 99 {
		t.Fatalf("unknown = %v, want [99]", unknown)
	}

	cache.Resolve(songWithID(99, "new-song"))
	ordered := cache.Ordered()
	if len(ordered) != 1 || *ordered[0].QueueID != 99 {
		t.Fatalf("after Resolve, Ordered() = %+v", ordered)
	}
}
