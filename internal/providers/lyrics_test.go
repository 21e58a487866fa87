package providers

import "testing"

func TestParseLRCLibItemPrefersSynced(t *testing.T) {
	lyr, ok := parseLRCLibItem([]byte(`{"syncedLyrics":"[00:01.00]hi","plainLyrics":"hi"}`))
	if !ok || !lyr.Synced || lyr.Text != "[00:01.00]hi" {
		t.Fatalf("got %+v ok=%v", lyr, ok)
	}
}

func TestParseLRCLibItemFallsBackToPlain(t *testing.T) {
	lyr, ok := parseLRCLibItem([]byte(`{"syncedLyrics":"","plainLyrics":"hi"}`))
	if !ok || lyr.Synced || lyr.Text != "hi" {
		t.Fatalf("got %+v ok=%v", lyr, ok)
	}
}

func TestParseLRCLibItemEmptyIsMiss(t *testing.T) {
	_, ok := parseLRCLibItem([]byte(`{"syncedLyrics":"","plainLyrics":""}`))
	if ok {
		t.Fatal("expected a miss for an item with no lyrics at all")
	}
}

func TestParseLRCLibItemMalformedIsMiss(t *testing.T) {
	_, ok := parseLRCLibItem([]byte(`not json`))
	if ok {
		t.Fatal("expected a miss for malformed JSON")
	}
}
