package model

import (
	"reflect"
	"testing"
)

func TestArtistTagMatcherSplit(t *testing.T) {
	m := NewArtistTagMatcher([]string{"Simon & Garfunkel"}, []string{",", "/"})
	got := m.Split("Simon & Garfunkel, John Coltrane / Miles Davis")
	want := []string{"Simon & Garfunkel", "John Coltrane", "Miles Davis"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split() = %#v, want %#v", got, want)
	}
}

func TestArtistTagMatcherNoExceptions(t *testing.T) {
	m := NewArtistTagMatcher(nil, []string{";"})
	got := m.Split("Artist One; Artist Two")
	want := []string{"Artist One", "Artist Two"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split() = %#v, want %#v", got, want)
	}
}

func TestArtistTagMatcherExceptionVerbatim(t *testing.T) {
	// Every configured exception substring present in input must appear
	// verbatim in the result.
	m := NewArtistTagMatcher([]string{"AC/DC"}, []string{"/", ","})
	got := m.Split("AC/DC, Deep Purple")
	found := false
	for _, a := range got {
		if a == "AC/DC" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Split() = %#v, missing verbatim exception AC/DC", got)
	}
}

func TestArtistTagMatcherEmpty(t *testing.T) {
	m := NewArtistTagMatcher(nil, []string{","})
	if got := m.Split(""); got != nil {
		t.Fatalf("Split(\"\") = %#v, want nil", got)
	}
}
