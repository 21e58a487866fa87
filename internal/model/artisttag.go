package model

import (
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// ArtistTagMatcher splits a raw artist tag string into individual artist
// names using a two-pass match: first the user's configured exception
// substrings (e.g. "AC/DC", which would otherwise be split on "/"), then
// the user's configured delimiters on whatever text remains.
//
// Both pattern lists compile to Aho-Corasick automatons so that matching
// remains linear in input length regardless of how many exceptions or
// delimiters are configured.
type ArtistTagMatcher struct {
	exceptions []string
	delimiters []string
	exceptAC   ahocorasick.AhoCorasick
	delimAC    ahocorasick.AhoCorasick
}

// NewArtistTagMatcher compiles the exception and delimiter lists into
// automatons. Both lists are user-editable configuration (spec.md §6
// Library config group) and may be empty.
func NewArtistTagMatcher(exceptions, delimiters []string) *ArtistTagMatcher {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: false,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
		DFA:                  true,
	})
	return &ArtistTagMatcher{
		exceptions: append([]string(nil), exceptions...),
		delimiters: append([]string(nil), delimiters...),
		exceptAC:   builder.Build(exceptions),
		delimAC:    builder.Build(delimiters),
	}
}

// Split parses a raw artist tag string into individual artist names.
// Exception substrings found in pass 1 precede delimiter-separated
// tokens found in pass 2, each group preserving the order it was found
// in the input. A pseudo-delimiter is assumed before the first and
// after the last character, so the residue's leading/trailing fragments
// are included like any other token.
func (m *ArtistTagMatcher) Split(tag string) []string {
	if tag == "" {
		return nil
	}

	residue := []rune(tag)
	var passOne []string

	for _, match := range m.exceptAC.FindAll(tag) {
		start, end := match.Start(), match.End()
		passOne = append(passOne, tag[start:end])
		blankRunes(residue, tag, start, end)
	}

	blanked := string(residue)

	var passTwo []string
	pos := 0
	for _, match := range m.delimAC.FindAll(blanked) {
		start, end := match.Start(), match.End()
		if frag := strings.TrimSpace(blanked[pos:start]); frag != "" {
			passTwo = append(passTwo, frag)
		}
		pos = end
	}
	if frag := strings.TrimSpace(blanked[pos:]); frag != "" {
		passTwo = append(passTwo, frag)
	}

	if len(passOne) == 0 {
		return passTwo
	}
	return append(passOne, passTwo...)
}

// blankRunes replaces the byte range [start,end) of the original string
// (as it maps onto residue) with spaces, so pass 2 never re-matches
// characters already claimed by an exception.
func blankRunes(residue []rune, original string, start, end int) {
	// original and residue track the same rune sequence; start/end are
	// byte offsets into original, but since exceptions are matched on
	// the untouched original string we can rebuild via byte->rune index.
	runeStart := len([]rune(original[:start]))
	runeEnd := len([]rune(original[:end]))
	for i := runeStart; i < runeEnd && i < len(residue); i++ {
		residue[i] = ' '
	}
}
