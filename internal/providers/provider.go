// Package providers is the Metadata Provider Pipeline (spec.md §4.3):
// an ordered, daisy-chained set of plugins that fill in album/artist
// metadata, lyrics, and cover art, each respecting its own rate limit.
// It implements cache.Scheduler so the cache controller can ask for
// work without internal/cache importing this package (internal/cache
// defines Scheduler; this package provides it and holds a
// *cache.Controller to write results back).
package providers

import (
	"context"

	"euphonica-core/internal/model"
)

// Provider is one entry in the daisy chain. Method shapes follow the
// teacher's musicbrainz.Client calls: context-first, a typed request
// value, and a typed result the pipeline merges into what earlier
// providers already contributed.
type Provider interface {
	// Key is the provider's stable identifier, used in configuration
	// (enable/priority) and in log lines.
	Key() string

	// Priority reports the provider's position in the chain; smaller
	// runs earlier (spec.md §4.3: "smaller integer runs earlier").
	Priority() int
	SetPriority(p int)

	// Enabled reports whether the pipeline should consult this
	// provider at all.
	Enabled() bool
	SetEnabled(enabled bool)

	// GetAlbumMeta enriches existing (which may be the zero value on
	// the first provider in the chain) with whatever this provider can
	// add. album may be mutated in place when a provider discovers an
	// MBID, so later providers can query more precisely (spec.md §4.3:
	// "MBID, when newly learned, may be written back").
	GetAlbumMeta(ctx context.Context, album *model.AlbumInfo, existing model.AlbumMeta) (model.AlbumMeta, bool)

	// GetArtistMeta mirrors GetAlbumMeta for artists.
	GetArtistMeta(ctx context.Context, artist *model.ArtistInfo, existing model.ArtistMeta) (model.ArtistMeta, bool)

	// GetLyrics returns lyrics for song, or ok=false on a miss. Lyrics
	// are short-circuit, not merged (spec.md §4.3 point 4): the first
	// provider to return ok=true wins.
	GetLyrics(ctx context.Context, song model.SongInfo) (model.Lyrics, bool)
}

// byPriority sorts a slice of Provider by ascending Priority, used by
// the pipeline before each daisy-chain run so provider order always
// reflects the latest configuration (spec.md §4.3: "iterate enabled
// providers in priority order").
type byPriority []Provider

func (b byPriority) Len() int           { return len(b) }
func (b byPriority) Less(i, j int) bool { return b[i].Priority() < b[j].Priority() }
func (b byPriority) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
