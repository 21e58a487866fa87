package model

// Tag is a provider-reported genre/style label with its canonical URL.
type Tag struct {
	URL  string `bson:"url"`
	Name string `bson:"name"`
}

// ImageSize buckets a provider image URL by its approximate pixel
// dimension, smallest first so callers can pick "largest under budget"
// with a simple scan.
type ImageSize int

const (
	ImageSmall ImageSize = iota // ~32x32
	ImageMedium
	ImageLarge
	ImageExtraLarge
	ImageMega // 512x512 or more
)

// ImageMeta is one candidate image a provider returned, before it has
// been downloaded and resized into the local image store.
type ImageMeta struct {
	Size ImageSize `bson:"size"`
	URL  string    `bson:"url"`
}

// Wiki is freeform prose (album wiki, artist bio) with attribution.
type Wiki struct {
	Content     string `bson:"content"`
	URL         string `bson:"url,omitempty"`
	Attribution string `bson:"attribution"`
}

// AlbumMeta is the provider-agnostic document every metadata provider
// must return and merge into (spec.md §4.2/§4.3). It is what gets
// BSON-encoded into the albums.data column.
type AlbumMeta struct {
	Name   string      `bson:"name"`
	Artist string      `bson:"artist"`
	MBID   string      `bson:"mbid,omitempty"`
	Tags   []Tag       `bson:"tags"`
	Images []ImageMeta `bson:"image"`
	URL    string      `bson:"url,omitempty"`
	Wiki   *Wiki       `bson:"wiki,omitempty"`
}

// MergeAlbumMeta applies spec.md §4.3's merge rules: scalar optional
// fields fill in only if empty, vector fields concatenate.
func MergeAlbumMeta(base, incoming AlbumMeta) AlbumMeta {
	if base.MBID == "" {
		base.MBID = incoming.MBID
	}
	base.Tags = append(base.Tags, incoming.Tags...)
	base.Images = append(base.Images, incoming.Images...)
	if base.URL == "" {
		base.URL = incoming.URL
	}
	if base.Wiki == nil {
		base.Wiki = incoming.Wiki
	}
	return base
}

// ArtistMeta is the provider-agnostic artist document.
type ArtistMeta struct {
	Name    string       `bson:"name"`
	MBID    string       `bson:"mbid,omitempty"`
	Tags    []Tag        `bson:"tags"`
	Similar []ArtistMeta `bson:"similar"`
	Images  []ImageMeta  `bson:"image"`
	URL     string       `bson:"url,omitempty"`
	Bio     *Wiki        `bson:"bio,omitempty"`
}

// MergeArtistMeta applies the same merge rules as MergeAlbumMeta.
func MergeArtistMeta(base, incoming ArtistMeta) ArtistMeta {
	base.Tags = append(base.Tags, incoming.Tags...)
	base.Images = append(base.Images, incoming.Images...)
	base.Similar = append(base.Similar, incoming.Similar...)
	if base.MBID == "" {
		base.MBID = incoming.MBID
	}
	if base.URL == "" {
		base.URL = incoming.URL
	}
	if base.Bio == nil {
		base.Bio = incoming.Bio
	}
	return base
}

// Lyrics is a single song's lyric text, plain or LRC-synced.
type Lyrics struct {
	Synced bool   `bson:"synced"`
	Text   string `bson:"text"`
}
