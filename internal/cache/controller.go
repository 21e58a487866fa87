package cache

import (
	"context"
	"log/slog"
	"time"

	"euphonica-core/internal/eventbus"
	"euphonica-core/internal/model"
)

// Scheduler is how the Controller asks the Metadata Provider Pipeline
// to go fetch something it doesn't have locally. It is an interface
// rather than a direct dependency on internal/providers so the two
// packages can reference each other's public shapes without a Go
// import cycle (the pipeline also calls back into the Controller to
// register results).
type Scheduler interface {
	ScheduleAlbumMeta(album model.AlbumInfo)
	ScheduleArtistMeta(artist model.ArtistInfo)
	ScheduleLyrics(song model.SongInfo)
	ScheduleFolderCover(album model.AlbumInfo)
	ScheduleArtistAvatar(artist model.ArtistInfo)
}

// Controller orchestrates the SQLite store, image store, and in-memory
// texture LRU, and dispatches provider work through a Scheduler
// (spec.md §2 component 5, §4.2 Public operations).
type Controller struct {
	store   *Store
	images  *ImageStore
	avatars *ImageStore
	lru     *TextureLRU
	bus     *eventbus.Bus
	sched   Scheduler
	maxAge  time.Duration // freshness policy; 0 = never refetch once present
}

// NewController wires the cache's storage layers to the event bus and
// provider scheduler. maxAge is the freshness policy resolved from
// spec.md §9's open question (DESIGN.md: "Freshness policy").
func NewController(store *Store, images, avatars *ImageStore, lru *TextureLRU, bus *eventbus.Bus, sched Scheduler, maxAge time.Duration) *Controller {
	return &Controller{store: store, images: images, avatars: avatars, lru: lru, bus: bus, sched: sched, maxAge: maxAge}
}

func (c *Controller) fresh(lastModified time.Time) bool {
	if c.maxAge <= 0 {
		return true
	}
	return time.Since(lastModified) < c.maxAge
}

// LoadCachedCover implements spec.md §4.2's load_cached_cover: check the
// in-memory LRU first; on miss, consult the cover-key table; load from
// disk and repopulate the LRU on a hit; optionally schedule a fetch on
// a genuine miss.
func (c *Controller) LoadCachedCover(ctx context.Context, album model.AlbumInfo, thumbnail, scheduleIfMiss bool) ([]byte, bool) {
	key := album.FolderURI
	lruKey := lruCoverKey(key, thumbnail)
	if data, ok := c.lru.Get(lruKey); ok {
		return data, true
	}

	filename, found, knownAbsent, err := c.store.CoverFilename(ctx, key, thumbnail)
	if err != nil {
		slog.Warn("cache: cover lookup failed", "key", key, "err", err)
		return nil, false
	}
	if knownAbsent {
		return nil, false
	}
	if found && filename != "" {
		data, err := c.images.Load(filename)
		if err != nil {
			slog.Warn("cache: cover file missing from disk", "filename", filename, "err", err)
			return nil, false
		}
		cost := ThumbnailCost
		if !thumbnail {
			cost = HiResCost
		}
		c.lru.Put(lruKey, data, cost)
		return data, true
	}

	if scheduleIfMiss {
		c.EnsureLocalAlbumArt(album)
	}
	return nil, false
}

// EnsureLocalAlbumArt is idempotent: it enqueues a fetch only if no
// cover-key row exists yet for the album's folder (spec.md §4.2
// ensure_local_album_art).
func (c *Controller) EnsureLocalAlbumArt(album model.AlbumInfo) {
	ctx := context.Background()
	_, found, _, err := c.store.CoverFilename(ctx, album.FolderURI, true)
	if err != nil {
		slog.Warn("cache: ensure local album art lookup failed", "err", err)
		return
	}
	if found {
		return
	}
	c.sched.ScheduleFolderCover(album)
}

// RegisterCoverKey is called by the provider pipeline after a
// successful or failed cover fetch (spec.md §4.2 register_cover_key):
// data nil + empty filename marks the key as known-absent.
func (c *Controller) RegisterCoverKey(key string, data []byte) {
	ctx := context.Background()
	if len(data) == 0 {
		if err := c.store.RegisterCoverKey(ctx, key, false, ""); err != nil {
			slog.Warn("cache: register known-absent cover", "key", key, "err", err)
		}
		if err := c.store.RegisterCoverKey(ctx, key, true, ""); err != nil {
			slog.Warn("cache: register known-absent cover", "key", key, "err", err)
		}
		c.bus.Publish(eventbus.TopicCoverAvailable, CoverNotAvailable{Key: key})
		return
	}

	hiRes, thumb, err := c.images.Store(key, data)
	if err != nil {
		slog.Warn("cache: store cover image", "key", key, "err", err)
		return
	}
	if err := c.store.RegisterCoverKey(ctx, key, false, hiRes); err != nil {
		slog.Warn("cache: register cover key", "key", key, "err", err)
	}
	if err := c.store.RegisterCoverKey(ctx, key, true, thumb); err != nil {
		slog.Warn("cache: register cover key", "key", key, "err", err)
	}
	c.bus.Publish(eventbus.TopicCoverAvailable, CoverAvailable{Key: key})
}

// LoadLocalAlbumMeta returns the locally cached AlbumMeta for key, if
// present and fresh per the configured freshness policy.
func (c *Controller) LoadLocalAlbumMeta(ctx context.Context, key model.AlbumKey) (model.AlbumMeta, bool) {
	var row AlbumRow
	var found bool
	var err error
	if key.IsMBID() {
		row, found, err = c.store.FindAlbumByMBID(ctx, key.MBID)
	} else {
		row, found, err = c.store.FindAlbumByTitleArtist(ctx, key.Title, key.Artist)
	}
	if err != nil {
		slog.Warn("cache: load local album meta", "err", err)
		return model.AlbumMeta{}, false
	}
	if !found || !c.fresh(row.LastModified) {
		return model.AlbumMeta{}, false
	}
	meta, err := decodeAlbumMeta(row.Data)
	if err != nil {
		slog.Warn("cache: decode album meta", "err", err)
		return model.AlbumMeta{}, false
	}
	return meta, true
}

// EnsureLocalAlbumMeta enqueues a provider fetch unless fresh local data
// already exists.
func (c *Controller) EnsureLocalAlbumMeta(ctx context.Context, album model.AlbumInfo) {
	if _, ok := c.LoadLocalAlbumMeta(ctx, album.Key()); ok {
		return
	}
	c.sched.ScheduleAlbumMeta(album)
}

// WriteAlbumMeta persists a merged AlbumMeta document and notifies
// subscribers (spec.md §4.3 step 3: "persist the merged meta and emit
// *-meta-downloaded signals").
func (c *Controller) WriteAlbumMeta(ctx context.Context, album model.AlbumInfo, meta model.AlbumMeta) {
	data, err := encodeAlbumMeta(meta)
	if err != nil {
		slog.Warn("cache: encode album meta", "err", err)
		return
	}
	artist := ""
	if len(album.AlbumArtists) > 0 {
		artist = album.AlbumArtists[0]
	}
	if err := c.store.WriteAlbumMeta(ctx, album.FolderURI, album.MBAlbumID, album.Title, artist, data); err != nil {
		slog.Warn("cache: write album meta", "err", err)
		return
	}
	c.bus.Publish(eventbus.TopicAlbumMeta, AlbumMetaAvailable{Album: album, Meta: meta})
}

// LoadLocalArtistMeta mirrors LoadLocalAlbumMeta for artists.
func (c *Controller) LoadLocalArtistMeta(ctx context.Context, key model.ArtistKey) (model.ArtistMeta, bool) {
	var row ArtistRow
	var found bool
	var err error
	if key.IsMBID() {
		row, found, err = c.store.FindArtistByMBID(ctx, key.MBID)
	} else {
		row, found, err = c.store.FindArtistByName(ctx, key.Name)
	}
	if err != nil {
		slog.Warn("cache: load local artist meta", "err", err)
		return model.ArtistMeta{}, false
	}
	if !found || !c.fresh(row.LastModified) {
		return model.ArtistMeta{}, false
	}
	meta, err := decodeArtistMeta(row.Data)
	if err != nil {
		slog.Warn("cache: decode artist meta", "err", err)
		return model.ArtistMeta{}, false
	}
	return meta, true
}

// EnsureLocalArtistMeta mirrors EnsureLocalAlbumMeta for artists.
func (c *Controller) EnsureLocalArtistMeta(ctx context.Context, artist model.ArtistInfo) {
	if _, ok := c.LoadLocalArtistMeta(ctx, artist.Key()); ok {
		return
	}
	c.sched.ScheduleArtistMeta(artist)
}

// WriteArtistMeta mirrors WriteAlbumMeta for artists.
func (c *Controller) WriteArtistMeta(ctx context.Context, artist model.ArtistInfo, meta model.ArtistMeta) {
	data, err := encodeArtistMeta(meta)
	if err != nil {
		slog.Warn("cache: encode artist meta", "err", err)
		return
	}
	if err := c.store.WriteArtistMeta(ctx, artist.Name, artist.MBArtistID, data); err != nil {
		slog.Warn("cache: write artist meta", "err", err)
		return
	}
	c.bus.Publish(eventbus.TopicArtistMeta, ArtistMetaAvailable{Artist: artist, Meta: meta})
}

// RegisterArtistAvatar mirrors RegisterCoverKey for artist avatars,
// stored under a separate image directory (spec.md §4.2 Storage
// layout: <cache-root>/avatar/...).
func (c *Controller) RegisterArtistAvatar(key string, data []byte) {
	ctx := context.Background()
	if len(data) == 0 {
		_ = c.store.RegisterCoverKey(ctx, "avatar:"+key, false, "")
		_ = c.store.RegisterCoverKey(ctx, "avatar:"+key, true, "")
		c.bus.Publish(eventbus.TopicArtistAvatar, ArtistAvatarCleared{Key: key})
		return
	}
	hiRes, thumb, err := c.avatars.Store(key, data)
	if err != nil {
		slog.Warn("cache: store avatar image", "key", key, "err", err)
		return
	}
	if err := c.store.RegisterCoverKey(ctx, "avatar:"+key, false, hiRes); err != nil {
		slog.Warn("cache: register avatar key", "key", key, "err", err)
	}
	if err := c.store.RegisterCoverKey(ctx, "avatar:"+key, true, thumb); err != nil {
		slog.Warn("cache: register avatar key", "key", key, "err", err)
	}
	c.bus.Publish(eventbus.TopicArtistAvatar, ArtistAvatarAvailable{Key: key})
}

// ClearArtistAvatar implements the supplemented "artist avatar
// clearing" operation (SPEC_FULL.md §3): drop both the avatar files and
// their cover-key rows, atomically from the caller's perspective.
func (c *Controller) ClearArtistAvatar(ctx context.Context, artistKey string) error {
	key := "avatar:" + artistKey
	for _, thumbnail := range []bool{false, true} {
		filename, found, _, err := c.store.CoverFilename(ctx, key, thumbnail)
		if err != nil {
			return err
		}
		if found && filename != "" {
			if err := c.avatars.Delete(filename); err != nil {
				return err
			}
		}
		if err := c.store.ClearCoverKey(ctx, key, thumbnail); err != nil {
			return err
		}
	}
	c.lru.Remove(lruCoverKey(key, false))
	c.lru.Remove(lruCoverKey(key, true))
	c.bus.Publish(eventbus.TopicArtistAvatar, ArtistAvatarCleared{Key: artistKey})
	return nil
}

// LoadLyrics returns cached lyrics for a song, scheduling a provider
// fetch on miss if requested. Lyrics have no MBID-based key; the song
// URI is the only stable identity available (spec.md §3 SongInfo: URI
// is the stable identity).
func (c *Controller) LoadLyrics(ctx context.Context, song model.SongInfo, scheduleIfMiss bool) (model.Lyrics, bool) {
	synced, text, _, found, err := c.store.FindLyrics(ctx, song.URI)
	if err != nil {
		slog.Warn("cache: load lyrics", "err", err)
		return model.Lyrics{}, false
	}
	if !found {
		if scheduleIfMiss {
			c.sched.ScheduleLyrics(song)
		}
		return model.Lyrics{}, false
	}
	if text == "" {
		return model.Lyrics{}, false
	}
	return model.Lyrics{Synced: synced, Text: text}, true
}

// WriteLyrics persists a lyrics result (or a known-absent marker when
// text is empty) and notifies subscribers.
func (c *Controller) WriteLyrics(ctx context.Context, song model.SongInfo, lyrics model.Lyrics) {
	if err := c.store.WriteLyrics(ctx, song.URI, lyrics.Synced, lyrics.Text); err != nil {
		slog.Warn("cache: write lyrics", "err", err)
		return
	}
	if lyrics.Text != "" {
		c.bus.Publish(eventbus.TopicLyrics, LyricsAvailable{Song: song, Lyrics: lyrics})
	}
}

// RecordPlay appends to the recency log (spec.md §3 Invariants:
// append-only from the core's perspective).
func (c *Controller) RecordPlay(ctx context.Context, songURI string, at time.Time) {
	if err := c.store.AppendRecency(ctx, songURI, at); err != nil {
		slog.Warn("cache: record play", "err", err)
	}
}

func lruCoverKey(key string, thumbnail bool) string {
	if thumbnail {
		return key + "#thumb"
	}
	return key + "#hires"
}

// Event payloads published on the bus (spec.md §4.2 Notification,
// §4.3 Protocol messages — the subset that actually crosses a
// publish/subscribe boundary in this design; the rest are internal
// daisy-chain control flow within internal/providers).
type CoverAvailable struct{ Key string }
type CoverNotAvailable struct{ Key string }
type AlbumMetaAvailable struct {
	Album model.AlbumInfo
	Meta  model.AlbumMeta
}
type ArtistMetaAvailable struct {
	Artist model.ArtistInfo
	Meta   model.ArtistMeta
}
type ArtistAvatarAvailable struct{ Key string }
type ArtistAvatarCleared struct{ Key string }
type LyricsAvailable struct {
	Song   model.SongInfo
	Lyrics model.Lyrics
}
