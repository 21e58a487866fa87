package providers

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"euphonica-core/internal/cache"
	"euphonica-core/internal/model"
)

// Pipeline is the Metadata Provider Pipeline (spec.md §4.3): it accepts
// scheduling requests from the cache controller (it implements
// cache.Scheduler), daisy-chains the configured providers, and writes
// results back through the controller's public operations. The
// request queues and single-consumer-goroutine shape mirror the
// connection manager's background task channel
// (internal/mpdconn/background.go): one FIFO per concern, drained by
// one goroutine, so two requests for the same concern never race each
// other's HTTP calls.
type Pipeline struct {
	controller *cache.Controller
	daemon     *DaemonProvider
	remote     []Provider // non-daemon providers, sorted by priority before each run

	// musicbrainzForImages drives the external cover-art/avatar
	// fallback steps directly, since those are specific to that one
	// provider rather than a generic daisy-chain operation.
	musicbrainzForImages *MusicBrainzProvider

	albumJobs  chan model.AlbumInfo
	artistJobs chan model.ArtistInfo
	lyricsJobs chan model.SongInfo
	coverJobs  chan coverJob
	avatarJobs chan model.ArtistInfo

	stop chan struct{}
}

type coverJob struct {
	album model.AlbumInfo
}

// PipelineConfig carries the tunables spec.md §6 groups under
// "Providers": per-provider enable/priority lives on the Provider
// values themselves; the resolved image dimensions live on the
// cache.ImageStore the controller was built with (spec.md §4.3 step 3's
// download-and-resize step).
type PipelineConfig struct {
	QueueDepth int
}

// NewPipeline wires a Pipeline with the given providers (any order;
// sorted internally by Priority) and starts its worker goroutines.
// Callers must call Stop when done.
func NewPipeline(controller *cache.Controller, daemon *DaemonProvider, remote []Provider, mb *MusicBrainzProvider, cfg PipelineConfig) *Pipeline {
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = 64
	}
	p := &Pipeline{
		controller:           controller,
		daemon:               daemon,
		remote:               remote,
		musicbrainzForImages: mb,
		albumJobs:            make(chan model.AlbumInfo, depth),
		artistJobs:           make(chan model.ArtistInfo, depth),
		lyricsJobs:           make(chan model.SongInfo, depth),
		coverJobs:            make(chan coverJob, depth),
		avatarJobs:           make(chan model.ArtistInfo, depth),
		stop:                 make(chan struct{}),
	}
	go p.runAlbumWorker()
	go p.runArtistWorker()
	go p.runLyricsWorker()
	go p.runCoverWorker()
	go p.runAvatarWorker()
	return p
}

func (p *Pipeline) Stop() { close(p.stop) }

// DeferredScheduler breaks the construction cycle between
// cache.Controller (needs a Scheduler at construction) and Pipeline
// (needs the Controller at construction): build one, hand it to
// NewController, build the real Pipeline, then Bind it. Every
// Schedule* call is forwarded to the bound Pipeline, which by
// construction order always exists before the controller starts
// scheduling work in response to a cache miss.
type DeferredScheduler struct {
	pipeline *Pipeline
}

// Bind attaches the real Pipeline once it exists.
func (d *DeferredScheduler) Bind(p *Pipeline) { d.pipeline = p }

func (d *DeferredScheduler) ScheduleAlbumMeta(album model.AlbumInfo) {
	d.pipeline.ScheduleAlbumMeta(album)
}

func (d *DeferredScheduler) ScheduleArtistMeta(artist model.ArtistInfo) {
	d.pipeline.ScheduleArtistMeta(artist)
}

func (d *DeferredScheduler) ScheduleLyrics(song model.SongInfo) {
	d.pipeline.ScheduleLyrics(song)
}

func (d *DeferredScheduler) ScheduleFolderCover(album model.AlbumInfo) {
	d.pipeline.ScheduleFolderCover(album)
}

func (d *DeferredScheduler) ScheduleArtistAvatar(artist model.ArtistInfo) {
	d.pipeline.ScheduleArtistAvatar(artist)
}

// ScheduleAlbumMeta implements cache.Scheduler.
func (p *Pipeline) ScheduleAlbumMeta(album model.AlbumInfo) {
	select {
	case p.albumJobs <- album:
	default:
		slog.Warn("providers: album-meta queue full, dropping", "album", album.Title)
	}
}

func (p *Pipeline) ScheduleArtistMeta(artist model.ArtistInfo) {
	select {
	case p.artistJobs <- artist:
	default:
		slog.Warn("providers: artist-meta queue full, dropping", "artist", artist.Name)
	}
}

func (p *Pipeline) ScheduleLyrics(song model.SongInfo) {
	select {
	case p.lyricsJobs <- song:
	default:
		slog.Warn("providers: lyrics queue full, dropping", "song", song.URI)
	}
}

func (p *Pipeline) ScheduleFolderCover(album model.AlbumInfo) {
	select {
	case p.coverJobs <- coverJob{album: album}:
	default:
		slog.Warn("providers: cover queue full, dropping", "album", album.FolderURI)
	}
}

func (p *Pipeline) ScheduleArtistAvatar(artist model.ArtistInfo) {
	select {
	case p.avatarJobs <- artist:
	default:
		slog.Warn("providers: avatar queue full, dropping", "artist", artist.Name)
	}
}

func (p *Pipeline) sortedProviders() []Provider {
	out := make([]Provider, 0, len(p.remote))
	for _, prov := range p.remote {
		if prov.Enabled() {
			out = append(out, prov)
		}
	}
	sort.Sort(byPriority(out))
	return out
}

func (p *Pipeline) runAlbumWorker() {
	for {
		select {
		case <-p.stop:
			return
		case album := <-p.albumJobs:
			p.runAlbumMeta(album)
		}
	}
}

// runAlbumMeta implements the daisy-chain control flow of spec.md §4.3:
// local check already happened in the controller (EnsureLocalAlbumMeta
// only schedules on a miss); here we run the remote chain and persist.
func (p *Pipeline) runAlbumMeta(album model.AlbumInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var meta model.AlbumMeta
	for _, prov := range p.sortedProviders() {
		if m, ok := prov.GetAlbumMeta(ctx, &album, meta); ok {
			meta = m
		}
	}
	if meta.Name == "" && meta.MBID == "" {
		return
	}
	p.controller.WriteAlbumMeta(ctx, album, meta)
}

func (p *Pipeline) runArtistWorker() {
	for {
		select {
		case <-p.stop:
			return
		case artist := <-p.artistJobs:
			p.runArtistMeta(artist)
		}
	}
}

func (p *Pipeline) runArtistMeta(artist model.ArtistInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var meta model.ArtistMeta
	for _, prov := range p.sortedProviders() {
		if m, ok := prov.GetArtistMeta(ctx, &artist, meta); ok {
			meta = m
		}
	}
	if meta.Name == "" && meta.MBID == "" {
		return
	}
	p.controller.WriteArtistMeta(ctx, artist, meta)
}

func (p *Pipeline) runLyricsWorker() {
	for {
		select {
		case <-p.stop:
			return
		case song := <-p.lyricsJobs:
			p.runLyrics(song)
		}
	}
}

func (p *Pipeline) runLyrics(song model.SongInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	for _, prov := range p.sortedProviders() {
		if lyrics, ok := prov.GetLyrics(ctx, song); ok {
			p.controller.WriteLyrics(ctx, song, lyrics)
			return
		}
	}
	p.controller.WriteLyrics(ctx, song, model.Lyrics{}) // known-absent marker
}

func (p *Pipeline) runCoverWorker() {
	for {
		select {
		case <-p.stop:
			return
		case job := <-p.coverJobs:
			p.runFolderCover(job.album)
		}
	}
}

// runFolderCover implements spec.md §4.3's cover-fetch fallback order:
// folder art from the daemon, then embedded art from an example song,
// then an external provider's release-group cover art, then
// known-absent.
func (p *Pipeline) runFolderCover(album model.AlbumInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if p.daemon != nil {
		if data, err := p.daemon.FetchFolderCover(ctx, album); err == nil && len(data) > 0 {
			p.controller.RegisterCoverKey(album.FolderURI, data)
			return
		}
		if album.ExampleSongURI != "" {
			if data, err := p.daemon.FetchEmbeddedCover(ctx, model.SongInfo{URI: album.ExampleSongURI}); err == nil && len(data) > 0 {
				p.controller.RegisterCoverKey(album.FolderURI, data)
				return
			}
		}
	}

	if p.musicbrainzForImages != nil && album.MBAlbumID != "" {
		if data, err := p.musicbrainzForImages.FetchAlbumCoverArt(ctx, album.MBAlbumID); err == nil && len(data) > 0 {
			p.controller.RegisterCoverKey(album.FolderURI, data)
			return
		}
	}

	p.controller.RegisterCoverKey(album.FolderURI, nil) // known-absent, prevents retry storms
}

func (p *Pipeline) runAvatarWorker() {
	for {
		select {
		case <-p.stop:
			return
		case artist := <-p.avatarJobs:
			p.runAvatar(artist)
		}
	}
}

func (p *Pipeline) runAvatar(artist model.ArtistInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if p.musicbrainzForImages != nil && artist.MBArtistID != "" {
		if data, err := p.musicbrainzForImages.FetchArtistAvatar(ctx, artist.MBArtistID); err == nil && len(data) > 0 {
			p.controller.RegisterArtistAvatar(artist.Name, data)
			return
		}
	}
	p.controller.RegisterArtistAvatar(artist.Name, nil)
}
