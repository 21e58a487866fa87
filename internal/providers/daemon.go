package providers

import (
	"context"

	"euphonica-core/internal/model"
	"euphonica-core/internal/mpdconn"
)

// taskRunner is the subset of *mpdconn.Manager the daemon provider
// needs: enqueue a background task and wait for its result. Narrowed to
// an interface so this file can be tested without a live daemon.
type taskRunner interface {
	EnqueueTask(task *mpdconn.Task)
}

// DaemonProvider treats the connected daemon as a metadata provider for
// embedded and folder cover art (spec.md §4.3: "Built-ins at minimum:
// the daemon itself (for embedded/folder covers)"). It carries no
// remote rate limit — MPD commands run over the existing connection —
// so it always has priority 0 and is never disabled.
type DaemonProvider struct {
	mgr taskRunner
}

// NewDaemonProvider wraps the connection manager so its background
// albumart/readpicture tasks (internal/mpdconn/tasks_exec.go) can be
// driven from the pipeline like any other provider.
func NewDaemonProvider(mgr taskRunner) *DaemonProvider {
	return &DaemonProvider{mgr: mgr}
}

func (p *DaemonProvider) Key() string        { return "daemon" }
func (p *DaemonProvider) Priority() int       { return 0 }
func (p *DaemonProvider) SetPriority(int)     {}
func (p *DaemonProvider) Enabled() bool       { return true }
func (p *DaemonProvider) SetEnabled(bool)     {}

func (p *DaemonProvider) GetAlbumMeta(ctx context.Context, album *model.AlbumInfo, existing model.AlbumMeta) (model.AlbumMeta, bool) {
	return existing, false
}

func (p *DaemonProvider) GetArtistMeta(ctx context.Context, artist *model.ArtistInfo, existing model.ArtistMeta) (model.ArtistMeta, bool) {
	return existing, false
}

func (p *DaemonProvider) GetLyrics(ctx context.Context, song model.SongInfo) (model.Lyrics, bool) {
	return model.Lyrics{}, false
}

// FetchFolderCover requests the folder-level cover for album's
// directory (spec.md §4.3 cover-fetch fallback order, step 2).
func (p *DaemonProvider) FetchFolderCover(ctx context.Context, album model.AlbumInfo) ([]byte, error) {
	return p.runTask(ctx, &mpdconn.Task{Kind: mpdconn.TaskDownloadFolderCover, Album: album})
}

// FetchEmbeddedCover requests the embedded cover of an example song in
// the album, used when no folder cover exists (step 3).
func (p *DaemonProvider) FetchEmbeddedCover(ctx context.Context, song model.SongInfo) ([]byte, error) {
	return p.runTask(ctx, &mpdconn.Task{Kind: mpdconn.TaskDownloadEmbeddedCover, Song: song})
}

func (p *DaemonProvider) runTask(ctx context.Context, task *mpdconn.Task) ([]byte, error) {
	task.Done = make(chan struct{})
	p.mgr.EnqueueTask(task)
	select {
	case <-task.Done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if task.Err != nil {
		return nil, task.Err
	}
	data, _ := task.Result.([]byte)
	return data, nil
}
