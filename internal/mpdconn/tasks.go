package mpdconn

import "euphonica-core/internal/model"

// TaskKind enumerates the background task vocabulary (spec.md §4.1,
// non-exhaustive list named explicitly).
type TaskKind int

const (
	TaskFetchAllAlbums TaskKind = iota
	TaskFetchAlbumSongs
	TaskFetchArtists
	TaskFetchArtistSongs
	TaskFetchArtistAlbums
	TaskFetchFolderContents
	TaskFetchPlaylistSongs
	TaskFetchLastNSongs
	TaskDownloadFolderCover
	TaskDownloadEmbeddedCover
	TaskUpdateDatabase
)

// Task is one unit of work for the background client's queue. Only one
// of the payload fields is meaningful, selected by Kind — this
// collapses the source's two flavors of "queue task"/"async message"
// enums into a single request/response algebra (Design Notes §9).
type Task struct {
	Kind TaskKind

	AlbumTag        string // TaskFetchAlbumSongs: tag to match
	UseAlbumArtist  bool   // TaskFetchArtists
	ArtistName      string // TaskFetchArtistSongs / TaskFetchArtistAlbums
	FolderURI       string // TaskFetchFolderContents
	PlaylistName    string // TaskFetchPlaylistSongs
	Count           int    // TaskFetchLastNSongs

	Album model.AlbumInfo // TaskDownloadFolderCover
	Song  model.SongInfo  // TaskDownloadEmbeddedCover

	// Done, if non-nil, is closed (after Result/Err are set) once the
	// task finishes executing on the background worker.
	Done   chan struct{}
	Result any
	Err    error
}

func (t *Task) finish(result any, err error) {
	t.Result = result
	t.Err = err
	if t.Done != nil {
		close(t.Done)
	}
}

// QueueWindowSize, SongWindowSize and TagWindowSize are batch sizes for
// windowed streaming (spec.md §4.1 Windowed streaming). The fetches in
// tasks_exec.go issue a single command each and do not page by these
// sizes.
const (
	QueueWindowSize = 128
	SongWindowSize  = 128
	TagWindowSize   = 1024

	// EnumerationSafetyLimit is an upper bound on enumerated entries.
	// No fetch in tasks_exec.go consults it.
	EnumerationSafetyLimit = 10_000_000
)
