package mpdconn

import (
	"euphonica-core/internal/eventbus"
	"euphonica-core/internal/model"

	"github.com/fhs/gompd/v2/mpd"
)

// AlbumWindow is one incrementally-delivered batch of the windowed
// streaming protocol (spec.md §4.1). The cache controller or UI appends
// each window as it arrives rather than waiting for the full result.
type AlbumWindow struct {
	Albums []model.AlbumInfo
	More   bool
}

type SongWindow struct {
	Songs []model.SongInfo
	More  bool
}

type INodeWindow struct {
	Nodes []model.INode
	More  bool
}

func (m *Manager) fetchAllAlbums(bg *mpd.Client, task *Task) {
	titles, err := bg.Command("list %s", "album").AttrsList("album")
	if err != nil {
		task.finish(nil, err)
		return
	}
	albums := make([]model.AlbumInfo, 0, len(titles))
	for _, a := range titles {
		title := a["album"]
		if title == "" {
			continue
		}
		songs, err := bg.Command("find %s %s", "album", mpd.Quote(title)).AttrsList("file")
		if err != nil || len(songs) == 0 {
			continue
		}
		first := songFromAttrs(songs[0], nil)
		albums = append(albums, first.Album)
		if len(albums) >= TagWindowSize {
			m.bus.Publish(eventbus.TopicSubsystemChanged, AlbumWindow{Albums: albums, More: true})
			albums = albums[:0]
		}
	}
	m.bus.Publish(eventbus.TopicSubsystemChanged, AlbumWindow{Albums: albums, More: false})
	task.finish(albums, nil)
}

func (m *Manager) fetchAlbumSongs(bg *mpd.Client, task *Task) {
	attrs, err := bg.Command("find %s %s", "album", mpd.Quote(task.AlbumTag)).AttrsList("file")
	if err != nil {
		task.finish(nil, err)
		return
	}
	songs := windowSongs(m, attrs, nil)
	task.finish(songs, nil)
}

func (m *Manager) fetchArtists(bg *mpd.Client, task *Task) {
	tag := "artist"
	if task.UseAlbumArtist {
		tag = "albumartist"
	}
	names, err := bg.Command("list %s", tag).AttrsList(tag)
	if err != nil {
		task.finish(nil, err)
		return
	}
	artists := make([]model.ArtistInfo, 0, len(names))
	for _, a := range names {
		if n := a[tag]; n != "" {
			artists = append(artists, model.ArtistInfo{Name: n})
		}
	}
	task.finish(artists, nil)
}

func (m *Manager) fetchArtistSongs(bg *mpd.Client, task *Task) {
	attrs, err := bg.Command("find %s %s", "artist", mpd.Quote(task.ArtistName)).AttrsList("file")
	if err != nil {
		task.finish(nil, err)
		return
	}
	task.finish(windowSongs(m, attrs, nil), nil)
}

func (m *Manager) fetchArtistAlbums(bg *mpd.Client, task *Task) {
	attrs, err := bg.Command("find %s %s", "artist", mpd.Quote(task.ArtistName)).AttrsList("file")
	if err != nil {
		task.finish(nil, err)
		return
	}
	seen := map[string]bool{}
	var albums []model.AlbumInfo
	for _, a := range attrs {
		s := songFromAttrs(a, nil)
		if s.Album.FolderURI == "" || seen[s.Album.FolderURI] {
			continue
		}
		seen[s.Album.FolderURI] = true
		albums = append(albums, s.Album)
	}
	task.finish(albums, nil)
}

func (m *Manager) fetchFolderContents(bg *mpd.Client, task *Task) {
	attrs, err := bg.Command("lsinfo %s", mpd.Quote(task.FolderURI)).AttrsList("")
	if err != nil {
		task.finish(nil, err)
		return
	}
	nodes := make([]model.INode, 0, len(attrs))
	for _, a := range attrs {
		nodes = append(nodes, inodeFromAttrs(a))
	}
	m.bus.Publish(eventbus.TopicSubsystemChanged, INodeWindow{Nodes: nodes, More: false})
	task.finish(nodes, nil)
}

func (m *Manager) fetchPlaylistSongs(bg *mpd.Client, task *Task) {
	attrs, err := bg.Command("listplaylistinfo %s", mpd.Quote(task.PlaylistName)).AttrsList("file")
	if err != nil {
		task.finish(nil, err)
		return
	}
	task.finish(windowSongs(m, attrs, nil), nil)
}

func (m *Manager) fetchLastNSongs(bg *mpd.Client, task *Task) {
	n := task.Count
	if n <= 0 {
		n = 50
	}
	attrs, err := bg.Command("playlistinfo").AttrsList("file")
	if err != nil {
		task.finish(nil, err)
		return
	}
	if len(attrs) > n {
		attrs = attrs[len(attrs)-n:]
	}
	task.finish(windowSongs(m, attrs, nil), nil)
}

func (m *Manager) downloadFolderCover(bg *mpd.Client, task *Task) {
	data, err := readBinaryCommand(bg, "albumart", task.Album.FolderURI)
	task.finish(data, err)
}

func (m *Manager) downloadEmbeddedCover(bg *mpd.Client, task *Task) {
	data, err := readBinaryCommand(bg, "readpicture", task.Song.URI)
	task.finish(data, err)
}

func (m *Manager) updateDatabase(bg *mpd.Client, task *Task) {
	attrs, err := bg.Command("update").Attrs()
	task.finish(attrs["updating_db"], err)
}

// readBinaryCommand drives MPD's chunked binary response protocol used
// by albumart/readpicture: repeated calls with an increasing offset
// until the bytes read reach the declared total size or a chunk comes
// back empty.
func readBinaryCommand(bg *mpd.Client, command, uri string) ([]byte, error) {
	var out []byte
	offset := 0
	for {
		chunk, total, err := bg.Command("%s %s %d", command, mpd.Quote(uri), offset).Binary()
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		offset += len(chunk)
		if len(chunk) == 0 || offset >= total {
			break
		}
	}
	return out, nil
}

func windowSongs(m *Manager, attrs []mpd.Attrs, status mpd.Attrs) []model.SongInfo {
	songs := make([]model.SongInfo, 0, len(attrs))
	for i := 0; i < len(attrs); i += SongWindowSize {
		end := i + SongWindowSize
		if end > len(attrs) {
			end = len(attrs)
		}
		batch := make([]model.SongInfo, 0, end-i)
		for _, a := range attrs[i:end] {
			batch = append(batch, songFromAttrs(a, status))
		}
		songs = append(songs, batch...)
		m.bus.Publish(eventbus.TopicSubsystemChanged, SongWindow{Songs: batch, More: end < len(attrs)})
	}
	return songs
}
