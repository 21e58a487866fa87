package mpdconn

import (
	"context"
	"time"

	"euphonica-core/internal/model"

	"github.com/fhs/gompd/v2/mpd"
)

// Foreground exposes the short synchronous command API the UI context
// calls directly (spec.md §4.1): it never idles, and every call here is
// expected to complete quickly.
type Foreground struct{ m *Manager }

// Foreground returns the synchronous command surface, or nil if not
// currently connected.
func (m *Manager) Foreground() *Foreground {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fg == nil {
		return nil
	}
	return &Foreground{m: m}
}

func (f *Foreground) conn() *mpd.Client {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return f.m.fg
}

func (f *Foreground) wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*mpd.CommandError); ok {
		return classifyServerError(err)
	}
	go func() { _ = f.m.Connect(context.Background()) }()
	return &IOError{Err: err}
}

func (f *Foreground) Play(queuePosition int) error {
	return f.wrapErr(f.conn().Play(queuePosition))
}

func (f *Foreground) PlayID(queueID int) error {
	return f.wrapErr(f.conn().PlayID(queueID))
}

func (f *Foreground) Pause(pause bool) error {
	return f.wrapErr(f.conn().Pause(pause))
}

func (f *Foreground) Stop() error {
	return f.wrapErr(f.conn().Stop())
}

func (f *Foreground) Next() error {
	return f.wrapErr(f.conn().Next())
}

func (f *Foreground) Previous() error {
	return f.wrapErr(f.conn().Previous())
}

func (f *Foreground) Seek(position time.Duration, relative bool) error {
	return f.wrapErr(f.conn().SeekCur(position, relative))
}

func (f *Foreground) SetVolume(volume int) error {
	return f.wrapErr(f.conn().SetVolume(volume))
}

func (f *Foreground) SetRandom(on bool) error  { return f.wrapErr(f.conn().Random(on)) }
func (f *Foreground) SetRepeat(on bool) error   { return f.wrapErr(f.conn().Repeat(on)) }
func (f *Foreground) SetSingle(on bool) error   { return f.wrapErr(f.conn().Single(on)) }
func (f *Foreground) SetConsume(on bool) error  { return f.wrapErr(f.conn().Consume(on)) }

func (f *Foreground) SetCrossfade(seconds int) error {
	return f.wrapErr(f.conn().Command("crossfade %d", seconds).OK())
}

func (f *Foreground) SetReplayGainMode(mode string) error {
	return f.wrapErr(f.conn().Command("replay_gain_mode %s", mode).OK())
}

// EnqueueRecursive adds every song under uri to the queue (spec.md
// §4.1 task vocabulary references enqueue-recursive as a foreground-
// reachable operation for small additions). It issues a single
// findadd for the whole subtree.
func (f *Foreground) EnqueueRecursive(uri string) error {
	return f.wrapErr(f.conn().Command("findadd %s %s", "base", mpd.Quote(uri)).OK())
}

func (f *Foreground) CurrentSong() (model.SongInfo, error) {
	conn := f.conn()
	attrs, err := conn.CurrentSong()
	if err != nil {
		return model.SongInfo{}, f.wrapErr(err)
	}
	status, _ := conn.Status()
	return songFromAttrs(attrs, status), nil
}

func (f *Foreground) RenamePlaylist(oldName, newName string) error {
	return f.wrapErr(f.conn().Command("rename %s %s", mpd.Quote(oldName), mpd.Quote(newName)).OK())
}

func (f *Foreground) SavePlaylist(name string) error {
	return f.wrapErr(f.conn().Command("save %s", mpd.Quote(name)).OK())
}

func (f *Foreground) DeletePlaylist(name string) error {
	return f.wrapErr(f.conn().Command("rm %s", mpd.Quote(name)).OK())
}

func (f *Foreground) AddToPlaylist(name, uri string) error {
	return f.wrapErr(f.conn().Command("playlistadd %s %s", mpd.Quote(name), mpd.Quote(uri)).OK())
}

func (f *Foreground) RemoveFromPlaylist(name string, position int) error {
	return f.wrapErr(f.conn().Command("playlistdelete %s %d", mpd.Quote(name), position).OK())
}

func (f *Foreground) MovePlaylistTrack(name string, from, to int) error {
	return f.wrapErr(f.conn().Command("playlistmove %s %d %d", mpd.Quote(name), from, to).OK())
}

func (f *Foreground) SetSticker(uri, name, value string) error {
	return f.wrapErr(f.conn().Command("sticker set song %s %s %s", mpd.Quote(uri), mpd.Quote(name), mpd.Quote(value)).OK())
}

func (f *Foreground) GetSticker(uri, name string) (string, error) {
	attrs, err := f.conn().Command("sticker get song %s %s", mpd.Quote(uri), mpd.Quote(name)).Attrs()
	if err != nil {
		return "", f.wrapErr(err)
	}
	return attrs["sticker"], nil
}

func (f *Foreground) EnableOutput(id int) error  { return f.wrapErr(f.conn().Command("enableoutput %d", id).OK()) }
func (f *Foreground) DisableOutput(id int) error { return f.wrapErr(f.conn().Command("disableoutput %d", id).OK()) }
