package mpdconn

import (
	"context"
	"log/slog"
	"strconv"

	"euphonica-core/internal/eventbus"
	"euphonica-core/internal/model"

	"github.com/fhs/gompd/v2/mpd"
)

// runBackground is the background client's main loop (spec.md §4.1):
// while tasks are queued, execute them one at a time with busy=true;
// otherwise block in idle until a change-set arrives. A "Message"
// subsystem in the change-set means the inter-client channel has
// WAKE/STOP control words waiting; any other subsystem is forwarded to
// the foreground as a subsystem-changed event.
func (m *Manager) runBackground(bg *mpd.Client, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer bg.Close()

	wasBusy := false

	for {
		select {
		case <-stop:
			return
		default:
		}

		if len(m.tasks) > 0 {
			if !wasBusy {
				m.state.setBusy(true)
				m.publishState()
				wasBusy = true
			}
			task := <-m.tasks
			m.executeTask(context.Background(), bg, task)
			continue
		}

		if wasBusy {
			m.state.setBusy(false)
			m.publishState()
			wasBusy = false
		}

		changed, err := bg.Idle()
		if err != nil {
			m.bus.Publish(eventbus.TopicError, &IOError{Err: err})
			go func() { _ = m.Connect(context.Background()) }()
			return
		}

		stopRequested := false
		for _, subsystem := range changed {
			if subsystem == "message" {
				stopRequested = m.drainMessages(bg) || stopRequested
				continue
			}
			if subsystem == "database" {
				// Explicit database-update notifications trigger
				// reconnect per spec.md §4.1 State machine.
				go func() { _ = m.Connect(context.Background()) }()
				return
			}
			if subsystem == "playlist" {
				m.refreshQueue(bg)
				continue
			}
			m.bus.Publish(eventbus.TopicSubsystemChanged, subsystem)
		}

		if stopRequested {
			select {
			case <-stop:
			default:
			}
			return
		}
	}
}

// drainMessages reads pending inter-client channel messages and acts on
// the reserved WAKE/STOP control words; any other message is ignored
// (spec.md §6 GLOSSARY "Inter-client channel").
func (m *Manager) drainMessages(bg *mpd.Client) (stopRequested bool) {
	msgs, err := bg.ReadMessages()
	if err != nil {
		slog.Warn("mpdconn: read messages", "err", err)
		return false
	}
	for _, msg := range msgs {
		switch msg.Message {
		case controlWake:
			// No-op: falling through to the top of the loop already
			// re-checks the task queue.
		case controlStop:
			stopRequested = true
		}
	}
	return stopRequested
}

// refreshQueue handles a "playlist" idle notification by diffing
// against the cached queue instead of refetching it whole (spec.md
// §4.1 Queue diff protocol): it asks the daemon for plchangesposid
// since the cache's last known version, applies the diff, resolves any
// IDs the cache hasn't seen via playlistid, and publishes the result.
// A version mismatch (the cache fell behind, e.g. after a reconnect)
// falls back to a full playlistinfo fetch.
func (m *Manager) refreshQueue(bg *mpd.Client) {
	status, err := bg.Command("status").Attrs()
	if err != nil {
		slog.Warn("mpdconn: refresh queue status", "err", err)
		return
	}
	newVersion, _ := strconv.Atoi(status["playlist"])
	newLength, _ := strconv.Atoi(status["playlistlength"])
	fromVersion := m.queueCache.Version()

	if newVersion == fromVersion {
		return
	}

	diff, err := bg.Command("plchangesposid %d", fromVersion).AttrsList("cpos")
	var changes []PosIDChange
	if err == nil {
		for _, a := range diff {
			pos, perr := strconv.Atoi(a["cpos"])
			id, ierr := strconv.Atoi(a["Id"])
			if perr == nil && ierr == nil {
				changes = append(changes, PosIDChange{Position: pos, ID: id})
			}
		}
	}

	ordered, unknown, ok := m.queueCache.ApplyChanges(fromVersion, newVersion, newLength, changes, nil)
	if err != nil || !ok {
		m.fullQueueRefresh(bg, newVersion)
		return
	}

	for _, id := range unknown {
		attrs, err := bg.Command("playlistid %d", id).Attrs()
		if err != nil {
			continue
		}
		m.queueCache.Resolve(songFromAttrs(attrs, status))
	}
	if len(unknown) > 0 {
		ordered = m.queueCache.Ordered()
	}

	m.bus.Publish(eventbus.TopicQueueChanged, ordered)
}

func (m *Manager) fullQueueRefresh(bg *mpd.Client, version int) {
	attrs, err := bg.Command("playlistinfo").AttrsList("file")
	if err != nil {
		slog.Warn("mpdconn: full queue refresh", "err", err)
		return
	}
	songs := make([]model.SongInfo, 0, len(attrs))
	for _, a := range attrs {
		songs = append(songs, songFromAttrs(a, nil))
	}
	m.queueCache.ReplaceAll(version, songs)
	m.bus.Publish(eventbus.TopicQueueChanged, songs)
}

func (m *Manager) executeTask(ctx context.Context, bg *mpd.Client, task *Task) {
	switch task.Kind {
	case TaskFetchAllAlbums:
		m.fetchAllAlbums(bg, task)
	case TaskFetchAlbumSongs:
		m.fetchAlbumSongs(bg, task)
	case TaskFetchArtists:
		m.fetchArtists(bg, task)
	case TaskFetchArtistSongs:
		m.fetchArtistSongs(bg, task)
	case TaskFetchArtistAlbums:
		m.fetchArtistAlbums(bg, task)
	case TaskFetchFolderContents:
		m.fetchFolderContents(bg, task)
	case TaskFetchPlaylistSongs:
		m.fetchPlaylistSongs(bg, task)
	case TaskFetchLastNSongs:
		m.fetchLastNSongs(bg, task)
	case TaskDownloadFolderCover:
		m.downloadFolderCover(bg, task)
	case TaskDownloadEmbeddedCover:
		m.downloadEmbeddedCover(bg, task)
	case TaskUpdateDatabase:
		m.updateDatabase(bg, task)
	default:
		task.finish(nil, nil)
	}
}
