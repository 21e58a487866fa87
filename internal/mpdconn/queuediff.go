package mpdconn

import (
	"sync"

	"euphonica-core/internal/model"

	lru "github.com/hashicorp/golang-lru/v2"
)

// QueueCache holds a bounded LRU of queue SongInfos keyed by queue ID,
// so that a queue-changed idle notification can be resolved by diffing
// positions/IDs instead of refetching the entire queue (spec.md §4.1
// Queue diff protocol).
type QueueCache struct {
	mu      sync.Mutex
	version int
	order   []int // queue IDs in queue order
	songs   *lru.Cache[int, model.SongInfo]
}

// NewQueueCache returns a QueueCache bounded to capacity entries.
func NewQueueCache(capacity int) *QueueCache {
	c, _ := lru.New[int, model.SongInfo](capacity)
	return &QueueCache{songs: c}
}

// Version returns the queue version this cache was last synced to.
func (q *QueueCache) Version() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.version
}

// ReplaceAll installs a freshly fetched full queue at the given version,
// used for the initial sync and whenever a diff can't be applied.
func (q *QueueCache) ReplaceAll(version int, songs []model.SongInfo) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.version = version
	q.order = q.order[:0]
	for _, s := range songs {
		if s.QueueID == nil {
			continue
		}
		q.order = append(q.order, *s.QueueID)
		q.songs.Add(*s.QueueID, s)
	}
}

// PosIDChange is one entry of an MPD "changesposid" response: the song
// at Position now has queue ID ID.
type PosIDChange struct {
	Position int
	ID       int
}

// ApplyChanges applies a changesposid-style diff from the cache's
// current version to newVersion. unknownIDs lists queue IDs referenced
// by the diff that the cache has never seen, which the caller should
// resolve with a find-by-id round trip and feed back via Resolve before
// calling ApplyChanges again (or, simplest, the caller may resolve them
// up front and pass the already-known song via ReplaceAll for that ID).
// A diff whose fromVersion doesn't match the cache's current version is
// rejected — spec.md §5 "Queue-diff application is strictly sequenced
// by queue version; an older version is rejected."
//
// newLength, when >= 0, truncates the result to the daemon-reported
// final queue length: plchangesposid only reports entries whose
// position actually changed, so a song removed from the very end of
// the queue with nothing behind it to shift forward never appears in
// changes or removedIDs. Pass -1 to skip truncation.
func (q *QueueCache) ApplyChanges(fromVersion, newVersion, newLength int, changes []PosIDChange, removedIDs []int) (ordered []model.SongInfo, unknownIDs []int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if fromVersion != q.version {
		return nil, nil, false
	}

	removed := make(map[int]bool, len(removedIDs))
	for _, id := range removedIDs {
		removed[id] = true
	}

	newOrderByPos := make(map[int]int, len(changes))
	for _, c := range changes {
		newOrderByPos[c.Position] = c.ID
	}

	// Build the new order: start from the old order stripped of
	// removed IDs, then overlay position->ID moves.
	var base []int
	for _, id := range q.order {
		if !removed[id] {
			base = append(base, id)
		}
	}

	maxPos := len(base) - 1
	for pos := range newOrderByPos {
		if pos > maxPos {
			maxPos = pos
		}
	}

	final := make([]int, maxPos+1)
	copy(final, base)
	for pos, id := range newOrderByPos {
		final[pos] = id
	}

	if newLength >= 0 && len(final) > newLength {
		final = final[:newLength]
	}

	result := make([]model.SongInfo, 0, len(final))
	for _, id := range final {
		if id == 0 {
			continue
		}
		if song, ok := q.songs.Get(id); ok {
			result = append(result, song)
		} else {
			unknownIDs = append(unknownIDs, id)
		}
	}

	q.order = final
	q.version = newVersion
	return result, unknownIDs, true
}

// Resolve inserts a freshly fetched song (e.g. via find-by-id) into the
// cache so a subsequent read can find it.
func (q *QueueCache) Resolve(song model.SongInfo) {
	if song.QueueID == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.songs.Add(*song.QueueID, song)
}

// Ordered returns the current queue in position order.
func (q *QueueCache) Ordered() []model.SongInfo {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := make([]model.SongInfo, 0, len(q.order))
	for _, id := range q.order {
		if song, ok := q.songs.Get(id); ok {
			result = append(result, song)
		}
	}
	return result
}
