// Package cache is the Metadata Cache (spec.md §4.2): a two-tier store
// of album/artist metadata, covers, and recency history. The on-disk
// half is grounded on the teacher's pkg/store package (Connect/Migrate/
// typed-row scan shape), re-pointed from pgxpool at a single-file
// modernc.org/sqlite database per the Rust original's LocalMetaDb
// schema (src/cache/sqlite.rs).
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store holds the on-disk half of the metadata cache: a SQLite handle
// plus the BSON-encoded album/artist documents, cover-key table, and
// recency log described in spec.md §4.2.
type Store struct {
	db *sql.DB
}

const schemaVersion = 1

const schemaDDL = `
create table if not exists albums (
	folder_uri text primary key,
	mbid text unique,
	title text not null,
	artist text,
	last_modified datetime not null,
	data blob not null
);
create unique index if not exists album_name on albums (title, artist);

create table if not exists artists (
	name text primary key,
	mbid text unique,
	last_modified datetime not null,
	data blob not null
);

create table if not exists lyrics (
	song_uri text primary key,
	synced integer not null,
	text text not null,
	last_modified datetime not null
);

create table if not exists covers (
	key text not null,
	thumbnail integer not null,
	filename text,
	primary key (key, thumbnail)
);

create table if not exists recency_log (
	id integer primary key autoincrement,
	song_uri text not null,
	played_at datetime not null
);
create index if not exists recency_played_at on recency_log (played_at);

create table if not exists meta (
	key text primary key,
	value text not null
);
`

// Open opens (creating if absent) the SQLite metadata store at path and
// brings its schema up to date.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: one writer, serialize via Go side
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// migrate applies the schema idempotently and records the schema
// version in the meta table, upgraded on open (spec.md §6 "schema
// version stored in a small meta table and upgraded on open").
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("cache: migrate: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`insert into meta (key, value) values ('schema_version', ?)
		 on conflict(key) do update set value = excluded.value`,
		fmt.Sprintf("%d", schemaVersion))
	if err != nil {
		return fmt.Errorf("cache: record schema version: %w", err)
	}
	return nil
}

// AlbumRow is one row of the albums table, decoded enough to apply a
// freshness check without touching the BSON payload.
type AlbumRow struct {
	FolderURI    string
	MBID         string
	Title        string
	Artist       string
	LastModified time.Time
	Data         []byte
}

// FindAlbumByMBID looks up an album row by MusicBrainz ID.
func (s *Store) FindAlbumByMBID(ctx context.Context, mbid string) (AlbumRow, bool, error) {
	return s.scanAlbumRow(ctx, `select folder_uri, mbid, title, artist, last_modified, data from albums where mbid = ?`, mbid)
}

// FindAlbumByTitleArtist looks up an album row by composite key.
func (s *Store) FindAlbumByTitleArtist(ctx context.Context, title, artist string) (AlbumRow, bool, error) {
	return s.scanAlbumRow(ctx, `select folder_uri, mbid, title, artist, last_modified, data from albums where title = ? and artist = ?`, title, artist)
}

func (s *Store) scanAlbumRow(ctx context.Context, query string, args ...any) (AlbumRow, bool, error) {
	var row AlbumRow
	var mbid, artist sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&row.FolderURI, &mbid, &row.Title, &artist, &row.LastModified, &row.Data)
	if err == sql.ErrNoRows {
		return AlbumRow{}, false, nil
	}
	if err != nil {
		return AlbumRow{}, false, fmt.Errorf("cache: find album: %w", err)
	}
	row.MBID = mbid.String
	row.Artist = artist.String
	return row, true, nil
}

// WriteAlbumMeta upserts an album's BSON document keyed by folder_uri:
// it deletes any row with that folder URI and inserts the new one. The
// mbid column is also unique, so inserting an MBID already held by a
// different folder fails.
func (s *Store) WriteAlbumMeta(ctx context.Context, folderURI, mbid, title, artist string, data []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache: write album meta: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `delete from albums where folder_uri = ?`, folderURI); err != nil {
		return fmt.Errorf("cache: write album meta: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`insert into albums (folder_uri, mbid, title, artist, last_modified, data) values (?, ?, ?, ?, ?, ?)`,
		folderURI, nullable(mbid), title, nullable(artist), time.Now().UTC(), data)
	if err != nil {
		return fmt.Errorf("cache: write album meta: %w", err)
	}
	return tx.Commit()
}

// ArtistRow is one row of the artists table.
type ArtistRow struct {
	Name         string
	MBID         string
	LastModified time.Time
	Data         []byte
}

func (s *Store) FindArtistByMBID(ctx context.Context, mbid string) (ArtistRow, bool, error) {
	return s.scanArtistRow(ctx, `select name, mbid, last_modified, data from artists where mbid = ?`, mbid)
}

func (s *Store) FindArtistByName(ctx context.Context, name string) (ArtistRow, bool, error) {
	return s.scanArtistRow(ctx, `select name, mbid, last_modified, data from artists where name = ?`, name)
}

func (s *Store) scanArtistRow(ctx context.Context, query string, args ...any) (ArtistRow, bool, error) {
	var row ArtistRow
	var mbid sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&row.Name, &mbid, &row.LastModified, &row.Data)
	if err == sql.ErrNoRows {
		return ArtistRow{}, false, nil
	}
	if err != nil {
		return ArtistRow{}, false, fmt.Errorf("cache: find artist: %w", err)
	}
	row.MBID = mbid.String
	return row, true, nil
}

// WriteArtistMeta upserts an artist's BSON document.
func (s *Store) WriteArtistMeta(ctx context.Context, name, mbid string, data []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache: write artist meta: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `delete from artists where name = ?`, name); err != nil {
		return fmt.Errorf("cache: write artist meta: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`insert into artists (name, mbid, last_modified, data) values (?, ?, ?, ?)`,
		name, nullable(mbid), time.Now().UTC(), data)
	if err != nil {
		return fmt.Errorf("cache: write artist meta: %w", err)
	}
	return tx.Commit()
}

// CoverFilename returns the registered filename for (key, thumbnail),
// whether a row exists at all, and whether that row marks the cover as
// known-absent (empty filename) — spec.md §4.2 cover-key table.
func (s *Store) CoverFilename(ctx context.Context, key string, thumbnail bool) (filename string, found bool, knownAbsent bool, err error) {
	var fn sql.NullString
	err = s.db.QueryRowContext(ctx, `select filename from covers where key = ? and thumbnail = ?`, key, thumbnail).Scan(&fn)
	if err == sql.ErrNoRows {
		return "", false, false, nil
	}
	if err != nil {
		return "", false, false, fmt.Errorf("cache: cover filename: %w", err)
	}
	if !fn.Valid || fn.String == "" {
		return "", true, true, nil
	}
	return fn.String, true, false, nil
}

// RegisterCoverKey records the outcome of a cover fetch attempt. An
// empty filename marks the key as known-absent, preventing retry
// storms (spec.md §4.3 cover-fetch fallback order, step 5).
func (s *Store) RegisterCoverKey(ctx context.Context, key string, thumbnail bool, filename string) error {
	_, err := s.db.ExecContext(ctx,
		`insert into covers (key, thumbnail, filename) values (?, ?, ?)
		 on conflict(key, thumbnail) do update set filename = excluded.filename`,
		key, thumbnail, nullable(filename))
	if err != nil {
		return fmt.Errorf("cache: register cover key: %w", err)
	}
	return nil
}

// ClearCoverKey drops a cover-key row entirely, used by on-disk
// eviction (spec.md §4.2 "must atomically drop both the file and the
// cover-key row").
func (s *Store) ClearCoverKey(ctx context.Context, key string, thumbnail bool) error {
	_, err := s.db.ExecContext(ctx, `delete from covers where key = ? and thumbnail = ?`, key, thumbnail)
	if err != nil {
		return fmt.Errorf("cache: clear cover key: %w", err)
	}
	return nil
}

// AppendRecency records a play event. The log is append-only from the
// core's perspective; truncation is the UI's prerogative (spec.md §3
// Invariants).
func (s *Store) AppendRecency(ctx context.Context, songURI string, playedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `insert into recency_log (song_uri, played_at) values (?, ?)`, songURI, playedAt.UTC())
	if err != nil {
		return fmt.Errorf("cache: append recency: %w", err)
	}
	return nil
}

// RecentSongURIs returns up to limit most-recently-played song URIs,
// newest first.
func (s *Store) RecentSongURIs(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `select song_uri from recency_log order by played_at desc limit ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("cache: recent song uris: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("cache: recent song uris: %w", err)
		}
		out = append(out, uri)
	}
	return out, rows.Err()
}

// FindLyrics looks up a song's cached lyrics by URI.
func (s *Store) FindLyrics(ctx context.Context, songURI string) (synced bool, text string, lastModified time.Time, found bool, err error) {
	var syncedInt int
	err = s.db.QueryRowContext(ctx, `select synced, text, last_modified from lyrics where song_uri = ?`, songURI).Scan(&syncedInt, &text, &lastModified)
	if err == sql.ErrNoRows {
		return false, "", time.Time{}, false, nil
	}
	if err != nil {
		return false, "", time.Time{}, false, fmt.Errorf("cache: find lyrics: %w", err)
	}
	return syncedInt != 0, text, lastModified, true, nil
}

// WriteLyrics upserts a song's lyrics. An empty text with found=true on
// a later read marks the song as known to have no lyrics, the same
// known-absent convention as cover keys.
func (s *Store) WriteLyrics(ctx context.Context, songURI string, synced bool, text string) error {
	_, err := s.db.ExecContext(ctx,
		`insert into lyrics (song_uri, synced, text, last_modified) values (?, ?, ?, ?)
		 on conflict(song_uri) do update set synced = excluded.synced, text = excluded.text, last_modified = excluded.last_modified`,
		songURI, synced, text, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cache: write lyrics: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
