package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"euphonica-core/internal/model"
)

// LyricsProvider tries LRCLIB first (free, no API key, duration-matched
// exact lookup), then a secondary provider, first non-empty result
// wins. Adapted from the teacher's services/api/internal/lyricfetch
// package, itself credited there to foo_openlyrics's provider order;
// kept as the same two-provider chain, re-pointed at model.Lyrics and
// wrapped in this package's rate-limited Provider shape.
type LyricsProvider struct {
	http      *http.Client
	limiter   *requestLimiter
	priority  int
	enabled   bool
	userAgent string
}

func NewLyricsProvider(userAgent string, requestDelay time.Duration, priority int) *LyricsProvider {
	if requestDelay <= 0 {
		requestDelay = 500 * time.Millisecond
	}
	return &LyricsProvider{
		http:      &http.Client{Timeout: 10 * time.Second},
		limiter:   newRequestLimiter(requestDelay),
		priority:  priority,
		enabled:   true,
		userAgent: userAgent,
	}
}

func (p *LyricsProvider) Key() string      { return "lyrics" }
func (p *LyricsProvider) Priority() int     { return p.priority }
func (p *LyricsProvider) SetPriority(v int) { p.priority = v }
func (p *LyricsProvider) Enabled() bool     { return p.enabled }
func (p *LyricsProvider) SetEnabled(v bool) { p.enabled = v }

// GetAlbumMeta/GetArtistMeta: this provider only speaks lyrics.
func (p *LyricsProvider) GetAlbumMeta(ctx context.Context, album *model.AlbumInfo, existing model.AlbumMeta) (model.AlbumMeta, bool) {
	return existing, false
}

func (p *LyricsProvider) GetArtistMeta(ctx context.Context, artist *model.ArtistInfo, existing model.ArtistMeta) (model.ArtistMeta, bool) {
	return existing, false
}

// GetLyrics tries LRCLIB's duration-matched lookup, then its plain
// search, then NetEase, returning the first hit (spec.md §4.3 point 4:
// lyrics are short-circuit, first non-empty wins).
func (p *LyricsProvider) GetLyrics(ctx context.Context, song model.SongInfo) (model.Lyrics, bool) {
	artist := song.ArtistTag
	album := song.Album.Title
	title := song.Title
	durationSec := int(song.Duration / time.Second)

	if err := p.limiter.wait(ctx); err != nil {
		return model.Lyrics{}, false
	}

	if lyr, ok := p.lrclibGet(ctx, artist, album, title, durationSec); ok {
		return lyr, true
	}
	if lyr, ok := p.lrclibSearch(ctx, artist, album, title); ok {
		return lyr, true
	}
	if lyr, ok := p.neteaseSearch(ctx, artist, title); ok {
		return lyr, true
	}
	return model.Lyrics{}, false
}

const lrclibBase = "https://lrclib.net/api"

func (p *LyricsProvider) lrclibGet(ctx context.Context, artist, album, title string, durationSec int) (model.Lyrics, bool) {
	u := fmt.Sprintf("%s/get?artist_name=%s&album_name=%s&track_name=%s&duration=%d",
		lrclibBase, url.QueryEscape(artist), url.QueryEscape(album), url.QueryEscape(title), durationSec)
	body, err := p.httpGet(ctx, u, nil)
	if err != nil {
		return model.Lyrics{}, false
	}
	return parseLRCLibItem(body)
}

func (p *LyricsProvider) lrclibSearch(ctx context.Context, artist, album, title string) (model.Lyrics, bool) {
	u := fmt.Sprintf("%s/search?artist_name=%s&album_name=%s&track_name=%s",
		lrclibBase, url.QueryEscape(artist), url.QueryEscape(album), url.QueryEscape(title))
	body, err := p.httpGet(ctx, u, nil)
	if err != nil {
		return model.Lyrics{}, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil || len(items) == 0 {
		return model.Lyrics{}, false
	}

	var plainFallback *model.Lyrics
	for i, raw := range items {
		if i >= 3 { // same RESULT_LIMIT the teacher's comment attributes to foo_openlyrics
			break
		}
		lyr, ok := parseLRCLibItem(raw)
		if !ok {
			continue
		}
		if lyr.Synced {
			return lyr, true
		}
		if plainFallback == nil && lyr.Text != "" {
			l := lyr
			plainFallback = &l
		}
	}
	if plainFallback != nil {
		return *plainFallback, true
	}
	return model.Lyrics{}, false
}

func parseLRCLibItem(data []byte) (model.Lyrics, bool) {
	var item struct {
		SyncedLyrics string `json:"syncedLyrics"`
		PlainLyrics  string `json:"plainLyrics"`
	}
	if err := json.Unmarshal(data, &item); err != nil {
		return model.Lyrics{}, false
	}
	if item.SyncedLyrics != "" {
		return model.Lyrics{Synced: true, Text: item.SyncedLyrics}, true
	}
	if item.PlainLyrics != "" {
		return model.Lyrics{Synced: false, Text: item.PlainLyrics}, true
	}
	return model.Lyrics{}, false
}

const neteaseBase = "https://music.163.com/api"

func (p *LyricsProvider) neteaseSearch(ctx context.Context, artist, title string) (model.Lyrics, bool) {
	searchURL := neteaseBase + "/search/get"
	form := url.Values{
		"s":      {artist + " " + title},
		"type":   {"1"},
		"offset": {"0"},
		"limit":  {"5"},
	}
	headers := map[string]string{
		"Referer":      "https://music.163.com",
		"Cookie":       "appver=2.0.2",
		"Content-Type": "application/x-www-form-urlencoded",
		"X-Real-IP":    "202.96.0.0", // foo_openlyrics spoofs a Chinese IP for better results
	}

	body, err := p.httpPost(ctx, searchURL, form.Encode(), headers)
	if err != nil {
		return model.Lyrics{}, false
	}

	var searchResp struct {
		Result struct {
			Songs []struct {
				ID int64 `json:"id"`
			} `json:"songs"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &searchResp); err != nil || len(searchResp.Result.Songs) == 0 {
		return model.Lyrics{}, false
	}

	songID := searchResp.Result.Songs[0].ID
	lyricURL := fmt.Sprintf("%s/song/lyric?tv=-1&kv=-1&lv=-1&os=pc&id=%d", neteaseBase, songID)
	body, err = p.httpGet(ctx, lyricURL, headers)
	if err != nil {
		return model.Lyrics{}, false
	}

	var lyricResp struct {
		LRC struct {
			Lyric string `json:"lyric"`
		} `json:"lrc"`
	}
	if err := json.Unmarshal(body, &lyricResp); err != nil {
		return model.Lyrics{}, false
	}
	lrc := strings.TrimSpace(lyricResp.LRC.Lyric)
	if lrc == "" {
		return model.Lyrics{}, false
	}
	return model.Lyrics{Synced: true, Text: lrc}, true
}

func (p *LyricsProvider) httpGet(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lyrics: http %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (p *LyricsProvider) httpPost(ctx context.Context, rawURL, body string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lyrics: http %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
