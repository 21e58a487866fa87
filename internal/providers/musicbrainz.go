package providers

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"euphonica-core/internal/model"
)

// MusicBrainzProvider is the remote album/artist metadata provider.
// Adapted from the teacher's pkg/musicbrainz client/enrich/image files:
// the HTTP plumbing and the Cover Art Archive / Wikidata image lookups
// are kept nearly verbatim, re-pointed at model.AlbumMeta/model.ArtistMeta
// instead of the teacher's *Enrichment structs, and wrapped in the
// rate-limited Provider shape this package's pipeline expects.
type MusicBrainzProvider struct {
	http      *http.Client
	limiter   *requestLimiter
	priority  int
	enabled   bool
	userAgent string
}

const (
	musicbrainzBaseURL   = "https://musicbrainz.org/ws/2"
	coverArtArchiveBase  = "https://coverartarchive.org"
	wikidataAPI          = "https://www.wikidata.org/w/api.php"
	wikimediaCommonsBase = "https://upload.wikimedia.org/wikipedia/commons"
)

// NewMusicBrainzProvider builds a provider respecting MusicBrainz's
// documented rate limit (one request per second) unless overridden by
// a faster/slower configured delay.
func NewMusicBrainzProvider(userAgent string, requestDelay time.Duration, priority int) *MusicBrainzProvider {
	if requestDelay <= 0 {
		requestDelay = time.Second
	}
	return &MusicBrainzProvider{
		http:      &http.Client{Timeout: 15 * time.Second},
		limiter:   newRequestLimiter(requestDelay),
		priority:  priority,
		enabled:   true,
		userAgent: userAgent,
	}
}

func (p *MusicBrainzProvider) Key() string        { return "musicbrainz" }
func (p *MusicBrainzProvider) Priority() int       { return p.priority }
func (p *MusicBrainzProvider) SetPriority(v int)   { p.priority = v }
func (p *MusicBrainzProvider) Enabled() bool       { return p.enabled }
func (p *MusicBrainzProvider) SetEnabled(v bool)   { p.enabled = v }

func (p *MusicBrainzProvider) get(ctx context.Context, path string) ([]byte, error) {
	if err := p.limiter.wait(ctx); err != nil {
		return nil, err
	}

	u := musicbrainzBaseURL + path
	if strings.Contains(u, "?") {
		u += "&fmt=json"
	} else {
		u += "?fmt=json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		time.Sleep(2 * time.Second)
		return p.get(ctx, path)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("musicbrainz: not found: %s", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("musicbrainz: http %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}

func quoteQuery(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// --- MusicBrainz response shapes (trimmed to the fields we use) ---

type mbArtistSearchResponse struct {
	Artists []mbArtistResult `json:"artists"`
}

type mbArtistResult struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Disambiguation string        `json:"disambiguation"`
	Score          int           `json:"score"`
	Genres         []mbGenre     `json:"genres"`
	Tags           []mbTag       `json:"tags"`
	Relations      []mbRelation  `json:"relations"`
}

type mbGenre struct {
	Name string `json:"name"`
}

type mbTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type mbRelation struct {
	TargetType string  `json:"target-type"`
	URL        *mbURL  `json:"url,omitempty"`
}

type mbURL struct {
	Resource string `json:"resource"`
}

type mbReleaseGroupSearchResponse struct {
	ReleaseGroups []mbReleaseGroupResult `json:"release-groups"`
}

type mbReleaseGroupResult struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	FirstRelease string    `json:"first-release-date"`
	Score        int       `json:"score"`
	Genres       []mbGenre `json:"genres"`
	Tags         []mbTag   `json:"tags"`
}

// GetArtistMeta searches MusicBrainz for artist, picks the best scoring
// match, and fills in whatever existing left empty (spec.md §4.3 merge
// rules: "scalar optional fields filled if currently None").
func (p *MusicBrainzProvider) GetArtistMeta(ctx context.Context, artist *model.ArtistInfo, existing model.ArtistMeta) (model.ArtistMeta, bool) {
	path := fmt.Sprintf("/artist/?query=artist:%s&limit=5", url.QueryEscape(quoteQuery(artist.Name)))
	body, err := p.get(ctx, path)
	if err != nil {
		return existing, false
	}
	var resp mbArtistSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Artists) == 0 {
		return existing, false
	}
	best := resp.Artists[0]
	if best.Score < 90 {
		return existing, false
	}

	if artist.MBArtistID == "" {
		artist.MBArtistID = best.ID
	}

	found := model.ArtistMeta{
		Name: best.Name,
		MBID: best.ID,
		URL:  fmt.Sprintf("https://musicbrainz.org/artist/%s", best.ID),
	}
	for _, g := range best.Genres {
		found.Tags = append(found.Tags, model.Tag{Name: g.Name})
	}
	for _, t := range best.Tags {
		if t.Count > 0 {
			found.Tags = append(found.Tags, model.Tag{Name: t.Name})
		}
	}

	return model.MergeArtistMeta(existing, found), true
}

// GetAlbumMeta mirrors GetArtistMeta for release groups.
func (p *MusicBrainzProvider) GetAlbumMeta(ctx context.Context, album *model.AlbumInfo, existing model.AlbumMeta) (model.AlbumMeta, bool) {
	artistName := ""
	if len(album.AlbumArtists) > 0 {
		artistName = album.AlbumArtists[0]
	}
	q := fmt.Sprintf("releasegroup:%s AND artist:%s", quoteQuery(album.Title), quoteQuery(artistName))
	path := fmt.Sprintf("/release-group/?query=%s&limit=5", url.QueryEscape(q))
	body, err := p.get(ctx, path)
	if err != nil {
		return existing, false
	}
	var resp mbReleaseGroupSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.ReleaseGroups) == 0 {
		return existing, false
	}
	best := resp.ReleaseGroups[0]
	if best.Score < 85 {
		return existing, false
	}

	if album.MBAlbumID == "" {
		album.MBAlbumID = best.ID
	}

	found := model.AlbumMeta{
		Name:   best.Title,
		Artist: artistName,
		MBID:   best.ID,
		URL:    fmt.Sprintf("https://musicbrainz.org/release-group/%s", best.ID),
	}
	for _, g := range best.Genres {
		found.Tags = append(found.Tags, model.Tag{Name: g.Name})
	}
	for _, t := range best.Tags {
		if t.Count > 0 {
			found.Tags = append(found.Tags, model.Tag{Name: t.Name})
		}
	}
	return model.MergeAlbumMeta(existing, found), true
}

// GetLyrics: MusicBrainz carries no lyrics. Always a miss.
func (p *MusicBrainzProvider) GetLyrics(ctx context.Context, song model.SongInfo) (model.Lyrics, bool) {
	return model.Lyrics{}, false
}

// FetchAlbumCoverArt downloads the front cover from the Cover Art
// Archive for a release-group MBID, used by the pipeline's
// FetchFolderCoverExternally fallback step (spec.md §4.3 step 4).
func (p *MusicBrainzProvider) FetchAlbumCoverArt(ctx context.Context, releaseGroupMBID string) ([]byte, error) {
	if releaseGroupMBID == "" {
		return nil, nil
	}
	if err := p.limiter.wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/release-group/%s/front-500", coverArtArchiveBase, releaseGroupMBID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cover art archive: http %d for %s", resp.StatusCode, releaseGroupMBID)
	}
	return io.ReadAll(resp.Body)
}

// FetchArtistAvatar downloads an artist photo via Wikidata's P18 image
// claim, extracted from the artist's URL relationships.
func (p *MusicBrainzProvider) FetchArtistAvatar(ctx context.Context, mbid string) ([]byte, error) {
	if mbid == "" {
		return nil, nil
	}
	body, err := p.get(ctx, fmt.Sprintf("/artist/%s?inc=url-rels", url.PathEscape(mbid)))
	if err != nil {
		return nil, err
	}
	var detail mbArtistResult
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, err
	}
	return p.fetchArtistImageFromRelations(ctx, detail.Relations)
}

func (p *MusicBrainzProvider) fetchArtistImageFromRelations(ctx context.Context, relations []mbRelation) ([]byte, error) {
	var qid string
	for _, rel := range relations {
		if rel.URL == nil {
			continue
		}
		resource := rel.URL.Resource
		if strings.Contains(resource, "wikidata.org/wiki/Q") {
			parts := strings.Split(resource, "/")
			for _, part := range parts {
				if strings.HasPrefix(part, "Q") {
					qid = part
					break
				}
			}
		}
		if qid != "" {
			break
		}
	}
	if qid == "" {
		return nil, nil
	}

	filename, err := p.wikidataImageFilename(ctx, qid)
	if err != nil || filename == "" {
		return nil, err
	}
	return p.downloadCommonsImage(ctx, filename)
}

func (p *MusicBrainzProvider) wikidataImageFilename(ctx context.Context, qid string) (string, error) {
	u := fmt.Sprintf("%s?action=wbgetclaims&property=P18&entity=%s&format=json", wikidataAPI, qid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	var result struct {
		Claims map[string][]struct {
			MainSnak struct {
				DataValue struct {
					Value string `json:"value"`
				} `json:"datavalue"`
			} `json:"mainsnak"`
		} `json:"claims"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if claims, ok := result.Claims["P18"]; ok && len(claims) > 0 {
		return claims[0].MainSnak.DataValue.Value, nil
	}
	return "", nil
}

func (p *MusicBrainzProvider) downloadCommonsImage(ctx context.Context, filename string) ([]byte, error) {
	filename = strings.ReplaceAll(filename, " ", "_")
	hash := fmt.Sprintf("%x", md5.Sum([]byte(filename)))

	thumbURL := fmt.Sprintf("%s/thumb/%s/%s/%s/400px-%s", wikimediaCommonsBase, hash[:1], hash[:2], filename, filename)
	if data, err := p.downloadIfOK(ctx, thumbURL); err == nil && data != nil {
		return data, nil
	}

	fullURL := fmt.Sprintf("%s/%s/%s/%s", wikimediaCommonsBase, hash[:1], hash[:2], filename)
	return p.downloadIfOK(ctx, fullURL)
}

func (p *MusicBrainzProvider) downloadIfOK(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}
	return io.ReadAll(resp.Body)
}
