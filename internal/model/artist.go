package model

// ArtistInfo is the plain value record for an artist (spec.md §3).
type ArtistInfo struct {
	Name        string
	MBArtistID  string
	IsComposer  bool
}

// Key returns the preferred cache key: MBID if known, else name
// (spec.md §4.2 key scheme).
func (a ArtistInfo) Key() ArtistKey {
	if a.MBArtistID != "" {
		return ArtistKey{MBID: a.MBArtistID}
	}
	return ArtistKey{Name: a.Name}
}

// ArtistKey identifies an artist for metadata-store lookups.
type ArtistKey struct {
	MBID string
	Name string
}

func (k ArtistKey) IsMBID() bool { return k.MBID != "" }

// ArtistChangeKind enumerates observable mutations for an artist.
type ArtistChangeKind int

const (
	ArtistChangedMeta ArtistChangeKind = iota
	ArtistChangedAvatar
)

// ArtistChange is delivered to ObservableArtist listeners.
type ArtistChange struct {
	Kind   ArtistChangeKind
	Artist ArtistInfo
}

// ObservableArtist wraps an ArtistInfo for UI-context observation.
type ObservableArtist struct {
	info      ArtistInfo
	listeners []chan<- ArtistChange
}

func NewObservableArtist(info ArtistInfo) *ObservableArtist {
	return &ObservableArtist{info: info}
}

func (o *ObservableArtist) Info() ArtistInfo { return o.info }

func (o *ObservableArtist) Subscribe(ch chan<- ArtistChange) func() {
	o.listeners = append(o.listeners, ch)
	return func() {
		for i, l := range o.listeners {
			if l == ch {
				o.listeners = append(o.listeners[:i], o.listeners[i+1:]...)
				return
			}
		}
	}
}

func (o *ObservableArtist) Update(info ArtistInfo, kind ArtistChangeKind) {
	o.info = info
	change := ArtistChange{Kind: kind, Artist: info}
	for _, l := range o.listeners {
		select {
		case l <- change:
		default:
		}
	}
}
