package structures

import (
	"strconv"
	"strings"
	"time"
)

// Track represents one playable unit from the catalog. Field tags follow the
// iTunes Search API so catalog responses decode straight into it. Several
// fields are optional: some tracks carry no stable ID and only match by
// title+artist, and preview URLs are frequently absent.
type Track struct {
	TrackID      int64  `json:"trackId,omitempty"`
	Title        string `json:"trackName"`
	Artist       string `json:"artistName"`
	Album        string `json:"collectionName,omitempty"`
	CollectionID int64  `json:"collectionId,omitempty"`
	ArtworkURL   string `json:"artworkUrl100,omitempty"`
	ArtworkSmall string `json:"artworkUrl60,omitempty"`
	PreviewURL   string `json:"previewUrl,omitempty"`
	DurationMS   int    `json:"trackTimeMillis,omitempty"`
	ReleaseDate  string `json:"releaseDate,omitempty"`
}

// Playable reports whether the track can enter the queue at all: it needs
// either a direct preview URL or a title that source resolution can search by.
func (t Track) Playable() bool {
	return t.PreviewURL != "" || t.Title != ""
}

// Key returns the track's dedup identity: the numeric ID when present,
// otherwise title+artist.
func (t Track) Key() string {
	if t.TrackID != 0 {
		return "id:" + strconv.FormatInt(t.TrackID, 10)
	}
	return "ta:" + t.Title + "\x00" + t.Artist
}

// Artwork returns the best artwork URL upgraded to a 500x500 rendition.
// Catalog records carry a 100x100 and sometimes only a 60x60 template URL;
// the size token substitutes cleanly on both.
func (t Track) Artwork() string {
	if t.ArtworkURL != "" {
		return strings.Replace(t.ArtworkURL, "100x100", "500x500", 1)
	}
	if t.ArtworkSmall != "" {
		return strings.Replace(t.ArtworkSmall, "60x60", "500x500", 1)
	}
	return ""
}

// Duration returns the catalog-reported track length.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// SourceKind discriminates the two playback source shapes.
type SourceKind int

const (
	// SourcePreview is a short, directly streamable audio URL.
	SourcePreview SourceKind = iota
	// SourceEmbed is a full-length source identified by an opaque video ID.
	SourceEmbed
)

// Source is the result of resolving a track: either an embed video ID or the
// preview URL fallback (whose URL may be empty when the track has none).
type Source struct {
	Kind    SourceKind
	VideoID string
	URL     string
}

// SessionState is the playback session's state machine position.
type SessionState int

const (
	StateIdle SessionState = iota
	StateLoading
	StatePlayingPreview
	StatePlayingEmbed
	StatePaused
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlayingPreview:
		return "playing-preview"
	case StatePlayingEmbed:
		return "playing-embed"
	case StatePaused:
		return "paused"
	}
	return "unknown"
}

// PlayerAction is a command sent to the playback session.
type PlayerAction interface{}

// Session actions. PlayTrackAction with QueueIndex < 0 plays outside any
// existing queue position (the session seeds a queue if none exists).
type PlayTrackAction struct {
	Track      Track
	QueueIndex int
}
type ReplaceQueueAction struct {
	Tracks     []Track
	StartIndex int
}
type NextAction struct{}
type PreviousAction struct{}
type PlayPauseAction struct{}
type SeekAction struct{ Position time.Duration }
type VolumeUpAction struct{}
type VolumeDownAction struct{}
type CleanupAction struct{}

// PlayerState is a snapshot of the session for the view layer.
type PlayerState struct {
	Queue     []Track
	Index     int
	Current   *Track
	State     SessionState
	IsPlaying bool
	Position  time.Duration
	Total     time.Duration
	Volume    float64
}

// User is a locally registered account. Credentials are stored in plaintext
// in the local store, matching the original client; this is a known flaw and
// hardening it is explicitly out of scope.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"created_at"`
}

// Library is the saved library data persisted in the store.
type Library struct {
	Playlists []string `json:"playlists"`
	Artists   []string `json:"artists"`
	Albums    []string `json:"albums"`
}

// Config represents the application configuration.
type Config struct {
	Theme       Theme       `toml:"theme"`
	KeyBindings KeyBindings `toml:"key_bindings"`

	// Catalog / resolver configuration
	CatalogBaseURL string `toml:"catalog_base_url"`
	ProxyBaseURL   string `toml:"proxy_base_url"`
	SearchLimit    int    `toml:"search_limit"`

	// Player configuration
	DefaultVolume float64 `toml:"default_volume"`
	SeekSeconds   int     `toml:"seek_seconds"`
	MpvPath       string  `toml:"mpv_path"`
}

// Theme represents the UI theme configuration.
type Theme struct {
	Foreground      string `toml:"foreground"`
	Selected        string `toml:"selected"`
	Playing         string `toml:"playing"`
	Border          string `toml:"border"`
	Notice          string `toml:"notice"`
	ProgressBar     string `toml:"progress_bar"`
	ProgressBarFill string `toml:"progress_bar_fill"`
}

// KeyBindings represents configurable keyboard shortcuts.
type KeyBindings struct {
	PlayPause    string   `toml:"play_pause"`
	Quit         string   `toml:"quit"`
	NextTrack    string   `toml:"next_track"`
	PrevTrack    string   `toml:"prev_track"`
	VolumeUp     []string `toml:"volume_up"`
	VolumeDown   []string `toml:"volume_down"`
	SeekForward  string   `toml:"seek_forward"`
	SeekBackward string   `toml:"seek_backward"`

	MoveUp   []string `toml:"move_up"`
	MoveDown []string `toml:"move_down"`
	Select   []string `toml:"select"`
	Back     []string `toml:"back"`

	Search  string `toml:"search"`
	Home    string `toml:"home"`
	Library string `toml:"library"`
}
