// Package config defines the full configuration surface (spec.md §6):
// connection, library, player/visualizer, and provider groups. It
// generalizes the teacher's pkg/config (environment-variable driven,
// fallback defaults) with an optional on-disk YAML file, loaded with
// go.yaml.in/yaml/v3 — already an indirect dependency across the pack.
package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// Env returns the value of the environment variable key, or def if unset.
// Kept identical to the teacher's pkg/config.Env for drop-in familiarity.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Connection holds the daemon connection group.
type Connection struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	FIFOPath     string        `yaml:"fifo_path"`
	FIFOFormat   string        `yaml:"fifo_format"` // e.g. "44100:16:2"
	PingInterval time.Duration `yaml:"ping_interval"`
}

// Library holds the library/cache group.
type Library struct {
	SortCaseSensitive  bool          `yaml:"sort_case_sensitive"`
	NullsFirst         bool          `yaml:"nulls_first"`
	ArtistDelimiters   []string      `yaml:"artist_delimiters"`
	ArtistExceptions   []string      `yaml:"artist_exceptions"`
	HiResImageSize     int           `yaml:"hires_image_size"`
	ThumbnailImageSize int           `yaml:"thumbnail_image_size"`
	RecentSongsCount   int           `yaml:"recent_songs_count"`
	MetadataMaxAge     time.Duration `yaml:"metadata_max_age"` // 0 = never refetch; resolves spec.md §9 freshness Open Question
}

// Player holds the player/visualizer group.
type Player struct {
	FPS             int     `yaml:"fps"`
	FFTSamples      int     `yaml:"fft_samples"`
	Bins            int     `yaml:"bins"`
	MinHz           float64 `yaml:"min_hz"`
	MaxHz           float64 `yaml:"max_hz"`
	LogBins         bool    `yaml:"log_bins"`
	SmoothingAlpha  float64 `yaml:"smoothing_alpha"`
}

// ProviderConfig holds per-provider settings (spec.md §6 Providers group).
type ProviderConfig struct {
	Key              string        `yaml:"key"`
	Enabled          bool          `yaml:"enabled"`
	Priority         int           `yaml:"priority"`
	UserAgent        string        `yaml:"user_agent,omitempty"`
	APIKeyRef        string        `yaml:"api_key_ref,omitempty"` // credential-store lookup tag, never the secret itself
	MinRequestDelay  time.Duration `yaml:"min_request_delay"`
}

// Config is the full configuration surface.
type Config struct {
	Connection Connection       `yaml:"connection"`
	Library    Library          `yaml:"library"`
	Player     Player           `yaml:"player"`
	Providers  []ProviderConfig `yaml:"providers"`
}

// Default returns the built-in defaults. Only the daemon host reads an
// environment variable (EUPHONICA_MPD_HOST); Load overlays an on-disk
// file on top of these defaults.
func Default() Config {
	return Config{
		Connection: Connection{
			Host:         Env("EUPHONICA_MPD_HOST", "localhost"),
			Port:         6600,
			PingInterval: 5 * time.Second,
		},
		Library: Library{
			ArtistDelimiters:   []string{",", ";", "/", "&"},
			ArtistExceptions:   []string{"AC/DC"},
			HiResImageSize:     1200,
			ThumbnailImageSize: 160,
			RecentSongsCount:   50,
			MetadataMaxAge:     30 * 24 * time.Hour,
		},
		Player: Player{
			FPS:            60,
			FFTSamples:     2048,
			Bins:           64,
			MinHz:          20,
			MaxHz:          20000,
			LogBins:        true,
			SmoothingAlpha: 0.8,
		},
		Providers: []ProviderConfig{
			{Key: "mpd", Enabled: true, Priority: 0},
			{Key: "musicbrainz", Enabled: true, Priority: 10, MinRequestDelay: time.Second},
			{Key: "lyrics", Enabled: true, Priority: 20},
		},
	}
}

// Load reads a YAML config file at path, overlaying it on Default().
// A missing file is not an error; it simply yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %q: %w", path, err)
	}
	return nil
}
