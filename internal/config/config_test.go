package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Connection.Port != 6600 {
		t.Fatalf("Port = %d, want default 6600", cfg.Connection.Port)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Connection.Host = "stereo.local"
	cfg.Player.Bins = 128

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Connection.Host != "stereo.local" || got.Player.Bins != 128 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
