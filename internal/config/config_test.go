package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, warnings, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(warnings) == 0 {
		t.Error("expected a warning about missing config file")
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("default provider = %q, want openai", cfg.Embedding.Provider)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("default cache backend = %q, want memory", cfg.Cache.Backend)
	}
}

func TestSaveAndLoad(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.Embedding.Provider = "stub"
	cfg.Cache.Backend = "redis"
	cfg.Cache.Addr = "localhost:6379"
	if err := Save(root, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, _, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Embedding.Provider != "stub" {
		t.Errorf("provider = %q, want stub", loaded.Embedding.Provider)
	}
	if loaded.Cache.Addr != "localhost:6379" {
		t.Errorf("cache addr = %q, want localhost:6379", loaded.Cache.Addr)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("default config invalid: %v", errs)
	}

	cfg.Embedding.Provider = "carrier-pigeon"
	cfg.Cache.Backend = "redis" // no addr
	cfg.Logging.Format = "xml"
	errs := Validate(cfg)
	if len(errs) != 3 {
		t.Errorf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}
}

func TestPathResolution(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()

	want := filepath.Join(root, ".ranker", "ranker.db")
	if got := cfg.StorePath(root); got != want {
		t.Errorf("StorePath() = %q, want %q", got, want)
	}

	cfg.Models.Dir = "/var/lib/ranker/models"
	if got := cfg.ModelsDir(root); got != "/var/lib/ranker/models" {
		t.Errorf("absolute ModelsDir() = %q, want unchanged", got)
	}
}
