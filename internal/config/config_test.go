package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Auth.SessionTTL.Duration != 720*time.Hour {
		t.Fatalf("session ttl = %s", cfg.Auth.SessionTTL)
	}
	p, err := cfg.Preset("")
	if err != nil {
		t.Fatalf("default preset: %v", err)
	}
	if p.Manager != 10 || p.Performer != 15 || p.SeniorPerformer != 0 {
		t.Fatalf("unexpected standard preset %+v", p)
	}
	p, err = cfg.Preset("senior")
	if err != nil {
		t.Fatalf("senior preset: %v", err)
	}
	if p.Manager != 8 || p.Performer != 15 || p.SeniorPerformer != 6 {
		t.Fatalf("unexpected senior preset %+v", p)
	}
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("server:\n  addr: 0.0.0.0:9000\nai:\n  model: gemini-2.5-flash\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Fatalf("addr = %s", cfg.Server.Addr)
	}
	if cfg.Server.BasePath != "/v1" {
		t.Fatalf("base path default lost: %s", cfg.Server.BasePath)
	}
	if cfg.AI.Model != "gemini-2.5-flash" {
		t.Fatalf("model = %s", cfg.AI.Model)
	}
}

func TestFromYAMLRejectsUnknownDefaultPreset(t *testing.T) {
	if _, err := FromYAML([]byte("rates:\n  default: premium\n")); err == nil {
		t.Fatalf("expected unknown preset error")
	}
}

func TestFromYAMLRejectsBadDuration(t *testing.T) {
	if _, err := FromYAML([]byte("auth:\n  session_ttl: forever\n")); err == nil {
		t.Fatalf("expected duration error")
	}
}

func TestPresetNotFound(t *testing.T) {
	if _, err := Default().Preset("nope"); err == nil {
		t.Fatalf("expected missing preset error")
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if cfg.Server.Addr == "" {
		t.Fatalf("expected defaults when file missing")
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("Load must fail when file missing")
	}
	if err := os.WriteFile(filepath.Join(dir, "zenflow.yml"), []byte("seed:\n  demo: true\n  password: \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected seed password validation error")
	}
}
