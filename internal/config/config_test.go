package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/qaplatform/qaglue/internal/errors"
	"github.com/qaplatform/qaglue/pkg/vote"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.CSRFMeta != DefaultCSRFMeta {
		t.Errorf("CSRFMeta = %q, want %q", cfg.CSRFMeta, DefaultCSRFMeta)
	}
	if cfg.InFlightPolicy() != vote.InFlightAllow {
		t.Errorf("InFlightPolicy = %v, want allow", cfg.InFlightPolicy())
	}
	if cfg.SearchDelay() != 300*time.Millisecond {
		t.Errorf("SearchDelay = %v", cfg.SearchDelay())
	}
	if cfg.TagsDelay() != 500*time.Millisecond {
		t.Errorf("TagsDelay = %v", cfg.TagsDelay())
	}
	if cfg.StatsInterval() != 30*time.Second {
		t.Errorf("StatsInterval = %v", cfg.StatsInterval())
	}
	if cfg.ToastDuration() != 5*time.Second {
		t.Errorf("ToastDuration = %v", cfg.ToastDuration())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := Load(tmpDir); !stderrors.Is(err, errors.New("Q100")) {
		t.Fatalf("Load(empty dir) = %v, want Q100", err)
	}

	configJSON := `{
  "baseURL": "https://qa.example.com/",
  "realtimeURL": "wss://qa.example.com/ws",
  "vote": {"inFlight": "latest", "rollback": true},
  "search": {"delay": "150ms"},
  "dev": {"db": "votes.db"}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, "qaglue.json"), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.BaseURL != "https://qa.example.com" {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", cfg.BaseURL)
	}
	if cfg.RealtimeURL != "wss://qa.example.com/ws" {
		t.Errorf("RealtimeURL = %q", cfg.RealtimeURL)
	}
	if cfg.InFlightPolicy() != vote.InFlightLatest {
		t.Errorf("InFlightPolicy = %v, want latest", cfg.InFlightPolicy())
	}
	if !cfg.Vote.Rollback {
		t.Error("Vote.Rollback should be true")
	}
	if cfg.SearchDelay() != 150*time.Millisecond {
		t.Errorf("SearchDelay = %v, want 150ms", cfg.SearchDelay())
	}
	if cfg.TagsDelay() != 500*time.Millisecond {
		t.Errorf("TagsDelay = %v, default should apply", cfg.TagsDelay())
	}
	if cfg.Dev.DB != "votes.db" || cfg.Dev.Addr != DefaultAddr {
		t.Errorf("Dev = %+v", cfg.Dev)
	}
	if cfg.Path() != filepath.Join(tmpDir, "qaglue.json") {
		t.Errorf("Path = %q", cfg.Path())
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configYAML := `
baseURL: http://127.0.0.1:9000
stats:
  interval: 1m
enhance:
  highlight: true
dev:
  voteRate: 2
  voteBurst: 3
`
	if err := os.WriteFile(filepath.Join(tmpDir, "qaglue.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.BaseURL != "http://127.0.0.1:9000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.StatsInterval() != time.Minute {
		t.Errorf("StatsInterval = %v, want 1m", cfg.StatsInterval())
	}
	if !cfg.Enhance.Highlight {
		t.Error("Enhance.Highlight should be true")
	}
	if cfg.Dev.VoteRate != 2 || cfg.Dev.VoteBurst != 3 {
		t.Errorf("Dev = %+v", cfg.Dev)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantCode string
	}{
		{name: "bad json", file: "qaglue.json", content: "not valid json", wantCode: "Q101"},
		{name: "bad yaml", file: "qaglue.yml", content: "vote: [unclosed", wantCode: "Q101"},
		{name: "bad policy", file: "qaglue.json", content: `{"vote":{"inFlight":"sometimes"}}`, wantCode: "Q102"},
		{name: "bad duration", file: "qaglue.json", content: `{"search":{"delay":"soon"}}`, wantCode: "Q102"},
		{name: "negative duration", file: "qaglue.json", content: `{"stats":{"interval":"-1s"}}`, wantCode: "Q102"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFile(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantCode) {
				t.Errorf("expected %s error, got: %v", tt.wantCode, err)
			}
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrDefault error: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Path() != "" {
		t.Errorf("Path = %q, want empty for defaults", cfg.Path())
	}
}

func TestFindPrefersJSON(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"qaglue.yml", "qaglue.json"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	path, ok := Find(tmpDir)
	if !ok || filepath.Base(path) != "qaglue.json" {
		t.Errorf("Find = %q, %v", path, ok)
	}
}
