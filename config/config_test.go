package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadExampleConfig(t *testing.T) {
	cfg, err := Load("../config.yaml")
	if err != nil {
		t.Fatalf("example config should load: %v", err)
	}
	if len(cfg.Video.Providers) != 2 || cfg.Video.Providers[0].Kind != "task" {
		t.Fatalf("unexpected providers %+v", cfg.Video.Providers)
	}
	if cfg.Video.PollInterval != 5*time.Second || cfg.Media.Timeout != 10*time.Minute {
		t.Fatalf("durations not parsed: %v %v", cfg.Video.PollInterval, cfg.Media.Timeout)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "video:\n  providers:\n    - {name: p, kind: direct, base_url: http://x}\nclip:\n  fade_sec: 0.25\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Clip.FadeSec != 0.25 || cfg.Clip.PaddingSec != 0.3 || cfg.Video.StrategyAttempts != 3 {
		t.Fatalf("unexpected overlay result %+v", cfg.Clip)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"at least one provider":   func(c *Config) { c.Video.Providers = nil },
		"unknown kind":            func(c *Config) { c.Video.Providers[0].Kind = "stream" },
		"scene bounds":            func(c *Config) { c.Pipeline.MaxScenes = 0 },
		"strategy_attempts":       func(c *Config) { c.Video.StrategyAttempts = 4 },
		"must not be negative":    func(c *Config) { c.Clip.FadeSec = -1 },
		"unknown backend":         func(c *Config) { c.Storage.Backend = "s3" },
		"unknown engine":          func(c *Config) { c.Speech.Engine = "say" },
		"video_concurrency":       func(c *Config) { c.Pipeline.VideoConcurrency = 0 },
		"needs name and base_url": func(c *Config) { c.Video.Providers[0].BaseURL = "" },
	}
	for want, mutate := range cases {
		cfg := Default()
		cfg.Video.Providers = []VideoProviderConfig{{Name: "p", Kind: "task", BaseURL: "http://x"}}
		mutate(cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("%s: got %v", want, err)
		}
	}
}
