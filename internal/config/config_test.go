package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.AI.Gemini.Model == "" {
		t.Error("default primary model missing")
	}
	if len(cfg.AI.Gemini.FallbackModels) == 0 {
		t.Error("default fallback chain missing")
	}
	if cfg.AI.Gemini.PrimaryAttempts != 2 {
		t.Errorf("primary_attempts = %d, want 2", cfg.AI.Gemini.PrimaryAttempts)
	}
	if cfg.Reference.CacheTTL != 30*time.Minute {
		t.Errorf("cache_ttl = %v, want 30m", cfg.Reference.CacheTTL)
	}
	if cfg.Gate.TitleJaccard != 0.52 {
		t.Errorf("title_jaccard = %v, want 0.52", cfg.Gate.TitleJaccard)
	}
	if cfg.Gate.CopiedSpanLength != 18 {
		t.Errorf("copied_span_length = %d, want 18", cfg.Gate.CopiedSpanLength)
	}
	if cfg.Metrics.FlushInterval != 350*time.Millisecond {
		t.Errorf("flush_interval = %v, want 350ms", cfg.Metrics.FlushInterval)
	}
}

func TestLoadCaches(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	first, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	second, _ := Load("")
	if first != second {
		t.Error("Load() should return the cached config")
	}
}

func TestValidateBounds(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	base, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero primary attempts", func(c *Config) { c.AI.Gemini.PrimaryAttempts = 0 }},
		{"fan-out too wide", func(c *Config) { c.Reference.MaxConcurrent = 11 }},
		{"fan-out zero", func(c *Config) { c.Reference.MaxConcurrent = 0 }},
		{"span too short", func(c *Config) { c.Gate.CopiedSpanLength = 15 }},
		{"span too long", func(c *Config) { c.Gate.CopiedSpanLength = 25 }},
		{"title jaccard out of range", func(c *Config) { c.Gate.TitleJaccard = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			if err := validate(&cfg); err == nil {
				t.Error("validate() accepted an out-of-range value")
			}
		})
	}

	if err := validate(base); err != nil {
		t.Errorf("validate() rejected defaults: %v", err)
	}
}

func TestGateConstraintsPerMode(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	_, body, sentences, slotsMin, slotsMax := cfg.GateConstraints("longform")
	if body != 0 || sentences != 18 {
		t.Errorf("longform constraints body=%d sentences=%d, want 0/18", body, sentences)
	}
	if slotsMin != 2 || slotsMax != 6 {
		t.Errorf("longform slots = [%d,%d], want [2,6]", slotsMin, slotsMax)
	}

	_, body, sentences, slotsMin, slotsMax = cfg.GateConstraints("draft")
	if body != 4000 || sentences != 0 {
		t.Errorf("draft constraints body=%d sentences=%d, want 4000/0", body, sentences)
	}
	if slotsMin != 1 || slotsMax != 3 {
		t.Errorf("draft slots = [%d,%d], want [1,3]", slotsMin, slotsMax)
	}
}
