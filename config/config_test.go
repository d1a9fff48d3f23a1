package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty source url",
			mutate: func(cfg *Config) {
				cfg.Source.BaseURL = ""
			},
			wantErr: "source base URL",
		},
		{
			name: "translation url without host",
			mutate: func(cfg *Config) {
				cfg.Translation.BaseURL = "http://"
			},
			wantErr: "translation base URL",
		},
		{
			name: "image base without host",
			mutate: func(cfg *Config) {
				cfg.Translation.ImageBase = "/cardlist/"
			},
			wantErr: "translation image base",
		},
		{
			name: "same locale twice",
			mutate: func(cfg *Config) {
				cfg.Translation.Locale = cfg.Source.Locale
			},
			wantErr: "locales must differ",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative retries",
			mutate: func(cfg *Config) {
				cfg.MaxRetries = -1
			},
			wantErr: "max retries",
		},
		{
			name: "backoff above max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = time.Minute
				cfg.RetryBackoffMax = time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "csv only format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "csv"
			},
			wantErr: "output format",
		},
		{
			name: "empty database path",
			mutate: func(cfg *Config) {
				cfg.DatabasePath = ""
			},
			wantErr: "database path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OPTCG_DB", "/tmp/cards.cdb")
	t.Setenv("OPTCG_MAX_RETRIES", "5")
	t.Setenv("OPTCG_TIMEOUT", "45s")
	t.Setenv("OPTCG_OUTPUT", "  ")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.DatabasePath != "/tmp/cards.cdb" {
		t.Fatalf("database path = %q", cfg.DatabasePath)
	}
	if cfg.MaxRetries != 5 {
		t.Fatalf("max retries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.Timeout != 45*time.Second {
		t.Fatalf("timeout = %s, want 45s", cfg.Timeout)
	}
	if cfg.OutputFile != "OPTCG.json" {
		t.Fatalf("blank OPTCG_OUTPUT should be ignored, got %q", cfg.OutputFile)
	}
}

func TestApplyEnvInvalidInt(t *testing.T) {
	t.Setenv("OPTCG_MAX_RETRIES", "many")
	if err := ApplyEnv(DefaultConfig()); err == nil || !strings.Contains(err.Error(), "OPTCG_MAX_RETRIES") {
		t.Fatalf("expected OPTCG_MAX_RETRIES error, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optcg.toml")
	content := `
database = "cards.cdb"
format = "dual"
timeout = "10s"
max_retries = 1

[translation]
base_url = "https://en.onepiece-cardgame.com/cardlist/"
locale = "en"
image_base = "https://cdn.example.test/cardlist/"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.DatabasePath != "cards.cdb" || cfg.OutputFormat != "dual" {
		t.Fatalf("unexpected values: db=%q format=%q", cfg.DatabasePath, cfg.OutputFormat)
	}
	if cfg.Timeout != 10*time.Second || cfg.MaxRetries != 1 {
		t.Fatalf("unexpected timeout/retries: %s/%d", cfg.Timeout, cfg.MaxRetries)
	}
	if cfg.Translation.BaseURL != "https://en.onepiece-cardgame.com/cardlist/" {
		t.Fatalf("translation url = %q", cfg.Translation.BaseURL)
	}
	if cfg.Translation.ImageRoot() != "https://cdn.example.test/cardlist/" {
		t.Fatalf("translation image root = %q", cfg.Translation.ImageRoot())
	}
	if cfg.Source.BaseURL != DefaultConfig().Source.BaseURL {
		t.Fatalf("source url should keep its default, got %q", cfg.Source.BaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}

func TestLoadFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optcg.toml")
	if err := os.WriteFile(path, []byte("pages = 3\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := LoadFile(path, DefaultConfig()); err == nil || !strings.Contains(err.Error(), "pages") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestSiteImageRoot(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Source.ImageRoot(); got != cfg.Source.BaseURL {
		t.Fatalf("source image root = %q, want the base URL", got)
	}
	if got := cfg.Translation.ImageRoot(); got != "https://en.onepiece-cardgame.com/cardlist/" {
		t.Fatalf("translation image root = %q", got)
	}
}
