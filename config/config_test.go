package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
input_dir: "emoji/origins"
output_dir: "emoji/output"
target_size: 96
quality: 40
format: webp

platforms:
  - name: "知乎"
    dir: zhihu
  - name: "B站"
    dir: bilibili

encoders:
  avif_speed: 4

notify:
  ntfy:
    enabled: true
    topic: "emoji-builds"

watch:
  debounce: 2s
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}

	t.Setenv(EnvNtfyToken, "tk_secret")

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.InputDir != "emoji/origins" {
		t.Errorf("Expected input_dir 'emoji/origins', got '%s'", cfg.InputDir)
	}

	if cfg.TargetSize != 96 {
		t.Errorf("Expected target_size 96, got %d", cfg.TargetSize)
	}

	if cfg.Format != FormatWebP {
		t.Errorf("Expected format webp, got '%s'", cfg.Format)
	}

	if len(cfg.Platforms) != 2 || cfg.Platforms[0].Dir != "zhihu" || cfg.Platforms[1].Name != "B站" {
		t.Errorf("Platforms not loaded in order: %+v", cfg.Platforms)
	}

	// Untouched keys keep their defaults
	if cfg.Encoders.AVIFSpeed != 4 || cfg.Encoders.WebPMethod != 6 {
		t.Errorf("Unexpected encoders: %+v", cfg.Encoders)
	}

	if cfg.Notify.Ntfy.Server != "https://ntfy.sh" {
		t.Errorf("Expected default ntfy server, got '%s'", cfg.Notify.Ntfy.Server)
	}

	if cfg.Notify.Ntfy.Token != "tk_secret" {
		t.Errorf("Expected token from environment, got '%s'", cfg.Notify.Ntfy.Token)
	}

	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("Expected debounce 2s, got %v", cfg.Watch.Debounce)
	}

	if !cfg.Builtin {
		t.Error("Builtin fallbacks should stay enabled by default")
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults should validate: %v", err)
	}

	if len(cfg.Platforms) != 5 || cfg.Platforms[0].Name != "贴吧" || cfg.Platforms[4].Dir != "bilibili" {
		t.Errorf("Unexpected default platforms: %+v", cfg.Platforms)
	}

	if cfg.TargetLabel() != "60×60" {
		t.Errorf("Expected label 60×60, got %s", cfg.TargetLabel())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestWebPQuality(t *testing.T) {
	tests := []struct {
		quality int
		want    int
	}{
		{50, 80},
		{70, 100},
		{90, 100},
		{0, 30},
	}

	for _, tt := range tests {
		cfg := Default()
		cfg.Quality = tt.quality
		if got := cfg.WebPQuality(); got != tt.want {
			t.Errorf("WebPQuality(%d) = %d, want %d", tt.quality, got, tt.want)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero size",
			modify:  func(c *Config) { c.TargetSize = 0 },
			wantErr: true,
		},
		{
			name:    "quality above range",
			modify:  func(c *Config) { c.Quality = 101 },
			wantErr: true,
		},
		{
			name:    "unknown format",
			modify:  func(c *Config) { c.Format = "jxl" },
			wantErr: true,
		},
		{
			name:    "no platforms",
			modify:  func(c *Config) { c.Platforms = nil },
			wantErr: true,
		},
		{
			name: "duplicate output dir",
			modify: func(c *Config) {
				c.Platforms = append(c.Platforms, Platform{Name: "微博", Dir: "tieba"})
			},
			wantErr: true,
		},
		{
			name:    "ntfy without topic",
			modify:  func(c *Config) { c.Notify.Ntfy.Enabled = true },
			wantErr: true,
		},
		{
			name:    "email without host",
			modify:  func(c *Config) { c.Notify.Email.Enabled = true },
			wantErr: true,
		},
		{
			name:    "deploy without target",
			modify:  func(c *Config) { c.Deploy.Enabled = true },
			wantErr: true,
		},
		{
			name: "deploy with git only",
			modify: func(c *Config) {
				c.Deploy.Enabled = true
				c.Deploy.Git.AutoCommit = true
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
