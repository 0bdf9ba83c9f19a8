package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets from the config file
const (
	EnvSMTPPassword = "EMOJIPRESS_SMTP_PASSWORD"
	EnvNtfyToken    = "EMOJIPRESS_NTFY_TOKEN"
)

// Output formats
const (
	FormatAVIF = "avif"
	FormatWebP = "webp"
)

// Config represents the application configuration
type Config struct {
	InputDir   string         `yaml:"input_dir"`
	OutputDir  string         `yaml:"output_dir"`
	ReportDir  string         `yaml:"report_dir"`
	TargetSize int            `yaml:"target_size"`
	Quality    int            `yaml:"quality"`
	Format     string         `yaml:"format"`
	Verbose    bool           `yaml:"verbose"`
	Platforms  []Platform     `yaml:"platforms"`
	Encoders   EncodersConfig `yaml:"encoders"`
	Builtin    bool           `yaml:"builtin_fallbacks"`
	Notify     NotifyConfig   `yaml:"notify"`
	Deploy     DeployConfig   `yaml:"deploy"`
	Watch      WatchConfig    `yaml:"watch"`
}

// Platform maps an input directory name to its output directory name
type Platform struct {
	Name string `yaml:"name"`
	Dir  string `yaml:"dir"`
}

type EncodersConfig struct {
	AVIFSpeed        int `yaml:"avif_speed"`
	WebPMethod       int `yaml:"webp_method"`
	WebPQualityBoost int `yaml:"webp_quality_boost"`
}

type NotifyConfig struct {
	Ntfy  NtfyConfig  `yaml:"ntfy"`
	Email EmailConfig `yaml:"email"`
}

type NtfyConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Server   string `yaml:"server"`
	Topic    string `yaml:"topic"`
	Token    string `yaml:"token"`
	Priority int    `yaml:"priority"`
}

type EmailConfig struct {
	Enabled      bool   `yaml:"enabled"`
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromAddress  string `yaml:"from_address"`
	Recipient    string `yaml:"recipient"`
}

type DeployConfig struct {
	Enabled     bool      `yaml:"enabled"`
	RsyncTarget string    `yaml:"rsync_target"`
	RsyncOpts   string    `yaml:"rsync_opts"`
	SSHKey      string    `yaml:"ssh_key"`
	Git         GitConfig `yaml:"git"`
}

type GitConfig struct {
	AutoCommit bool   `yaml:"auto_commit"`
	Push       bool   `yaml:"push"`
	Remote     string `yaml:"remote"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultPlatforms is the built-in platform mapping, in processing order
func DefaultPlatforms() []Platform {
	return []Platform{
		{Name: "贴吧", Dir: "tieba"},
		{Name: "知乎", Dir: "zhihu"},
		{Name: "小红书", Dir: "xiaohongshu"},
		{Name: "抖音", Dir: "douyin"},
		{Name: "B站", Dir: "bilibili"},
	}
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		InputDir:   "origins",
		OutputDir:  "output",
		ReportDir:  ".",
		TargetSize: 60,
		Quality:    50,
		Format:     FormatAVIF,
		Verbose:    true,
		Platforms:  DefaultPlatforms(),
		Encoders: EncodersConfig{
			AVIFSpeed:        6,
			WebPMethod:       6,
			WebPQualityBoost: 30,
		},
		Builtin: true,
		Notify: NotifyConfig{
			Ntfy: NtfyConfig{
				Server:   "https://ntfy.sh",
				Priority: 3,
			},
			Email: EmailConfig{
				SMTPPort: 587,
			},
		},
		Deploy: DeployConfig{
			RsyncOpts: "-az --delete",
			Git: GitConfig{
				Remote: "origin",
			},
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Load reads the configuration file on top of the defaults.
// An empty path skips the file and only applies defaults and environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	return cfg, nil
}

// ApplyEnv loads .env (if present) and copies secrets from the environment
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}

	if v := os.Getenv(EnvSMTPPassword); v != "" {
		c.Notify.Email.SMTPPassword = v
	}
	if v := os.Getenv(EnvNtfyToken); v != "" {
		c.Notify.Ntfy.Token = v
	}
	return nil
}

// Validate checks if required configuration fields are set
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input_dir is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.TargetSize <= 0 {
		return fmt.Errorf("target_size must be positive, got %d", c.TargetSize)
	}
	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("quality must be within 0-100, got %d", c.Quality)
	}
	if c.Format != FormatAVIF && c.Format != FormatWebP {
		return fmt.Errorf("format must be %q or %q, got %q", FormatAVIF, FormatWebP, c.Format)
	}
	if len(c.Platforms) == 0 {
		return fmt.Errorf("at least one platform is required")
	}

	dirs := make(map[string]string, len(c.Platforms))
	for i, p := range c.Platforms {
		if p.Name == "" || p.Dir == "" {
			return fmt.Errorf("platforms[%d]: name and dir are required", i)
		}
		if other, ok := dirs[p.Dir]; ok {
			return fmt.Errorf("platforms %q and %q share output dir %q", other, p.Name, p.Dir)
		}
		dirs[p.Dir] = p.Name
	}

	if c.Notify.Ntfy.Enabled && (c.Notify.Ntfy.Server == "" || c.Notify.Ntfy.Topic == "") {
		return fmt.Errorf("notify.ntfy.server and notify.ntfy.topic are required when ntfy is enabled")
	}
	if e := c.Notify.Email; e.Enabled && (e.SMTPHost == "" || e.FromAddress == "" || e.Recipient == "") {
		return fmt.Errorf("notify.email.smtp_host, from_address and recipient are required when email is enabled")
	}
	if c.Deploy.Enabled && c.Deploy.RsyncTarget == "" && !c.Deploy.Git.AutoCommit {
		return fmt.Errorf("deploy needs rsync_target or git.auto_commit")
	}
	return nil
}

// TargetLabel renders the target box as used in reports, e.g. "60×60"
func (c *Config) TargetLabel() string {
	return fmt.Sprintf("%d×%d", c.TargetSize, c.TargetSize)
}

// WebPQuality is the cwebp quality derived from the base quality
func (c *Config) WebPQuality() int {
	return min(c.Quality+c.Encoders.WebPQualityBoost, 100)
}
