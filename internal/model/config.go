package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ServerConfig holds the association server connection settings.
type ServerConfig struct {
	// BaseURL is the root of the notification API
	// (e.g. https://verein.example.org/api/notifications).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// PollIntervalSec is how often (in seconds) the dashboard polls the
	// feed.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// UserConfig identifies the viewer as known to the server.
type UserConfig struct {
	ID   int64 `mapstructure:"id" yaml:"id"`
	Role int   `mapstructure:"role" yaml:"role"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// LetterConfig holds the IMAP settings used to save official letter drafts.
type LetterConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	From          string `mapstructure:"from" yaml:"from"`
	IMAPHost      string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort      string `mapstructure:"imap_port" yaml:"imap_port"`
	IMAPUsername  string `mapstructure:"imap_username" yaml:"imap_username"`
	TLS           bool   `mapstructure:"tls" yaml:"tls"`
	DraftsMailbox string `mapstructure:"drafts_mailbox" yaml:"drafts_mailbox"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	User    UserConfig    `mapstructure:"user" yaml:"user"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Letter  LetterConfig  `mapstructure:"letter" yaml:"letter"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/clubwatch/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "clubwatch", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			PollIntervalSec: 10,
		},
		Display: DisplayConfig{
			Theme: "default",
		},
		Letter: LetterConfig{
			IMAPPort:      "993",
			TLS:           true,
			DraftsMailbox: "Drafts",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("server.poll_interval_sec", 10)
	v.SetDefault("display.theme", "default")
	v.SetDefault("letter.imap_port", "993")
	v.SetDefault("letter.tls", true)
	v.SetDefault("letter.drafts_mailbox", "Drafts")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Server.PollIntervalSec <= 0 {
		cfg.Server.PollIntervalSec = 10
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("user", cfg.User)
	v.Set("display", cfg.Display)
	v.Set("letter", cfg.Letter)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
