package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig locates the local entity store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SyncConfig holds settings for the background replicator.
type SyncConfig struct {
	// URL is the remote backend endpoint. Empty means local-only operation.
	URL string `mapstructure:"url" yaml:"url"`

	// Device names this installation towards the backend.
	Device string `mapstructure:"device" yaml:"device"`

	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	SuccessDisplay time.Duration `mapstructure:"success_display" yaml:"success_display"`
	SaveDebounce   time.Duration `mapstructure:"save_debounce" yaml:"save_debounce"`
}

// CleanupConfig holds the retention windows for completed items.
type CleanupConfig struct {
	// HideAfter is measured from completion time. Zero hides on every sweep.
	HideAfter time.Duration `mapstructure:"hide_after" yaml:"hide_after"`

	// PurgeAfter is measured from completion time and applies to hidden
	// items. Zero disables purging.
	PurgeAfter time.Duration `mapstructure:"purge_after" yaml:"purge_after"`

	Interval         time.Duration `mapstructure:"interval" yaml:"interval"`
	HideOnBackground bool          `mapstructure:"hide_on_background" yaml:"hide_on_background"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Development bool   `mapstructure:"development" yaml:"development"`
	File        string `mapstructure:"file" yaml:"file"`
}

// ServerConfig configures `tada serve`.
type ServerConfig struct {
	Addr  string `mapstructure:"addr" yaml:"addr"`
	Token string `mapstructure:"token" yaml:"token"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup" yaml:"cleanup"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

// DefaultConfigPath returns ~/.config/tada/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "tada", "config.yaml")
}

// dataDir returns the directory holding the database and log file.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "tada")
}

func defaultDevice() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "tada"
	}
	return host
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir(), "tada.db"),
		},
		Sync: SyncConfig{
			Device:         defaultDevice(),
			PollInterval:   2 * time.Minute,
			Timeout:        30 * time.Second,
			SuccessDisplay: 2 * time.Second,
			SaveDebounce:   500 * time.Millisecond,
		},
		Cleanup: CleanupConfig{
			HideAfter:  24 * time.Hour,
			PurgeAfter: 7 * 24 * time.Hour,
			Interval:   15 * time.Minute,
		},
		Log: LogConfig{
			File: filepath.Join(dataDir(), "tada.log"),
		},
		Server: ServerConfig{
			Addr: ":8787",
		},
	}
}

func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("sync.url", d.Sync.URL)
	v.SetDefault("sync.device", d.Sync.Device)
	v.SetDefault("sync.poll_interval", d.Sync.PollInterval)
	v.SetDefault("sync.timeout", d.Sync.Timeout)
	v.SetDefault("sync.success_display", d.Sync.SuccessDisplay)
	v.SetDefault("sync.save_debounce", d.Sync.SaveDebounce)
	v.SetDefault("cleanup.hide_after", d.Cleanup.HideAfter)
	v.SetDefault("cleanup.purge_after", d.Cleanup.PurgeAfter)
	v.SetDefault("cleanup.interval", d.Cleanup.Interval)
	v.SetDefault("cleanup.hide_on_background", d.Cleanup.HideOnBackground)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.token", d.Server.Token)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TADA_ override file values
// (sync.url -> TADA_SYNC_URL). A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TADA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultAppConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Sync.SuccessDisplay <= 0 {
		cfg.Sync.SuccessDisplay = 2 * time.Second
	}
	if cfg.Cleanup.PurgeAfter != 0 && cfg.Cleanup.PurgeAfter < cfg.Cleanup.HideAfter {
		cfg.Cleanup.PurgeAfter = cfg.Cleanup.HideAfter
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

	v.Set("database.path", cfg.Database.Path)
	v.Set("sync.url", cfg.Sync.URL)
	v.Set("sync.device", cfg.Sync.Device)
	v.Set("sync.poll_interval", cfg.Sync.PollInterval.String())
	v.Set("sync.timeout", cfg.Sync.Timeout.String())
	v.Set("sync.success_display", cfg.Sync.SuccessDisplay.String())
	v.Set("sync.save_debounce", cfg.Sync.SaveDebounce.String())
	v.Set("cleanup.hide_after", cfg.Cleanup.HideAfter.String())
	v.Set("cleanup.purge_after", cfg.Cleanup.PurgeAfter.String())
	v.Set("cleanup.interval", cfg.Cleanup.Interval.String())
	v.Set("cleanup.hide_on_background", cfg.Cleanup.HideOnBackground)
	v.Set("log.development", cfg.Log.Development)
	v.Set("log.file", cfg.Log.File)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("server.token", cfg.Server.Token)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
