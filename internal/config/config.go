package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything Basket reads from config.toml.
type Config struct {
	Mode           string
	BaseURL        string
	Storage        string
	StoragePath    string
	LogDir         string
	BusyDelay      time.Duration
	PollInterval   time.Duration
	RequestTimeout time.Duration
}

const (
	ModeMock = "mock"
	ModeLive = "live"

	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"

	defaultConfigPath     = "~/.config/basket/config.toml"
	defaultDataDir        = "~/.local/share/basket"
	defaultLogDir         = "~/.local/state/basket"
	defaultBaseURL        = "http://127.0.0.1:8080/api"
	defaultBusyDelay      = 200 * time.Millisecond
	defaultPollInterval   = 15 * time.Second
	defaultRequestTimeout = 10 * time.Second

	envMode    = "BASKET_MODE"
	envBaseURL = "BASKET_BASE_URL"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Mode:           ModeMock,
		BaseURL:        defaultBaseURL,
		Storage:        StorageFile,
		StoragePath:    mustExpand(filepath.Join(defaultDataDir, "guest.toml")),
		LogDir:         mustExpand(defaultLogDir),
		BusyDelay:      defaultBusyDelay,
		PollInterval:   defaultPollInterval,
		RequestTimeout: defaultRequestTimeout,
	}
}

// Load locates and parses the Basket config, falling back to defaults when
// missing. BASKET_MODE and BASKET_BASE_URL override the file.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return finish(cfg)
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Mode                  string `toml:"mode"`
		BaseURL               string `toml:"base_url"`
		Storage               string `toml:"storage"`
		StoragePath           string `toml:"storage_path"`
		LogDir                string `toml:"log_dir"`
		BusyDelayMS           int    `toml:"busy_delay_ms"`
		PollSeconds           int    `toml:"poll_seconds"`
		RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.ToLower(strings.TrimSpace(raw.Mode)); v != "" {
		cfg.Mode = v
	}
	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.ToLower(strings.TrimSpace(raw.Storage)); v != "" {
		cfg.Storage = v
	}
	if cfg.Storage == StorageSQLite {
		cfg.StoragePath = mustExpand(filepath.Join(defaultDataDir, "guest.db"))
	}
	if v := strings.TrimSpace(raw.StoragePath); v != "" {
		cfg.StoragePath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.LogDir = mustExpand(v)
	}
	if raw.BusyDelayMS > 0 {
		cfg.BusyDelay = time.Duration(raw.BusyDelayMS) * time.Millisecond
	}
	if raw.PollSeconds > 0 {
		cfg.PollInterval = time.Duration(raw.PollSeconds) * time.Second
	}
	if raw.RequestTimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutSeconds) * time.Second
	}

	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(envMode))); v != "" {
		cfg.Mode = v
	}
	if v := strings.TrimSpace(os.Getenv(envBaseURL)); v != "" {
		cfg.BaseURL = v
	}

	switch cfg.Mode {
	case ModeMock, ModeLive:
	default:
		return Config{}, fmt.Errorf("invalid mode %q (want %s or %s)", cfg.Mode, ModeMock, ModeLive)
	}
	switch cfg.Storage {
	case StorageFile, StorageSQLite, StorageMemory:
	default:
		return Config{}, fmt.Errorf("invalid storage %q", cfg.Storage)
	}
	return cfg, nil
}

// LogPath returns the path of the TUI log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/basket.log")
	}
	return filepath.Join(c.LogDir, "basket.log")
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
