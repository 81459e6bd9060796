package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"

	"github.com/yubzen/switchboard/internal/logging"
)

const (
	EnvConfigPath = "SWITCHBOARD_CONFIG"
	EnvGatewayURL = "SWITCHBOARD_GATEWAY_URL"
	EnvListen     = "SWITCHBOARD_LISTEN"
	EnvDBPath     = "SWITCHBOARD_DB_PATH"
)

var logEnv = &logging.Env{
	Level:  "SWITCHBOARD_LOG_LEVEL",
	Format: "SWITCHBOARD_LOG_FORMAT",
	File:   "SWITCHBOARD_LOG_FILE",
}

type Config struct {
	Gateway struct {
		URL               string `toml:"url"`
		Listen            string `toml:"listen"`
		RequestTimeout    string `toml:"request_timeout"`
		ReconnectInterval string `toml:"reconnect_interval"`
	} `toml:"gateway"`
	Log   logging.Config `toml:"log"`
	State struct {
		DBPath string `toml:"db_path"`
	} `toml:"state"`
	UI struct {
		WatchConfig bool   `toml:"watch_config"`
		Locale      string `toml:"locale"`
	} `toml:"ui"`
}

// GetConfigPath honours SWITCHBOARD_CONFIG before the per-user default.
func GetConfigPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return filepath.Join(configDir(), "config.toml")
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "switchboard")
}

func Default() *Config {
	var cfg Config
	cfg.Gateway.URL = "ws://127.0.0.1:7878/ws"
	cfg.Gateway.Listen = "127.0.0.1:7878"
	cfg.Gateway.RequestTimeout = "10s"
	cfg.Gateway.ReconnectInterval = "3s"
	cfg.Log.Level = logging.LevelInfo
	cfg.Log.Format = logging.FormatText
	cfg.Log.File = filepath.Join(configDir(), "switchboard.log")
	cfg.State.DBPath = filepath.Join(configDir(), "state.db")
	cfg.UI.WatchConfig = true
	return &cfg
}

func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom decodes path over the defaults, then applies environment overrides.
// A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	cfg.loadEnv()
	if err := cfg.Log.Finalize(logEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvGatewayURL)); v != "" {
		c.Gateway.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvListen)); v != "" {
		c.Gateway.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDBPath)); v != "" {
		c.State.DBPath = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := parseDuration("gateway.request_timeout", c.Gateway.RequestTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseDuration("gateway.reconnect_interval", c.Gateway.ReconnectInterval); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.UI.Locale) != "" {
		if _, err := language.Parse(c.UI.Locale); err != nil {
			errs = append(errs, fmt.Errorf("ui.locale: %w", err))
		}
	}
	return errors.Join(errs...)
}

func parseDuration(field, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", field, raw)
	}
	return d, nil
}

// RequestTimeout bounds every RPC the TUI issues.
func (c *Config) RequestTimeout() time.Duration {
	d, err := parseDuration("gateway.request_timeout", c.Gateway.RequestTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

func (c *Config) ReconnectInterval() time.Duration {
	d, err := parseDuration("gateway.reconnect_interval", c.Gateway.ReconnectInterval)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// Locale is the collation locale for display names; unset means root order.
func (c *Config) Locale() language.Tag {
	tag, err := language.Parse(strings.TrimSpace(c.UI.Locale))
	if err != nil {
		return language.Und
	}
	return tag
}

func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}
