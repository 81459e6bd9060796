package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/yubzen/switchboard/internal/logging"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:7878/ws", cfg.Gateway.URL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 3*time.Second, cfg.ReconnectInterval())
	assert.Equal(t, logging.LevelInfo, cfg.Log.Level)
	assert.Equal(t, language.Und, cfg.Locale())
}

func TestLoadFromDecodesFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[gateway]
url = "ws://gateway.lan:9000/ws"
request_timeout = "2s"

[log]
level = "debug"

[ui]
locale = "sv"
`), 0o644))

	t.Setenv(EnvDBPath, "/tmp/sb-test.db")
	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://gateway.lan:9000/ws", cfg.Gateway.URL)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout())
	assert.Equal(t, logging.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "/tmp/sb-test.db", cfg.State.DBPath)
	assert.Equal(t, language.Swedish, cfg.Locale())
	assert.Equal(t, "127.0.0.1:7878", cfg.Gateway.Listen, "unset keys keep defaults")
}

func TestLoadFromRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[gateway]
request_timeout = "soon"
reconnect_interval = "-1s"
`), 0o644))

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.request_timeout")
	assert.Contains(t, err.Error(), "gateway.reconnect_interval")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Gateway.URL = "ws://saved:1/ws"
	cfg.UI.Locale = "de"
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://saved:1/ws", loaded.Gateway.URL)
	assert.Equal(t, language.German, loaded.Locale())
}

func TestGetConfigPathHonoursEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/switchboard.toml")
	assert.Equal(t, "/etc/switchboard.toml", GetConfigPath())
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[gateway]\nurl = \"ws://a/ws\"\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, logging.Discard(), func(cfg *Config) {
			reloaded <- cfg
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("[gateway]\nurl = \"ws://b/ws\"\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "ws://b/ws", cfg.Gateway.URL)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a reload after writing the config file")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not return after cancel")
	}
}
