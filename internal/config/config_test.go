package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":5000", cfg.Server.Addr)
	require.Equal(t, DriverMemory, cfg.Store.Driver)
	require.Equal(t, "batePapoUol", cfg.Store.MongoDatabase)
	require.Equal(t, 5*time.Second, cfg.Store.Timeout)
	require.Equal(t, 15*time.Second, cfg.Presence.Interval)
	require.Equal(t, 10*time.Second, cfg.Presence.Threshold)

	level, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, level)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:8080")
	t.Setenv("STORE_DRIVER", "Badger")
	t.Setenv("BADGER_PATH", "/tmp/chat")
	t.Setenv("SWEEP_INTERVAL", "1s")
	t.Setenv("INACTIVITY_THRESHOLD", "500ms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	require.Equal(t, DriverBadger, cfg.Store.Driver)
	require.Equal(t, time.Second, cfg.Presence.Interval)
	require.Equal(t, 500*time.Millisecond, cfg.Presence.Threshold)

	level, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"mongo without uri": {"STORE_DRIVER": "mongo", "MONGO_URI": ""},
		"unknown driver":    {"STORE_DRIVER": "postgres"},
		"port with space":   {"STORE_DRIVER": "memory", "PORT": "50 00"},
		"zero interval":     {"STORE_DRIVER": "memory", "SWEEP_INTERVAL": "0s"},
		"bad log level":     {"STORE_DRIVER": "memory", "LOG_LEVEL": "loud"},
	}

	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestListenAddr(t *testing.T) {
	addr, err := listenAddr("")
	require.NoError(t, err)
	require.Equal(t, ":5000", addr)

	addr, err = listenAddr(":9000")
	require.NoError(t, err)
	require.Equal(t, ":9000", addr)
}
