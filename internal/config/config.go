package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
)

// Store drivers understood by the store package.
const (
	DriverMongo  = "mongo"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// Config aggregates every setting of the service.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Presence PresenceConfig
	LogLevel string `env:"LOG_LEVEL,default=INFO"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Port string `env:"PORT,default=5000"`
	// Addr is derived from Port by Load.
	Addr string
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Driver        string        `env:"STORE_DRIVER,default=mongo"`
	MongoURI      string        `env:"MONGO_URI"`
	MongoDatabase string        `env:"MONGO_DATABASE,default=batePapoUol"`
	BadgerPath    string        `env:"BADGER_PATH,default=data/badger"`
	Timeout       time.Duration `env:"STORE_TIMEOUT,default=5s"`
}

// PresenceConfig tunes the inactivity sweep.
type PresenceConfig struct {
	Interval  time.Duration `env:"SWEEP_INTERVAL,default=15s"`
	Threshold time.Duration `env:"INACTIVITY_THRESHOLD,default=10s"`
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	addr, err := listenAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Presence.validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Level parses LogLevel into a slog level.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// listenAddr turns PORT into a listen address.
func listenAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "5000"
	}

	if strings.Contains(port, ":") {
		// Accept ":5000" or "127.0.0.1:5000" as given.
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

func (c *StoreConfig) validate() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case DriverMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_DRIVER=%s", DriverMongo)
		}
	case DriverBadger:
		if strings.TrimSpace(c.BadgerPath) == "" {
			return fmt.Errorf("BADGER_PATH is required when STORE_DRIVER=%s", DriverBadger)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER value %q", c.Driver)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("invalid STORE_TIMEOUT value %s", c.Timeout)
	}
	return nil
}

func (c PresenceConfig) validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("invalid SWEEP_INTERVAL value %s", c.Interval)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("invalid INACTIVITY_THRESHOLD value %s", c.Threshold)
	}
	return nil
}
