package eventide

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// RuntimeConfig holds process settings read from the environment.
// The analytic configuration lives in the JSON config file instead.
type RuntimeConfig struct {
	ConfigFile   string        `env:"EVENTIDE_CONFIG"       envDefault:"eventide.json"`
	Addr         string        `env:"EVENTIDE_ADDR"         envDefault:":8090"`
	Tick         time.Duration `env:"EVENTIDE_TICK"         envDefault:"100ms"`
	Poll         time.Duration `env:"EVENTIDE_POLL"         envDefault:"1s"`
	SourceURL    string        `env:"EVENTIDE_SOURCE_URL"`
	BadgerPath   string        `env:"EVENTIDE_BADGER_PATH"`
	BadgerBatch  int           `env:"EVENTIDE_BADGER_BATCH" envDefault:"100"`
	LogLevel     string        `env:"EVENTIDE_LOG_LEVEL"    envDefault:"info"`
	OTelExporter string        `env:"EVENTIDE_OTEL"         envDefault:"none"`
}

// LoadRuntimeConfig parses the environment into a RuntimeConfig
func LoadRuntimeConfig() (RuntimeConfig, error) {
	var rc RuntimeConfig
	if err := env.Parse(&rc); err != nil {
		return RuntimeConfig{}, fmt.Errorf("parse env: %w", err)
	}

	if rc.Tick <= 0 {
		slog.Warn("tick interval must be positive, using default", slog.Duration("tick", rc.Tick))
		rc.Tick = 100 * time.Millisecond
	}
	if rc.Poll <= 0 {
		rc.Poll = time.Second
	}
	if rc.BadgerBatch < 1 {
		rc.BadgerBatch = 1
	}
	return rc, nil
}

// SlogLevel is the configured log level, info when unparseable
func (rc RuntimeConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(rc.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}
