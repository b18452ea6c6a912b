// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds every tunable. Field tags name the environment variables.
type Config struct {
	Server      ServerConfig
	Media       MediaConfig
	Input       InputConfig
	Log         LogConfig
	Home        string `env:"DESKBRIDGE_HOME" env-description:"credential cache directory"`
	MetricsAddr string `env:"DESKBRIDGE_METRICS_ADDR" env-description:"listen address for /metrics; empty disables"`
	MyID        string `env:"DESKBRIDGE_MY_ID" env-default:"deskbridge"`
	MyName      string `env:"DESKBRIDGE_MY_NAME" env-default:"deskbridge"`
}

type ServerConfig struct {
	Rendezvous string        `env:"DESKBRIDGE_RENDEZVOUS" env-description:"rendezvous host[:port] or ws(s):// URL"`
	PortOffset int           `env:"DESKBRIDGE_RELAY_PORT_OFFSET" env-default:"2"`
	Secure     bool          `env:"DESKBRIDGE_SECURE" env-default:"false"`
	LicenceKey string        `env:"DESKBRIDGE_LICENCE_KEY"`
	PublicKey  string        `env:"DESKBRIDGE_SERVER_KEY" env-description:"base64 Ed25519 key of the rendezvous server"`
	Timeout    time.Duration `env:"DESKBRIDGE_CONNECT_TIMEOUT" env-default:"15s"`
}

type MediaConfig struct {
	ScaleMode    string        `env:"DESKBRIDGE_SCALE_MODE" env-default:"fit"`
	SmallLag     time.Duration `env:"DESKBRIDGE_SMALL_LAG" env-default:"250ms"`
	LargeLag     time.Duration `env:"DESKBRIDGE_LARGE_LAG" env-default:"1500ms"`
	CatchUpRate  float64       `env:"DESKBRIDGE_CATCHUP_RATE" env-default:"1.1"`
	FrameRate    int           `env:"DESKBRIDGE_FRAME_RATE" env-default:"30"`
	AudioEpsilon time.Duration `env:"DESKBRIDGE_AUDIO_EPSILON" env-default:"20ms"`
	Width        int           `env:"DESKBRIDGE_SURFACE_WIDTH" env-default:"1280"`
	Height       int           `env:"DESKBRIDGE_SURFACE_HEIGHT" env-default:"720"`
}

type InputConfig struct {
	MoveInterval time.Duration `env:"DESKBRIDGE_MOVE_INTERVAL" env-default:"16ms"`
}

type LogConfig struct {
	Level  string `env:"DESKBRIDGE_LOG_LEVEL" env-default:"info"`
	Format string `env:"DESKBRIDGE_LOG_FORMAT" env-default:"text"`
}

// Load reads envFile (when it exists) into the process environment and then
// fills a Config from it. A missing envFile is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if cfg.Home == "" {
		cfg.Home = DefaultHome()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Server.PortOffset < 0:
		return fmt.Errorf("config: negative relay port offset %d", c.Server.PortOffset)
	case c.Media.SmallLag <= 0 || c.Media.LargeLag <= c.Media.SmallLag:
		return fmt.Errorf("config: lag thresholds %v/%v must satisfy 0 < small < large", c.Media.SmallLag, c.Media.LargeLag)
	case c.Media.CatchUpRate <= 1:
		return fmt.Errorf("config: catch-up rate %v must exceed 1", c.Media.CatchUpRate)
	case c.Media.FrameRate <= 0:
		return fmt.Errorf("config: frame rate %d must be positive", c.Media.FrameRate)
	case c.Media.Width <= 0 || c.Media.Height <= 0:
		return fmt.Errorf("config: surface %dx%d must be positive", c.Media.Width, c.Media.Height)
	}
	return nil
}

// FrameInterval is the duration of one frame at the configured rate.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Media.FrameRate)
}

// Usage describes the recognised environment variables.
func Usage() string {
	var cfg Config
	s, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return s
}

// DefaultHome is $HOME/.deskbridge, or .deskbridge when no home is known.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".deskbridge"
	}
	return filepath.Join(home, ".deskbridge")
}
