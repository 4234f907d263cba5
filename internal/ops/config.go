// Package ops loads and resolves runtime configuration.
package ops

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/yanun0323/errors"

	"main/internal/model/enum"
)

// FileConfig mirrors the YAML config layout. Every field can also be set
// through the environment.
type FileConfig struct {
	ActiveSymbol string          `yaml:"active_symbol" env:"ACTIVE_SYMBOL" env-default:"BTC-USDT"`
	Venues       []VenueConfig   `yaml:"venues"`
	Storage      StorageConfig   `yaml:"storage"`
	Profiling    ProfilingConfig `yaml:"profiling"`
}

// VenueConfig describes one feed subscription.
type VenueConfig struct {
	Name              string `yaml:"name"`
	Enabled           bool   `yaml:"enabled" env-default:"true"`
	Symbol            string `yaml:"symbol"`
	Depth             int    `yaml:"depth"`
	URL               string `yaml:"url"`
	KeepaliveSeconds  int    `yaml:"keepalive_seconds"`
	StaleAfterSeconds int    `yaml:"stale_after_seconds"`
}

// StorageConfig holds the optional persistence backends. Empty values
// disable the backend.
type StorageConfig struct {
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisDB     int    `yaml:"redis_db" env:"REDIS_DB"`
}

// ProfilingConfig gates the continuous profiler.
type ProfilingConfig struct {
	Enabled   bool   `yaml:"enabled" env:"PROFILING_ENABLED"`
	ServerURL string `yaml:"server_url" env:"PROFILING_SERVER_URL"`
}

// VenueSpec is a resolved feed subscription.
type VenueSpec struct {
	Venue      enum.Venue
	Symbol     string
	Depth      int
	URL        string
	Keepalive  time.Duration
	StaleAfter time.Duration
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	ActiveSymbol string
	Venues       []VenueSpec
	Storage      StorageConfig
	Profiling    ProfilingConfig
}

// Load reads the YAML file when path is non-empty, then applies
// environment overrides, then resolves venue names.
func Load(path string) (*Loaded, error) {
	var file FileConfig
	if path != "" {
		if err := cleanenv.ReadConfig(path, &file); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	} else {
		if err := cleanenv.ReadEnv(&file); err != nil {
			return nil, errors.Wrap(err, "read config from env")
		}
	}
	return resolve(&file)
}

func resolve(file *FileConfig) (*Loaded, error) {
	loaded := &Loaded{
		ActiveSymbol: file.ActiveSymbol,
		Storage:      file.Storage,
		Profiling:    file.Profiling,
	}
	for _, vc := range file.Venues {
		if !vc.Enabled {
			continue
		}
		venue, ok := enum.ParseVenue(vc.Name)
		if !ok {
			return nil, errors.Errorf("unknown venue %q", vc.Name)
		}
		if vc.Symbol == "" {
			return nil, errors.Errorf("venue %q: symbol is required", vc.Name)
		}
		loaded.Venues = append(loaded.Venues, VenueSpec{
			Venue:      venue,
			Symbol:     vc.Symbol,
			Depth:      vc.Depth,
			URL:        vc.URL,
			Keepalive:  time.Duration(vc.KeepaliveSeconds) * time.Second,
			StaleAfter: time.Duration(vc.StaleAfterSeconds) * time.Second,
		})
	}
	return loaded, nil
}
