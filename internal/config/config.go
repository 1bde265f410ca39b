package config

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Backend BackendConfig `yaml:"backend" mapstructure:"backend"`
	Pool    PoolConfig    `yaml:"pool"    mapstructure:"pool"`
	Lock    LockConfig    `yaml:"lock"    mapstructure:"lock"`
	Log     LogConfig     `yaml:"log"     mapstructure:"log"`
}

type BackendConfig struct {
	Type string `yaml:"type" mapstructure:"type"`
	Root string `yaml:"root" mapstructure:"root"`
	// CacheSize is the per-reader hot cache budget, e.g. "16MiB". Empty or "0" disables it.
	CacheSize string `yaml:"cache_size" mapstructure:"cache_size"`
	// Datasets lists data sets whose location differs from root/name.
	Datasets []DatasetConfig `yaml:"datasets" mapstructure:"datasets"`
}

type DatasetConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	Path string `yaml:"path" mapstructure:"path"`
}

type PoolConfig struct {
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries"`
	Shards     int `yaml:"shards"      mapstructure:"shards"`
}

type LockConfig struct {
	Holder          string        `yaml:"holder"           mapstructure:"holder"`
	InitialInterval time.Duration `yaml:"initial_interval" mapstructure:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"     mapstructure:"max_interval"`
	MaxElapsed      time.Duration `yaml:"max_elapsed"      mapstructure:"max_elapsed"`
}

type LogConfig struct {
	Level  string `yaml:"level"  mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SetDefaults registers the values used when neither the config file nor the
// environment sets a key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend.type", "leveldb")
	v.SetDefault("backend.root", "data")
	v.SetDefault("backend.cache_size", "8MiB")
	v.SetDefault("pool.max_entries", 2)
	v.SetDefault("pool.shards", 16)
	v.SetDefault("lock.initial_interval", "10ms")
	v.SetDefault("lock.max_interval", "500ms")
	v.SetDefault("lock.max_elapsed", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// CacheBytes returns the parsed backend cache size.
func (b *BackendConfig) CacheBytes() (int64, error) {
	if b.CacheSize == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(b.CacheSize)
	if err != nil {
		return 0, fmt.Errorf("backend.cache_size: %w", err)
	}
	return n, nil
}

// PathFor returns the configured location of a data set, or "" to use root/name.
func (b *BackendConfig) PathFor(name string) string {
	for _, ds := range b.Datasets {
		if ds.Name == name {
			return ds.Path
		}
	}
	return ""
}

func validate(cfg *Config) error {
	switch cfg.Backend.Type {
	case "":
		return fmt.Errorf("backend.type is required")
	case "memory", "leveldb", "badger":
	default:
		return fmt.Errorf("backend.type: unknown backend %q", cfg.Backend.Type)
	}
	if cfg.Backend.Type != "memory" && cfg.Backend.Root == "" {
		return fmt.Errorf("backend.root is required for %s", cfg.Backend.Type)
	}
	if n, err := cfg.Backend.CacheBytes(); err != nil {
		return err
	} else if n < 0 {
		return fmt.Errorf("backend.cache_size must be >= 0")
	}
	seen := make(map[string]bool)
	for i, ds := range cfg.Backend.Datasets {
		if ds.Name == "" {
			return fmt.Errorf("backend.datasets[%d]: name is required", i)
		}
		if ds.Path == "" {
			return fmt.Errorf("backend.datasets[%d] %q: path is required", i, ds.Name)
		}
		if seen[ds.Name] {
			return fmt.Errorf("backend.datasets: duplicate dataset %q", ds.Name)
		}
		seen[ds.Name] = true
	}

	if cfg.Pool.MaxEntries <= 0 {
		return fmt.Errorf("pool.max_entries must be > 0")
	}
	if cfg.Pool.Shards <= 0 {
		return fmt.Errorf("pool.shards must be > 0")
	}

	if cfg.Lock.InitialInterval <= 0 {
		return fmt.Errorf("lock.initial_interval must be > 0")
	}
	if cfg.Lock.MaxInterval < cfg.Lock.InitialInterval {
		return fmt.Errorf("lock.max_interval must be >= lock.initial_interval")
	}
	if cfg.Lock.MaxElapsed < 0 {
		return fmt.Errorf("lock.max_elapsed must be >= 0")
	}

	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	return nil
}
