// ============================================================================
// schedsim configuration
// ============================================================================
//
// Package: internal/config
// File: config.go
// Purpose: load the YAML config file, apply defaults and SCHEDSIM_* env
//          overrides, and validate the result
//
// Example (configs/default.yaml):
//
//   log:
//     level: info
//     format: text
//   store:
//     path: processes.json
//   scheduler:
//     algorithm: fcfs
//     quantum: 4
//   compare:
//     workers: 4
//     quanta: [1, 2, 4, 8]
//   server:
//     http_addr: ":8080"
//     grpc_addr: ":50051"
//   metrics:
//     enabled: true
//
// Every key can be overridden from the environment, dots replaced by
// underscores: SCHEDSIM_SCHEDULER_QUANTUM=2, SCHEDSIM_STORE_PATH=procs.db.
//
// ============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ChuLiYu/schedsim/internal/scheduler"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SCHEDSIM"

// Config is the complete schedsim configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Store struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"store"`

	Scheduler struct {
		Algorithm string `mapstructure:"algorithm"`
		Quantum   int    `mapstructure:"quantum"`
	} `mapstructure:"scheduler"`

	Compare struct {
		Workers int   `mapstructure:"workers"`
		Quanta  []int `mapstructure:"quanta"`
	} `mapstructure:"compare"`

	Server struct {
		HTTPAddr string `mapstructure:"http_addr"`
		GRPCAddr string `mapstructure:"grpc_addr"`
	} `mapstructure:"server"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("store.path", "processes.json")
	v.SetDefault("scheduler.algorithm", string(scheduler.FCFS))
	v.SetDefault("scheduler.quantum", scheduler.DefaultQuantum)
	v.SetDefault("compare.workers", 4)
	v.SetDefault("compare.quanta", []int{1, 2, 4, 8})
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.grpc_addr", ":50051")
	v.SetDefault("metrics.enabled", true)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// defaults are static and always valid
		panic(err)
	}
	return cfg
}

// Load reads the config file at path. A missing file (or an empty path)
// leaves the defaults in place; environment overrides always apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the rest of the system relies on.
func (c *Config) Validate() error {
	if _, err := c.SchedulerConfig(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Compare.Workers <= 0 {
		return fmt.Errorf("config: compare.workers must be positive, got %d", c.Compare.Workers)
	}
	for _, q := range c.Compare.Quanta {
		if q <= 0 {
			return fmt.Errorf("config: compare.quanta must be positive, got %d", q)
		}
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return errors.New("config: store.path must not be empty")
	}
	return nil
}

// SchedulerConfig converts the scheduler section into a scheduler.Config.
func (c *Config) SchedulerConfig() (scheduler.Config, error) {
	alg, err := scheduler.ParseAlgorithm(c.Scheduler.Algorithm)
	if err != nil {
		return scheduler.Config{}, err
	}
	cfg := scheduler.Config{Algorithm: alg, Quantum: c.Scheduler.Quantum}
	if alg == scheduler.RoundRobin && cfg.Quantum <= 0 {
		return scheduler.Config{}, fmt.Errorf("%w: quantum must be positive, got %d", scheduler.ErrInvalidConfiguration, cfg.Quantum)
	}
	return cfg, nil
}
