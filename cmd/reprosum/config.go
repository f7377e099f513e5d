package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings a reprosum run can take from a YAML config
// file or REPROSUM_-prefixed environment variables, in that order of
// increasing precedence, on top of hard-coded defaults. No CLI flag
// sets these fields.
type Config struct {
	Cluster ClusterConfig `mapstructure:"cluster"`
}

// ClusterConfig describes the simulated cluster a run partitions its
// summands across.
type ClusterConfig struct {
	Size           int     `mapstructure:"size"`
	Latency        float64 `mapstructure:"latency"`
	Rate           float64 `mapstructure:"rate"`
	ReservedFanout int     `mapstructure:"reserved_fanout"`
	Broadcast      bool    `mapstructure:"broadcast"`
}

const (
	defaultClusterSize    = 4
	defaultClusterLatency = 1e-3
	defaultClusterRate    = 1e9

	configName = "reprosum"
	configType = "yaml"
	envPrefix  = "REPROSUM"
)

var ErrInvalidClusterSize = errors.New("config: cluster.size must be positive")

// LoadConfig loads configuration the same way
// Sumatoshi-tech-codefang's internal/config.LoadConfig does: an
// explicit file if configPath is set, otherwise a search of the
// working directory, layered with REPROSUM_-prefixed environment
// variables and hard-coded defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves a nested key like cluster.size from
	// REPROSUM_CLUSTER_SIZE because applyDefaults above already registered
	// it with SetDefault; viper has no way to discover env overrides for
	// keys it hasn't seen via a default, a config file, or an explicit
	// BindEnv call.

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("cluster.size", defaultClusterSize)
	v.SetDefault("cluster.latency", defaultClusterLatency)
	v.SetDefault("cluster.rate", defaultClusterRate)
	v.SetDefault("cluster.reserved_fanout", 0)
	v.SetDefault("cluster.broadcast", false)
}

// Validate checks the fields that must hold for a run to make sense.
func (c *Config) Validate() error {
	if c.Cluster.Size <= 0 {
		return ErrInvalidClusterSize
	}
	return nil
}
