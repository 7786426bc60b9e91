// Package config loads the CLI configuration from flags, environment
// variables, and an optional relstore.yaml file via viper.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds everything the CLI needs to open a database and build
// its schema family.
type Config struct {
	// DSN is the SQLite database path, or ":memory:".
	DSN string `mapstructure:"dsn"`
	// Exclude lists tables left out of the schema family.
	Exclude []string `mapstructure:"exclude"`
	// JunctionPrefix marks N-to-N junction tables (default "rel").
	JunctionPrefix string `mapstructure:"junction_prefix"`
	// JunctionSplitter separates junction-name segments (default "_").
	JunctionSplitter string `mapstructure:"junction_splitter"`
	// Debug switches the logger to debug level.
	Debug bool `mapstructure:"debug"`
}

// Load reads the configuration resolved by viper. The DSN is the only
// required setting.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DSN == "" {
		return Config{}, fmt.Errorf("a database DSN is required (--dsn, RELSTORE_DSN, or relstore.yaml)")
	}
	return cfg, nil
}
