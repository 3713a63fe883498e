// Package setup bootstraps a mapkit environment: configuration loading,
// registry population and finalization into an immutable Env.
package setup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds toolkit bootstrap configuration.
type Config struct {
	Database  DatabaseConfig
	Relations []RelationConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path       string
	Migrations string // directory of migration files; empty = skip
}

// RelationConfig declares one named relation over a table.
type RelationConfig struct {
	Name       string
	Table      string // empty = same as Name
	PrimaryKey string `mapstructure:"primary_key"` // empty = "id"
	Commands   bool   // register the default create/update/delete set
}

// Load reads configuration from file and env. Env var overrides use prefix
// MAPKIT_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "mapkit", "mapkit.db"))
	v.SetDefault("database.migrations", "")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("MAPKIT_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "mapkit"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("MAPKIT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// table and pk fill in the per-relation defaults.
func (rc RelationConfig) table() string {
	if rc.Table != "" {
		return rc.Table
	}
	return rc.Name
}

func (rc RelationConfig) pk() string {
	if rc.PrimaryKey != "" {
		return rc.PrimaryKey
	}
	return "id"
}
