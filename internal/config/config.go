// Package config loads the lionrepo server configuration.
//
// Values are layered, later sources overriding earlier ones:
//
//	defaults -> config file -> LIONREPO_* environment -> command-line flags
//
// The config file is YAML and is found with FindConfigPath unless a path is
// given explicitly. Environment variables map to keys by dropping the prefix
// and turning the first underscore into a dot, so LIONREPO_SERVER_ADDR sets
// server.addr and LIONREPO_LOG_LEVEL sets log.level.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"lionrepo/internal/logging"
	"lionrepo/internal/repository"
)

const envPrefix = "LIONREPO_"

// Defaults.
const (
	DefaultAddr            = ":2002"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultIDStrategy      = "sequential"
	DefaultLionWebVersion  = "2023.1"
)

// Config is the complete server configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server" yaml:"server"`
	Log          LogConfig          `koanf:"log" yaml:"log"`
	IDs          IDsConfig          `koanf:"ids" yaml:"ids"`
	Repositories []RepositoryConfig `koanf:"repositories" yaml:"repositories,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// IDsConfig selects how free node ids are generated.
type IDsConfig struct {
	Strategy string `koanf:"strategy" yaml:"strategy"`
	Prefix   string `koanf:"prefix" yaml:"prefix,omitempty"`
}

// RepositoryConfig declares a repository created at startup. Seed names a
// chunk file loaded into it; with Watch set the file is reloaded whenever
// it changes.
type RepositoryConfig struct {
	Name           string `koanf:"name" yaml:"name"`
	LionWebVersion string `koanf:"lionweb_version" yaml:"lionweb_version,omitempty"`
	History        bool   `koanf:"history" yaml:"history,omitempty"`
	Seed           string `koanf:"seed" yaml:"seed,omitempty"`
	Watch          bool   `koanf:"watch" yaml:"watch,omitempty"`
}

// Configuration converts r to a repository configuration.
func (r RepositoryConfig) Configuration() repository.Configuration {
	version := r.LionWebVersion
	if version == "" {
		version = DefaultLionWebVersion
	}
	return repository.Configuration{
		Name:           r.Name,
		LionWebVersion: version,
		History:        repository.HistorySupport(r.History),
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"addr":        "server.addr",
	"log-level":   "log.level",
	"log-format":  "log.format",
	"id-strategy": "ids.strategy",
	"id-prefix":   "ids.prefix",
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: DefaultAddr, ShutdownTimeout: DefaultShutdownTimeout},
		Log:    LogConfig{Level: DefaultLogLevel, Format: logging.FormatText},
		IDs:    IDsConfig{Strategy: DefaultIDStrategy},
	}
}

// Load builds the configuration. explicitPath, when not empty, must name an
// existing file; otherwise FindConfigPath is used and a missing file is not
// an error. Only flags that were set on the command line override other
// sources. Load returns the config file actually read, or "".
func Load(explicitPath string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"server.addr":             DefaultAddr,
		"server.shutdown_timeout": DefaultShutdownTimeout.String(),
		"log.level":               DefaultLogLevel,
		"log.format":              logging.FormatText,
		"ids.strategy":            DefaultIDStrategy,
	}, "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	path := explicitPath
	if path == "" {
		path = FindConfigPath()
	} else if !fileExists(path) {
		return nil, "", fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	if path != "" {
		cfg.resolveSeeds(filepath.Dir(path))
	}
	return &cfg, path, nil
}

// envKey turns LIONREPO_SERVER_SHUTDOWN_TIMEOUT into server.shutdown_timeout.
// The config path variable itself is skipped.
func envKey(s string) string {
	if s == EnvConfigPath {
		return ""
	}
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
}

func (c *Config) resolveSeeds(dir string) {
	for i, repo := range c.Repositories {
		if repo.Seed != "" && !filepath.IsAbs(repo.Seed) {
			c.Repositories[i].Seed = filepath.Join(dir, repo.Seed)
		}
	}
}

// Validate reports the first problem in c.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative, got %s", c.Server.ShutdownTimeout)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("log.format must be %q or %q, got %q", logging.FormatText, logging.FormatJSON, c.Log.Format)
	}
	if _, err := c.NewIDGenerator(); err != nil {
		return fmt.Errorf("ids: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Repositories))
	for i, repo := range c.Repositories {
		if repo.Name == "" {
			return fmt.Errorf("repositories[%d]: name must not be empty", i)
		}
		if _, dup := seen[repo.Name]; dup {
			return fmt.Errorf("repositories[%d]: duplicate name %q", i, repo.Name)
		}
		seen[repo.Name] = struct{}{}
		if repo.History {
			return fmt.Errorf("repositories[%d]: %w", i, repository.ErrHistoryUnsupported)
		}
		if repo.Watch && repo.Seed == "" {
			return fmt.Errorf("repositories[%d]: watch requires a seed", i)
		}
	}
	return nil
}

// NewIDGenerator creates a generator for the configured strategy. Each
// repository needs its own.
func (c *Config) NewIDGenerator() (repository.IDGenerator, error) {
	return repository.NewIDGenerator(c.IDs.Strategy, c.IDs.Prefix)
}

// Save writes c to path as YAML, creating its directory.
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
