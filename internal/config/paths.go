package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file.
	EnvConfigPath = "LIONREPO_CONFIG"
	// ConfigFileName is looked up in the working directory.
	ConfigFileName = "lionrepo.yaml"
	// ConfigDirName is the directory under XDG and /etc.
	ConfigDirName = "lionrepo"
)

// SearchPaths lists the config file candidates in priority order:
//  1. $LIONREPO_CONFIG
//  2. ./lionrepo.yaml
//  3. $XDG_CONFIG_HOME/lionrepo/config.yaml
//  4. ~/.config/lionrepo/config.yaml
//  5. /etc/lionrepo/config.yaml
func SearchPaths() []string {
	var paths []string
	if path := os.Getenv(EnvConfigPath); path != "" {
		paths = append(paths, path)
	}
	paths = append(paths, ConfigFileName)
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first existing candidate of SearchPaths as an
// absolute path, or "" when there is none.
func FindConfigPath() string {
	for _, path := range SearchPaths() {
		if !fileExists(path) {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// DefaultConfigPath returns where a new config file should be written.
func DefaultConfigPath() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, "config.yaml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// EnsureConfigDir creates the directory of configPath.
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0o755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
