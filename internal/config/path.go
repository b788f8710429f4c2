package config

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const (
	appName       = "presto"
	configSubdir  = "config"
	matchSubdir   = "match"
	defaultConfig = "default.yml"
)

// ResolveDir applies CLI/XDG fallback rules for the configuration root.
func ResolveDir(explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	return filepath.Join(xdg.ConfigHome, appName)
}

// ConfigDir holds default.yml and the per-app overrides.
func ConfigDir(root string) string {
	return filepath.Join(root, configSubdir)
}

// MatchDir holds match files, searched recursively.
func MatchDir(root string) string {
	return filepath.Join(root, matchSubdir)
}

// DefaultConfigPath is the engine configuration file under root.
func DefaultConfigPath(root string) string {
	return filepath.Join(ConfigDir(root), defaultConfig)
}
