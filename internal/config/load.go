package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loaded captures the resolved config root, parsed values, and non-fatal warnings.
type Loaded struct {
	Root     string
	Config   Config
	Apps     []AppConfig
	Matches  []MatchDefinition
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the configuration tree.
func Load(explicitRoot string) (Loaded, error) {
	root := ResolveDir(explicitRoot)
	loaded := Loaded{Root: root, Config: Default()}

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			loaded.Warnings = append(loaded.Warnings, Warning{
				Message: fmt.Sprintf("config directory %q not found; using defaults", root),
			})
			return loaded, nil
		}
		return Loaded{}, fmt.Errorf("stat config dir %q: %w", root, err)
	}
	if !info.IsDir() {
		return Loaded{}, fmt.Errorf("config root %q is not a directory", root)
	}
	loaded.Exists = true

	if err := loaded.loadConfig(); err != nil {
		return Loaded{}, err
	}
	if err := loaded.loadApps(); err != nil {
		return Loaded{}, err
	}
	if err := loaded.loadMatches(); err != nil {
		return Loaded{}, err
	}

	warnings, err := Validate(loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("validate %q: %w", DefaultConfigPath(root), err)
	}
	loaded.Warnings = append(loaded.Warnings, warnings...)
	loaded.Warnings = append(loaded.Warnings, validateMatches(loaded.Matches)...)
	return loaded, nil
}

func (l *Loaded) loadConfig() error {
	path := DefaultConfigPath(l.Root)
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.Warnings = append(l.Warnings, Warning{
				File:    path,
				Message: fmt.Sprintf("config file %q not found; using defaults", path),
			})
			return nil
		}
		return fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, err := Parse(content, l.Config)
	if err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	l.Config = cfg
	return nil
}

func (l *Loaded) loadApps() error {
	dir := ConfigDir(l.Root)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config dir %q: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if entry.IsDir() || name == defaultConfig || (ext != ".yml" && ext != ".yaml") {
			continue
		}
		path := filepath.Join(dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read app config %q: %w", path, err)
		}
		app, err := parseAppConfig(path, content)
		if err != nil {
			return fmt.Errorf("parse app config %q: %w", path, err)
		}
		l.Apps = append(l.Apps, app)
	}
	return nil
}

func (l *Loaded) loadMatches() error {
	dir := MatchDir(l.Root)
	paths := make([]string, 0)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() && isMatchFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk match dir %q: %w", dir, err)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		l.Warnings = append(l.Warnings, Warning{Message: fmt.Sprintf("no match files under %q", dir)})
		return nil
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat match file %q: %w", path, err)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read match file %q: %w", path, err)
		}
		file, err := parseMatchFile(path, content)
		if err != nil {
			return fmt.Errorf("parse match file %q: %w", path, err)
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		defs, err := file.definitions(filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("parse match file %q: %w", path, err)
		}
		for i := range defs {
			defs[i].ModTime = info.ModTime()
			defs[i].Order = len(l.Matches) + i
		}
		l.Matches = append(l.Matches, defs...)
	}
	return nil
}
