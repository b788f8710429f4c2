package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Parse decodes config/default.yml content over base. Unknown keys are rejected.
func Parse(content []byte, base Config) (Config, error) {
	cfg := base
	if len(bytes.TrimSpace(content)) == 0 {
		return cfg, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return Config{}, err
	}
	return cfg, nil
}

type appFile struct {
	FilterClass string `yaml:"filter_class"`
	FilterTitle string `yaml:"filter_title"`
	Enable      *bool  `yaml:"enable"`
}

// parseAppConfig decodes one config/<name>.yml application override.
func parseAppConfig(path string, content []byte) (AppConfig, error) {
	var raw appFile
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return AppConfig{}, err
	}

	filter, err := compileFilter(raw.FilterClass, raw.FilterTitle)
	if err != nil {
		return AppConfig{}, err
	}
	if filter.Empty() {
		return AppConfig{}, errors.New("app config requires filter_class or filter_title")
	}

	app := AppConfig{
		Name:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:   path,
		Filter: filter,
		Enable: true,
	}
	if raw.Enable != nil {
		app.Enable = *raw.Enable
	}
	return app, nil
}

type matchFile struct {
	FilterClass string       `json:"filter_class"`
	FilterTitle string       `json:"filter_title"`
	Matches     []matchEntry `json:"matches"`
}

type matchEntry struct {
	Trigger         string   `json:"trigger"`
	Triggers        []string `json:"triggers"`
	Replace         string   `json:"replace"`
	Label           string   `json:"label"`
	Word            bool     `json:"word"`
	LeftWord        bool     `json:"left_word"`
	RightWord       bool     `json:"right_word"`
	PropagateCase   bool     `json:"propagate_case"`
	UppercaseStyle  string   `json:"uppercase_style"`
	CaseInsensitive bool     `json:"case_insensitive"`
	Priority        int      `json:"priority"`
	FilterClass     string   `json:"filter_class"`
	FilterTitle     string   `json:"filter_title"`
}

// isMatchFile reports whether path has a supported match file extension.
func isMatchFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml", ".toml":
		return true
	default:
		return false
	}
}

// parseMatchFile decodes a YAML or TOML match file by extension and validates
// it against the match schema.
func parseMatchFile(path string, content []byte) (matchFile, error) {
	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		table := map[string]any{}
		if _, err := toml.Decode(string(content), &table); err != nil {
			return matchFile{}, err
		}
		doc = table
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return matchFile{}, err
		}
	default:
		return matchFile{}, fmt.Errorf("unsupported match file extension %q", filepath.Ext(path))
	}

	encoded, err := validateMatchDocument(doc)
	if err != nil {
		return matchFile{}, err
	}

	var file matchFile
	if err := json.Unmarshal(encoded, &file); err != nil {
		return matchFile{}, fmt.Errorf("decode matches: %w", err)
	}
	return file, nil
}

// definitions expands a parsed match file into match definitions.
func (f matchFile) definitions(rel string) ([]MatchDefinition, error) {
	fileFilter, err := compileFilter(f.FilterClass, f.FilterTitle)
	if err != nil {
		return nil, err
	}

	defs := make([]MatchDefinition, 0, len(f.Matches))
	for i, entry := range f.Matches {
		filter := fileFilter
		if entry.FilterClass != "" || entry.FilterTitle != "" {
			own, err := compileFilter(entry.FilterClass, entry.FilterTitle)
			if err != nil {
				return nil, fmt.Errorf("matches[%d]: %w", i, err)
			}
			if own.Class != nil {
				filter.Class = own.Class
			}
			if own.Title != nil {
				filter.Title = own.Title
			}
		}

		// The schema admits exactly one of trigger and triggers.
		triggers := entry.Triggers
		if entry.Trigger != "" {
			triggers = []string{entry.Trigger}
		}

		def := MatchDefinition{
			ID:              fmt.Sprintf("%s#%d", rel, i),
			Triggers:        append([]string(nil), triggers...),
			Replace:         entry.Replace,
			Label:           entry.Label,
			LeftWord:        entry.Word || entry.LeftWord,
			RightWord:       entry.Word || entry.RightWord,
			PropagateCase:   entry.PropagateCase,
			UppercaseStyle:  entry.UppercaseStyle,
			CaseInsensitive: entry.CaseInsensitive || entry.PropagateCase,
			Priority:        entry.Priority,
			Filter:          filter,
			Specificity:     filter.Specificity(),
			File:            rel,
		}
		if def.UppercaseStyle == "" {
			def.UppercaseStyle = UppercaseFirst
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func compileFilter(class, title string) (Filter, error) {
	var filter Filter
	if class != "" {
		re, err := regexp.Compile(class)
		if err != nil {
			return Filter{}, fmt.Errorf("filter_class: %w", err)
		}
		filter.Class = re
	}
	if title != "" {
		re, err := regexp.Compile(title)
		if err != nil {
			return Filter{}, fmt.Errorf("filter_title: %w", err)
		}
		filter.Title = re
	}
	return filter, nil
}
