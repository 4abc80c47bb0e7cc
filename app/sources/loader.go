package sources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"smartcache/app/database"
)

// Loader handles loading and validation of source declarations.
type Loader struct {
	sourcesDir string
}

func NewLoader(sourcesDir string) *Loader {
	return &Loader{sourcesDir: sourcesDir}
}

// LoadAll loads every YAML source file from the sources directory. A missing
// directory yields an empty list, an invalid file fails the whole load.
func (l *Loader) LoadAll() ([]*Config, error) {
	var configs []*Config

	if _, err := os.Stat(l.sourcesDir); os.IsNotExist(err) {
		return configs, nil
	}

	files, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	seen := make(map[string]string)

	for _, file := range files {
		config, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(config); err != nil {
			return nil, fmt.Errorf("invalid source %s: %w", file, err)
		}

		if previous, ok := seen[config.Name]; ok {
			return nil, fmt.Errorf("duplicate source name %q in %s, already declared in %s", config.Name, file, previous)
		}
		seen[config.Name] = file

		configs = append(configs, config)
		slog.Debug("Loaded source declaration", "file", file, "name", config.Name, "kind", config.Kind)
	}

	return configs, nil
}

func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Policy == "" {
		config.Policy = database.PolicyMetadataOnly
	}

	return &config, nil
}

func (l *Loader) validate(config *Config) error {
	if config.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if config.Locator == "" {
		return fmt.Errorf("source locator is required")
	}

	switch config.Kind {
	case database.SourceKindFeed, database.SourceKindVideo, database.SourceKindImage, database.SourceKindNews:
	default:
		return fmt.Errorf("invalid source kind: %q", config.Kind)
	}

	switch config.Policy {
	case database.PolicyMetadataOnly, database.PolicyCacheAllowed:
	default:
		return fmt.Errorf("invalid source policy: %q", config.Policy)
	}

	return nil
}
