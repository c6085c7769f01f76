package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFilename is the settings file looked up in the home directory.
const DefaultConfigFilename = ".qpb.yaml"

// UnsetPath is the placeholder value that counts as "no path configured".
const UnsetPath = "default"

// SyncConfig is the part of the settings the sync runner consumes.
type SyncConfig struct {
	QuartzPath      string `yaml:"quartzPath"`                // Quartz repository location
	CommandOverride string `yaml:"commandOverride,omitempty"` // Replaces the default sync command when set
}

// Config holds the flat YAML settings file.
type Config struct {
	SyncConfig `yaml:",inline"`

	LogLevel      string        `yaml:"logLevel,omitempty"`      // Logging level: debug, info, warn, error
	Notifications bool          `yaml:"notifications,omitempty"` // If true, send desktop notifications
	WatchRoot     string        `yaml:"watchRoot,omitempty"`     // Directory watched by `qpb watch`
	Exclude       []string      `yaml:"exclude,omitempty"`       // Glob patterns ignored by the watcher
	Delay         time.Duration `yaml:"delay,omitempty"`         // Quiet period before a watch-triggered sync
}

// Default returns the settings used on first load.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Delay:    2 * time.Second,
	}
}

// Store loads and saves settings.
type Store interface {
	Load() (*Config, error)
	Save(cfg *Config) error
}

// FileStore persists settings as YAML at Path.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the settings file. A missing file yields the defaults.
// Keys present in the file override the defaults.
func (s *FileStore) Load() (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// Save writes the settings file, replacing any previous content.
func (s *FileStore) Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return os.WriteFile(s.Path, data, 0644)
}
