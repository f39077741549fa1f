package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yaml"
	ConfigDirName  = ".speedagent"
)

// Loader handles configuration loading and discovery
type Loader struct {
	startDir string
}

// NewLoader creates a new config loader starting from the given directory
func NewLoader(startDir string) *Loader {
	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			startDir = "."
		}
	}

	return &Loader{
		startDir: startDir,
	}
}

// Load loads the configuration with environment variable overrides.
// A missing config file is not an error; defaults apply.
func (l *Loader) Load() (*Config, error) {
	config := &Config{}

	configPath, err := l.findConfigFile()
	if err == nil {
		config, err = l.loadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	}

	l.applyEnvOverrides(config)
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// findConfigFile searches for .speedagent/config.yaml from startDir upward
func (l *Loader) findConfigFile() (string, error) {
	dir := l.startDir
	for {
		candidate := filepath.Join(dir, ConfigDirName, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s/%s found from %s upward", ConfigDirName, ConfigFileName, l.startDir)
		}
		dir = parent
	}
}

// loadFromFile reads and parses a yaml config file
func (l *Loader) loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies SPEEDAGENT_* environment variables on top of
// the file configuration. Secrets are the main use case; they should not
// live in the config file.
func (l *Loader) applyEnvOverrides(config *Config) {
	if v := os.Getenv("SPEEDAGENT_SCORER_API_KEY"); v != "" {
		config.Scorer.APIKey = v
	}
	if v := os.Getenv("SPEEDAGENT_SCORER_ENDPOINT"); v != "" {
		config.Scorer.Endpoint = v
	}
	if v := os.Getenv("SPEEDAGENT_REVIEWER_API_KEY"); v != "" {
		config.Reviewer.APIKey = v
	}
	if v := os.Getenv("SPEEDAGENT_REVIEWER_PROVIDER"); v != "" {
		config.Reviewer.Provider = v
	}
	if v := os.Getenv("SPEEDAGENT_BUILD_QUEUE_ENDPOINT"); v != "" {
		config.Build.QueueEndpoint = v
	}
}

// Save writes the configuration to .speedagent/config.yaml under dir
func (l *Loader) Save(config *Config, dir string) error {
	configDir := filepath.Join(dir, ConfigDirName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(configDir, ConfigFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
