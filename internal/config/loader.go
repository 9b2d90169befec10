package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Datasets == nil {
		cfg.Datasets = map[string]DatasetConfig{}
	}

	if err := substituteEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads configPath when it exists and returns defaults when
// it does not. Any other read error is returned.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	return Load(configPath)
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) error {
	cfg.Destination.Host = expandEnvVar(cfg.Destination.Host)
	cfg.Destination.User = expandEnvVar(cfg.Destination.User)
	cfg.Destination.Password = expandEnvVar(cfg.Destination.Password)
	cfg.Destination.Database = expandEnvVar(cfg.Destination.Database)

	for name, ds := range cfg.Datasets {
		ds.Path = expandEnvVar(ds.Path)
		cfg.Datasets[name] = ds
	}

	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// GetDataset retrieves a specific dataset configuration by name.
func (c *Config) GetDataset(name string) (*DatasetConfig, error) {
	ds, exists := c.Datasets[name]
	if !exists {
		return nil, fmt.Errorf("dataset %q not found in configuration", name)
	}
	return &ds, nil
}

// ListDatasets returns all dataset names defined in the configuration, sorted.
func (c *Config) ListDatasets() []string {
	names := make([]string, 0, len(c.Datasets))
	for name := range c.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyOverrides applies CLI flag overrides to the global configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, workers int, chunkSize int64, encoding, onChunkError string) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if workers > 0 {
		c.Ingest.Workers = workers
	}
	if chunkSize > 0 {
		c.Ingest.ChunkSize = chunkSize
	}
	if encoding != "" {
		c.Ingest.Encoding = encoding
	}
	if onChunkError != "" {
		c.Ingest.OnChunkError = onChunkError
	}
}

// ApplyDatasetOverrides returns the effective ingest config for a dataset:
// global, then dataset-specific, then CLI values.
func (c *Config) ApplyDatasetOverrides(name string, workers int, chunkSize int64, encoding, onChunkError string) IngestConfig {
	ingest := c.GetDatasetIngest(name)

	if workers > 0 {
		ingest.Workers = workers
	}
	if chunkSize > 0 {
		ingest.ChunkSize = chunkSize
	}
	if encoding != "" {
		ingest.Encoding = encoding
	}
	if onChunkError != "" {
		ingest.OnChunkError = onChunkError
	}

	return ingest
}
