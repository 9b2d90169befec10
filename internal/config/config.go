// Package config provides configuration structures and loading for goingest.
package config

// Config represents the complete application configuration.
type Config struct {
	Ingest       IngestConfig             `yaml:"ingest" mapstructure:"ingest"`
	Datasets     map[string]DatasetConfig `yaml:"datasets" mapstructure:"datasets"`
	Destination  DatabaseConfig           `yaml:"destination" mapstructure:"destination"`
	Load         LoadConfig               `yaml:"load" mapstructure:"load"`
	Verification VerificationConfig       `yaml:"verification" mapstructure:"verification"`
	Logging      LoggingConfig            `yaml:"logging" mapstructure:"logging"`
}

// IngestConfig controls the chunked ingestion engine.
type IngestConfig struct {
	ChunkSize    int64  `yaml:"chunk_size" mapstructure:"chunk_size"`         // target bytes per chunk
	Workers      int    `yaml:"workers" mapstructure:"workers"`               // 0 = NumCPU-1, minimum 1
	Encoding     string `yaml:"encoding" mapstructure:"encoding"`             // utf-8, latin1, windows-1252, ...
	OnChunkError string `yaml:"on_chunk_error" mapstructure:"on_chunk_error"` // skip or fail
	RecordLimit  int    `yaml:"record_limit" mapstructure:"record_limit"`     // serial reader only, 0 = unlimited
}

// DatasetConfig names an input file.
type DatasetConfig struct {
	Path   string        `yaml:"path" mapstructure:"path"`
	Table  string        `yaml:"table" mapstructure:"table"` // destination table for load, defaults to the dataset name
	Ingest *IngestConfig `yaml:"ingest,omitempty" mapstructure:"ingest"`
}

// DatabaseConfig represents a MySQL database connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// LoadConfig controls how ingested tables are written to the destination.
type LoadConfig struct {
	BatchSize   int  `yaml:"batch_size" mapstructure:"batch_size"`
	CreateTable bool `yaml:"create_table" mapstructure:"create_table"`
	Truncate    bool `yaml:"truncate" mapstructure:"truncate"`
}

// VerificationConfig selects how a parallel ingestion is checked against
// the serial reader.
type VerificationConfig struct {
	Method string `yaml:"method" mapstructure:"method"` // count, digest, full or skip
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultChunkSize is the target chunk size in bytes.
const DefaultChunkSize int64 = 1 << 20

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			ChunkSize:    DefaultChunkSize,
			Workers:      0,
			Encoding:     "utf-8",
			OnChunkError: "skip",
		},
		Datasets: map[string]DatasetConfig{},
		Destination: DatabaseConfig{
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Load: LoadConfig{
			BatchSize:   500,
			CreateTable: true,
		},
		Verification: VerificationConfig{
			Method: "count",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// GetDatasetIngest returns the ingest config for a dataset by name, falling back to global if not set.
func (c *Config) GetDatasetIngest(name string) IngestConfig {
	ds, err := c.GetDataset(name)
	if err != nil {
		return c.Ingest
	}
	return ds.GetIngest(c.Ingest)
}

// GetIngest merges the dataset's ingest overrides over global.
func (dc *DatasetConfig) GetIngest(global IngestConfig) IngestConfig {
	if dc.Ingest == nil {
		return global
	}

	result := global
	if dc.Ingest.ChunkSize > 0 {
		result.ChunkSize = dc.Ingest.ChunkSize
	}
	if dc.Ingest.Workers > 0 {
		result.Workers = dc.Ingest.Workers
	}
	if dc.Ingest.Encoding != "" {
		result.Encoding = dc.Ingest.Encoding
	}
	if dc.Ingest.OnChunkError != "" {
		result.OnChunkError = dc.Ingest.OnChunkError
	}
	if dc.Ingest.RecordLimit > 0 {
		result.RecordLimit = dc.Ingest.RecordLimit
	}
	return result
}

// TableName returns the destination table for the dataset.
func (dc *DatasetConfig) TableName(datasetName string) string {
	if dc.Table != "" {
		return dc.Table
	}
	return datasetName
}
