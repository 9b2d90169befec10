package cmd

import (
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile      string
	logLevel     string
	logFormat    string
	workers      int
	chunkSize    int64
	encoding     string
	onChunkError string
	noColor      bool
)

var rootCmd = &cobra.Command{
	Use:   "goingest",
	Short: "Parallel NDJSON ingestion engine",
	Long: `A CLI tool for loading large newline-delimited JSON files by splitting
them into line-aligned byte ranges and parsing the ranges concurrently.

Features:
  - Line-aligned chunk planning with no line split or dropped
  - Bounded worker pool with results merged in file order
  - Malformed lines skipped and counted, never fatal
  - Serial reader for low-resource runs and as a correctness oracle
  - Export to NDJSON or a MySQL table, with count/digest verification`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.Enable = false
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "goingest.yaml",
		"Path to configuration file (defaults are used when it does not exist)")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Ingest overrides
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0,
		"Override worker count (0 uses NumCPU-1)")
	rootCmd.PersistentFlags().Int64Var(&chunkSize, "chunk-size", 0,
		"Override target chunk size in bytes")
	rootCmd.PersistentFlags().StringVar(&encoding, "encoding", "",
		"Override input text encoding (e.g. utf-8, latin1)")
	rootCmd.PersistentFlags().StringVar(&onChunkError, "on-chunk-error", "",
		"Override chunk failure policy (skip, fail)")

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable coloured output")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel     string
	LogFormat    string
	Workers      int
	ChunkSize    int64
	Encoding     string
	OnChunkError string
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		Workers:      workers,
		ChunkSize:    chunkSize,
		Encoding:     encoding,
		OnChunkError: onChunkError,
	}
}
