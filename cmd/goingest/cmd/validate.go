package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goingest/internal/config"
	"github.com/dbsmedya/goingest/internal/database"
	"github.com/dbsmedya/goingest/internal/ingest"
	"github.com/dbsmedya/goingest/internal/logger"
)

var validateDestination bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and run preflight checks",
	Long: `Validate checks the configuration file and runs preflight checks
against every dataset so an ingest can start safely.

Checks performed:
  - Configuration syntax and required fields
  - Dataset input files exist and are regular files
  - Input encodings are supported by the line parser
  - Destination connectivity (with --destination)

Example:
  goingest validate --config goingest.yaml --destination`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDestination, "destination", false,
		"Also validate and connect to the destination database")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	printHeader("Configuration Validation")
	printField("Config file", "%s", GetConfigFile())
	printField("Datasets", "%d", len(cfg.Datasets))
	fmt.Fprintln(outputWriter)

	failed := 0
	for _, name := range cfg.ListDatasets() {
		ds, _ := cfg.GetDataset(name)
		ic := ds.GetIngest(cfg.Ingest)

		printSection(name)
		ok := checkInputFile(ds.Path)
		ok = checkEncoding(ic.Encoding) && ok
		if !ok {
			failed++
		}
		fmt.Fprintln(outputWriter)
	}

	if validateDestination {
		ok := checkDestination(cfg)
		if !ok {
			failed++
		}
		fmt.Fprintln(outputWriter)
	}

	if failed > 0 {
		return fmt.Errorf("validation failed: %d check group(s) failed", failed)
	}
	fmt.Fprintln(outputWriter, "All checks passed")
	return nil
}

func checkInputFile(path string) bool {
	fi, err := os.Stat(path)
	switch {
	case err != nil:
		printField("Input", "%s %s (%v)", statusMark(false), path, err)
		return false
	case fi.IsDir():
		printField("Input", "%s %s is a directory", statusMark(false), path)
		return false
	default:
		printField("Input", "%s %s (%d bytes)", statusMark(true), path, fi.Size())
		return true
	}
}

func checkEncoding(name string) bool {
	p, err := ingest.NewLineParser(name)
	if err != nil {
		printField("Encoding", "%s %v", statusMark(false), err)
		return false
	}
	printField("Encoding", "%s %s", statusMark(true), p.Encoding())
	return true
}

func checkDestination(cfg *config.Config) bool {
	printSection("destination")
	if err := cfg.ValidateDestination(); err != nil {
		printField("Config", "%s %v", statusMark(false), err)
		return false
	}
	printField("Config", "%s", statusMark(true))

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		printField("Connect", "%s %v", statusMark(false), err)
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbManager := database.NewManager(&cfg.Destination, log)
	if err := dbManager.Connect(ctx); err != nil {
		printField("Connect", "%s %v", statusMark(false), err)
		return false
	}
	defer dbManager.Close()

	printField("Connect", "%s %s:%d/%s", statusMark(true),
		cfg.Destination.Host, cfg.Destination.Port, cfg.Destination.Database)
	return true
}
