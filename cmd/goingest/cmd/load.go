package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goingest/internal/config"
	"github.com/dbsmedya/goingest/internal/database"
	"github.com/dbsmedya/goingest/internal/ingest"
	"github.com/dbsmedya/goingest/internal/loader"
	"github.com/dbsmedya/goingest/internal/lock"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/sqlutil"
	"github.com/dbsmedya/goingest/internal/verifier"
)

var (
	loadDataset string
	loadFile    string
	loadTable   string
	loadSerial  bool
	loadForce   bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Ingest an input and load it into a MySQL table",
	Long: `Load ingests the input, writes every record into a destination table
and verifies the table against the ingested records.

The load process follows these steps:
  1. Ingest the input (parallel unless --serial is set)
  2. Take a MySQL named lock on the table so loads cannot interleave
  3. Create the table from the merged schema (load.create_table)
  4. Insert rows in batched transactions, keeping file order in _row
  5. Verify the table (count, or digest of the rows read back)

Example:
  goingest load --config goingest.yaml --dataset business
  goingest load --file checkin.json --table checkin`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVarP(&loadDataset, "dataset", "d", "",
		"Dataset name from configuration file")
	loadCmd.Flags().StringVarP(&loadFile, "file", "f", "",
		"Path to an NDJSON file")
	loadCmd.MarkFlagsMutuallyExclusive("dataset", "file")

	loadCmd.Flags().StringVarP(&loadTable, "table", "t", "",
		"Destination table (defaults to the dataset's table or the file name)")
	loadCmd.Flags().BoolVar(&loadSerial, "serial", false,
		"Ingest with the serial reader")
	loadCmd.Flags().BoolVar(&loadForce, "force", false,
		"Load even if the table lock cannot be acquired (use with caution)")

	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateDestination(); err != nil {
		return fmt.Errorf("invalid destination: %w", err)
	}

	in, err := resolveInput(cfg, loadDataset, loadFile)
	if err != nil {
		return err
	}
	if loadTable != "" {
		in.Table = loadTable
	}
	if !sqlutil.IsValidIdentifier(in.Table) {
		return fmt.Errorf("invalid destination table %q (use --table)", in.Table)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log = log.WithDataset(in.Name)

	log.Infow("Starting load operation",
		"file", in.Path,
		"table", in.Table,
		"config", GetConfigFile(),
	)

	ctx, stop := setupSignalHandler(context.Background(), func(sig os.Signal) {
		log.Warnw("Received shutdown signal - completing current batch...", "signal", sig.String())
	})
	defer stop()

	res, err := runIngest(ctx, in, log, loadSerial)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	dbManager := database.NewManager(&cfg.Destination, log)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbManager.Close()

	stats, vr, err := loadWithLock(ctx, dbManager.Destination, cfg, in.Table, res, log, loadForce)
	printLoadSummary(in, res, stats, vr)
	return err
}

// loadWithLock runs loadResult while holding the table's advisory lock.
// With force set the lock is not taken.
func loadWithLock(ctx context.Context, db *sql.DB, cfg *config.Config, table string, res *ingest.IngestResult, log *logger.Logger, force bool) (*loader.LoadStats, *verifier.VerifyResult, error) {
	if force {
		log.Warnw("Skipping advisory lock acquisition (--force flag used)", "table", table)
		return loadResult(ctx, db, cfg, table, res, log)
	}

	var (
		stats *loader.LoadStats
		vr    *verifier.VerifyResult
	)
	tableLock := lock.NewTableLock(db, table)
	err := tableLock.WithLock(ctx, lock.TimeoutShort, func() error {
		log.Infow("Acquired advisory lock for table", "lock", tableLock.LockName())
		var err error
		stats, vr, err = loadResult(ctx, db, cfg, table, res, log)
		return err
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		return nil, nil, fmt.Errorf("table '%s' is being loaded by another instance (use --force to override)", table)
	}
	return stats, vr, err
}

// loadResult writes res into table and verifies it with the configured
// method. Stats and the verification result are returned even when the
// verification fails.
func loadResult(ctx context.Context, db *sql.DB, cfg *config.Config, table string, res *ingest.IngestResult, log *logger.Logger) (*loader.LoadStats, *verifier.VerifyResult, error) {
	l, err := loader.NewLoader(db, cfg.Load, log)
	if err != nil {
		return nil, nil, err
	}
	stats, err := l.Load(ctx, table, res)
	if err != nil {
		return nil, nil, fmt.Errorf("load failed: %w", err)
	}

	v, err := verifier.NewVerifier(verifier.VerificationMethod(cfg.Verification.Method), log)
	if err != nil {
		return stats, nil, err
	}
	vr, err := v.VerifyLoad(ctx, db, table, res)
	return stats, vr, err
}

func printLoadSummary(in *input, res *ingest.IngestResult, stats *loader.LoadStats, vr *verifier.VerifyResult) {
	printHeader("Load: %s -> %s", in.Name, in.Table)
	printSection("Ingest")
	printField("File", "%s", in.Path)
	printField("Records", "%d", res.Stats.Records)
	printField("Skipped lines", "%d", res.Stats.SkippedLines)
	printField("Failed chunks", "%d", res.Stats.FailedChunks)
	fmt.Fprintln(outputWriter)

	if stats == nil {
		return
	}
	printSection("Load")
	printField("Table", "%s", stats.Table)
	printField("Columns", "%d", stats.Columns)
	printField("Rows loaded", "%d", stats.RowsLoaded)
	printField("Batches", "%d", stats.Batches)
	printField("Duration", "%s", stats.Duration)

	if vr == nil {
		return
	}
	fmt.Fprintln(outputWriter)
	printSection("Verification")
	printField("Method", "%s", vr.Method)
	printField("Rows", "records=%d dest=%d", vr.ExpectedCount, vr.ActualCount)
	printField("Result", "%s", statusMark(vr.Match))
	if !vr.Match {
		printField("Reason", "%s", vr.ErrorMessage)
	}
}
