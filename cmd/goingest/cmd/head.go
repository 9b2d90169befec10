package cmd

import (
	"context"
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
)

var (
	headDataset string
	headFile    string
	headRows    int
	headWidth   int
)

var headCmd = &cobra.Command{
	Use:   "head",
	Short: "Print the first records of an input as a table",
	Long: `Head reads the first N records with the serial reader and prints them
as an aligned table, one column per field seen in those records.

Example:
  goingest head --dataset business -n 5
  goingest head --file tip.json -n 20 --width 40`,
	RunE: runHead,
}

func init() {
	headCmd.Flags().StringVarP(&headDataset, "dataset", "d", "",
		"Dataset name from configuration file")
	headCmd.Flags().StringVarP(&headFile, "file", "f", "",
		"Path to an NDJSON file")
	headCmd.MarkFlagsMutuallyExclusive("dataset", "file")

	headCmd.Flags().IntVarP(&headRows, "rows", "n", 10,
		"Number of records to show")
	headCmd.Flags().IntVar(&headWidth, "width", 24,
		"Maximum display width of a cell")

	rootCmd.AddCommand(headCmd)
}

func runHead(cmd *cobra.Command, args []string) error {
	if headRows <= 0 {
		return fmt.Errorf("--rows must be > 0")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	in, err := resolveInput(cfg, headDataset, headFile)
	if err != nil {
		return err
	}
	in.Ingest.RecordLimit = headRows

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	res, err := runIngest(context.Background(), in, log.WithDataset(in.Name), true)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", in.Path, err)
	}

	t := res.Table()
	if t.NumRows() == 0 {
		fmt.Fprintln(outputWriter, "(no records)")
		return nil
	}

	err = t.Format(outputWriter, record.FormatOptions{
		MaxRows:  headRows,
		MaxWidth: headWidth,
		Header:   func(s string) string { return color.Cyan.Sprint(s) },
	})
	if err != nil {
		return err
	}
	rows, cols := t.Shape()
	fmt.Fprintf(outputWriter, "\n[%d rows x %d columns]\n", rows, cols)
	return nil
}
