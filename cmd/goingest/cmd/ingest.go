package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goingest/internal/ingest"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
	"github.com/dbsmedya/goingest/internal/verifier"
)

var (
	ingestDataset string
	ingestFile    string
	ingestSerial  bool
	ingestLimit   int
	ingestVerify  bool
	ingestOut     string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest an NDJSON file and report what was loaded",
	Long: `Ingest splits the input into line-aligned chunks, parses them in
parallel and merges the records in file order.

The report shows:
  - Loss report (lines, records, skipped lines, failed chunks)
  - Result shape and an order-sensitive digest
  - Per-column statistics (present, null, absent, kinds)

With --verify the file is read a second time by the serial reader and the
two results are compared using verification.method. With --serial or
--limit only the serial reader runs.

Example:
  goingest ingest --config goingest.yaml --dataset business --verify
  goingest ingest --file reviews.json --workers 8 --out reviews.ndjson`,
	RunE: runIngestCmd,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestDataset, "dataset", "d", "",
		"Dataset name from configuration file")
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "",
		"Path to an NDJSON file")
	ingestCmd.MarkFlagsMutuallyExclusive("dataset", "file")

	ingestCmd.Flags().BoolVar(&ingestSerial, "serial", false,
		"Read the file serially on one goroutine")
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 0,
		"Stop after this many records (implies --serial)")
	ingestCmd.Flags().BoolVar(&ingestVerify, "verify", false,
		"Cross-check the parallel result against the serial reader")
	ingestCmd.Flags().StringVarP(&ingestOut, "out", "o", "",
		"Write the merged records as canonical NDJSON to this file")

	rootCmd.AddCommand(ingestCmd)
}

func runIngestCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	in, err := resolveInput(cfg, ingestDataset, ingestFile)
	if err != nil {
		return err
	}
	if ingestLimit < 0 {
		return fmt.Errorf("--limit must be >= 0")
	}
	if ingestLimit > 0 {
		in.Ingest.RecordLimit = ingestLimit
	}
	serial := ingestSerial || in.Ingest.RecordLimit > 0
	if ingestVerify && serial {
		return fmt.Errorf("--verify compares the parallel result with the serial reader and cannot be combined with --serial or --limit")
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log = log.WithDataset(in.Name)

	ctx, stop := setupSignalHandler(context.Background(), func(sig os.Signal) {
		log.Warnw("Received shutdown signal, stopping ingest", "signal", sig.String())
	})
	defer stop()

	res, err := runIngest(ctx, in, log, serial)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	mode := "parallel"
	if serial {
		mode = "serial"
	}
	printHeader("Ingest: %s", in.Name)
	printIngestReport(in.Path, mode, res)

	if ingestVerify {
		v, err := verifier.NewVerifier(verifier.VerificationMethod(cfg.Verification.Method), log)
		if err != nil {
			return err
		}
		if v.GetMethod() != verifier.MethodSkip {
			oracle := *in
			oracle.Ingest.RecordLimit = 0
			serialRes, err := runIngest(ctx, &oracle, log, true)
			if err != nil {
				return fmt.Errorf("serial verification read failed: %w", err)
			}
			vr, verr := v.Compare(res, serialRes)
			printVerifyResult(vr)
			if verr != nil {
				return verr
			}
		}
	}

	if ingestOut != "" {
		if err := writeNDJSONFile(ingestOut, res.Records); err != nil {
			return err
		}
		fmt.Fprintf(outputWriter, "\nWrote %d records to %s\n", res.Len(), ingestOut)
	}

	return nil
}

func writeNDJSONFile(path string, recs []*record.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeNDJSON(f, recs); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func printIngestReport(path, mode string, res *ingest.IngestResult) {
	s := res.Stats
	t := res.Table()
	rows, cols := t.Shape()

	printSection("Loss Report")
	printField("File", "%s", path)
	printField("Mode", "%s", mode)
	printField("Chunks", "%d", s.Chunks)
	printField("Workers", "%d", s.Workers)
	printField("Bytes", "%d", s.Bytes)
	printField("Lines", "%d", s.Lines)
	printField("Records", "%d", s.Records)
	printField("Skipped lines", "%d", s.SkippedLines)
	printField("Failed chunks", "%d (%d bytes)", s.FailedChunks, s.FailedBytes)
	printField("Duration", "%s", s.Duration)
	printField("Lossless", "%s", statusMark(res.Lossless()))
	for _, ce := range res.ChunkErrors {
		fmt.Fprintf(outputWriter, "    - %v\n", ce)
	}
	fmt.Fprintln(outputWriter)

	printSection("Shape")
	printField("Rows", "%d", rows)
	printField("Columns", "%d", cols)
	printField("Digest", "%016x", res.Digest())
	fmt.Fprintln(outputWriter)

	if cols == 0 {
		return
	}
	printSection("Columns")
	for _, col := range t.Columns() {
		cs := t.Stats(col)
		fmt.Fprintf(outputWriter, "  %-24s present=%d null=%d absent=%d kinds=%s\n",
			col, cs.Present, cs.Nulls, cs.Absent, formatKinds(cs.Kinds))
	}
}

func formatKinds(kinds map[record.Kind]int) string {
	parts := make([]string, 0, len(kinds))
	for k, n := range kinds {
		parts = append(parts, fmt.Sprintf("%s:%d", k, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func printVerifyResult(vr *verifier.VerifyResult) {
	if vr == nil {
		return
	}
	fmt.Fprintln(outputWriter)
	printSection("Verification")
	printField("Method", "%s", vr.Method)
	printField("Records", "parallel=%d serial=%d", vr.ActualCount, vr.ExpectedCount)
	printField("Columns", "parallel=%d serial=%d", vr.ActualFields, vr.ExpectedFields)
	if vr.ExpectedDigest != 0 || vr.ActualDigest != 0 {
		printField("Digest", "parallel=%016x serial=%016x", vr.ActualDigest, vr.ExpectedDigest)
	}
	printField("Result", "%s", statusMark(vr.Match))
	if !vr.Match {
		printField("Reason", "%s", vr.ErrorMessage)
	}
}
