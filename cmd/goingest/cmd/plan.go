package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goingest/internal/ingest"
)

var (
	planDataset string
	planFile    string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the chunk plan for an input",
	Long: `Plan splits the input into line-aligned byte ranges exactly as ingest
would and prints them without parsing anything.

The plan shows:
  - Every chunk with its start, end and size in bytes
  - The number of workers ingest would start

Example:
  goingest plan --config goingest.yaml --dataset business --chunk-size 4194304`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planDataset, "dataset", "d", "",
		"Dataset name from configuration file")
	planCmd.Flags().StringVarP(&planFile, "file", "f", "",
		"Path to an NDJSON file")
	planCmd.MarkFlagsMutuallyExclusive("dataset", "file")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	in, err := resolveInput(cfg, planDataset, planFile)
	if err != nil {
		return err
	}

	chunk := in.Ingest.ChunkSize
	if chunk <= 0 {
		chunk = ingest.DefaultChunkSize
	}
	ranges, err := ingest.PlanChunks(in.Path, chunk)
	if err != nil {
		return fmt.Errorf("failed to plan chunks: %w", err)
	}

	w := in.Ingest.Workers
	if w <= 0 {
		w = ingest.DefaultWorkers()
	}
	if w > len(ranges) {
		w = len(ranges)
	}

	var total int64
	for _, r := range ranges {
		total += r.Len()
	}

	printHeader("Chunk Plan: %s", in.Name)
	printSection("Summary")
	printField("File", "%s", in.Path)
	printField("Size", "%d bytes", total)
	printField("Chunk size", "%d bytes", chunk)
	printField("Chunks", "%d", len(ranges))
	printField("Workers", "%d", w)
	fmt.Fprintln(outputWriter)

	if len(ranges) == 0 {
		fmt.Fprintln(outputWriter, "  (empty file, nothing to ingest)")
		return nil
	}

	printSection("Chunks")
	fmt.Fprintf(outputWriter, "  %6s  %14s  %14s  %12s\n", "INDEX", "START", "END", "BYTES")
	for i, r := range ranges {
		fmt.Fprintf(outputWriter, "  %6d  %14d  %14d  %12d\n", i, r.Start, r.End, r.Len())
	}
	return nil
}
