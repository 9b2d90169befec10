package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goingest/internal/config"
)

var listDatasetsCmd = &cobra.Command{
	Use:   "list-datasets",
	Short: "List all datasets defined in configuration",
	Long: `List-datasets displays all named inputs defined in the configuration
file along with their effective ingest settings.

Example:
  goingest list-datasets --config goingest.yaml`,
	RunE: runListDatasets,
}

func init() {
	rootCmd.AddCommand(listDatasetsCmd)
}

func runListDatasets(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	names := cfg.ListDatasets()
	if len(names) == 0 {
		cmd.Printf("No datasets defined in %s\n", configFile)
		return nil
	}

	cmd.Printf("Datasets defined in %s:\n\n", configFile)

	for i, name := range names {
		ds, err := cfg.GetDataset(name)
		if err != nil {
			return fmt.Errorf("failed to get dataset %q: %w", name, err)
		}
		ic := ds.GetIngest(cfg.Ingest)

		cmd.Printf("%d. %s\n", i+1, name)
		cmd.Printf("   Path:          %s\n", ds.Path)
		cmd.Printf("   Table:         %s\n", ds.TableName(name))
		cmd.Printf("   Encoding:      %s\n", ic.Encoding)
		if ds.Ingest != nil {
			cmd.Printf("   Ingest:        Custom (chunk_size=%d, workers=%d, on_chunk_error=%s)\n",
				ic.ChunkSize, ic.Workers, ic.OnChunkError)
		}

		if i < len(names)-1 {
			cmd.Println()
		}
	}

	cmd.Printf("\nTotal: %d dataset(s)\n", len(names))
	return nil
}
