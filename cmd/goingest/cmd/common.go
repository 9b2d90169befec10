package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gookit/color"

	"github.com/dbsmedya/goingest/internal/config"
	"github.com/dbsmedya/goingest/internal/ingest"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

// loadConfig reads the config file, applies CLI overrides and validates the
// result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.Workers, overrides.ChunkSize,
		overrides.Encoding, overrides.OnChunkError)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// input is one file to ingest along with its effective settings.
type input struct {
	Name   string
	Path   string
	Table  string
	Ingest config.IngestConfig
}

// resolveInput picks the input named by --dataset or --file.
func resolveInput(cfg *config.Config, dataset, file string) (*input, error) {
	switch {
	case dataset != "" && file != "":
		return nil, fmt.Errorf("--dataset and --file are mutually exclusive")
	case dataset != "":
		ds, err := cfg.GetDataset(dataset)
		if err != nil {
			return nil, err
		}
		o := GetCLIOverrides()
		return &input{
			Name:   dataset,
			Path:   ds.Path,
			Table:  ds.TableName(dataset),
			Ingest: cfg.ApplyDatasetOverrides(dataset, o.Workers, o.ChunkSize, o.Encoding, o.OnChunkError),
		}, nil
	case file != "":
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		return &input{Name: name, Path: file, Table: name, Ingest: cfg.Ingest}, nil
	default:
		return nil, fmt.Errorf("either --dataset or --file is required")
	}
}

// runIngest ingests in with the serial reader when serial is set or a
// record limit applies, and with the parallel coordinator otherwise.
func runIngest(ctx context.Context, in *input, log *logger.Logger, serial bool) (*ingest.IngestResult, error) {
	opts, err := ingest.OptionsFromConfig(in.Ingest)
	if err != nil {
		return nil, err
	}
	opts = append(opts, ingest.WithLogger(log))

	if serial || in.Ingest.RecordLimit > 0 {
		r, err := ingest.NewSerialReader(opts...)
		if err != nil {
			return nil, err
		}
		return r.Read(ctx, in.Path, in.Ingest.RecordLimit)
	}

	c, err := ingest.NewCoordinator(opts...)
	if err != nil {
		return nil, err
	}
	return c.Ingest(ctx, in.Path)
}

// writeNDJSON writes one canonical JSON object per line.
func writeNDJSON(w io.Writer, recs []*record.Record) error {
	bw := bufio.NewWriter(w)
	var buf []byte
	for _, rec := range recs {
		buf = rec.AppendCanonical(buf[:0])
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// printHeader prints a formatted header
func printHeader(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := len(title) + 4
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
	fmt.Fprintf(outputWriter, "  %s\n", color.Bold.Sprint(title))
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
}

// printSection prints a section header
func printSection(title string) {
	fmt.Fprintf(outputWriter, "[%s]\n", color.Cyan.Sprint(title))
	fmt.Fprintln(outputWriter, strings.Repeat("-", len(title)+2))
}

// printField prints one "  Label: value" line with the labels aligned.
func printField(label string, format string, args ...interface{}) {
	fmt.Fprintf(outputWriter, "  %-16s %s\n", label+":", fmt.Sprintf(format, args...))
}

func statusMark(ok bool) string {
	if ok {
		return color.Green.Sprint("PASS")
	}
	return color.Red.Sprint("FAIL")
}
