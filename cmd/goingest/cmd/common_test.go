package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goingest/internal/config"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	withCleanFlags(t)
	cfgFile = filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultChunkSize, cfg.Ingest.ChunkSize)
	assert.Empty(t, cfg.Datasets)
}

func TestLoadConfig_AppliesOverrides(t *testing.T) {
	withCleanFlags(t)
	writeConfig(t, "")
	workers = 7
	encoding = "latin1"

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Ingest.Workers)
	assert.Equal(t, "latin1", cfg.Ingest.Encoding)
	assert.Equal(t, int64(20), cfg.Ingest.ChunkSize)
}

func TestLoadConfig_InvalidOverride(t *testing.T) {
	withCleanFlags(t)
	writeConfig(t, "")
	onChunkError = "retry"

	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "on_chunk_error")
}

func TestResolveInput(t *testing.T) {
	withCleanFlags(t)
	_, dataPath := writeConfig(t, "")
	cfg, err := loadConfig()
	require.NoError(t, err)

	in, err := resolveInput(cfg, "scenario", "")
	require.NoError(t, err)
	assert.Equal(t, "scenario", in.Name)
	assert.Equal(t, dataPath, in.Path)
	assert.Equal(t, "scenario_rows", in.Table)
	assert.Equal(t, int64(20), in.Ingest.ChunkSize)

	in, err = resolveInput(cfg, "", "/data/yelp_academic_dataset_tip.json")
	require.NoError(t, err)
	assert.Equal(t, "yelp_academic_dataset_tip", in.Name)
	assert.Equal(t, "yelp_academic_dataset_tip", in.Table)
	assert.Equal(t, cfg.Ingest, in.Ingest)

	_, err = resolveInput(cfg, "scenario", "x.json")
	assert.Error(t, err)
	_, err = resolveInput(cfg, "", "")
	assert.Error(t, err)
	_, err = resolveInput(cfg, "missing", "")
	assert.Error(t, err)
}

func TestResolveInput_CLIOverridesBeatDataset(t *testing.T) {
	withCleanFlags(t)
	writeConfig(t, "")
	cfg, err := loadConfig()
	require.NoError(t, err)
	cfg.Datasets["scenario"] = config.DatasetConfig{
		Path:   cfg.Datasets["scenario"].Path,
		Ingest: &config.IngestConfig{Workers: 3, Encoding: "latin1"},
	}
	workers = 5

	in, err := resolveInput(cfg, "scenario", "")
	require.NoError(t, err)
	assert.Equal(t, 5, in.Ingest.Workers)
	assert.Equal(t, "latin1", in.Ingest.Encoding)
	assert.Equal(t, "scenario", in.Table)
}

func TestRunIngest_SerialAndParallelAgree(t *testing.T) {
	withCleanFlags(t)
	writeConfig(t, "")
	cfg, err := loadConfig()
	require.NoError(t, err)
	in, err := resolveInput(cfg, "scenario", "")
	require.NoError(t, err)

	parallel, err := runIngest(context.Background(), in, logger.NewNop(), false)
	require.NoError(t, err)
	serial, err := runIngest(context.Background(), in, logger.NewNop(), true)
	require.NoError(t, err)

	assert.Equal(t, 2, parallel.Stats.Chunks)
	assert.Equal(t, 1, serial.Stats.Workers)
	assert.Equal(t, serial.Digest(), parallel.Digest())

	in.Ingest.RecordLimit = 1
	limited, err := runIngest(context.Background(), in, logger.NewNop(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, limited.Len(), "a record limit always selects the serial reader")
}

func TestWriteNDJSON(t *testing.T) {
	rec, err := record.Parse([]byte(`{"b":"x","a":[1,{"d":null,"c":true}]}`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeNDJSON(&buf, []*record.Record{rec, record.FromPairs("a", 1)}))
	assert.Equal(t, "{\"a\":[1,{\"c\":true,\"d\":null}],\"b\":\"x\"}\n{\"a\":1}\n", buf.String())
}

func TestPrintHelpers(t *testing.T) {
	withCleanFlags(t)
	buf := captureOutput(t)

	printHeader("Ingest: %s", "business")
	printSection("Loss Report")
	printField("Records", "%d", 3)

	out := buf.String()
	assert.Contains(t, out, "====================\n  Ingest: business\n====================\n")
	assert.Contains(t, out, "[Loss Report]\n-------------\n")
	assert.Contains(t, out, "  Records:         3\n")
	assert.Equal(t, "PASS", statusMark(true))
	assert.Equal(t, "FAIL", statusMark(false))
}
