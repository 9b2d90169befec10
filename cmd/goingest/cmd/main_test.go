package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gookit/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenario holds three records and one malformed line.
const scenario = "{\"a\":1}\n{\"a\":2,\"b\":\"x\"}\nnot-json\n{\"a\":3}\n"

// withCleanFlags restores every package-level flag when the test ends and
// disables colour for its duration.
func withCleanFlags(t *testing.T) {
	t.Helper()

	cf, ll, lfmt, w, cs, enc, oce, nc := cfgFile, logLevel, logFormat, workers, chunkSize, encoding, onChunkError, noColor
	id, ifl, is, il, iv, iout := ingestDataset, ingestFile, ingestSerial, ingestLimit, ingestVerify, ingestOut
	pd, pf := planDataset, planFile
	hd, hf, hr, hw := headDataset, headFile, headRows, headWidth
	ld, lf, lt, ls, lfo := loadDataset, loadFile, loadTable, loadSerial, loadForce
	vd := validateDestination
	savedColor := color.Enable
	color.Enable = false

	t.Cleanup(func() {
		cfgFile, logLevel, logFormat, workers, chunkSize, encoding, onChunkError, noColor = cf, ll, lfmt, w, cs, enc, oce, nc
		ingestDataset, ingestFile, ingestSerial, ingestLimit, ingestVerify, ingestOut = id, ifl, is, il, iv, iout
		planDataset, planFile = pd, pf
		headDataset, headFile, headRows, headWidth = hd, hf, hr, hw
		loadDataset, loadFile, loadTable, loadSerial, loadForce = ld, lf, lt, ls, lfo
		validateDestination = vd
		color.Enable = savedColor
	})
}

// captureOutput redirects command output into a buffer for one test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	setOutputWriter(&buf)
	t.Cleanup(resetOutputWriter)
	return &buf
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeConfig writes a config with one dataset "scenario" pointing at a
// file holding the scenario lines, and points --config at it.
func writeConfig(t *testing.T, extra string) (configPath, dataPath string) {
	t.Helper()
	dir := t.TempDir()
	dataPath = writeFile(t, dir, "scenario.json", scenario)
	configPath = writeFile(t, dir, "goingest.yaml", `ingest:
  chunk_size: 20
  workers: 2
datasets:
  scenario:
    path: `+dataPath+`
    table: scenario_rows
logging:
  level: error
`+extra)
	cfgFile = configPath
	return configPath, dataPath
}

func TestExecute(t *testing.T) {
	// Execute() calls os.Exit(1) on error, so only its presence is checked.
	assert.NotNil(t, Execute)
}

func TestVersionVariables(t *testing.T) {
	assert.NotEmpty(t, Version, "Version should not be empty")
	assert.NotEmpty(t, Commit, "Commit should not be empty")
}

func TestCLIFlagsVariables(t *testing.T) {
	assert.Equal(t, "goingest.yaml", cfgFile, "cfgFile should default to goingest.yaml")
	assert.Equal(t, "", logLevel)
	assert.Equal(t, "", logFormat)

	assert.Equal(t, 0, workers)
	assert.Equal(t, int64(0), chunkSize)
	assert.Equal(t, "", encoding)
	assert.Equal(t, "", onChunkError)
	assert.False(t, noColor)
}

func TestCommandVariables(t *testing.T) {
	assert.Equal(t, "", ingestDataset)
	assert.Equal(t, "", ingestFile)
	assert.False(t, ingestSerial)
	assert.Equal(t, 0, ingestLimit)
	assert.False(t, ingestVerify)
	assert.Equal(t, 10, headRows, "head shows 10 rows by default")
	assert.Equal(t, 24, headWidth)
}

func TestCLIOverrides(t *testing.T) {
	withCleanFlags(t)

	logLevel = "debug"
	workers = 4
	chunkSize = 4096
	encoding = "latin1"
	onChunkError = "fail"

	o := GetCLIOverrides()
	assert.Equal(t, "debug", o.LogLevel)
	assert.Equal(t, "", o.LogFormat)
	assert.Equal(t, 4, o.Workers)
	assert.Equal(t, int64(4096), o.ChunkSize)
	assert.Equal(t, "latin1", o.Encoding)
	assert.Equal(t, "fail", o.OnChunkError)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ingest", "plan", "head", "load", "list-datasets", "validate", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
