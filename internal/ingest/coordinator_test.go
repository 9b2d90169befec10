package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goingest/internal/config"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
)

const scenario = "{\"a\":1}\n{\"a\":2,\"b\":\"x\"}\nnot-json\n{\"a\":3}\n"

// mixedContent builds n lines with assorted shapes, some malformed and some
// blank. It returns the content and the number of well-formed records.
func mixedContent(n int) (string, int) {
	var sb strings.Builder
	good := 0
	for i := 0; i < n; i++ {
		switch {
		case i%37 == 5:
			sb.WriteString("{\"broken\": \n")
		case i%50 == 7:
			sb.WriteString("\n")
		case i%10 == 0:
			fmt.Fprintf(&sb, "{\"id\":%d,\"extra_%d\":null,\"tags\":[\"x\",%d]}\n", i, i, i)
			good++
		default:
			fmt.Fprintf(&sb, "{\"id\":%d,\"name\":\"n%d\",\"nested\":{\"even\":%t,\"v\":%d.5}}\n", i, i, i%2 == 0, i)
			good++
		}
	}
	return sb.String(), good
}

func requireSameRecords(t *testing.T, want, got []*record.Record) {
	t.Helper()
	require.Equal(t, len(want), len(got), "record count")
	for i := range want {
		require.True(t, want[i].Equal(got[i]), "record %d: want %s, got %s", i, want[i], got[i])
	}
}

func TestIngestParallel_Scenario(t *testing.T) {
	path := writeTemp(t, scenario)

	res, err := IngestParallel(context.Background(), path, "utf-8", 2, WithChunkSize(20))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stats.Chunks)
	assert.Equal(t, 2, res.Stats.Workers)
	require.Equal(t, 3, res.Len())
	for i, want := range []string{"1", "2", "3"} {
		assert.Equal(t, want, res.Records[i].Field("a").NumberText())
	}
	assert.Equal(t, "x", res.Records[1].Field("b").Str())
	assert.Equal(t, []string{"a", "b"}, res.Schema.Fields())
	assert.Equal(t, 1, res.Stats.SkippedLines)
	assert.Equal(t, 4, res.Stats.Lines)
	assert.Equal(t, int64(len(scenario)), res.Stats.Bytes)
	assert.False(t, res.Lossless())
	assert.NoError(t, res.Err())

	tbl := res.Table()
	assert.True(t, tbl.Get(0, "b").IsAbsent())
	assert.True(t, tbl.Get(2, "missing").IsAbsent())
}

func TestIngestParallel_WorkerCountIndependence(t *testing.T) {
	content, good := mixedContent(400)
	path := writeTemp(t, content)

	serial, err := IngestSerial(context.Background(), path, "utf-8", 0)
	require.NoError(t, err)
	require.Equal(t, good, serial.Len())

	for _, chunk := range []int64{1, 64, 1000, 1 << 20} {
		for _, workers := range []int{1, 2, 3, 8} {
			t.Run(fmt.Sprintf("chunk=%d/workers=%d", chunk, workers), func(t *testing.T) {
				res, err := IngestParallel(context.Background(), path, "utf-8", workers, WithChunkSize(chunk))
				require.NoError(t, err)
				requireSameRecords(t, serial.Records, res.Records)
				assert.Equal(t, serial.Schema.Fields(), res.Schema.Fields())
				assert.Equal(t, serial.Stats.SkippedLines, res.Stats.SkippedLines)
				assert.Equal(t, serial.Digest(), res.Digest())
				assert.LessOrEqual(t, res.Stats.Workers, res.Stats.Chunks)
			})
		}
	}
}

func TestIngestParallel_OneMalformedLine(t *testing.T) {
	const n = 50
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "{\"i\":%d}\n", i)
		if i == 17 {
			sb.WriteString("{oops}\n")
		}
	}
	path := writeTemp(t, sb.String())

	for _, chunk := range []int64{7, 32, 200, 1 << 20} {
		for _, workers := range []int{1, 4} {
			res, err := IngestParallel(context.Background(), path, "", workers, WithChunkSize(chunk))
			require.NoError(t, err)
			assert.Equal(t, n, res.Len(), "chunk=%d workers=%d", chunk, workers)
			assert.Equal(t, 1, res.Stats.SkippedLines, "chunk=%d workers=%d", chunk, workers)
			assert.Equal(t, "18", res.Records[18].Field("i").NumberText())
		}
	}
}

func TestIngestParallel_BlankLinesAreSkipped(t *testing.T) {
	content := "{\"a\":1}\n\n{\"a\":2}\n   \n"
	path := writeTemp(t, content)

	res, err := IngestParallel(context.Background(), path, "utf-8", 2, WithChunkSize(4))
	require.NoError(t, err)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, 4, res.Stats.Lines)
	assert.Equal(t, 2, res.Stats.SkippedLines)
	assert.False(t, res.Lossless())

	serial, err := IngestSerial(context.Background(), path, "utf-8", 0)
	require.NoError(t, err)
	assert.Equal(t, serial.Stats.SkippedLines, res.Stats.SkippedLines)
	requireSameRecords(t, serial.Records, res.Records)
}

func TestCoordinator_WorkerPanic(t *testing.T) {
	path := writeTemp(t, scenario)

	// A parser without a decoder dereferences nil on the first line.
	c := &Coordinator{
		opts:   buildOptions([]Option{WithChunkSize(20), WithWorkers(2)}),
		parser: &LineParser{},
		log:    logger.NewNop(),
	}

	res, err := c.Ingest(context.Background(), path)
	assert.Nil(t, res)
	require.Error(t, err)

	var fe *FatalIOError
	require.True(t, errors.As(err, &fe), "got %T: %v", err, err)
	assert.Equal(t, "ingest worker", fe.Op)
	assert.Equal(t, path, fe.Path)
	assert.Contains(t, fe.Err.Error(), "panic")
}

func TestIngestParallel_EmptyFile(t *testing.T) {
	res, err := IngestParallel(context.Background(), writeTemp(t, ""), "utf-8", 4)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
	assert.Equal(t, 0, res.Schema.Len())
	assert.Equal(t, 0, res.Stats.Chunks)
	assert.Equal(t, 0, res.Stats.Workers)
	assert.True(t, res.Lossless())
}

func TestIngestParallel_SmallerThanOneChunk(t *testing.T) {
	path := writeTemp(t, scenario)

	res, err := IngestParallel(context.Background(), path, "utf-8", 8)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Chunks)
	assert.Equal(t, 1, res.Stats.Workers, "workers never exceed chunks")

	serial, err := IngestSerial(context.Background(), path, "utf-8", 0)
	require.NoError(t, err)
	requireSameRecords(t, serial.Records, res.Records)
}

func TestIngestParallel_MissingFile(t *testing.T) {
	res, err := IngestParallel(context.Background(), "/nonexistent/input.json", "utf-8", 2)
	require.Error(t, err)
	assert.Nil(t, res)

	var fatal *FatalIOError
	assert.True(t, errors.As(err, &fatal))
}

func TestIngestParallel_Cancelled(t *testing.T) {
	content, _ := mixedContent(200)
	path := writeTemp(t, content)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := IngestParallel(ctx, path, "utf-8", 4, WithChunkSize(64))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res, "no partial result on cancellation")
}

func TestIngestParallel_Latin1MatchesSerial(t *testing.T) {
	content := "{\"city\":\"Montr\xe9al\"}\n{\"city\":\"Z\xfcrich\"}\n{\"city\":\"K\xf8benhavn\"}\n"
	path := writeTemp(t, content)

	par, err := IngestParallel(context.Background(), path, "latin1", 3, WithChunkSize(5))
	require.NoError(t, err)
	ser, err := IngestSerial(context.Background(), path, "latin1", 0)
	require.NoError(t, err)

	requireSameRecords(t, ser.Records, par.Records)
	assert.Equal(t, "Zürich", par.Records[1].Field("city").Str())
}

func TestMergeChunks_SchemaOrder(t *testing.T) {
	first := []*record.Record{record.FromPairs("b", 1), record.FromPairs("a", 2)}
	second := []*record.Record{record.FromPairs("c", 3, "a", 4)}
	results := []ChunkResult{
		{Index: 0, Range: ByteRange{0, 10}, Records: first, Schema: record.SchemaOf(first)},
		{Index: 1, Range: ByteRange{10, 12}, Lines: 1, Skipped: 1},
		{Index: 2, Range: ByteRange{12, 20}, Records: second, Schema: record.SchemaOf(second)},
	}

	res := mergeChunks(results)
	all := append(append([]*record.Record{}, first...), second...)
	assert.Equal(t, record.SchemaOf(all).Fields(), res.Schema.Fields())
	assert.Equal(t, []string{"b", "a", "c"}, res.Schema.Fields())
	assert.Equal(t, 2, res.Schema.Count("a"))
	assert.Equal(t, 3, res.Stats.Records)
	assert.Equal(t, 1, res.Stats.SkippedLines)
}

func TestCoordinator_ChunkErrorPolicy(t *testing.T) {
	content := "{\"a\":1}\n{\"a\":2}\n"
	path := writeTemp(t, content)
	size := int64(len(content))
	// The second range lies past the end of the file, as if it were truncated
	// after planning.
	ranges := []ByteRange{{0, size}, {size, size + 32}}

	t.Run("skip", func(t *testing.T) {
		c, err := NewCoordinator(WithChunkErrorPolicy(PolicySkip))
		require.NoError(t, err)

		results := make([]ChunkResult, len(ranges))
		require.NoError(t, c.run(context.Background(), path, ranges, 2, results))

		res := mergeChunks(results)
		assert.Equal(t, 2, res.Len())
		assert.Equal(t, 1, res.Stats.FailedChunks)
		assert.Equal(t, int64(32), res.Stats.FailedBytes)
		require.Len(t, res.ChunkErrors, 1)
		assert.Equal(t, 1, res.ChunkErrors[0].Index)
		assert.False(t, res.Lossless())

		var cerr *ChunkIOError
		assert.ErrorAs(t, res.Err(), &cerr)
	})

	t.Run("fail", func(t *testing.T) {
		c, err := NewCoordinator(WithChunkErrorPolicy(PolicyFail))
		require.NoError(t, err)

		results := make([]ChunkResult, len(ranges))
		err = c.run(context.Background(), path, ranges, 2, results)

		var cerr *ChunkIOError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, 1, cerr.Index)
	})
}

func TestNewCoordinator_Options(t *testing.T) {
	c, err := NewCoordinator()
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, c.Options().ChunkSize)
	assert.Equal(t, DefaultWorkers(), c.Options().Workers)
	assert.Equal(t, PolicySkip, c.Options().OnChunkError)
	assert.GreaterOrEqual(t, DefaultWorkers(), 1)

	_, err = NewCoordinator(WithEncoding("utf-16le"))
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)

	_, err = NewCoordinator(WithChunkErrorPolicy("retry"))
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := OptionsFromConfig(config.IngestConfig{
		ChunkSize:    4096,
		Workers:      3,
		Encoding:     "latin1",
		OnChunkError: "fail",
	})
	require.NoError(t, err)

	c, err := NewCoordinator(opts...)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), c.Options().ChunkSize)
	assert.Equal(t, 3, c.Options().Workers)
	assert.Equal(t, "latin1", c.Options().Encoding)
	assert.Equal(t, PolicyFail, c.Options().OnChunkError)

	_, err = OptionsFromConfig(config.IngestConfig{OnChunkError: "maybe"})
	assert.Error(t, err)
}

func TestParseChunkErrorPolicy(t *testing.T) {
	for in, want := range map[string]ChunkErrorPolicy{"": PolicySkip, "skip": PolicySkip, "fail": PolicyFail} {
		got, err := ParseChunkErrorPolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
