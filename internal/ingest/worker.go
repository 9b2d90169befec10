package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
)

const (
	readBufSize = 256 << 10
	// cancelCheckLines is how many lines a worker parses between context checks.
	cancelCheckLines = 1024
)

// ChunkWorker parses the lines of one byte range. Each call to Process opens
// its own file handle, so a single ChunkWorker may serve many goroutines.
type ChunkWorker struct {
	path   string
	parser *LineParser
	log    *logger.Logger
}

// NewChunkWorker creates a worker reading path with parser.
func NewChunkWorker(path string, parser *LineParser, log *logger.Logger) *ChunkWorker {
	return &ChunkWorker{
		path:   path,
		parser: parser,
		log:    logger.OrNop(log),
	}
}

// Process reads every line in rg and returns the records in file order.
//
// Malformed lines are counted in Skipped and dropped. An open, seek or read
// failure yields a result with Failed set, no records and a *ChunkIOError
// in Err; Process never returns a partially read chunk. If ctx is cancelled
// the result carries ctx.Err() and no records.
func (w *ChunkWorker) Process(ctx context.Context, index int, rg ByteRange) ChunkResult {
	res := ChunkResult{Index: index, Range: rg}
	log := w.log.WithChunk(index, rg.Start, rg.End)

	fail := func(op string, err error) ChunkResult {
		cerr := &ChunkIOError{Index: index, Range: rg, Err: fmt.Errorf("%s: %w", op, err)}
		log.Errorw("chunk read failed", "error", cerr.Err)
		return ChunkResult{Index: index, Range: rg, Failed: true, Err: cerr}
	}

	if rg.Len() <= 0 {
		return res
	}

	f, err := os.Open(w.path)
	if err != nil {
		return fail("open", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(rg.Start, io.SeekStart); err != nil {
		return fail("seek", err)
	}

	r := bufio.NewReaderSize(io.LimitReader(f, rg.Len()), readBufSize)
	pos := rg.Start
	var recs []*record.Record
	schema := record.NewSchema()

	for {
		line, readErr := r.ReadBytes('\n')
		if len(line) > 0 {
			res.Lines++
			if res.Lines%cancelCheckLines == 0 {
				if err := ctx.Err(); err != nil {
					return ChunkResult{Index: index, Range: rg, Err: err}
				}
			}

			rec, err := w.parser.Parse(line)
			switch {
			case err == nil:
				recs = append(recs, rec)
				schema.Add(rec)
			default:
				res.Skipped++
				var de *DecodeError
				if errors.As(err, &de) {
					de.Offset = pos
					log.Warnw("skipping malformed line", "offset", pos, "error", de.Err, "line", de.Line)
				}
			}
			pos += int64(len(line))
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fail("read", readErr)
		}
	}

	if pos < rg.End {
		return fail("read", fmt.Errorf("short read at offset %d: %w", pos, io.ErrUnexpectedEOF))
	}

	if err := ctx.Err(); err != nil {
		return ChunkResult{Index: index, Range: rg, Err: err}
	}

	res.Records = recs
	if len(recs) > 0 {
		res.Schema = schema
	}
	log.Debugw("chunk parsed", "lines", res.Lines, "records", len(recs), "skipped", res.Skipped)
	return res
}
