package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
)

// SerialReader reads a file line by line on the calling goroutine with the
// same LineParser the Coordinator uses. Its output for a whole file is the
// reference the parallel path must reproduce.
type SerialReader struct {
	parser *LineParser
	log    *logger.Logger
}

// NewSerialReader returns a SerialReader. Only the encoding and logger
// options apply.
func NewSerialReader(opts ...Option) (*SerialReader, error) {
	o := buildOptions(opts)
	parser, err := NewLineParser(o.Encoding)
	if err != nil {
		return nil, err
	}
	return &SerialReader{parser: parser, log: o.Logger}, nil
}

// Read parses path from the start. A positive limit stops the read after
// exactly limit records; zero reads the whole file. Any I/O failure aborts
// the read with a *FatalIOError.
func (s *SerialReader) Read(ctx context.Context, path string, limit int) (*IngestResult, error) {
	started := time.Now()
	log := s.log.WithFile(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, &FatalIOError{Path: path, Op: "open", Err: err}
	}
	defer func() { _ = f.Close() }()

	res := &IngestResult{Schema: record.NewSchema()}
	r := bufio.NewReaderSize(f, readBufSize)
	var pos int64

	for limit <= 0 || len(res.Records) < limit {
		line, readErr := r.ReadBytes('\n')
		if len(line) > 0 {
			res.Stats.Lines++
			if res.Stats.Lines%cancelCheckLines == 0 {
				if err := ctx.Err(); err != nil {
					return nil, fmt.Errorf("ingest %s: %w", path, err)
				}
			}

			rec, err := s.parser.Parse(line)
			switch {
			case err == nil:
				res.Records = append(res.Records, rec)
				res.Schema.Add(rec)
			default:
				res.Stats.SkippedLines++
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
			return nil, &FatalIOError{Path: path, Op: "read", Err: readErr}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}

	if pos > 0 {
		res.Stats.Chunks = 1
	}
	res.Stats.Workers = 1
	res.Stats.Bytes = pos
	res.Stats.Records = len(res.Records)
	res.Stats.Duration = time.Since(started)

	log.Infow("serial read complete",
		"records", res.Stats.Records,
		"columns", res.Schema.Len(),
		"skipped_lines", res.Stats.SkippedLines,
		"limit", limit,
		"duration", res.Stats.Duration,
	)
	return res, nil
}

// IngestSerial is a convenience wrapper around NewSerialReader and Read.
func IngestSerial(ctx context.Context, path, encoding string, limit int, opts ...Option) (*IngestResult, error) {
	s, err := NewSerialReader(append([]Option{WithEncoding(encoding)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return s.Read(ctx, path, limit)
}
