package ingest

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrBlankLine is wrapped in the *DecodeError LineParser returns for
	// empty or whitespace-only lines.
	ErrBlankLine = errors.New("blank line")

	// ErrUnsupportedEncoding is returned for encodings that are unknown or
	// not ASCII-compatible. Line splitting happens on raw '\n' bytes, which
	// is only sound when the encoding leaves ASCII untouched.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
)

// maxLineExcerpt bounds the copy of a malformed line kept in DecodeError.
const maxLineExcerpt = 256

// DecodeError reports a single line that could not be decoded into a record.
// It is recovered by the worker and never aborts a chunk.
type DecodeError struct {
	Offset int64  // byte offset of the line in the file, -1 when unknown
	Line   string // the offending line, truncated to maxLineExcerpt bytes
	Err    error
}

func newDecodeError(line []byte, err error) *DecodeError {
	return &DecodeError{Offset: -1, Line: excerpt(line), Err: err}
}

func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("decode line at offset %d: %v: %q", e.Offset, e.Err, e.Line)
	}
	return fmt.Sprintf("decode line: %v: %q", e.Err, e.Line)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ChunkIOError reports a chunk whose byte range could not be read.
type ChunkIOError struct {
	Index int
	Range ByteRange
	Err   error
}

func (e *ChunkIOError) Error() string {
	return fmt.Sprintf("chunk %d [%d, %d): %v", e.Index, e.Range.Start, e.Range.End, e.Err)
}

func (e *ChunkIOError) Unwrap() error { return e.Err }

// FatalIOError reports a failure that aborts the whole ingestion: the input
// cannot be opened or inspected, or the worker pool cannot run.
type FatalIOError struct {
	Path string
	Op   string
	Err  error
}

func (e *FatalIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FatalIOError) Unwrap() error { return e.Err }

func excerpt(line []byte) string {
	if len(line) <= maxLineExcerpt {
		return string(line)
	}
	cut := maxLineExcerpt
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return string(line[:cut]) + "..."
}
