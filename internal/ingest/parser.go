package ingest

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"github.com/dbsmedya/goingest/internal/record"
)

var errInvalidUTF8 = errors.New("invalid UTF-8")

// LineParser decodes single NDJSON lines into records. It is stateless after
// construction and safe for concurrent use.
type LineParser struct {
	dec *textDecoder
}

// NewLineParser returns a parser for lines in the named encoding.
// An empty name means UTF-8.
func NewLineParser(encoding string) (*LineParser, error) {
	dec, err := newTextDecoder(encoding)
	if err != nil {
		return nil, err
	}
	return &LineParser{dec: dec}, nil
}

// Encoding returns the canonical name of the parser's input encoding.
func (p *LineParser) Encoding() string { return p.dec.Name() }

// Parse decodes one line. A trailing "\n" or "\r\n" is ignored. Anything
// that is not a single JSON object, blank lines included, returns a
// *DecodeError.
func (p *LineParser) Parse(line []byte) (*record.Record, error) {
	line = trimEOL(line)
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, newDecodeError(line, ErrBlankLine)
	}

	text, err := p.dec.Decode(line)
	if err != nil {
		return nil, newDecodeError(line, err)
	}
	if !utf8.Valid(text) {
		return nil, newDecodeError(line, errInvalidUTF8)
	}

	rec, err := record.Parse(text)
	if err != nil {
		return nil, newDecodeError(line, err)
	}
	return rec, nil
}

func trimEOL(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
	}
	return line
}
