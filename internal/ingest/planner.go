package ingest

import (
	"bytes"
	"errors"
	"io"
	"os"
)

// DefaultChunkSize is the target number of bytes per chunk.
const DefaultChunkSize int64 = 1 << 20

// scanBufSize is the read size used when searching for a line terminator.
const scanBufSize = 64 << 10

// ByteRange is a half-open, line-aligned span [Start, End) of the input.
type ByteRange struct {
	Start int64
	End   int64
}

// Len returns the number of bytes in the range.
func (r ByteRange) Len() int64 { return r.End - r.Start }

// ChunkPlanner lazily splits a file into contiguous line-aligned ranges.
// Every range ends just past a '\n' or at end of file, so no line is ever
// split between two ranges.
type ChunkPlanner struct {
	path      string
	file      *os.File
	size      int64
	chunkSize int64
	next      int64
	buf       []byte
}

// NewChunkPlanner opens path and prepares to plan chunks of roughly chunkSize
// bytes. A non-positive chunkSize selects DefaultChunkSize. Failure to open
// or stat the file is returned as a *FatalIOError before any range exists.
func NewChunkPlanner(path string, chunkSize int64) (*ChunkPlanner, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &FatalIOError{Path: path, Op: "open", Err: err}
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &FatalIOError{Path: path, Op: "stat", Err: err}
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, &FatalIOError{Path: path, Op: "open", Err: errors.New("is a directory")}
	}

	return &ChunkPlanner{
		path:      path,
		file:      f,
		size:      st.Size(),
		chunkSize: chunkSize,
	}, nil
}

// Size returns the size of the file in bytes at the time it was opened.
func (p *ChunkPlanner) Size() int64 { return p.size }

// Next returns the next range, or io.EOF once the whole file is covered.
// An empty file yields io.EOF immediately.
func (p *ChunkPlanner) Next() (ByteRange, error) {
	if p.next >= p.size {
		return ByteRange{}, io.EOF
	}

	start := p.next
	end := start + p.chunkSize
	if end >= p.size {
		end = p.size
	} else {
		var err error
		// Searching from end-1 lets a chunk that already ends on '\n' stay as is.
		end, err = p.lineEnd(end - 1)
		if err != nil {
			return ByteRange{}, &FatalIOError{Path: p.path, Op: "read", Err: err}
		}
	}

	p.next = end
	return ByteRange{Start: start, End: end}, nil
}

// lineEnd returns the offset just past the first '\n' at or after pos, or
// the file size when there is none.
func (p *ChunkPlanner) lineEnd(pos int64) (int64, error) {
	if p.buf == nil {
		p.buf = make([]byte, scanBufSize)
	}
	for pos < p.size {
		n, err := p.file.ReadAt(p.buf, pos)
		if i := bytes.IndexByte(p.buf[:n], '\n'); i >= 0 {
			return pos + int64(i) + 1, nil
		}
		pos += int64(n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	return p.size, nil
}

// Close releases the planner's file handle.
func (p *ChunkPlanner) Close() error {
	return p.file.Close()
}

// PlanChunks returns every range for path in file order.
func PlanChunks(path string, chunkSize int64) ([]ByteRange, error) {
	p, err := NewChunkPlanner(path, chunkSize)
	if err != nil {
		return nil, err
	}
	defer func() { _ = p.Close() }()

	var ranges []ByteRange
	for {
		rg, err := p.Next()
		if errors.Is(err, io.EOF) {
			return ranges, nil
		}
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, rg)
	}
}
