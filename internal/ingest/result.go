package ingest

import (
	"time"

	"go.uber.org/multierr"

	"github.com/dbsmedya/goingest/internal/record"
)

// ChunkResult is the outcome of parsing one ByteRange. It is not modified
// after the worker returns it.
type ChunkResult struct {
	Index   int
	Range   ByteRange
	Records []*record.Record
	Schema  *record.Schema // fields of Records; nil when Records is empty
	Skipped int            // malformed or blank lines dropped
	Lines   int            // lines read, including blank and malformed ones
	Failed  bool           // the range could not be read; Records is empty
	Err     error          // *ChunkIOError when Failed, ctx.Err() when cancelled
}

// Stats is the loss report of one ingestion.
type Stats struct {
	Chunks       int
	Workers      int
	Lines        int
	Records      int
	SkippedLines int
	FailedChunks int
	FailedBytes  int64
	Bytes        int64
	Duration     time.Duration
}

// IngestResult holds the records of one ingestion in file order together
// with the union of their field names.
type IngestResult struct {
	Records     []*record.Record
	Schema      *record.Schema
	Stats       Stats
	ChunkErrors []*ChunkIOError
}

// Len returns the number of records.
func (r *IngestResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}

// Table returns a tabular view with one column per schema field.
func (r *IngestResult) Table() *record.Table {
	return record.NewTable(r.Records, r.Schema)
}

// Digest returns the order-sensitive digest of the records.
func (r *IngestResult) Digest() uint64 {
	return record.Digest(r.Records)
}

// Lossless reports whether every line of the input became a record.
func (r *IngestResult) Lossless() bool {
	return r.Stats.SkippedLines == 0 && r.Stats.FailedChunks == 0
}

// Err combines the errors of all failed chunks, or returns nil.
func (r *IngestResult) Err() error {
	errs := make([]error, 0, len(r.ChunkErrors))
	for _, ce := range r.ChunkErrors {
		errs = append(errs, ce)
	}
	return multierr.Combine(errs...)
}

// mergeChunks concatenates chunk results in index order. results[i] must
// hold the result for chunk i. Folding the chunk schemas in the same order
// keeps the first-seen field order of a serial read.
func mergeChunks(results []ChunkResult) *IngestResult {
	total := 0
	for i := range results {
		total += len(results[i].Records)
	}

	out := &IngestResult{
		Records: make([]*record.Record, 0, total),
		Schema:  record.NewSchema(),
	}
	for i := range results {
		cr := &results[i]
		out.Stats.Chunks++
		out.Stats.Bytes += cr.Range.Len()
		out.Stats.Lines += cr.Lines
		out.Stats.SkippedLines += cr.Skipped
		if cr.Failed {
			out.Stats.FailedChunks++
			out.Stats.FailedBytes += cr.Range.Len()
			if ce, ok := cr.Err.(*ChunkIOError); ok {
				out.ChunkErrors = append(out.ChunkErrors, ce)
			}
			continue
		}
		out.Schema.Merge(cr.Schema)
		out.Records = append(out.Records, cr.Records...)
	}
	out.Stats.Records = len(out.Records)
	return out
}
