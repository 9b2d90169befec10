// Package ingest implements parallel, line-aligned ingestion of NDJSON files.
//
// A file is split by ChunkPlanner into contiguous byte ranges that always
// end on a line boundary. The Coordinator hands each range to a ChunkWorker
// on a fixed pool of goroutines and concatenates the per-chunk records in
// chunk order, so the result is identical to a single SerialReader pass
// whatever the worker count or scheduling.
package ingest

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/goingest/internal/config"
	"github.com/dbsmedya/goingest/internal/logger"
)

// ChunkErrorPolicy decides what happens when a chunk cannot be read.
type ChunkErrorPolicy string

const (
	// PolicySkip drops the unreadable chunk, records it in the result and
	// keeps going.
	PolicySkip ChunkErrorPolicy = "skip"
	// PolicyFail aborts the ingestion on the first unreadable chunk.
	PolicyFail ChunkErrorPolicy = "fail"
)

// ParseChunkErrorPolicy converts a configuration value to a policy.
// The empty string selects PolicySkip.
func ParseChunkErrorPolicy(s string) (ChunkErrorPolicy, error) {
	switch ChunkErrorPolicy(s) {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyFail:
		return PolicyFail, nil
	default:
		return "", fmt.Errorf("unknown chunk error policy %q (want skip or fail)", s)
	}
}

// Options configures a Coordinator or SerialReader.
type Options struct {
	ChunkSize    int64
	Workers      int
	Encoding     string
	OnChunkError ChunkErrorPolicy
	Logger       *logger.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithChunkSize sets the target chunk size in bytes.
func WithChunkSize(n int64) Option { return func(o *Options) { o.ChunkSize = n } }

// WithWorkers sets the worker count. Zero or negative selects DefaultWorkers.
func WithWorkers(n int) Option { return func(o *Options) { o.Workers = n } }

// WithEncoding sets the input encoding.
func WithEncoding(name string) Option { return func(o *Options) { o.Encoding = name } }

// WithChunkErrorPolicy sets the chunk failure policy.
func WithChunkErrorPolicy(p ChunkErrorPolicy) Option {
	return func(o *Options) { o.OnChunkError = p }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *logger.Logger) Option { return func(o *Options) { o.Logger = l } }

// DefaultWorkers returns one less than the number of CPUs, minimum 1.
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		ChunkSize:    DefaultChunkSize,
		Workers:      DefaultWorkers(),
		Encoding:     DefaultEncoding,
		OnChunkError: PolicySkip,
	}
}

// OptionsFromConfig translates an ingest configuration section into options.
func OptionsFromConfig(cfg config.IngestConfig) ([]Option, error) {
	policy, err := ParseChunkErrorPolicy(cfg.OnChunkError)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithChunkSize(cfg.ChunkSize),
		WithWorkers(cfg.Workers),
		WithEncoding(cfg.Encoding),
		WithChunkErrorPolicy(policy),
	}, nil
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers()
	}
	if o.OnChunkError == "" {
		o.OnChunkError = PolicySkip
	}
	o.Logger = logger.OrNop(o.Logger)
	return o
}

// Coordinator runs ChunkWorkers over a bounded goroutine pool.
type Coordinator struct {
	opts   Options
	parser *LineParser
	log    *logger.Logger
}

// NewCoordinator validates opts and returns a Coordinator.
func NewCoordinator(opts ...Option) (*Coordinator, error) {
	o := buildOptions(opts)
	if _, err := ParseChunkErrorPolicy(string(o.OnChunkError)); err != nil {
		return nil, err
	}
	parser, err := NewLineParser(o.Encoding)
	if err != nil {
		return nil, err
	}
	return &Coordinator{opts: o, parser: parser, log: o.Logger}, nil
}

// Options returns the effective options.
func (c *Coordinator) Options() Options { return c.opts }

// Ingest parses path in parallel and returns its records in file order.
//
// A file that cannot be opened returns a *FatalIOError. Under PolicyFail the
// first unreadable chunk is returned as a *ChunkIOError; under PolicySkip it
// is recorded in the result instead. Cancelling ctx returns an error and
// never a partial result.
func (c *Coordinator) Ingest(ctx context.Context, path string) (*IngestResult, error) {
	started := time.Now()
	log := c.log.WithFile(path)

	ranges, err := PlanChunks(path, c.opts.ChunkSize)
	if err != nil {
		return nil, err
	}

	workers := c.opts.Workers
	if workers > len(ranges) {
		workers = len(ranges)
	}
	log.Infow("planned chunks", "chunks", len(ranges), "workers", workers, "chunk_size", c.opts.ChunkSize)

	results := make([]ChunkResult, len(ranges))
	if err := c.run(ctx, path, ranges, workers, results); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}

	res := mergeChunks(results)
	res.Stats.Workers = workers
	res.Stats.Duration = time.Since(started)

	for _, ce := range res.ChunkErrors {
		log.Errorw("chunk dropped", "chunk", ce.Index, "start", ce.Range.Start, "end", ce.Range.End, "error", ce.Err)
	}
	log.Infow("ingest complete",
		"records", res.Stats.Records,
		"columns", res.Schema.Len(),
		"skipped_lines", res.Stats.SkippedLines,
		"failed_chunks", res.Stats.FailedChunks,
		"duration", res.Stats.Duration,
	)
	return res, nil
}

// run feeds chunk indexes to a fixed set of goroutines. Each result is
// written to its own slot, so no locking is needed and order is preserved.
func (c *Coordinator) run(ctx context.Context, path string, ranges []ByteRange, workers int, results []ChunkResult) error {
	if len(ranges) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	worker := NewChunkWorker(path, c.parser, c.log)
	var done atomic.Int64

	g.Go(func() error {
		defer close(jobs)
		for i := range ranges {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &FatalIOError{Path: path, Op: "ingest worker", Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			for i := range jobs {
				cr := worker.Process(gctx, i, ranges[i])
				results[i] = cr
				if cr.Err != nil && (!cr.Failed || c.opts.OnChunkError == PolicyFail) {
					return cr.Err
				}
				c.log.Debugw("chunk done", "chunk", i, "completed", done.Add(1), "total", len(ranges))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ingest %s: %w", path, ctxErr)
		}
		return err
	}
	return nil
}

// IngestParallel is a convenience wrapper around NewCoordinator and Ingest.
func IngestParallel(ctx context.Context, path, encoding string, workers int, opts ...Option) (*IngestResult, error) {
	all := append([]Option{WithEncoding(encoding), WithWorkers(workers)}, opts...)
	c, err := NewCoordinator(all...)
	if err != nil {
		return nil, err
	}
	return c.Ingest(ctx, path)
}
