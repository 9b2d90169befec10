// Package loader writes ingestion results to a MySQL table.
//
// Every schema field becomes a nullable LONGTEXT column holding the field's
// canonical JSON encoding. Absent fields are stored as SQL NULL and JSON
// null as the text "null", so the two stay distinguishable. An extra _row
// column keeps the file order and serves as primary key.
package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dbsmedya/goingest/internal/config"
	"github.com/dbsmedya/goingest/internal/ingest"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
	"github.com/dbsmedya/goingest/internal/sqlutil"
	"github.com/dbsmedya/goingest/internal/verifier"
)

// maxPlaceholders is the MySQL limit on bound parameters per statement.
const maxPlaceholders = 65535

// DefaultBatchSize is used when the configuration does not set one.
const DefaultBatchSize = 500

// LoadStats contains statistics about a load.
type LoadStats struct {
	Table      string
	Columns    int
	RowsLoaded int64
	Batches    int
	Created    bool
	Truncated  bool
	Duration   time.Duration
}

// Loader inserts ingestion results into the destination database.
type Loader struct {
	db     *sql.DB
	cfg    config.LoadConfig
	logger *logger.Logger
}

// NewLoader creates a loader for db.
func NewLoader(db *sql.DB, cfg config.LoadConfig, log *logger.Logger) (*Loader, error) {
	if db == nil {
		return nil, fmt.Errorf("destination database is nil")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Loader{db: db, cfg: cfg, logger: logger.OrNop(log)}, nil
}

// Load writes res into table, one row per record in file order.
func (l *Loader) Load(ctx context.Context, table string, res *ingest.IngestResult) (*LoadStats, error) {
	startTime := time.Now()
	log := l.logger.WithTable(table)

	quoted, err := sqlutil.QuoteIdentifierSafe(table)
	if err != nil {
		return nil, err
	}
	columns := res.Schema.Fields()
	for _, col := range columns {
		if col == verifier.RowColumn {
			return nil, fmt.Errorf("field %q collides with the row ordinal column", col)
		}
		if err := sqlutil.ValidateColumnName(col); err != nil {
			return nil, fmt.Errorf("field cannot be loaded: %w", err)
		}
	}

	stats := &LoadStats{Table: table, Columns: len(columns)}

	if l.cfg.CreateTable {
		if _, err := l.db.ExecContext(ctx, buildCreateTableQuery(quoted, columns)); err != nil {
			return nil, fmt.Errorf("failed to create table %s: %w", table, err)
		}
		stats.Created = true
	}

	if l.cfg.Truncate {
		if _, err := l.db.ExecContext(ctx, "TRUNCATE TABLE "+quoted); err != nil {
			return nil, fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
		stats.Truncated = true
	}

	batchSize := l.batchRows(len(columns))
	log.Infof("Loading %d records into %q (%d columns, batch size %d)", res.Len(), table, len(columns), batchSize)

	for start := 0; start < res.Len(); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load interrupted: %w", err)
		}

		end := start + batchSize
		if end > res.Len() {
			end = res.Len()
		}
		n, err := l.insertBatch(ctx, quoted, columns, start, res.Records[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to load rows %d-%d: %w", start, end-1, err)
		}
		stats.RowsLoaded += n
		stats.Batches++
		log.Debugf("Loaded batch %d (%d rows, %d total)", stats.Batches, n, stats.RowsLoaded)
	}

	stats.Duration = time.Since(startTime)
	log.Infof("Load complete: %d rows in %d batches, duration: %s", stats.RowsLoaded, stats.Batches, stats.Duration)
	return stats, nil
}

// batchRows caps the configured batch size so one INSERT stays within the
// placeholder limit.
func (l *Loader) batchRows(columns int) int {
	limit := maxPlaceholders / (columns + 1)
	if l.cfg.BatchSize < limit {
		return l.cfg.BatchSize
	}
	return limit
}

// insertBatch inserts recs in one transaction. first is the _row ordinal of
// recs[0].
func (l *Loader) insertBatch(ctx context.Context, quotedTable string, columns []string, first int, recs []*record.Record) (int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			l.logger.Warn("Rolling back load transaction due to error")
			if rbErr := tx.Rollback(); rbErr != nil {
				l.logger.Errorf("Failed to rollback transaction: %v", rbErr)
			}
		}
	}()

	args := make([]interface{}, 0, len(recs)*(len(columns)+1))
	var buf []byte
	for i, rec := range recs {
		args = append(args, int64(first+i))
		for _, col := range columns {
			v := rec.Field(col)
			if v.IsAbsent() {
				args = append(args, nil)
				continue
			}
			buf = v.AppendCanonical(buf[:0])
			args = append(args, string(buf))
		}
	}

	result, err := tx.ExecContext(ctx, buildInsertQuery(quotedTable, columns, len(recs)), args...)
	if err != nil {
		return 0, fmt.Errorf("insert failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	affected, err := result.RowsAffected()
	if err != nil {
		return int64(len(recs)), nil
	}
	return affected, nil
}

func buildCreateTableQuery(quotedTable string, columns []string) string {
	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, sqlutil.QuoteIdentifier(verifier.RowColumn)+" BIGINT NOT NULL PRIMARY KEY")
	for _, col := range columns {
		defs = append(defs, sqlutil.QuoteIdentifier(col)+" LONGTEXT NULL")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		quotedTable, strings.Join(defs, ", "))
}

func buildInsertQuery(quotedTable string, columns []string, rows int) string {
	quotedCols := make([]string, 0, len(columns)+1)
	quotedCols = append(quotedCols, sqlutil.QuoteIdentifier(verifier.RowColumn))
	for _, col := range columns {
		quotedCols = append(quotedCols, sqlutil.QuoteIdentifier(col))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quotedTable, strings.Join(quotedCols, ", "), sqlutil.RowPlaceholders(rows, len(quotedCols)))
}
