// Package verifier checks ingestion results for consistency: a parallel
// result against the serial reader, and a loaded table against the result it
// was loaded from.
package verifier

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/dbsmedya/goingest/internal/ingest"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
	"github.com/dbsmedya/goingest/internal/sqlutil"
)

// VerificationMethod defines how thoroughly results are compared.
type VerificationMethod string

const (
	// MethodCount compares record and column counts (fast)
	MethodCount VerificationMethod = "count"
	// MethodDigest compares order-sensitive xxh3 digests of all records
	MethodDigest VerificationMethod = "digest"
	// MethodFull compares records one by one and reports the first mismatch
	MethodFull VerificationMethod = "full"
	// MethodSkip skips verification entirely
	MethodSkip VerificationMethod = "skip"
)

// RowColumn is the ordinal column the loader adds to every table.
const RowColumn = "_row"

// VerifyResult holds the outcome of one comparison.
type VerifyResult struct {
	Method         VerificationMethod
	ExpectedCount  int64
	ActualCount    int64
	ExpectedFields int
	ActualFields   int
	ExpectedDigest uint64
	ActualDigest   uint64
	MismatchIndex  int // first differing record for MethodFull, -1 otherwise
	Match          bool
	ErrorMessage   string
}

// Verifier compares ingestion results.
type Verifier struct {
	method VerificationMethod
	logger *logger.Logger
}

// NewVerifier creates a verifier. An empty method selects MethodCount.
func NewVerifier(method VerificationMethod, log *logger.Logger) (*Verifier, error) {
	if method == "" {
		method = MethodCount
	}
	switch method {
	case MethodCount, MethodDigest, MethodFull, MethodSkip:
	default:
		return nil, fmt.Errorf("unsupported verification method: %s", method)
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Verifier{method: method, logger: log}, nil
}

// GetMethod returns the configured verification method.
func (v *Verifier) GetMethod() VerificationMethod {
	return v.method
}

// Compare checks a parallel result against the serial reader's result for
// the same file. A mismatch returns the populated result and an error.
func (v *Verifier) Compare(parallel, serial *ingest.IngestResult) (*VerifyResult, error) {
	if parallel == nil || serial == nil {
		return nil, fmt.Errorf("cannot compare nil ingest result")
	}

	result := &VerifyResult{
		Method:         v.method,
		ExpectedCount:  int64(serial.Len()),
		ActualCount:    int64(parallel.Len()),
		ExpectedFields: serial.Schema.Len(),
		ActualFields:   parallel.Schema.Len(),
		MismatchIndex:  -1,
	}

	if v.method == MethodSkip {
		v.logger.Info("Verification SKIPPED (method=skip)")
		result.Match = true
		return result, nil
	}

	switch {
	case result.ExpectedCount != result.ActualCount:
		result.ErrorMessage = fmt.Sprintf("count mismatch: serial=%d, parallel=%d", result.ExpectedCount, result.ActualCount)
	case result.ExpectedFields != result.ActualFields:
		result.ErrorMessage = fmt.Sprintf("column mismatch: serial=%d, parallel=%d", result.ExpectedFields, result.ActualFields)
	case v.method == MethodDigest:
		result.ExpectedDigest = serial.Digest()
		result.ActualDigest = parallel.Digest()
		if result.ExpectedDigest != result.ActualDigest {
			result.ErrorMessage = fmt.Sprintf("digest mismatch: serial=%016x, parallel=%016x", result.ExpectedDigest, result.ActualDigest)
		}
	case v.method == MethodFull:
		for i := range serial.Records {
			if !serial.Records[i].Equal(parallel.Records[i]) {
				result.MismatchIndex = i
				result.ErrorMessage = fmt.Sprintf("record %d differs: serial=%s, parallel=%s", i, serial.Records[i], parallel.Records[i])
				break
			}
		}
	}

	return v.finish(result, "parallel result")
}

// VerifyLoad checks that table holds the records of res. MethodCount compares
// COUNT(*); MethodDigest and MethodFull read the table back in _row order and
// compare record digests.
func (v *Verifier) VerifyLoad(ctx context.Context, db *sql.DB, table string, res *ingest.IngestResult) (*VerifyResult, error) {
	if db == nil {
		return nil, fmt.Errorf("destination database is nil")
	}
	quoted, err := sqlutil.QuoteIdentifierSafe(table)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{
		Method:         v.method,
		ExpectedCount:  int64(res.Len()),
		ExpectedFields: res.Schema.Len(),
		MismatchIndex:  -1,
	}

	if v.method == MethodSkip {
		v.logger.Info("Load verification SKIPPED (method=skip)")
		result.Match = true
		return result, nil
	}

	v.logger.Infof("Verifying table %q (method=%s)", table, v.method)

	switch v.method {
	case MethodCount:
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoted)
		if err := db.QueryRowContext(ctx, query).Scan(&result.ActualCount); err != nil {
			return nil, fmt.Errorf("failed to count destination: %w", err)
		}
		if result.ActualCount != result.ExpectedCount {
			result.ErrorMessage = fmt.Sprintf("count mismatch: records=%d, dest=%d", result.ExpectedCount, result.ActualCount)
		}
	default:
		result.ExpectedDigest = res.Digest()
		digest, count, err := v.computeTableDigest(ctx, db, quoted)
		if err != nil {
			return nil, fmt.Errorf("failed to compute destination digest: %w", err)
		}
		result.ActualDigest = digest
		result.ActualCount = count
		switch {
		case count != result.ExpectedCount:
			result.ErrorMessage = fmt.Sprintf("count mismatch: records=%d, dest=%d", result.ExpectedCount, count)
		case digest != result.ExpectedDigest:
			result.ErrorMessage = fmt.Sprintf("digest mismatch: records=%016x, dest=%016x", result.ExpectedDigest, digest)
		}
	}

	return v.finish(result, "table "+table)
}

func (v *Verifier) finish(result *VerifyResult, what string) (*VerifyResult, error) {
	result.Match = result.ErrorMessage == ""
	if !result.Match {
		v.logger.Errorf("Verification FAILED for %s: %s", what, result.ErrorMessage)
		return result, fmt.Errorf("verification mismatch in %s: %s", what, result.ErrorMessage)
	}
	v.logger.Infof("Verification PASSED for %s (%d records, method=%s)", what, result.ActualCount, v.method)
	return result, nil
}

// computeTableDigest rebuilds each row as a record and hashes it the same
// way record.Digest does. NULL columns are absent fields; the _row column
// only orders the scan.
func (v *Verifier) computeTableDigest(ctx context.Context, db *sql.DB, quotedTable string) (uint64, int64, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", quotedTable, sqlutil.QuoteIdentifier(RowColumn))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return 0, 0, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get columns: %w", err)
	}

	hasher := xxh3.New()
	var total int64
	var buf []byte

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return 0, 0, fmt.Errorf("digest computation interrupted: %w", err)
		}

		values := make([]sql.NullString, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return 0, 0, fmt.Errorf("failed to scan row: %w", err)
		}

		rec := record.New()
		for i, col := range columns {
			if col == RowColumn || !values[i].Valid {
				continue
			}
			val, err := record.ParseValue([]byte(values[i].String))
			if err != nil {
				return 0, 0, fmt.Errorf("row %d column %s: %w", total, col, err)
			}
			rec.Set(col, val)
		}

		buf = rec.AppendCanonical(buf[:0])
		buf = append(buf, '\n')
		_, _ = hasher.Write(buf)
		total++
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return hasher.Sum64(), total, nil
}

// SetLogger sets the logger for the verifier.
func (v *Verifier) SetLogger(log *logger.Logger) {
	if log != nil {
		v.logger = log
	}
}
