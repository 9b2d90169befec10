package loader

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goingest/internal/config"
	"github.com/dbsmedya/goingest/internal/ingest"
	"github.com/dbsmedya/goingest/internal/logger"
	"github.com/dbsmedya/goingest/internal/record"
)

func sampleResult() *ingest.IngestResult {
	recs := []*record.Record{
		record.FromPairs("a", 1),
		record.FromPairs("a", 2, "b", "x"),
		record.FromPairs("c", nil, "a", 3),
	}
	return &ingest.IngestResult{Records: recs, Schema: record.SchemaOf(recs)}
}

func TestNewLoader_Validation(t *testing.T) {
	l, err := NewLoader(nil, config.LoadConfig{}, nil)
	assert.Error(t, err)
	assert.Nil(t, l)
	assert.Contains(t, err.Error(), "destination database is nil")

	db, _, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	l, err = NewLoader(db, config.LoadConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, l.cfg.BatchSize)
}

func TestLoad_CreateAndInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta(
		"CREATE TABLE IF NOT EXISTS `business` (`_row` BIGINT NOT NULL PRIMARY KEY, `a` LONGTEXT NULL, `b` LONGTEXT NULL, `c` LONGTEXT NULL)",
	)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO `business` (`_row`, `a`, `b`, `c`) VALUES (?, ?, ?, ?), (?, ?, ?, ?), (?, ?, ?, ?)",
	)).
		WithArgs(
			int64(0), "1", nil, nil,
			int64(1), "2", `"x"`, nil,
			int64(2), "3", nil, "null",
		).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	l, err := NewLoader(db, config.LoadConfig{BatchSize: 10, CreateTable: true}, logger.NewNop())
	require.NoError(t, err)

	stats, err := l.Load(context.Background(), "business", sampleResult())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.RowsLoaded)
	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, 3, stats.Columns)
	assert.True(t, stats.Created)
	assert.False(t, stats.Truncated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_BatchesAndTruncate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("TRUNCATE TABLE `business`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `business`").
		WithArgs(int64(0), "1", nil, nil, int64(1), "2", `"x"`, nil).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `business`").
		WithArgs(int64(2), "3", nil, "null").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	l, err := NewLoader(db, config.LoadConfig{BatchSize: 2, Truncate: true}, logger.NewNop())
	require.NoError(t, err)

	stats, err := l.Load(context.Background(), "business", sampleResult())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.RowsLoaded)
	assert.Equal(t, 2, stats.Batches)
	assert.True(t, stats.Truncated)
	assert.False(t, stats.Created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_RollbackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `business`").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	l, err := NewLoader(db, config.LoadConfig{BatchSize: 10}, logger.NewNop())
	require.NoError(t, err)

	stats, err := l.Load(context.Background(), "business", sampleResult())
	assert.Nil(t, stats)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "rows 0-2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_CreateTableError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("access denied"))

	l, err := NewLoader(db, config.LoadConfig{CreateTable: true}, logger.NewNop())
	require.NoError(t, err)

	_, err = l.Load(context.Background(), "business", sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create table business")
}

func TestLoad_RejectsBadNames(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	l, err := NewLoader(db, config.LoadConfig{CreateTable: true}, logger.NewNop())
	require.NoError(t, err)

	_, err = l.Load(context.Background(), "drop;table", sampleResult())
	assert.Error(t, err)

	recs := []*record.Record{record.FromPairs("_row", 1)}
	_, err = l.Load(context.Background(), "business", &ingest.IngestResult{Records: recs, Schema: record.SchemaOf(recs)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row ordinal")

	recs = []*record.Record{record.FromPairs("", 1)}
	_, err = l.Load(context.Background(), "business", &ingest.IngestResult{Records: recs, Schema: record.SchemaOf(recs)})
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet(), "nothing may reach the database")
}

func TestLoad_Cancelled(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	l, err := NewLoader(db, config.LoadConfig{}, logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx, "business", sampleResult())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchRows(t *testing.T) {
	l := &Loader{cfg: config.LoadConfig{BatchSize: 500}}
	assert.Equal(t, 500, l.batchRows(3))
	assert.Equal(t, 65535/1001, l.batchRows(1000))
}
