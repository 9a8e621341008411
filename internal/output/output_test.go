package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incawqmodels/persist/internal/state"
	"github.com/incawqmodels/persist/internal/testutil"
	"github.com/incawqmodels/persist/internal/timeseries"
)

func sampleOutputs(t *testing.T) *timeseries.TimeSeries {
	t.Helper()
	day := time.Date(2001, 3, 1, 0, 0, 0, 0, time.UTC)
	ts := timeseries.New("flow", "snow_depth")
	require.NoError(t, ts.Append(timeseries.Row{Time: day, Location: "HRU 0", Values: []float64{1.5, 0}}))
	require.NoError(t, ts.Append(timeseries.Row{Time: day, Location: timeseries.Outlet, Values: []float64{2.25, math.NaN()}}))
	return ts
}

func TestCSVWriter(t *testing.T) {
	dir := t.TempDir() + "/nested"
	w := &CSVWriter{Dir: dir}

	require.NoError(t, w.Write(context.Background(), "run-1", sampleOutputs(t)))

	data, err := os.ReadFile(w.Path("run-1"))
	require.NoError(t, err)
	assert.Equal(t, "timestamp,location,flow,snow_depth\n"+
		"2001-03-01 00:00:00,HRU 0,1.5,0\n"+
		"2001-03-01 00:00:00,outlet,2.25,\n", string(data))
}

func TestStoreWriter(t *testing.T) {
	ctx := context.Background()
	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(state.MemoryPath))
	defer store.Close()

	run, err := store.CreateRun(ctx, "test", "")
	require.NoError(t, err)

	w := &StoreWriter{Store: store}
	require.NoError(t, w.Write(ctx, run.ID, sampleOutputs(t)))

	got, err := store.LoadOutputs(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Rows, 2)
}

func TestRows(t *testing.T) {
	rows := Rows("run-1", sampleOutputs(t))
	require.Len(t, rows, 4)
	assert.Equal(t, []any{"run-1", time.Date(2001, 3, 1, 0, 0, 0, 0, time.UTC), "HRU 0", "flow", 1.5}, rows[0])
	assert.Nil(t, rows[3][4], "NaN becomes NULL")
}

func TestPostgresWriter_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"hydro", "outputs"}, postgresColumns).WillReturnResult(4)

	w := NewPostgresWriter(mock, "hydro.outputs")
	assert.Equal(t, "postgres", w.Name())
	require.NoError(t, w.Write(context.Background(), "run-1", sampleOutputs(t)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriter_EmptySeries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	w := NewPostgresWriter(mock, "")
	require.NoError(t, w.Write(context.Background(), "run-1", timeseries.New("flow")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriter_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{DefaultTable}, postgresColumns).WillReturnError(fmt.Errorf("permission denied"))

	w := NewPostgresWriter(mock, "")
	err = w.Write(context.Background(), "run-1", sampleOutputs(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `COPY INTO "persist_outputs"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriter_ShortCopy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{DefaultTable}, postgresColumns).WillReturnResult(3)

	err = NewPostgresWriter(mock, "").Write(context.Background(), "run-1", sampleOutputs(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copied 3 of 4 rows")
}

type failingWriter struct{ name string }

func (f failingWriter) Name() string { return f.name }
func (f failingWriter) Write(context.Context, string, *timeseries.TimeSeries) error {
	return errors.New("disk full")
}

func TestWriteAll_ContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	csv := &CSVWriter{Dir: dir}
	writers := []Writer{failingWriter{name: "broken"}, csv}

	logger, logs := testutil.NewRecordingLogger(t)
	err := WriteAll(context.Background(), logger, writers, "run-1", sampleOutputs(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken writer: disk full")

	failures := logs.Entries(slog.LevelError)
	require.Len(t, failures, 1)
	assert.Equal(t, "output writer failed", failures[0].Message)
	assert.Equal(t, "broken", failures[0].Attrs["writer"])
	written, ok := logs.Find("outputs written")
	require.True(t, ok)
	assert.Equal(t, "csv", written.Attrs["writer"])

	_, statErr := os.Stat(csv.Path("run-1"))
	assert.NoError(t, statErr)
}
