package output

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/incawqmodels/persist/internal/timeseries"
)

// DefaultTable receives outputs when no table is configured.
const DefaultTable = "persist_outputs"

// Pool is the subset of *pgxpool.Pool used by PostgresWriter.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

var postgresColumns = []string{"run_id", "ts", "location", "variable", "value"}

// PostgresWriter copies outputs in long format into a Postgres table,
// creating it if needed.
type PostgresWriter struct {
	pool  Pool
	table pgx.Identifier
}

// NewPostgresWriter returns a writer into table, which may be
// schema-qualified ("schema.table").
func NewPostgresWriter(pool Pool, table string) *PostgresWriter {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresWriter{pool: pool, table: pgx.Identifier(strings.Split(table, "."))}
}

// ConnectPostgres opens a connection pool for url.
func ConnectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func (w *PostgresWriter) Name() string { return "postgres" }

func (w *PostgresWriter) Write(ctx context.Context, runID string, ts *timeseries.TimeSeries) error {
	table := w.table.Sanitize()
	ddl := `CREATE TABLE IF NOT EXISTS ` + table + ` (
		run_id   TEXT NOT NULL,
		ts       TIMESTAMPTZ NOT NULL,
		location TEXT NOT NULL,
		variable TEXT NOT NULL,
		value    DOUBLE PRECISION
	)`
	if _, err := w.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}

	rows := Rows(runID, ts)
	if len(rows) == 0 {
		return nil
	}
	n, err := w.pool.CopyFrom(ctx, w.table, postgresColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("COPY INTO %s: %w", table, err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("COPY INTO %s: copied %d of %d rows", table, n, len(rows))
	}
	return nil
}

// Rows flattens ts into (run_id, ts, location, variable, value) records.
// NaN values become NULL.
func Rows(runID string, ts *timeseries.TimeSeries) [][]any {
	rows := make([][]any, 0, ts.Len()*len(ts.Columns))
	for _, r := range ts.Rows {
		for j, col := range ts.Columns {
			var value any
			if v := r.Value(j); !math.IsNaN(v) {
				value = v
			}
			rows = append(rows, []any{runID, r.Time, r.Location, col, value})
		}
	}
	return rows
}
