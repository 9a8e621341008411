package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"

	"github.com/incawqmodels/persist/internal/timeseries"
)

// SaveOutputs stores ts in long format, one row per value, replacing any
// outputs already stored for the run. NaN values are stored as NULL.
func (s *SQLiteStore) SaveOutputs(ctx context.Context, runID string, ts *timeseries.TimeSeries) (err error) {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, q := range []string{
		`DELETE FROM run_outputs WHERE run_id = ?`,
		`DELETE FROM run_metadata WHERE run_id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, q, runID); err != nil {
			return fmt.Errorf("failed to clear outputs: %w", err)
		}
	}

	for key, value := range ts.Metadata {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_metadata (run_id, key, value) VALUES (?, ?, ?)`, runID, key, value); err != nil {
			return fmt.Errorf("failed to save metadata: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_outputs (run_id, row_index, column_index, ts, location, variable, value)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range ts.Rows {
		t := formatTime(row.Time)
		for j, col := range ts.Columns {
			var value sql.NullFloat64
			if v := row.Value(j); !math.IsNaN(v) {
				value = sql.NullFloat64{Float64: v, Valid: true}
			}
			if _, err = stmt.ExecContext(ctx, runID, i, j, t, row.Location, col, value); err != nil {
				return fmt.Errorf("failed to save output row %d: %w", i, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit outputs: %w", err)
	}

	s.logger.Debug("outputs saved",
		slog.String("run", runID),
		slog.Int("rows", ts.Len()),
		slog.Int("columns", len(ts.Columns)))
	return nil
}

// LoadOutputs rebuilds the output series of a run. Columns are recovered
// from the stored values, so a run saved without rows has no columns.
func (s *SQLiteStore) LoadOutputs(ctx context.Context, runID string) (*timeseries.TimeSeries, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	ts := timeseries.New()

	meta, err := s.db.QueryContext(ctx, `SELECT key, value FROM run_metadata WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	for meta.Next() {
		var key, value string
		if err := meta.Scan(&key, &value); err != nil {
			meta.Close()
			return nil, fmt.Errorf("failed to load metadata: %w", err)
		}
		ts.Metadata[key] = value
	}
	meta.Close()
	if err := meta.Err(); err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT row_index, column_index, ts, location, variable, value
		 FROM run_outputs WHERE run_id = ? ORDER BY row_index, column_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load outputs: %w", err)
	}
	defer rows.Close()

	current := -1
	for rows.Next() {
		var (
			rowIdx, colIdx int
			t, location    string
			variable       string
			value          sql.NullFloat64
		)
		if err := rows.Scan(&rowIdx, &colIdx, &t, &location, &variable, &value); err != nil {
			return nil, fmt.Errorf("failed to load outputs: %w", err)
		}

		if colIdx >= len(ts.Columns) {
			ts.Columns = append(ts.Columns, variable)
		}
		if rowIdx != current {
			ts.Rows = append(ts.Rows, timeseries.Row{Location: location})
			current = rowIdx
			last := &ts.Rows[len(ts.Rows)-1]
			if last.Time, err = parseTime(t); err != nil {
				return nil, err
			}
		}

		v := math.NaN()
		if value.Valid {
			v = value.Float64
		}
		last := &ts.Rows[len(ts.Rows)-1]
		last.Values = append(last.Values, v)
	}
	return ts, rows.Err()
}
