// Package timeseries holds tabular time-stamped data keyed by location, used
// both for driving data and for model output.
package timeseries

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"
)

// Well-known location values.
const (
	// AllLocations marks a row that applies to every HRU.
	AllLocations = "*"
	// Outlet marks catchment outlet rows in model output.
	Outlet = "outlet"
)

// Row is one record: a timestamp, a location and one value per column.
// Missing values are NaN.
type Row struct {
	Time     time.Time
	Location string
	Values   []float64
}

// Value returns the value at column index i, or NaN when i is out of range.
func (r Row) Value(i int) float64 {
	if i < 0 || i >= len(r.Values) {
		return math.NaN()
	}
	return r.Values[i]
}

// TimeSeries is an ordered table of rows sharing the same value columns.
type TimeSeries struct {
	Metadata map[string]string
	Columns  []string
	Rows     []Row
}

// New returns an empty series with the given value columns.
func New(columns ...string) *TimeSeries {
	return &TimeSeries{
		Metadata: map[string]string{},
		Columns:  columns,
	}
}

// Column returns the index of the named column, or -1.
func (ts *TimeSeries) Column(name string) int {
	return slices.Index(ts.Columns, name)
}

// HasColumn reports whether the named column exists.
func (ts *TimeSeries) HasColumn(name string) bool {
	return ts.Column(name) >= 0
}

// Append adds a row. The row must carry one value per column.
func (ts *TimeSeries) Append(row Row) error {
	if len(row.Values) != len(ts.Columns) {
		return fmt.Errorf("row at %s for %q has %d values, expected %d",
			row.Time.Format(time.RFC3339), row.Location, len(row.Values), len(ts.Columns))
	}
	ts.Rows = append(ts.Rows, row)
	return nil
}

// Len returns the number of rows.
func (ts *TimeSeries) Len() int { return len(ts.Rows) }

// Sort orders rows by time, keeping the input order of rows that share a
// timestamp.
func (ts *TimeSeries) Sort() {
	sort.SliceStable(ts.Rows, func(i, j int) bool {
		return ts.Rows[i].Time.Before(ts.Rows[j].Time)
	})
}

// Locations returns the distinct locations in order of first appearance.
func (ts *TimeSeries) Locations() []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range ts.Rows {
		if !seen[r.Location] {
			seen[r.Location] = true
			out = append(out, r.Location)
		}
	}
	return out
}

// Group is the set of rows sharing one timestamp.
type Group struct {
	Time time.Time
	Rows []Row
}

// Cursor walks a time-sorted series one timestamp group at a time.
type Cursor struct {
	ts  *TimeSeries
	pos int
}

// Cursor returns a cursor positioned before the first group. The series
// must be sorted by time.
func (ts *TimeSeries) Cursor() *Cursor {
	return &Cursor{ts: ts}
}

// Next returns the next timestamp group. ok is false once the rows are
// exhausted.
func (c *Cursor) Next() (g Group, ok bool) {
	rows := c.ts.Rows
	if c.pos >= len(rows) {
		return Group{}, false
	}
	start := c.pos
	t := rows[start].Time
	for c.pos < len(rows) && rows[c.pos].Time.Equal(t) {
		c.pos++
	}
	return Group{Time: t, Rows: rows[start:c.pos]}, true
}

// Done reports whether every group has been returned.
func (c *Cursor) Done() bool {
	return c.pos >= len(c.ts.Rows)
}
