package timeseries

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeLayout is the layout used for timestamps that carry a time of day.
const DefaultTimeLayout = "2006-01-02 15:04:05"

// ReadOptions configures ReadCSV.
type ReadOptions struct {
	// MetadataRows is the number of leading "key,value" lines before the header.
	MetadataRows int
	// TimeLayout parses timestamps with a time of day. Date-only values are
	// recognised separately and mean midnight UTC.
	TimeLayout string
	// TimestampColumn and LocationColumn are field indices in each record.
	TimestampColumn int
	LocationColumn  int
}

// DefaultReadOptions reads timestamp then location, with no metadata.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{TimeLayout: DefaultTimeLayout, TimestampColumn: 0, LocationColumn: 1}
}

// LoadCSV reads a series from a file.
func LoadCSV(path string, opts ReadOptions) (*TimeSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open time series: %w", err)
	}
	defer f.Close()

	ts, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ts, nil
}

// ReadCSV reads a header row followed by one record per row. Every field
// other than the timestamp and location is a value column; empty or
// non-numeric values become NaN. Rows are sorted by time.
func ReadCSV(r io.Reader, opts ReadOptions) (*TimeSeries, error) {
	if opts.TimeLayout == "" {
		opts.TimeLayout = DefaultTimeLayout
	}
	if opts.TimestampColumn == opts.LocationColumn {
		return nil, errors.New("timestamp and location columns must differ")
	}

	br := bufio.NewReader(r)
	ts := New()
	for i := 0; i < opts.MetadataRows; i++ {
		line, err := br.ReadString('\n')
		if key, value, ok := strings.Cut(strings.TrimSpace(line), ","); ok {
			ts.Metadata[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
		if err == io.EOF {
			return nil, errors.New("file ends inside metadata")
		}
		if err != nil {
			return nil, fmt.Errorf("read metadata: %w", err)
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) <= max(opts.TimestampColumn, opts.LocationColumn) {
		return nil, fmt.Errorf("header has %d columns, need timestamp and location", len(header))
	}

	var valueIdx []int
	for i, name := range header {
		if i == opts.TimestampColumn || i == opts.LocationColumn {
			continue
		}
		ts.Columns = append(ts.Columns, strings.TrimSpace(name))
		valueIdx = append(valueIdx, i)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if len(record) <= max(opts.TimestampColumn, opts.LocationColumn) {
			return nil, fmt.Errorf("line %d: expected timestamp and location", line)
		}

		t, err := ParseTimestamp(strings.TrimSpace(record[opts.TimestampColumn]), opts.TimeLayout)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		values := make([]float64, len(valueIdx))
		for j, idx := range valueIdx {
			values[j] = math.NaN()
			if idx < len(record) {
				if v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64); err == nil {
					values[j] = v
				}
			}
		}

		ts.Rows = append(ts.Rows, Row{
			Time:     t,
			Location: strings.TrimSpace(record[opts.LocationColumn]),
			Values:   values,
		})
	}

	ts.Sort()
	return ts, nil
}

var timeOfDay = regexp.MustCompile(`[0-2]?\d:[0-5]?\d(:[0-5]?\d)?`)

// ParseTimestamp parses s with layout when it carries a time of day.
// Date-only values are read as YYYY-MM-DD, YYYY/MM/DD, or as MM/DD/YYYY
// unless the first field exceeds 12, in which case DD/MM/YYYY. Times are UTC.
func ParseTimestamp(s, layout string) (time.Time, error) {
	if timeOfDay.MatchString(s) {
		for _, l := range []string{layout, time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.ParseInLocation(l, s, time.UTC); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}

	var dateLayout string
	switch {
	case strings.Count(s, "-") == 2:
		parts := strings.Split(s, "-")
		if len(parts[0]) == 4 {
			dateLayout = "2006-01-02"
		} else {
			dateLayout = "02-01-2006"
		}
	case strings.Count(s, "/") == 2:
		parts := strings.Split(s, "/")
		switch {
		case len(parts[0]) == 4:
			dateLayout = "2006/01/02"
		case leadingValue(parts[0]) > 12:
			dateLayout = "02/01/2006"
		default:
			dateLayout = "01/02/2006"
		}
	default:
		dateLayout, _, _ = strings.Cut(layout, " ")
	}

	t, err := time.ParseInLocation(dateLayout, padDate(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

func leadingValue(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// padDate zero-pads single-digit day and month fields so that the
// fixed-width layouts accept them.
func padDate(s string) string {
	sep := "-"
	if strings.Contains(s, "/") {
		sep = "/"
	}
	parts := strings.Split(s, sep)
	for i, p := range parts {
		if len(p) == 1 {
			parts[i] = "0" + p
		}
	}
	return strings.Join(parts, sep)
}

// WriteCSV writes the metadata lines in key order, then the header and the
// rows. NaN values are written as empty fields.
func (ts *TimeSeries) WriteCSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, key := range slices.Sorted(maps.Keys(ts.Metadata)) {
		if _, err := fmt.Fprintf(bw, "%s,%s\n", key, ts.Metadata[key]); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(bw)
	if err := cw.Write(append([]string{"timestamp", "location"}, ts.Columns...)); err != nil {
		return err
	}
	record := make([]string, 2+len(ts.Columns))
	for _, row := range ts.Rows {
		record[0] = row.Time.UTC().Format(DefaultTimeLayout)
		record[1] = row.Location
		for i := range ts.Columns {
			record[2+i] = FormatValue(row.Value(i))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// FormatValue renders v in the shortest form that reads back exactly, or
// the empty string for NaN.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
