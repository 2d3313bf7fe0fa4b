package sweep

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// FlattenCSV renders a sweep record as RFC 4180 CSV with one row per
// combination, in sweep order. The header is
// run_id,timestamp,<parameters...>,<metrics...>: parameter columns follow
// record.Parameters, metric columns are the sorted union of metric keys
// across all results. A result missing a metric gets an empty cell.
func FlattenCSV(record *SweepRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("flatten csv: nil record")
	}

	metricCols := metricColumns(record.Results)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, 0, 2+len(record.Parameters)+len(metricCols))
	header = append(header, "run_id", "timestamp")
	header = append(header, record.Parameters...)
	header = append(header, metricCols...)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("flatten csv: %w", err)
	}

	timestamp := record.Timestamp.UTC().Format(time.RFC3339)
	row := make([]string, 0, len(header))
	for i, result := range record.Results {
		row = row[:0]
		row = append(row, fmt.Sprintf("%s-%d", record.ID, i+1), timestamp)
		for _, name := range record.Parameters {
			row = append(row, formatCell(result.Combination, name))
		}
		for _, name := range metricCols {
			row = append(row, formatCell(result.Metrics, name))
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("flatten csv: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flatten csv: %w", err)
	}
	return buf.Bytes(), nil
}

func metricColumns(results []AggregatedResult) []string {
	seen := make(map[string]bool)
	for _, r := range results {
		for k := range r.Metrics {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func formatCell(values map[string]float64, name string) string {
	v, ok := values[name]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
