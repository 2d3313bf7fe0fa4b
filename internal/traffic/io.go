package traffic

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ReadSnapshotsCSV parses vehicle snapshots from CSV rows of the form
// id,position,speed[,lane]. A header row is skipped when its first field is
// not an integer. Lane defaults to 0 when the column is absent.
func ReadSnapshotsCSV(r io.Reader) ([]VehicleSnapshot, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot CSV: %w", err)
	}

	snapshots := make([]VehicleSnapshot, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if _, err := strconv.Atoi(row[0]); err != nil && i == 0 {
			// header row
			continue
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("row %d: expected id,position,speed[,lane], got %d fields", i+1, len(row))
		}

		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid id %q: %w", i+1, row[0], err)
		}
		pos, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid position %q: %w", i+1, row[1], err)
		}
		speed, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid speed %q: %w", i+1, row[2], err)
		}
		lane := 0
		if len(row) > 3 && row[3] != "" {
			lane, err = strconv.Atoi(row[3])
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid lane %q: %w", i+1, row[3], err)
			}
		}

		snapshots = append(snapshots, VehicleSnapshot{ID: id, Position: pos, Speed: speed, Lane: lane})
	}

	return snapshots, nil
}
