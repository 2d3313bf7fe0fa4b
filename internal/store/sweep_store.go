package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/packwave/internal/sweep"
)

// StoredSweep is one persisted sweep row, including the full record JSON.
type StoredSweep struct {
	ID           int64           `json:"id"`
	SweepID      string          `json:"sweep_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Status       string          `json:"status"`
	Combinations int             `json:"combinations"`
	Record       json.RawMessage `json:"record,omitempty"`
	Error        string          `json:"error,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// SweepSummary is a StoredSweep without the record blob, for list views.
type SweepSummary struct {
	ID           int64      `json:"id"`
	SweepID      string     `json:"sweep_id"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	Combinations int        `json:"combinations"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// SweepStore provides persistence for sweep runs.
type SweepStore struct {
	db *DB
}

// NewSweepStore creates a SweepStore over db.
func NewSweepStore(db *DB) *SweepStore {
	return &SweepStore{db: db}
}

// SaveSweepStart inserts a new sweep row in the running state. The
// record's own timestamp is taken as the start time.
func (s *SweepStore) SaveSweepStart(record *sweep.SweepRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding sweep %s: %w", record.ID, err)
	}
	query := `
		INSERT INTO sweeps (sweep_id, name, description, status, combinations, record, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	err = s.db.retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			record.ID,
			record.ExperimentName,
			nullStr(record.Description),
			string(sweep.StatusRunning),
			len(record.Results),
			string(data),
			record.Timestamp.UTC().Format(time.RFC3339),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting sweep %s: %w", record.ID, err)
	}
	return nil
}

// SaveSweepCheckpoint replaces the stored record with the current one and
// bumps the completed-combination count.
func (s *SweepStore) SaveSweepCheckpoint(record *sweep.SweepRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding sweep %s: %w", record.ID, err)
	}
	query := `
		UPDATE sweeps
		SET record = ?, combinations = ?
		WHERE sweep_id = ?
	`
	err = s.db.retryOnBusy(func() error {
		_, err := s.db.Exec(query, string(data), len(record.Results), record.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving checkpoint for sweep %s: %w", record.ID, err)
	}
	return nil
}

// SaveSweepComplete marks a sweep done and stores the terminal record. The
// record's timestamp, which the runner refreshes when finalizing, is taken
// as the completion time.
func (s *SweepStore) SaveSweepComplete(record *sweep.SweepRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding sweep %s: %w", record.ID, err)
	}
	query := `
		UPDATE sweeps
		SET status = ?, record = ?, combinations = ?, completed_at = ?
		WHERE sweep_id = ?
	`
	err = s.db.retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			string(sweep.StatusDone),
			string(data),
			len(record.Results),
			record.Timestamp.UTC().Format(time.RFC3339),
			record.ID,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("completing sweep %s: %w", record.ID, err)
	}
	return nil
}

// SaveSweepFailed marks a sweep failed with its error message. Checkpointed
// results already stored stay in place.
func (s *SweepStore) SaveSweepFailed(sweepID, errMsg string) error {
	query := `
		UPDATE sweeps
		SET status = ?, error = ?, completed_at = ?
		WHERE sweep_id = ?
	`
	err := s.db.retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			string(sweep.StatusFailed),
			nullStr(errMsg),
			s.db.clock.Now().UTC().Format(time.RFC3339),
			sweepID,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failing sweep %s: %w", sweepID, err)
	}
	return nil
}

// GetSweep returns a single sweep by ID, or nil when it does not exist.
func (s *SweepStore) GetSweep(sweepID string) (*StoredSweep, error) {
	query := `
		SELECT id, sweep_id, name, description, status, combinations, record, error, started_at, completed_at
		FROM sweeps
		WHERE sweep_id = ?
	`
	var rec StoredSweep
	var description, record, errMsg, startedAt, completedAt sql.NullString

	err := s.db.QueryRow(query, sweepID).Scan(
		&rec.ID, &rec.SweepID, &rec.Name, &description, &rec.Status,
		&rec.Combinations, &record, &errMsg, &startedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying sweep %s: %w", sweepID, err)
	}

	if description.Valid {
		rec.Description = description.String
	}
	rec.Record = jsonOrNil(record)
	if errMsg.Valid {
		rec.Error = errMsg.String
	}
	if startedAt.Valid {
		t, err := time.Parse(time.RFC3339, startedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at for sweep %s: %w", sweepID, err)
		}
		rec.StartedAt = t
	}
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at for sweep %s: %w", sweepID, err)
		}
		rec.CompletedAt = &t
	}
	return &rec, nil
}

// LoadSweepRecord decodes the stored record for a sweep, or nil when the
// sweep does not exist.
func (s *SweepStore) LoadSweepRecord(sweepID string) (*sweep.SweepRecord, error) {
	stored, err := s.GetSweep(sweepID)
	if err != nil || stored == nil {
		return nil, err
	}
	if len(stored.Record) == 0 {
		return nil, fmt.Errorf("sweep %s has no stored record", sweepID)
	}
	var record sweep.SweepRecord
	if err := json.Unmarshal(stored.Record, &record); err != nil {
		return nil, fmt.Errorf("decoding record for sweep %s: %w", sweepID, err)
	}
	return &record, nil
}

// ListSweeps returns recent sweeps, most recent first, without record
// blobs. The limit is clamped to [1, 100] with a default of 20.
func (s *SweepStore) ListSweeps(limit int) ([]SweepSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `
		SELECT id, sweep_id, name, status, combinations, error, started_at, completed_at
		FROM sweeps
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sweeps: %w", err)
	}
	defer rows.Close()

	var sweeps []SweepSummary
	for rows.Next() {
		var rec SweepSummary
		var errMsg, startedAt, completedAt sql.NullString

		if err := rows.Scan(&rec.ID, &rec.SweepID, &rec.Name, &rec.Status,
			&rec.Combinations, &errMsg, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning sweep row: %w", err)
		}
		if errMsg.Valid {
			rec.Error = errMsg.String
		}
		if startedAt.Valid {
			t, err := time.Parse(time.RFC3339, startedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing started_at for sweep row: %w", err)
			}
			rec.StartedAt = t
		}
		if completedAt.Valid {
			t, err := time.Parse(time.RFC3339, completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing completed_at for sweep row: %w", err)
			}
			rec.CompletedAt = &t
		}
		sweeps = append(sweeps, rec)
	}
	return sweeps, rows.Err()
}

// DeleteSweep removes a sweep row. Deleting an unknown sweep is an error.
func (s *SweepStore) DeleteSweep(sweepID string) error {
	return s.db.retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM sweeps WHERE sweep_id = ?`, sweepID)
		if err != nil {
			return fmt.Errorf("delete sweep: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("sweep %s not found", sweepID)
		}
		return nil
	})
}

// nullStr returns nil for empty strings, pointer to string otherwise.
func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// jsonOrNil converts a sql.NullString to json.RawMessage, returning nil
// for NULL values.
func jsonOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}
