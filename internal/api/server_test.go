package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/packwave/internal/monitoring"
	"github.com/banshee-data/packwave/internal/store"
	"github.com/banshee-data/packwave/internal/sweep"
)

func newTestServer(t *testing.T) (*Server, *store.SweepStore) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "api-test.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}
	sweepStore := store.NewSweepStore(db)
	return NewServer(sweepStore), sweepStore
}

func seedSweep(t *testing.T, sweepStore *store.SweepStore, id string, startedAt time.Time) *sweep.SweepRecord {
	t.Helper()
	record := &sweep.SweepRecord{
		ID:             id,
		ExperimentName: "Density Sweep",
		Timestamp:      startedAt,
		Parameters:     []string{"vehicle_count"},
		Results: []sweep.AggregatedResult{
			{
				Combination: map[string]float64{"vehicle_count": 20},
				Metrics:     map[string]float64{"pack_count": 3},
			},
		},
	}
	if err := sweepStore.SaveSweepStart(record); err != nil {
		t.Fatalf("failed to seed sweep %s: %v", id, err)
	}
	return record
}

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	mux := server.ServeMux()

	rec := get(t, mux, "/api/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, expected ok", body["status"])
	}
	if body["version"] == "" {
		t.Error("expected a version field")
	}
}

func TestListSweeps(t *testing.T) {
	server, sweepStore := newTestServer(t)
	mux := server.ServeMux()

	t.Run("empty store returns empty list", func(t *testing.T) {
		rec := get(t, mux, "/api/sweeps")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, expected 200", rec.Code)
		}
		var sweeps []store.SweepSummary
		if err := json.Unmarshal(rec.Body.Bytes(), &sweeps); err != nil {
			t.Fatalf("invalid JSON body: %v", err)
		}
		if len(sweeps) != 0 {
			t.Errorf("expected no sweeps, got %d", len(sweeps))
		}
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("expected JSON array, got %q", rec.Body.String())
		}
	})

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedSweep(t, sweepStore, "sweep-old", base)
	seedSweep(t, sweepStore, "sweep-new", base.Add(time.Hour))

	t.Run("most recent first", func(t *testing.T) {
		rec := get(t, mux, "/api/sweeps")
		var sweeps []store.SweepSummary
		if err := json.Unmarshal(rec.Body.Bytes(), &sweeps); err != nil {
			t.Fatalf("invalid JSON body: %v", err)
		}
		if len(sweeps) != 2 {
			t.Fatalf("expected 2 sweeps, got %d", len(sweeps))
		}
		if sweeps[0].SweepID != "sweep-new" || sweeps[1].SweepID != "sweep-old" {
			t.Errorf("unexpected order: %s, %s", sweeps[0].SweepID, sweeps[1].SweepID)
		}
	})

	t.Run("limit applies", func(t *testing.T) {
		rec := get(t, mux, "/api/sweeps?limit=1")
		var sweeps []store.SweepSummary
		if err := json.Unmarshal(rec.Body.Bytes(), &sweeps); err != nil {
			t.Fatalf("invalid JSON body: %v", err)
		}
		if len(sweeps) != 1 {
			t.Errorf("expected 1 sweep, got %d", len(sweeps))
		}
	})

	t.Run("invalid limit rejected", func(t *testing.T) {
		rec := get(t, mux, "/api/sweeps?limit=abc")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, expected 400", rec.Code)
		}
	})
}

func TestGetSweep(t *testing.T) {
	server, sweepStore := newTestServer(t)
	mux := server.ServeMux()

	t.Run("missing sweep", func(t *testing.T) {
		rec := get(t, mux, "/api/sweeps/no-such-sweep")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, expected 404", rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON body: %v", err)
		}
		if body["error"] == "" {
			t.Error("expected a JSON error message")
		}
	})

	record := seedSweep(t, sweepStore, "sweep-abc", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	t.Run("present sweep", func(t *testing.T) {
		rec := get(t, mux, "/api/sweeps/sweep-abc")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, expected 200", rec.Code)
		}

		var stored store.StoredSweep
		if err := json.Unmarshal(rec.Body.Bytes(), &stored); err != nil {
			t.Fatalf("invalid JSON body: %v", err)
		}
		if stored.SweepID != "sweep-abc" {
			t.Errorf("sweep_id = %q, expected sweep-abc", stored.SweepID)
		}
		if stored.Status != string(sweep.StatusRunning) {
			t.Errorf("status = %q, expected running", stored.Status)
		}

		var decoded sweep.SweepRecord
		if err := json.Unmarshal(stored.Record, &decoded); err != nil {
			t.Fatalf("invalid embedded record: %v", err)
		}
		if len(decoded.Results) != len(record.Results) {
			t.Errorf("embedded record has %d results, expected %d", len(decoded.Results), len(record.Results))
		}
	})
}

func TestGetSweepCSV(t *testing.T) {
	server, sweepStore := newTestServer(t)
	mux := server.ServeMux()

	t.Run("missing sweep", func(t *testing.T) {
		rec := get(t, mux, "/api/sweeps/no-such-sweep/csv")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, expected 404", rec.Code)
		}
	})

	seedSweep(t, sweepStore, "0123456789abcdef", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	t.Run("flattened record", func(t *testing.T) {
		rec := get(t, mux, "/api/sweeps/0123456789abcdef/csv")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, expected 200", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
			t.Errorf("content type = %q, expected text/csv", ct)
		}
		cd := rec.Header().Get("Content-Disposition")
		if !strings.Contains(cd, `filename="Density_Sweep-01234567.csv"`) {
			t.Errorf("unexpected content disposition: %q", cd)
		}

		rows, err := csv.NewReader(rec.Body).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV body: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected header plus 1 row, got %d rows", len(rows))
		}
		wantHeader := "run_id,timestamp,vehicle_count,pack_count"
		if got := strings.Join(rows[0], ","); got != wantHeader {
			t.Errorf("header = %q, expected %q", got, wantHeader)
		}
		if rows[1][0] != "0123456789abcdef-1" {
			t.Errorf("run_id = %q, expected 0123456789abcdef-1", rows[1][0])
		}
	})
}

func TestUnknownSweepResource(t *testing.T) {
	server, sweepStore := newTestServer(t)
	seedSweep(t, sweepStore, "sweep-abc", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	rec := get(t, server.ServeMux(), "/api/sweeps/sweep-abc/other")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, expected 404", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t)
	mux := server.ServeMux()

	paths := []string{"/api/healthz", "/api/sweeps", "/api/sweeps/x", "/api/sweeps/x/csv"}
	for _, path := range paths {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: status = %d, expected 405", path, rec.Code)
		}
	}
}

func TestLoggingMiddleware(t *testing.T) {
	server, _ := newTestServer(t)

	var logged []string
	prev := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(prev) })

	handler := LoggingMiddleware(server.ServeMux())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rec.Code)
	}

	if len(logged) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(logged))
	}
	if !strings.Contains(logged[0], "GET") || !strings.Contains(logged[0], "/api/healthz") {
		t.Errorf("log line missing method or path: %q", logged[0])
	}
}
