package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteJSONOK(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONOK(rec, map[string]int{"count": 3})

	if rec.Code != 200 {
		t.Errorf("status = %d, expected 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, expected application/json", ct)
	}

	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["count"] != 3 {
		t.Errorf("count = %d, expected 3", body["count"])
	}
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONError(rec, 404, "sweep not found")

	if rec.Code != 404 {
		t.Errorf("status = %d, expected 404", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["error"] != "sweep not found" {
		t.Errorf("error = %q, expected %q", body["error"], "sweep not found")
	}
}

func TestStatusHelpers(t *testing.T) {
	cases := []struct {
		name string
		fn   func(*httptest.ResponseRecorder)
		want int
	}{
		{"method not allowed", func(r *httptest.ResponseRecorder) { MethodNotAllowed(r) }, 405},
		{"bad request", func(r *httptest.ResponseRecorder) { BadRequest(r, "bad") }, 400},
		{"internal error", func(r *httptest.ResponseRecorder) { InternalServerError(r, "boom") }, 500},
		{"not found", func(r *httptest.ResponseRecorder) { NotFound(r, "missing") }, 404},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c.fn(rec)
			if rec.Code != c.want {
				t.Errorf("status = %d, expected %d", rec.Code, c.want)
			}
		})
	}
}

func TestWriteCSVAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteCSVAttachment(rec, "sweep.csv", []byte("run_id,timestamp\n"))

	if rec.Code != 200 {
		t.Errorf("status = %d, expected 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q, expected text/csv", ct)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.Contains(cd, `filename="sweep.csv"`) {
		t.Errorf("unexpected content disposition: %q", cd)
	}
	if rec.Body.String() != "run_id,timestamp\n" {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}
