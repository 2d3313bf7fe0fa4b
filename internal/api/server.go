// Package api serves sweep results over HTTP. The surface is read-only:
// sweeps are created by the CLI runner, never through the API.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/packwave/internal/httputil"
	"github.com/banshee-data/packwave/internal/monitoring"
	"github.com/banshee-data/packwave/internal/security"
	"github.com/banshee-data/packwave/internal/store"
	"github.com/banshee-data/packwave/internal/sweep"
	"github.com/banshee-data/packwave/internal/version"
)

// ANSI escape codes for request log colouring.
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server exposes stored sweep results.
type Server struct {
	store *store.SweepStore
}

// NewServer creates a results server over store.
func NewServer(store *store.SweepStore) *Server {
	return &Server{store: store}
}

// ServeMux returns the route table for the results API.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/healthz", s.handleHealthz)
	mux.HandleFunc("/api/sweeps", s.handleListSweeps)
	mux.HandleFunc("/api/sweeps/", s.handleSweepByID)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleListSweeps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.BadRequest(w, "invalid limit")
			return
		}
		limit = parsed
	}

	sweeps, err := s.store.ListSweeps(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to list sweeps")
		return
	}
	if sweeps == nil {
		sweeps = []store.SweepSummary{}
	}
	httputil.WriteJSONOK(w, sweeps)
}

// handleSweepByID handles GET /api/sweeps/:id and GET /api/sweeps/:id/csv.
func (s *Server) handleSweepByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/sweeps/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		httputil.BadRequest(w, "missing sweep id")
		return
	}
	sweepID := pathParts[0]

	switch {
	case len(pathParts) == 1:
		s.handleGetSweep(w, sweepID)
	case len(pathParts) == 2 && pathParts[1] == "csv":
		s.handleGetSweepCSV(w, sweepID)
	default:
		httputil.NotFound(w, "unknown sweep resource")
	}
}

func (s *Server) handleGetSweep(w http.ResponseWriter, sweepID string) {
	stored, err := s.store.GetSweep(sweepID)
	if err != nil {
		httputil.InternalServerError(w, "failed to fetch sweep")
		return
	}
	if stored == nil {
		httputil.NotFound(w, "sweep not found")
		return
	}
	httputil.WriteJSONOK(w, stored)
}

func (s *Server) handleGetSweepCSV(w http.ResponseWriter, sweepID string) {
	record, err := s.store.LoadSweepRecord(sweepID)
	if err != nil {
		httputil.InternalServerError(w, "failed to load sweep record")
		return
	}
	if record == nil {
		httputil.NotFound(w, "sweep not found")
		return
	}

	csv, err := sweep.FlattenCSV(record)
	if err != nil {
		httputil.InternalServerError(w, "failed to flatten sweep record")
		return
	}
	httputil.WriteCSVAttachment(w, csvFilename(record), csv)
}

// csvFilename matches the file sink's naming so downloads and on-disk
// exports of the same sweep line up.
func csvFilename(record *sweep.SweepRecord) string {
	id := record.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s.csv", security.SanitizeFilename(record.ExperimentName), id)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration for every
// request.
func LoggingMiddleware(next http.Handler) http.Handler {
	logf := monitoring.Prefixed("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
