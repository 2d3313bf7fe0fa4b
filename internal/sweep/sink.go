package sweep

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/packwave/internal/fsutil"
	"github.com/banshee-data/packwave/internal/security"
)

// Sink persists sweep results. WriteCheckpoint is called after every
// completed combination with the full record so far; WriteFinal is called
// once with the terminal record. Implementations must tolerate repeated
// checkpoints for the same record ID by overwriting.
type Sink interface {
	WriteCheckpoint(ctx context.Context, record *SweepRecord) error
	WriteFinal(ctx context.Context, record *SweepRecord) error
}

// FileSink writes sweep records under a results directory:
// <name>-<id>.checkpoint.json during the run, then <name>-<id>.json and
// <name>-<id>.csv on completion. Every destination path is validated
// against the results directory before any byte is written.
type FileSink struct {
	dir string
	fs  fsutil.FileSystem
}

// NewFileSink creates a sink rooted at dir on the real filesystem,
// creating the directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	return NewFileSinkFS(dir, OSFileSystem())
}

// NewFileSinkFS is NewFileSink over an explicit filesystem.
func NewFileSinkFS(dir string, filesystem fsutil.FileSystem) (*FileSink, error) {
	if dir == "" {
		return nil, &ConfigurationError{Field: "results_dir", Reason: "empty path"}
	}
	if err := filesystem.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}
	return &FileSink{dir: dir, fs: filesystem}, nil
}

// OSFileSystem returns the default filesystem for sinks.
func OSFileSystem() fsutil.FileSystem { return fsutil.OSFileSystem{} }

func (s *FileSink) WriteCheckpoint(ctx context.Context, record *SweepRecord) error {
	paths := s.paths(record)
	if err := s.validate(paths); err != nil {
		return err
	}
	return s.writeJSON(paths.checkpoint, record)
}

func (s *FileSink) WriteFinal(ctx context.Context, record *SweepRecord) error {
	paths := s.paths(record)
	if err := s.validate(paths); err != nil {
		return err
	}
	if err := s.writeJSON(paths.finalJSON, record); err != nil {
		return err
	}
	flat, err := FlattenCSV(record)
	if err != nil {
		return err
	}
	if err := s.fs.WriteFile(paths.finalCSV, flat, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", paths.finalCSV, err)
	}
	// Best effort; a stale checkpoint next to the final record is harmless.
	_ = s.fs.Remove(paths.checkpoint)
	return nil
}

type sinkPaths struct {
	checkpoint string
	finalJSON  string
	finalCSV   string
}

func (s *FileSink) paths(record *SweepRecord) sinkPaths {
	base := security.SanitizeFilename(record.ExperimentName)
	if id := shortID(record.ID); id != "" {
		base = base + "-" + id
	}
	return sinkPaths{
		checkpoint: filepath.Join(s.dir, base+".checkpoint.json"),
		finalJSON:  filepath.Join(s.dir, base+".json"),
		finalCSV:   filepath.Join(s.dir, base+".csv"),
	}
}

// validate checks every destination for this record, not just the one
// about to be written, so a path escape fails the sweep before its first
// checkpoint.
func (s *FileSink) validate(paths sinkPaths) error {
	for _, p := range []string{paths.checkpoint, paths.finalJSON, paths.finalCSV} {
		if err := security.ValidatePathWithinDirectory(p, s.dir); err != nil {
			return &PathSecurityError{Path: p, Dir: s.dir, Err: err}
		}
	}
	return nil
}

func (s *FileSink) writeJSON(path string, record *SweepRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sweep record: %w", err)
	}
	if err := s.fs.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// MultiSink fans each write out to every sink in order and stops at the
// first error.
type MultiSink []Sink

func (m MultiSink) WriteCheckpoint(ctx context.Context, record *SweepRecord) error {
	for _, s := range m {
		if err := s.WriteCheckpoint(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) WriteFinal(ctx context.Context, record *SweepRecord) error {
	for _, s := range m {
		if err := s.WriteFinal(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
