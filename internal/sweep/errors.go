package sweep

import "fmt"

// ConfigurationError reports invalid sweep input: a malformed grid,
// replication counts out of range, or inconsistent metric keys across
// replications. It is returned before (or instead of) running work, never
// retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid sweep configuration: %s: %s", e.Field, e.Reason)
}

// ReplicationFailure reports the first simulation error within a
// combination. It carries the offending combination and the resolved seed
// so the exact replication can be reproduced.
type ReplicationFailure struct {
	Combination Combination
	Seed        float64
	Err         error
}

func (e *ReplicationFailure) Error() string {
	return fmt.Sprintf("replication failed (combination %d, seed %g): %v", e.Combination.Index+1, e.Seed, e.Err)
}

func (e *ReplicationFailure) Unwrap() error { return e.Err }

// PersistenceError reports a failed checkpoint or final write. Combination
// is the 1-based combination whose results were being persisted.
type PersistenceError struct {
	Op          string // "checkpoint" or "final"
	Combination int
	Err         error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s write failed after combination %d: %v", e.Op, e.Combination, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PathSecurityError reports an output path that resolves outside the
// configured results directory. It is raised before any byte is written.
type PathSecurityError struct {
	Path string
	Dir  string
	Err  error
}

func (e *PathSecurityError) Error() string {
	return fmt.Sprintf("output path %q escapes results directory %q: %v", e.Path, e.Dir, e.Err)
}

func (e *PathSecurityError) Unwrap() error { return e.Err }
