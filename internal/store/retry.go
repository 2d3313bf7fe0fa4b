package store

import (
	"fmt"
	"strings"
	"time"
)

// maxBusyAttempts bounds retryOnBusy; the pragma-level busy_timeout
// handles most contention before it surfaces here.
const maxBusyAttempts = 5

// isSQLiteBusy reports whether err is a transient SQLITE_BUSY condition
// worth retrying.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// retryOnBusy runs op up to maxBusyAttempts times with exponential backoff
// (10ms, 20ms, 40ms, 80ms) while it keeps returning busy errors. Any other
// error is returned unwrapped on the first occurrence.
func (db *DB) retryOnBusy(op func() error) error {
	delay := 10 * time.Millisecond
	var err error
	for attempt := 0; attempt < maxBusyAttempts; attempt++ {
		err = op()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
		if attempt < maxBusyAttempts-1 {
			db.clock.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("database still busy after %d attempts: %w", maxBusyAttempts, err)
}
