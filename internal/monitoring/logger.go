// Package monitoring carries the process-wide diagnostic logger shared by
// the long-running packages (sweep runner, simulator, store) so tests can
// mute or capture their output.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Prefixed returns a log function that prepends a bracketed subsystem tag,
// e.g. Prefixed("sweep") logs as "[sweep] ...". The returned function reads
// Logf at call time, so SetLogger affects already-created prefixed loggers.
func Prefixed(tag string) func(format string, v ...interface{}) {
	prefix := "[" + tag + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
