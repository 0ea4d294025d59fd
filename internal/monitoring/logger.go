// Package monitoring holds the process-wide diagnostic logger for the
// forecasting pipeline, plus a counter for non-fatal data-quality warnings
// (schema fixes, short-history substitutions) so batch jobs can report how
// many corrections were applied.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// warnings counts calls to Warnf since the last ResetWarnings.
var warnings atomic.Int64

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs a non-fatal data-quality warning and increments the warning
// counter. Substitutions (cold-start defaults, short-history means, schema
// fallbacks) go through here so they stay observable.
func Warnf(format string, v ...interface{}) {
	warnings.Add(1)
	Logf("warning: "+format, v...)
}

// WarningCount returns the number of warnings recorded since the last reset.
func WarningCount() int64 {
	return warnings.Load()
}

// ResetWarnings zeroes the warning counter. Intended for test setup and the
// start of batch pipeline runs.
func ResetWarnings() {
	warnings.Store(0)
}
