// Package monitoring holds the process-wide diagnostic logger.
package monitoring

import "log"

// Logf is the package-level diagnostic logger used across the counting
// pipeline. It defaults to log.Printf; SetLogger swaps it so tests can mute
// or capture output.
var Logf func(format string, v ...interface{}) = log.Printf

// Verbose gates Debugf. Off by default; the -verbose flag turns it on.
var Verbose bool

// SetLogger replaces the package logger. A nil f installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Debugf logs only when Verbose is set. Use for per-frame chatter that
// would swamp the log on a busy channel.
func Debugf(format string, v ...interface{}) {
	if Verbose {
		Logf(format, v...)
	}
}
