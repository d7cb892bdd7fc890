// Package logging provides the small structured-ish logging interface used
// across the cache and its collaborator adapters, mirroring the logger
// abstraction the rest of this codebase's worker packages rely on.
package logging

import "log"

// Logger is implemented by anything that can receive leveled, formatted log
// lines. Production code gets StdLogger; tests pass Noop.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// StdLogger wraps the standard library logger with level prefixes.
type StdLogger struct {
	Prefix string
}

// New returns a StdLogger that tags every line with prefix, e.g. "[cache]".
func New(prefix string) *StdLogger {
	return &StdLogger{Prefix: prefix}
}

func (l *StdLogger) Debugf(format string, args ...interface{}) {
	log.Printf(l.Prefix+" DEBUG "+format, args...)
}

func (l *StdLogger) Infof(format string, args ...interface{}) {
	log.Printf(l.Prefix+" INFO "+format, args...)
}

func (l *StdLogger) Warnf(format string, args ...interface{}) {
	log.Printf(l.Prefix+" WARN "+format, args...)
}

func (l *StdLogger) Errorf(format string, args ...interface{}) {
	log.Printf(l.Prefix+" ERROR "+format, args...)
}

// Noop discards everything; handy for tests that don't care about log output.
type Noop struct{}

func (Noop) Debugf(string, ...interface{}) {}
func (Noop) Infof(string, ...interface{})  {}
func (Noop) Warnf(string, ...interface{})  {}
func (Noop) Errorf(string, ...interface{}) {}
