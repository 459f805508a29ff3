// File: logging/logging.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pluggable log sink with five severities. The process-wide default writes
// to standard error through logrus. Fatal severity terminates the process
// after the line is flushed.

package logging

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Severity of a log line.
type Severity int

const (
	Debug Severity = iota
	Info
	Warning
	Error
	Fatal
)

// String returns the upper-case name of the severity.
func (s Severity) String() string {
	switch s {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Sink consumes formatted log lines. Implementations must be safe for use
// from multiple goroutines.
type Sink interface {
	Log(severity Severity, message string)
}

var sink atomic.Value // holds Sink
var initOnce sync.Once

func defaultSink() Sink {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.DebugLevel)
	return &logrusSink{l: l}
}

type logrusSink struct {
	l *logrus.Logger
}

func (s *logrusSink) Log(severity Severity, message string) {
	switch severity {
	case Debug:
		s.l.Debug(message)
	case Info:
		s.l.Info(message)
	case Warning:
		s.l.Warn(message)
	case Error:
		s.l.Error(message)
	case Fatal:
		// logrus exits the process after logging at this level.
		s.l.Fatal(message)
	}
}

// SetSink replaces the process-wide sink.
func SetSink(s Sink) {
	sink.Store(&s)
}

// Get returns the current process-wide sink, initializing the logrus
// default on first use.
func Get() Sink {
	initOnce.Do(func() {
		if sink.Load() == nil {
			var s Sink = defaultSink()
			sink.Store(&s)
		}
	})
	return *sink.Load().(*Sink)
}

// Logf formats and logs at the given severity.
func Logf(severity Severity, format string, args ...any) {
	Get().Log(severity, fmt.Sprintf(format, args...))
}

// Debugf logs at Debug severity.
func Debugf(format string, args ...any) { Logf(Debug, format, args...) }

// Infof logs at Info severity.
func Infof(format string, args ...any) { Logf(Info, format, args...) }

// Warnf logs at Warning severity.
func Warnf(format string, args ...any) { Logf(Warning, format, args...) }

// Errorf logs at Error severity.
func Errorf(format string, args ...any) { Logf(Error, format, args...) }

// Fatalf logs at Fatal severity and terminates the process.
func Fatalf(format string, args ...any) {
	Logf(Fatal, format, args...)
	// Reached only with a custom sink that does not exit on Fatal.
	os.Exit(1)
}
