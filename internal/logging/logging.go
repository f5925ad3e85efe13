// Package logging provides the three-level (Info/Warning/Error) logger used
// throughout TinyOPDS. It wraps the standard library's log.Logger rather
// than pulling in a structured-logging dependency: the leveled prefix is all
// a configurable logLevel setting requires (see DESIGN.md).
package logging

import (
	"log"
	"os"
)

// Level is a minimum-severity gate.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// ParseLevel maps the configuration string ("Info"/"Warning"/"Error") to a
// Level, defaulting to LevelInfo for anything unrecognized.
func ParseLevel(s string) Level {
	switch s {
	case "Warning":
		return LevelWarning
	case "Error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a minimum-severity-gated wrapper around log.Logger.
type Logger struct {
	min Level
	out *log.Logger
}

// New creates a Logger that writes to stderr and drops messages below min.
func New(min Level) *Logger {
	return &Logger{min: min, out: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *Logger) SetLevel(min Level) { l.min = min }

func (l *Logger) Infof(format string, args ...any) {
	if l.min <= LevelInfo {
		l.out.Printf("INFO  "+format, args...)
	}
}

func (l *Logger) Warningf(format string, args ...any) {
	if l.min <= LevelWarning {
		l.out.Printf("WARN  "+format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...any) {
	if l.min <= LevelError {
		l.out.Printf("ERROR "+format, args...)
	}
}
