package internal

import (
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"
)

// Severity grades a diagnostic
type Severity int

// Severity constants
const (
	SeverityWarning Severity = iota
	SeverityError
)

// String returns the string representation of the severity
func (s Severity) String() string {
	if s == SeverityError {
		return SeverityNameError
	}
	return SeverityNameWarning
}

// Diagnostic is one logged render event
type Diagnostic struct {
	Line     int // 0-indexed source line, counted from emitted literal text
	Severity Severity
	Message  string
}

// Log collects diagnostics in insertion order and mirrors them to a logger
type Log struct {
	entries []Diagnostic
	logger  *zap.Logger
}

// NewLog creates an empty diagnostic log
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Add records a diagnostic. Empty messages are dropped.
func (l *Log) Add(line int, severity Severity, msg string) {
	if msg == StringValueEmpty {
		return
	}
	l.entries = append(l.entries, Diagnostic{Line: line, Severity: severity, Message: msg})
	l.logger.Debug(LogMsgDiagnostic,
		zap.Int(LogFieldLine, line+1),
		zap.String(LogFieldSeverity, severity.String()),
		zap.String(LogFieldMessage, msg))
}

// Len returns the number of recorded diagnostics
func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the diagnostics in insertion order
func (l *Log) Entries() []Diagnostic {
	out := make([]Diagnostic, len(l.entries))
	copy(out, l.entries)
	return out
}

// Sorted returns a copy of the diagnostics ordered by line, stable within a line
func (l *Log) Sorted() []Diagnostic {
	out := l.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Line < out[j].Line
	})
	return out
}

// Reset clears the log
func (l *Log) Reset() {
	l.entries = nil
}

// LoopSummary is the trailer line for one loop
type LoopSummary struct {
	Name   string
	Cursor int
	Rows   int
}

// Trailer holds everything printed after a diagnostic render
type Trailer struct {
	Title       string
	Date        string
	Time        string
	Source      string
	Loops       []LoopSummary
	Diagnostics []Diagnostic // Printed in the given order
}

// WriteTrailer formats the trailer as an HTML comment
func WriteTrailer(w io.Writer, t Trailer) error {
	title := t.Title
	if title == StringValueEmpty {
		title = DefaultTrailerName
	}

	ew := &errWriter{w: w}
	ew.printf(TrailerOpenFmt, title, t.Date, t.Time)
	ew.printf(TrailerSourceFmt, t.Source)
	ew.printf(TrailerLoopsFmt, len(t.Loops))
	for _, loop := range t.Loops {
		ew.printf(TrailerLoopFmt, loop.Name, loop.Cursor, loop.Rows)
	}
	ew.printf(TrailerDiagsFmt, len(t.Diagnostics))
	for _, d := range t.Diagnostics {
		ew.printf(TrailerDiagFmt, d.Line+1, d.Severity, d.Message)
	}
	ew.write(TrailerClose)
	return ew.err
}

// errWriter keeps the first write error and turns later writes into no-ops
type errWriter struct {
	w   io.Writer
	n   int
	err error
}

func (e *errWriter) write(s string) {
	if e.err != nil || s == StringValueEmpty {
		return
	}
	n, err := io.WriteString(e.w, s)
	e.n += n
	e.err = err
}

func (e *errWriter) printf(format string, args ...any) {
	e.write(fmt.Sprintf(format, args...))
}
