package webtmpl

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/itsatony/go-webtmpl/internal"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"
)

// Severity grades a diagnostic.
type Severity = internal.Severity

// Severity constants
const (
	SeverityWarning = internal.SeverityWarning
	SeverityError   = internal.SeverityError
)

// Diagnostic is a problem noticed while loading, binding or rendering.
type Diagnostic struct {
	Line     int // 1-based template line; events outside a render report line 1
	Severity Severity
	Message  string
}

// Render writes the rendered template to w.
// Template problems never fail a render; they are collected as diagnostics.
// The returned error only reports a failing writer.
func (e *Engine) Render(w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.render(w)
	return err
}

// RenderString renders the template into a string.
func (e *Engine) RenderString() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sb strings.Builder
	_, _ = e.render(&sb)
	return sb.String()
}

// RenderWithDiagnostics renders the template followed by a trailer listing the
// loops and every diagnostic collected so far. The collected diagnostics are
// cleared once the trailer has been written.
func (e *Engine) RenderWithDiagnostics(w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.renderWithDiagnostics(w)
}

// RenderFile renders the template into a file, replacing it atomically.
func (e *Engine) RenderFile(path string, withDiagnostics bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var buf bytes.Buffer
	var err error
	if withDiagnostics {
		err = e.renderWithDiagnostics(&buf)
	} else {
		_, err = e.render(&buf)
	}
	if err != nil {
		return NewRenderFileError(path, err)
	}

	size := buf.Len()
	if err := atomic.WriteFile(path, &buf); err != nil {
		return NewRenderFileError(path, err)
	}
	if err := os.Chmod(path, e.config.fileMode); err != nil {
		return NewRenderFileError(path, err)
	}

	e.logger.Debug(LogMsgFileRendered, zap.String(LogFieldPath, path), zap.Int(LogFieldBytes, size))
	return nil
}

func (e *Engine) render(w io.Writer) (internal.RenderResult, error) {
	result, err := e.renderer.Render(w, e.source, e.config.clock())

	for name, cursor := range result.Cursors {
		if loop, ok := e.bindings.Loop(name); ok {
			loop.Cursor = cursor
		}
	}
	if err != nil {
		return result, NewWriteError(result.Bytes, err)
	}
	return result, nil
}

func (e *Engine) renderWithDiagnostics(w io.Writer) error {
	result, err := e.render(w)
	if err != nil {
		return err
	}

	trailer := internal.Trailer{
		Title:       e.config.trailerTitle,
		Date:        result.Date,
		Time:        result.Time,
		Source:      e.sourceName,
		Diagnostics: e.diags.Sorted(),
	}
	for _, name := range e.bindings.LoopNames() {
		loop, _ := e.bindings.Loop(name)
		trailer.Loops = append(trailer.Loops, internal.LoopSummary{
			Name:   name,
			Cursor: loop.Cursor,
			Rows:   loop.RowCount(),
		})
	}

	if err := internal.WriteTrailer(w, trailer); err != nil {
		return NewWriteError(result.Bytes, err)
	}
	e.diags.Reset()
	return nil
}

// Diagnostics returns the diagnostics collected since the last trailer, in the
// order they occurred.
func (e *Engine) Diagnostics() []Diagnostic {
	e.mu.Lock()
	defer e.mu.Unlock()

	return publicDiagnostics(e.diags.Entries())
}

// HasErrors reports whether any collected diagnostic is an error.
func (e *Engine) HasErrors() bool {
	for _, d := range e.Diagnostics() {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ClearDiagnostics drops the collected diagnostics.
func (e *Engine) ClearDiagnostics() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.diags.Reset()
}

func publicDiagnostics(entries []internal.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, len(entries))
	for i, d := range entries {
		out[i] = Diagnostic{Line: d.Line + 1, Severity: d.Severity, Message: d.Message}
	}
	return out
}
