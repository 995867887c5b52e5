package webtmpl

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/itsatony/go-webtmpl/internal"
	"go.uber.org/zap"
)

// Engine is the main entry point for webtmpl.
// It owns the template source, the scalar and loop bindings, and the diagnostic log.
//
// Calls are serialised by an internal mutex, so an Engine may be shared, but bindings
// are engine-wide: concurrent callers rendering different data need their own Engine.
type Engine struct {
	mu         sync.Mutex
	config     *engineConfig
	bindings   *internal.Bindings
	diags      *internal.Log
	renderer   *internal.Renderer
	source     string
	sourceName string
	logger     *zap.Logger
}

// New creates a new webtmpl Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bindings := internal.NewBindings()
	diags := internal.NewLog(logger)
	delims := internal.Delimiters{
		Open:  config.openDelim,
		Close: config.closeDelim,
	}

	logger.Debug(LogMsgEngineCreated)
	return &Engine{
		config:     config,
		bindings:   bindings,
		diags:      diags,
		renderer:   internal.NewRenderer(bindings, diags, delims, logger),
		sourceName: SourceNameNone,
		logger:     logger,
	}, nil
}

// MustNew creates a new Engine and panics if there's an error.
func MustNew(opts ...Option) *Engine {
	engine, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return engine
}

// LoadString sets the template source from a string.
func (e *Engine) LoadString(source string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.setSource(source, SourceNameString)
}

// LoadFile reads the template source from a file.
// On failure the current source is kept, the failure is recorded as a diagnostic,
// and the source name reports the failure in the trailer.
func (e *Engine) LoadFile(path string) error {
	if path == "" {
		return NewEmptySourceError()
	}
	data, err := os.ReadFile(path)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		return e.loadFailed(path, err)
	}
	e.setSource(string(data), path)
	return nil
}

// LoadDir reads the template source from a file inside a template directory.
func (e *Engine) LoadDir(dir, name string) error {
	if name == "" {
		return NewEmptySourceError()
	}
	return e.LoadFile(filepath.Join(dir, name))
}

// LoadFS reads the template source from a file system, e.g. an embed.FS.
func (e *Engine) LoadFS(fsys fs.FS, name string) error {
	if name == "" {
		return NewEmptySourceError()
	}
	data, err := fs.ReadFile(fsys, name)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		return e.loadFailed(name, err)
	}
	e.setSource(string(data), name)
	return nil
}

// LoadFromStorage reads the latest version of a named template from a storage backend.
func (e *Engine) LoadFromStorage(ctx context.Context, storage TemplateStorage, name string) error {
	if storage == nil {
		return NewStorageMissingError()
	}
	if name == "" {
		return NewEmptySourceError()
	}
	tmpl, err := storage.Get(ctx, name)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		return e.loadFailed(name, err)
	}
	e.setSource(tmpl.Source, fmt.Sprintf("%s v%d", tmpl.Name, tmpl.Version))
	return nil
}

func (e *Engine) setSource(source, name string) {
	e.source = source
	e.sourceName = name
	e.logger.Debug(LogMsgTemplateLoaded,
		zap.String(LogFieldSource, name),
		zap.Int(LogFieldBytes, len(source)))
}

func (e *Engine) loadFailed(name string, cause error) error {
	msg := fmt.Sprintf(internal.DiagMsgLoadFailedFmt, name)
	e.sourceName = msg
	e.diags.Add(0, internal.SeverityError, msg)
	e.logger.Debug(LogMsgTemplateLoadError, zap.String(LogFieldSource, name), zap.Error(cause))
	return NewLoadError(name, cause)
}

// Source returns the loaded template source.
func (e *Engine) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.source
}

// SourceName returns the identifier of the loaded template: a path, a storage
// name and version, "string" for LoadString, or the last load failure.
func (e *Engine) SourceName() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.sourceName
}

// Set upserts a scalar value. Empty names are ignored.
func (e *Engine) Set(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.bindings.Set(name, value)
}

// SetInt upserts a scalar value from an integer.
func (e *Engine) SetInt(name string, value int64) {
	e.Set(name, fmt.Sprintf("%d", value))
}

// Value returns a scalar value, "" when unset.
func (e *Engine) Value(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.bindings.Value(name)
}

// DefineLoop (re)initialises a loop with the given field names, dropping any rows.
// Redefining a loop and repeating a field name are recorded as warnings.
func (e *Engine) DefineLoop(name string, fields ...string) error {
	if name == "" {
		return NewEmptyLoopNameError()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	result := e.bindings.DefineLoop(name, fields)
	if result.Redefined {
		e.diags.Add(0, internal.SeverityWarning, fmt.Sprintf(internal.DiagMsgLoopRedefinedFmt, name))
	}
	for _, field := range result.Duplicates {
		e.diags.Add(0, internal.SeverityWarning, fmt.Sprintf(internal.DiagMsgFieldDupFmt, name, field))
	}
	e.logger.Debug(internal.LogMsgLoopDefined,
		zap.String(internal.LogFieldLoop, name),
		zap.Strings(internal.LogFieldFields, fields))
	return nil
}

// AppendRow adds one row to a loop. Missing trailing values are filled with "",
// surplus values are dropped. Appending to an undefined loop records an error
// diagnostic and returns a not-found error.
func (e *Engine) AppendRow(name string, values []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.bindings.AppendRow(name, values) {
		return e.loopNotDefined(name)
	}
	e.logger.Debug(internal.LogMsgRowAppended, zap.String(internal.LogFieldLoop, name))
	return nil
}

// AppendValues adds one row to a loop, formatting each value with fmt.Sprint.
func (e *Engine) AppendValues(name string, values ...any) error {
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = fmt.Sprint(v)
	}
	return e.AppendRow(name, row)
}

// AppendRecord adds one row to a loop from a map keyed by field name.
// Fields missing from the record are "", keys that are not fields are ignored.
func (e *Engine) AppendRecord(name string, record map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.bindings.AppendRecord(name, record) {
		return e.loopNotDefined(name)
	}
	e.logger.Debug(internal.LogMsgRowAppended, zap.String(internal.LogFieldLoop, name))
	return nil
}

func (e *Engine) loopNotDefined(name string) error {
	e.diags.Add(0, internal.SeverityError, fmt.Sprintf(internal.DiagMsgLoopUndefinedFmt, name))
	return NewLoopNotDefinedError(name)
}

// LoopInfo is a snapshot of a loop definition
type LoopInfo struct {
	Name   string
	Fields []string
	Rows   [][]string
	Cursor int // Cursor left behind by the most recent render
}

// Loop returns a copy of a loop definition and its rows.
func (e *Engine) Loop(name string) (LoopInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	loop, ok := e.bindings.Loop(name)
	if !ok {
		return LoopInfo{}, false
	}

	info := LoopInfo{
		Name:   loop.Name,
		Fields: append([]string(nil), loop.Fields...),
		Rows:   make([][]string, len(loop.Rows)),
		Cursor: loop.Cursor,
	}
	for i, row := range loop.Rows {
		info.Rows[i] = append([]string(nil), row...)
	}
	return info, true
}

// LoopNames returns all defined loop names in sorted order.
func (e *Engine) LoopNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.bindings.LoopNames()
}

// Clear drops every scalar value and loop.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.bindings.Clear()
	e.logger.Debug(internal.LogMsgBindingsCleared)
}
