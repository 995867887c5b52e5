package internal

import (
	"sort"
)

// Loop is a named table of string rows iterated by #FOR
type Loop struct {
	Name   string
	Fields []string
	Rows   [][]string
	Cursor int // Cursor left behind by the most recent render

	index map[string]int
}

// FieldIndex returns the position of a field, or -1 if the loop does not declare it
func (l *Loop) FieldIndex(field string) int {
	if i, ok := l.index[field]; ok {
		return i
	}
	return -1
}

// Cell returns the value at the given row and field, or "" when either is out of range
func (l *Loop) Cell(row int, field string) string {
	col := l.FieldIndex(field)
	if col < 0 || row < 0 || row >= len(l.Rows) {
		return StringValueEmpty
	}
	return l.Rows[row][col]
}

// RowCount returns the number of appended rows
func (l *Loop) RowCount() int {
	return len(l.Rows)
}

// DefineResult reports what DefineLoop had to adjust
type DefineResult struct {
	Redefined  bool     // A loop with the same name already existed
	Duplicates []string // Field names declared more than once (later copies dropped)
}

// Bindings owns the scalar values and loop tables a template renders against.
// Bindings is not safe for concurrent use; the engine serialises access.
type Bindings struct {
	values map[string]string
	loops  map[string]*Loop
}

// NewBindings creates an empty binding store
func NewBindings() *Bindings {
	return &Bindings{
		values: make(map[string]string),
		loops:  make(map[string]*Loop),
	}
}

// Set upserts a scalar value. Empty names are ignored.
func (b *Bindings) Set(name, value string) {
	if name == StringValueEmpty {
		return
	}
	b.values[name] = value
}

// Value returns a scalar value, "" when unset
func (b *Bindings) Value(name string) string {
	return b.values[name]
}

// HasValue reports whether a scalar is set
func (b *Bindings) HasValue(name string) bool {
	_, ok := b.values[name]
	return ok
}

// DefineLoop (re)initialises a loop with the given fields, dropping any rows.
// Empty field names are skipped. A scalar of the same name is seeded with the
// loop name itself if unset, so {{#FOR $name}} resolves to the loop.
func (b *Bindings) DefineLoop(name string, fields []string) DefineResult {
	var result DefineResult
	if _, exists := b.loops[name]; exists {
		result.Redefined = true
	}

	loop := &Loop{
		Name:   name,
		Fields: make([]string, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, field := range fields {
		if field == StringValueEmpty {
			continue
		}
		if _, dup := loop.index[field]; dup {
			result.Duplicates = append(result.Duplicates, field)
			continue
		}
		loop.index[field] = len(loop.Fields)
		loop.Fields = append(loop.Fields, field)
	}
	b.loops[name] = loop

	if !b.HasValue(name) {
		b.Set(name, name)
	}
	return result
}

// AppendRow adds one row to a loop, padding with "" or truncating to the field count.
// Returns false if the loop is not defined.
func (b *Bindings) AppendRow(name string, values []string) bool {
	loop, ok := b.loops[name]
	if !ok {
		return false
	}

	row := make([]string, len(loop.Fields))
	copy(row, values)
	loop.Rows = append(loop.Rows, row)
	return true
}

// AppendRecord adds one row built from a field-name keyed record.
// Keys that are not fields of the loop are ignored.
func (b *Bindings) AppendRecord(name string, record map[string]string) bool {
	loop, ok := b.loops[name]
	if !ok {
		return false
	}

	row := make([]string, len(loop.Fields))
	for i, field := range loop.Fields {
		row[i] = record[field]
	}
	loop.Rows = append(loop.Rows, row)
	return true
}

// Loop returns a loop by name
func (b *Bindings) Loop(name string) (*Loop, bool) {
	loop, ok := b.loops[name]
	return loop, ok
}

// LoopNames returns all loop names in sorted order
func (b *Bindings) LoopNames() []string {
	names := make([]string, 0, len(b.loops))
	for name := range b.loops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValueNames returns all scalar names in sorted order
func (b *Bindings) ValueNames() []string {
	names := make([]string, 0, len(b.values))
	for name := range b.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear drops every scalar and loop
func (b *Bindings) Clear() {
	b.values = make(map[string]string)
	b.loops = make(map[string]*Loop)
}
