package internal

import (
	"fmt"
	"strconv"
	"strings"
)

// comparison operators in the order they are searched for
var compareOps = []string{OpEq, OpNe, OpLe, OpLt, OpGe, OpGt}

// value resolves a tag payload to its string value.
// Anything that is not a reference or built-in is returned as literal text.
func (st *renderState) value(expr string) string {
	switch {
	case strings.HasPrefix(expr, KeyValue):
		return st.bindings.Value(expr[len(KeyValue):])

	case strings.HasPrefix(expr, KeyLoopValue):
		return st.loopValue(expr[len(KeyLoopValue):])

	case strings.HasPrefix(expr, KeyCursor):
		if i := strings.Index(expr, KeyLoopScope); i >= 0 {
			name := st.value(expr[i+len(KeyLoopScope):])
			return strconv.Itoa(st.cursors[name] + 1)
		}
		return strconv.Itoa(st.cursor + 1)

	case strings.HasPrefix(expr, KeyRows):
		if i := strings.Index(expr, KeyLoopScope); i >= 0 {
			name := st.value(expr[i+len(KeyLoopScope):])
			return strconv.Itoa(st.rowCount(name))
		}
		if st.loop == StringValueEmpty {
			return strconv.Itoa(st.rowCount(st.lastLoop))
		}
		return strconv.Itoa(st.rowCount(st.loop))

	case expr == KeyDate:
		return st.date
	case expr == KeyTime:
		return st.time
	case expr == KeySpace:
		return StringValueSpace
	case expr == KeyBlank:
		return StringValueEmpty

	default:
		return expr
	}
}

// loopValue resolves "field" against the current loop or "field@loopexpr" against a named one
func (st *renderState) loopValue(ref string) string {
	if i := strings.Index(ref, KeyLoopScope); i >= 0 {
		name := st.value(ref[i+len(KeyLoopScope):])
		loop, ok := st.bindings.Loop(name)
		if !ok {
			return StringValueEmpty
		}
		return loop.Cell(st.cursors[name], ref[:i])
	}

	loop, ok := st.bindings.Loop(st.loop)
	if !ok {
		return StringValueEmpty
	}
	return loop.Cell(st.cursor, ref)
}

// rowCount returns the number of rows of a loop, 0 if it is not defined
func (st *renderState) rowCount(name string) int {
	loop, ok := st.bindings.Loop(name)
	if !ok {
		return 0
	}
	return loop.RowCount()
}

// condition evaluates an #IF / #ELSIF payload, including AND(...) / OR(...) wrappers
func (st *renderState) condition(expr string) bool {
	var op, rest string
	switch {
	case strings.HasPrefix(expr, LogicAnd):
		op, rest = LogicAnd, expr[len(LogicAnd):]
	case strings.HasPrefix(expr, LogicOr):
		op, rest = LogicOr, expr[len(LogicOr):]
	default:
		return st.compare(expr)
	}

	rest = strings.TrimSpace(rest)
	if len(rest) < len(LogicOpen)+len(LogicClose) ||
		!strings.HasPrefix(rest, LogicOpen) || !strings.HasSuffix(rest, LogicClose) {
		st.report(SeverityWarning, fmt.Sprintf(DiagMsgLogicMalformedFmt, op, expr))
		return st.compare(expr)
	}

	list := strings.Split(rest[len(LogicOpen):len(rest)-len(LogicClose)], LogicSep)
	if op == LogicAnd {
		for _, sub := range list {
			if !st.compare(strings.TrimSpace(sub)) {
				return false
			}
		}
		return true
	}

	for _, sub := range list {
		if st.compare(strings.TrimSpace(sub)) {
			return true
		}
	}
	return false
}

// compare evaluates a single binary comparison, or the truthiness of a lone value
func (st *renderState) compare(expr string) bool {
	op, pos := findOperator(expr)
	if op == StringValueEmpty {
		v := st.value(expr)
		return v != StringValueEmpty && v != StringValueFalse
	}

	left := st.value(strings.TrimSpace(expr[:pos]))
	right := st.value(strings.TrimSpace(expr[pos+len(op):]))
	cmp := CompareValues(left, right)

	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLe:
		return cmp <= 0
	case OpLt:
		return cmp < 0
	case OpGe:
		return cmp >= 0
	case OpGt:
		return cmp > 0
	default:
		return false
	}
}

// findOperator returns the first operator (in search order) present in expr and its offset
func findOperator(expr string) (string, int) {
	for _, op := range compareOps {
		if pos := strings.Index(expr, op); pos >= 0 {
			return op, pos
		}
	}
	return StringValueEmpty, -1
}

// CompareValues three-way compares two resolved values.
// Two all-digit strings compare as integers, anything else byte-wise.
func CompareValues(a, b string) int {
	if IsNumeric(a) && IsNumeric(b) {
		return compareDigits(a, b)
	}
	return strings.Compare(a, b)
}

// IsNumeric reports whether s is a non-empty run of ASCII digits
func IsNumeric(s string) bool {
	if s == StringValueEmpty {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// compareDigits compares two digit strings numerically without overflow
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
