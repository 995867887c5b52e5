package internal

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Renderer interprets template source against a binding store.
// A Renderer holds no per-render state; every Render call builds its own context.
type Renderer struct {
	bindings *Bindings
	log      *Log
	delims   Delimiters
	logger   *zap.Logger
}

// NewRenderer creates a renderer reading from bindings and reporting into log
func NewRenderer(bindings *Bindings, log *Log, delims Delimiters, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if delims.Open == StringValueEmpty || delims.Close == StringValueEmpty {
		delims = DefaultDelimiters()
	}
	logger.Debug(LogMsgRendererCreated)
	return &Renderer{
		bindings: bindings,
		log:      log,
		delims:   delims,
		logger:   logger,
	}
}

// RenderResult describes a finished render pass
type RenderResult struct {
	Date    string         // %DATE value used for the pass
	Time    string         // %TIME value used for the pass
	Cursors map[string]int // Final cursor of every loop entered
	Bytes   int            // Bytes written to the sink
}

// Render writes the rendered source to w.
// Template problems never fail a render; they are recorded in the log.
// The only returned error is the first write error of the sink.
func (r *Renderer) Render(w io.Writer, src string, now time.Time) (RenderResult, error) {
	st := &renderState{
		bindings: r.bindings,
		log:      r.log,
		delims:   r.delims,
		logger:   r.logger,
		src:      src,
		out:      &errWriter{w: w},
		date:     fmt.Sprintf(FmtDate, now.Year(), int(now.Month()), now.Day()),
		time:     fmt.Sprintf(FmtTime, now.Hour(), now.Minute(), now.Second()),
		cursors:  make(map[string]int),
	}

	r.logger.Debug(LogMsgRenderStart, zap.Int(LogFieldSourceLength, len(src)))
	if src == StringValueEmpty {
		st.report(SeverityError, DiagMsgNotInitialized)
	} else {
		st.run()
	}

	result := RenderResult{
		Date:    st.date,
		Time:    st.time,
		Cursors: st.cursors,
		Bytes:   st.out.n,
	}
	if st.out.err != nil {
		r.logger.Debug(LogMsgRenderAborted, zap.Error(st.out.err))
		return result, st.out.err
	}
	r.logger.Debug(LogMsgRenderEnd, zap.Int(LogFieldOutputBytes, st.out.n))
	return result, nil
}

// renderState is the context threaded through one render pass
type renderState struct {
	bindings *Bindings
	log      *Log
	delims   Delimiters
	logger   *zap.Logger

	src  string
	out  *errWriter
	date string
	time string

	loop     string         // Loop in scope, "" at top level
	cursor   int            // Row of the loop in scope
	cursors  map[string]int // Current row of every entered loop, for @loop references
	lastLoop string         // Last loop completed outside any loop scope, for a bare %ROWS there
	line     int            // Newlines seen in literal text so far
	replay   bool           // Set while re-reading a loop body for rows after the first
}

// loopScope is a saved loop context
type loopScope struct {
	loop   string
	cursor int
}

func (st *renderState) snapshot() loopScope {
	return loopScope{loop: st.loop, cursor: st.cursor}
}

func (st *renderState) restore(s loopScope) {
	st.loop = s.loop
	st.cursor = s.cursor
	if s.loop != StringValueEmpty {
		st.cursors[s.loop] = s.cursor
	}
}

// emit writes text when the governing status allows it
func (st *renderState) emit(status bool, text string) {
	if status {
		st.out.write(text)
	}
}

// literal accounts for a literal text segment and emits it
func (st *renderState) literal(status bool, text string) {
	if !st.replay {
		st.line += strings.Count(text, "\n")
	}
	st.emit(status, text)
}

// report records a diagnostic unless a loop body is being replayed
func (st *renderState) report(severity Severity, msg string) {
	if st.replay {
		return
	}
	st.log.Add(st.line, severity, msg)
}

// unknown handles an unclassifiable tag and returns the offset to resume at
func (st *renderState) unknown(status bool, tag Tag) int {
	st.report(SeverityWarning, fmt.Sprintf(DiagMsgUnknownTagFmt, st.src[tag.Offset:tag.End()]))
	next := tag.Offset + tag.Resync(st.delims)
	st.emit(status, st.src[tag.Offset:next])
	return next
}

// unexpected reports a structural tag that is not valid where it appears
func (st *renderState) unexpected(where string, tag Tag) {
	st.report(SeverityError, fmt.Sprintf(DiagMsgUnexpectedTagFmt, tag.Kind, st.src[tag.Offset:tag.End()], where))
}

// run is the top-level scan over the whole template
func (st *renderState) run() {
	last := 0
	for {
		cur := FindTag(st.src, last, st.delims)
		if cur < 0 {
			break
		}
		st.literal(true, st.src[last:cur])

		tag, ok := ScanTag(st.src, cur, st.delims)
		if !ok {
			st.report(SeverityError, DiagMsgTagNotClosed)
			last = cur
			break
		}

		next := tag.End()
		switch {
		case tag.Kind.IsValue():
			st.emit(true, st.value(tag.Expr))

		case tag.Kind == TagKindIf:
			next = st.renderIf(tag, true)

		case tag.Kind == TagKindFor:
			name := st.value(tag.Expr)
			next = st.renderFor(tag, true)
			st.lastLoop = name
			st.loop = StringValueEmpty
			st.cursor = 0

		case tag.Kind == TagKindUnknown:
			next = st.unknown(true, tag)

		default:
			st.unexpected(DiagCtxTopLevel, tag)
		}
		last = next
	}

	st.emit(true, st.src[last:])
}

// renderIf processes an #IF block starting at tag and returns the offset after its #ENDIF.
// parent is the status of the enclosing region; a false parent makes the whole block inert.
func (st *renderState) renderIf(tag Tag, parent bool) int {
	status, effected := false, true
	if parent {
		if st.condition(tag.Expr) {
			status = true
		} else {
			effected = false
		}
	}
	st.logger.Debug(LogMsgIfBlock, zap.String(LogFieldExpression, tag.Expr), zap.Bool(LogFieldStatus, status))

	last := tag.End()
	for {
		cur := FindTag(st.src, last, st.delims)
		if cur < 0 {
			break
		}
		st.literal(status, st.src[last:cur])

		sub, ok := ScanTag(st.src, cur, st.delims)
		if !ok {
			st.report(SeverityError, DiagMsgTagNotClosed)
			last = cur
			break
		}

		next := sub.End()
		switch {
		case sub.Kind.IsValue():
			if status {
				st.emit(true, st.value(sub.Expr))
			}

		case sub.Kind == TagKindElseIf:
			switch {
			case effected:
				status = false
			case st.condition(sub.Expr):
				status, effected = true, true
			default:
				status = false
			}

		case sub.Kind == TagKindElse:
			if effected {
				status = false
			} else {
				status, effected = true, true
			}

		case sub.Kind == TagKindEndIf:
			return next

		case sub.Kind == TagKindIf:
			next = st.renderIf(sub, status)

		case sub.Kind == TagKindFor:
			scope := st.snapshot()
			name := st.value(sub.Expr)
			next = st.renderFor(sub, status)
			st.restore(scope)
			if status && scope.loop == StringValueEmpty {
				st.lastLoop = name
			}

		case sub.Kind == TagKindUnknown:
			next = st.unknown(status, sub)

		default:
			st.unexpected(DiagCtxIf, sub)
		}
		last = next
	}

	st.report(SeverityError, DiagMsgIfNotClosed)
	st.emit(status, st.src[last:])
	return len(st.src)
}

// renderFor processes a #FOR block starting at tag and returns the offset after its #ENDFOR.
// The body is re-read once per row by rewinding to the end of the #FOR tag.
func (st *renderState) renderFor(tag Tag, parent bool) int {
	name := st.value(tag.Expr)
	status := parent && st.checkLoop(tag.Expr, name)
	rows := st.rowCount(name)
	st.logger.Debug(LogMsgForBlock,
		zap.String(LogFieldLoop, name),
		zap.Int(LogFieldRows, rows),
		zap.Bool(LogFieldStatus, status))

	replay := st.replay
	defer func() { st.replay = replay }()

	st.loop = name
	st.cursor = 0
	st.cursors[name] = 0

	cursor := 0
	body := tag.End()
	last := body
	for {
		cur := FindTag(st.src, last, st.delims)
		if cur < 0 {
			break
		}
		st.literal(status, st.src[last:cur])

		sub, ok := ScanTag(st.src, cur, st.delims)
		if !ok {
			st.report(SeverityError, DiagMsgTagNotClosed)
			last = cur
			break
		}

		st.cursor = cursor
		next := sub.End()
		switch {
		case sub.Kind.IsValue():
			if status {
				st.emit(true, st.value(sub.Expr))
			}

		case sub.Kind == TagKindEndFor:
			if !status {
				return next
			}
			cursor++
			st.cursors[name] = cursor
			if cursor < rows {
				st.logger.Debug(LogMsgForIteration, zap.String(LogFieldLoop, name), zap.Int(LogFieldCursor, cursor))
				st.replay = true
				last = body
				continue
			}
			return next

		case sub.Kind == TagKindIf:
			next = st.renderIf(sub, status)

		case sub.Kind == TagKindFor:
			next = st.renderFor(sub, status)
			st.restore(loopScope{loop: name, cursor: cursor})

		case sub.Kind == TagKindUnknown:
			next = st.unknown(status, sub)

		default:
			st.unexpected(DiagCtxFor, sub)
		}
		last = next
	}

	st.report(SeverityError, DiagMsgForNotClosed)
	st.emit(status, st.src[last:])
	return len(st.src)
}

// checkLoop reports whether a loop can be iterated, warning when it cannot
func (st *renderState) checkLoop(expr, name string) bool {
	if st.rowCount(name) > 0 {
		return true
	}
	st.report(SeverityWarning, fmt.Sprintf(DiagMsgLoopNotReadyFmt, expr, name))
	return false
}
