package internal

// Delimiter defaults
const (
	StrOpenDelim  = "{{"
	StrCloseDelim = "}}"
)

// Tag keywords, matched against the trimmed tag content
const (
	KeyValue     = "$"
	KeyLoopValue = ".$"
	KeyFor       = "#FOR"
	KeyEndFor    = "#ENDFOR"
	KeyIf        = "#IF"
	KeyElseIf    = "#ELSIF"
	KeyElse      = "#ELSE"
	KeyEndIf     = "#ENDIF"
	KeyCursor    = "%CURSOR"
	KeyRows      = "%ROWS"
	KeyDate      = "%DATE"
	KeyTime      = "%TIME"
	KeySpace     = "%SPACE"
	KeyBlank     = "%BLANK"
	KeyLoopScope = "@"
)

// Logical wrapper syntax for #IF / #ELSIF
const (
	LogicAnd   = "AND"
	LogicOr    = "OR"
	LogicOpen  = "("
	LogicClose = ")"
	LogicSep   = ","
)

// Comparison operators, listed in match order
const (
	OpEq = "=="
	OpNe = "!="
	OpLe = "<="
	OpLt = "<"
	OpGe = ">="
	OpGt = ">"
)

// Built-in values
const (
	StringValueEmpty = ""
	StringValueSpace = " "
	StringValueFalse = "0"
)

// Date and time formats for %DATE / %TIME (unpadded)
const (
	FmtDate = "%d-%d-%d"
	FmtTime = "%d:%d:%d"
)

// Tag kind names for logs and diagnostics
const (
	TagKindNameValue     = "VALUE"
	TagKindNameLoopValue = "LOOP_VALUE"
	TagKindNameFor       = "FOR"
	TagKindNameEndFor    = "ENDFOR"
	TagKindNameIf        = "IF"
	TagKindNameElseIf    = "ELSIF"
	TagKindNameElse      = "ELSE"
	TagKindNameEndIf     = "ENDIF"
	TagKindNameCursor    = "CURSOR"
	TagKindNameRows      = "ROWS"
	TagKindNameDate      = "DATE"
	TagKindNameTime      = "TIME"
	TagKindNameSpace     = "SPACE"
	TagKindNameBlank     = "BLANK"
	TagKindNameUnknown   = "UNKNOWN"
)

// Diagnostic messages - format strings take the offending tag or loop name
const (
	DiagMsgNotInitialized    = "template not initialized"
	DiagMsgTagNotClosed      = "can't find closing delimiter"
	DiagMsgIfNotClosed       = "can't find #ENDIF"
	DiagMsgForNotClosed      = "can't find #ENDFOR"
	DiagMsgUnknownTagFmt     = "unknown tag %q"
	DiagMsgUnexpectedTagFmt  = "unexpected %s tag %s %s"
	DiagMsgLogicMalformedFmt = "malformed %s wrapper %q"
	DiagMsgLoopNotReadyFmt   = "loop %s %q not defined or has no rows"
	DiagMsgLoopRedefinedFmt  = "loop %q redefined"
	DiagMsgFieldDupFmt       = "loop %q declares field %q more than once"
	DiagMsgLoopUndefinedFmt  = "loop %q not defined, call DefineLoop first"
	DiagMsgLoadFailedFmt     = "can't load template %s"
)

// Diagnostic contexts used in DiagMsgUnexpectedTagFmt
const (
	DiagCtxTopLevel = "at top level"
	DiagCtxIf       = "inside #IF block"
	DiagCtxFor      = "inside #FOR block"
)

// Severity names
const (
	SeverityNameWarning = "warning"
	SeverityNameError   = "error"
)

// Trailer layout
const (
	TrailerOpenFmt     = "\n<!-- %s %s %s\n"
	TrailerSourceFmt   = "  source: %s\n"
	TrailerLoopsFmt    = "  loops: %d\n"
	TrailerLoopFmt     = "    loop %s\t\t%d/%d rows\n"
	TrailerDiagsFmt    = "  diagnostics: %d\n"
	TrailerDiagFmt     = "    line %d\t\t%s: %s\n"
	TrailerClose       = "-->"
	DefaultTrailerName = "webtmpl"
)

// Log message constants
const (
	LogMsgRendererCreated = "renderer created"
	LogMsgRenderStart     = "starting render"
	LogMsgRenderEnd       = "render complete"
	LogMsgRenderAborted   = "render aborted by sink error"
	LogMsgIfBlock         = "entering conditional block"
	LogMsgForBlock        = "entering loop block"
	LogMsgForIteration    = "loop iteration"
	LogMsgDiagnostic      = "template diagnostic"
	LogMsgLoopDefined     = "loop defined"
	LogMsgRowAppended     = "row appended"
	LogMsgBindingsCleared = "bindings cleared"
)

// Log field names
const (
	LogFieldSourceLength = "source_length"
	LogFieldOutputBytes  = "output_bytes"
	LogFieldLine         = "line"
	LogFieldSeverity     = "severity"
	LogFieldMessage      = "message"
	LogFieldLoop         = "loop"
	LogFieldCursor       = "cursor"
	LogFieldRows         = "rows"
	LogFieldFields       = "fields"
	LogFieldExpression   = "expression"
	LogFieldStatus       = "status"
	LogFieldDiagnostics  = "diagnostics"
)
