package main

import "time"

// Command names
const (
	CmdNameRender  = "render"
	CmdNameCheck   = "check"
	CmdNameWatch   = "watch"
	CmdNameVersion = "version"
	CmdNameHelp    = "help"
)

// Flag names - long form
const (
	FlagTemplate   = "template"
	FlagData       = "data"
	FlagDataFile   = "data-file"
	FlagOutput     = "output"
	FlagStore      = "store"
	FlagName       = "name"
	FlagDebug      = "debug"
	FlagVerbose    = "verbose"
	FlagFormat     = "format"
	FlagStrictMode = "strict"
)

// Flag names - short form
const (
	FlagTemplateShort = "t"
	FlagDataShort     = "d"
	FlagDataFileShort = "f"
	FlagOutputShort   = "o"
	FlagStoreShort    = "s"
	FlagNameShort     = "n"
	FlagVerboseShort  = "v"
	FlagFormatShort   = "F"
)

// Flag default values
const (
	FlagDefaultOutput = "-" // stdout
	FlagDefaultFormat = "text"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Exit codes
const (
	ExitCodeSuccess         = 0
	ExitCodeError           = 1
	ExitCodeUsageError      = 2
	ExitCodeValidationError = 3
	ExitCodeInputError      = 4
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// Watch settings
const (
	WatchDebounce = 50 * time.Millisecond
)

// Error messages - ALL must be constants
const (
	ErrMsgUnknownCommand      = "unknown command"
	ErrMsgMissingTemplate     = "template source required"
	ErrMsgTemplateAndStore    = "use either a template file or a store name, not both"
	ErrMsgStoreNeedsName      = "store requires a template name"
	ErrMsgInvalidData         = "invalid data document"
	ErrMsgReadFileFailed      = "failed to read file"
	ErrMsgReadStoreFailed     = "failed to load template from store"
	ErrMsgWriteOutputFailed   = "failed to write output"
	ErrMsgInvalidFormat       = "invalid output format"
	ErrMsgInvalidFlags        = "invalid flags"
	ErrMsgNoPatterns          = "at least one template pattern required"
	ErrMsgNoMatches           = "no templates matched"
	ErrMsgBadPattern          = "invalid glob pattern"
	ErrMsgWatchNeedsFiles     = "watch requires a template file and an output file"
	ErrMsgWatcherFailed       = "file watcher failed"
	ErrMsgEngineFailed        = "failed to create engine"
)

// Help text templates
const (
	HelpMainUsage = `webtmpl - CGI-style text templating CLI

Usage:
    webtmpl <command> [options]

Commands:
    render      Render a template with data
    check       Render templates and report diagnostics
    watch       Re-render a template whenever it or its data changes
    version     Show version information
    help        Show help for a command

Use "webtmpl help <command>" for more information about a command.`

	HelpRenderUsage = `Render a template with data

Usage:
    webtmpl render [options]

Options:
    -t, --template <file>   Template file (use "-" for stdin)
    -s, --store <dir>       Filesystem template store (with --name)
    -n, --name <name>       Template name in the store
    -d, --data <json>       JSON data document
    -f, --data-file <file>  JSON or YAML data document
    -o, --output <file>     Output file, written atomically (default: stdout)
    --debug                 Append the diagnostic trailer
    -v, --verbose           Log engine activity to stderr

Data documents:
    {"values": {"username": "alice"},
     "loops": {"orders": {"fields": ["id", "total"], "rows": [["1", "20"]]}}}

Examples:
    webtmpl render -t page.tmpl -f data.yaml
    webtmpl render -t page.tmpl -d '{"values": {"username": "alice"}}'
    cat page.tmpl | webtmpl render -t - -f data.json -o page.html
    webtmpl render -s ./templates -n page -f data.yaml --debug`

	HelpCheckUsage = `Render templates and report diagnostics

Usage:
    webtmpl check [options] <pattern>...

Patterns may use ** to match directories recursively.

Options:
    -f, --data-file <file>  JSON or YAML data document bound before rendering
    -F, --format <format>   Output format: text, json (default: text)
    --strict                Treat warnings as errors

Examples:
    webtmpl check 'templates/**/*.tmpl'
    webtmpl check -f data.yaml --strict page.tmpl`

	HelpWatchUsage = `Re-render a template whenever it or its data changes

Usage:
    webtmpl watch [options]

Options:
    -t, --template <file>   Template file
    -f, --data-file <file>  JSON or YAML data document
    -o, --output <file>     Output file
    --debug                 Append the diagnostic trailer
    -v, --verbose           Log engine activity to stderr

Example:
    webtmpl watch -t page.tmpl -f data.yaml -o page.html`

	HelpVersionUsage = `Show version information

Usage:
    webtmpl version [options]

Options:
    -F, --format <format>   Output format: text, json (default: text)`

	HelpHelpUsage = `Show help for a command

Usage:
    webtmpl help [command]

Commands:
    render      Show help for render command
    check       Show help for check command
    watch       Show help for watch command
    version     Show help for version command`
)

// Version output format templates
const (
	VersionTextTemplate = "webtmpl version %s\nCommit: %s\nBranch: %s\nBuilt: %s\nGo: %s"
	VersionUnknown      = "unknown"
	VersionsFileName    = "versions.yaml"
)

// Check output format templates
const (
	CheckTextOK         = "%s: ok"
	CheckTextIssue      = "%s:%d: %s: %s"
	CheckTextSummary    = "%d file(s), %d error(s), %d warning(s)"
)

// Watch output format templates
const (
	WatchTextRendered = "rendered %s -> %s"
	WatchTextWatching = "watching %s (press Ctrl+C to stop)"
)

// CLI metadata
const (
	CLIName        = "webtmpl"
	CLIDescription = "CGI-style text templating CLI"
)


// Format string constants
const (
	FmtErrorWithDetail      = "%s: %s\n"
	FmtErrorWithCause       = "%s: %v\n"
	FmtErrorWithCauseInline = "%s: %v"
	FmtNewline              = "\n"
)

// Log field names
const (
	LogFieldLine     = "line"
	LogFieldSeverity = "severity"
	LogFieldPath     = "path"
)

// Log messages
const (
	LogMsgFileChanged = "watched file changed"
)
