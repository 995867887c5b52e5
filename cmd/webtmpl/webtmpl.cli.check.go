package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/itsatony/go-webtmpl"
)

type checkConfig struct {
	patterns     []string
	dataFilePath string
	format       string
	strict       bool
}

// checkOutput is the JSON report of a check run
type checkOutput struct {
	Valid    bool              `json:"valid"`
	Errors   int               `json:"errors"`
	Warnings int               `json:"warnings"`
	Files    []checkFileOutput `json:"files"`
}

type checkFileOutput struct {
	Path        string                  `json:"path"`
	Diagnostics []checkDiagnosticOutput `json:"diagnostics,omitempty"`
}

type checkDiagnosticOutput struct {
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func runCheck(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseCheckFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	paths, err := expandPatterns(cfg.patterns)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgBadPattern, err)
		return ExitCodeUsageError
	}
	if len(paths) == 0 {
		fmt.Fprintln(stderr, ErrMsgNoMatches)
		return ExitCodeInputError
	}

	var data *webtmpl.Data
	if cfg.dataFilePath != "" {
		data, err = webtmpl.LoadDataFile(cfg.dataFilePath)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidData, err)
			return ExitCodeInputError
		}
	}

	report := checkOutput{Files: make([]checkFileOutput, 0, len(paths))}
	for _, path := range paths {
		file := checkFile(path, data)
		for _, d := range file.Diagnostics {
			if d.Severity == webtmpl.SeverityError.String() {
				report.Errors++
			} else {
				report.Warnings++
			}
		}
		report.Files = append(report.Files, file)
	}
	report.Valid = report.Errors == 0 && (!cfg.strict || report.Warnings == 0)

	if cfg.format == OutputFormatJSON {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Fprintln(stdout, string(out))
	} else {
		writeCheckText(report, stdout)
	}

	if !report.Valid {
		return ExitCodeValidationError
	}
	return ExitCodeSuccess
}

// checkFile renders one template to nowhere and collects what the engine noticed.
// A template that cannot be read shows up as a diagnostic of its own, and data
// the engine refuses is reported as an error ahead of them.
func checkFile(path string, data *webtmpl.Data) checkFileOutput {
	engine := webtmpl.MustNew()
	_ = engine.LoadFile(path)

	file := checkFileOutput{Path: path}
	if data != nil {
		if err := engine.Apply(data); err != nil {
			file.Diagnostics = append(file.Diagnostics, checkDiagnosticOutput{
				Line:     1,
				Severity: webtmpl.SeverityError.String(),
				Message:  fmt.Sprintf(FmtErrorWithCauseInline, ErrMsgInvalidData, err),
			})
		}
	}
	_ = engine.Render(io.Discard)

	for _, d := range engine.Diagnostics() {
		file.Diagnostics = append(file.Diagnostics, checkDiagnosticOutput{
			Line:     d.Line,
			Severity: d.Severity.String(),
			Message:  d.Message,
		})
	}
	return file
}

func writeCheckText(report checkOutput, stdout io.Writer) {
	for _, file := range report.Files {
		if len(file.Diagnostics) == 0 {
			fmt.Fprintf(stdout, CheckTextOK+FmtNewline, file.Path)
			continue
		}
		for _, d := range file.Diagnostics {
			fmt.Fprintf(stdout, CheckTextIssue+FmtNewline, file.Path, d.Line, d.Severity, d.Message)
		}
	}
	fmt.Fprintf(stdout, CheckTextSummary+FmtNewline, len(report.Files), report.Errors, report.Warnings)
}

// expandPatterns resolves glob patterns (with ** support) to a sorted, de-duplicated file list
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func parseCheckFlags(args []string) (*checkConfig, error) {
	fs := flag.NewFlagSet(CmdNameCheck, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &checkConfig{}
	fs.StringVar(&cfg.dataFilePath, FlagDataFile, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFileShort, "", "")
	fs.StringVar(&cfg.format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&cfg.format, FlagFormatShort, FlagDefaultFormat, "")
	fs.BoolVar(&cfg.strict, FlagStrictMode, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.patterns = fs.Args()
	if len(cfg.patterns) == 0 {
		return nil, errors.New(ErrMsgNoPatterns)
	}
	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}

	return cfg, nil
}
