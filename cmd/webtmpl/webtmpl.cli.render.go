package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/itsatony/go-webtmpl"
	"go.uber.org/zap"
)

// renderConfig holds parsed render command configuration
type renderConfig struct {
	templatePath string
	storeDir     string
	storeName    string
	dataJSON     string
	dataFilePath string
	outputPath   string
	debug        bool
	verbose      bool
}

func runRender(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseRenderFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	logger := newLogger(cfg.verbose, stderr)
	defer func() { _ = logger.Sync() }()

	engine, err := webtmpl.New(webtmpl.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgEngineFailed, err)
		return ExitCodeError
	}

	if code := loadTemplate(engine, cfg, stdin, stderr); code != ExitCodeSuccess {
		return code
	}

	data, err := loadData(cfg.dataJSON, cfg.dataFilePath)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidData, err)
		return ExitCodeInputError
	}
	if data != nil {
		if err := engine.Apply(data); err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidData, err)
			return ExitCodeInputError
		}
	}

	if err := renderOutput(engine, cfg.outputPath, cfg.debug, stdout); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}

	if cfg.verbose {
		for _, d := range engine.Diagnostics() {
			logger.Warn(d.Message, zap.Int(LogFieldLine, d.Line), zap.Stringer(LogFieldSeverity, d.Severity))
		}
	}

	return ExitCodeSuccess
}

// loadTemplate loads the template from a file, stdin or a filesystem store
func loadTemplate(engine *webtmpl.Engine, cfg *renderConfig, stdin io.Reader, stderr io.Writer) int {
	if cfg.storeDir != "" {
		storage, err := webtmpl.NewFilesystemStorage(cfg.storeDir)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadStoreFailed, err)
			return ExitCodeInputError
		}
		defer storage.Close()

		if err := engine.LoadFromStorage(context.Background(), storage, cfg.storeName); err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadStoreFailed, err)
			return ExitCodeInputError
		}
		return ExitCodeSuccess
	}

	if cfg.templatePath == InputSourceStdin {
		source, err := readInput(cfg.templatePath, stdin)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
			return ExitCodeInputError
		}
		engine.LoadString(string(source))
		return ExitCodeSuccess
	}

	if err := engine.LoadFile(cfg.templatePath); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}
	return ExitCodeSuccess
}

func parseRenderFlags(args []string) (*renderConfig, error) {
	fs := flag.NewFlagSet(CmdNameRender, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &renderConfig{}

	fs.StringVar(&cfg.templatePath, FlagTemplate, "", "")
	fs.StringVar(&cfg.templatePath, FlagTemplateShort, "", "")
	fs.StringVar(&cfg.storeDir, FlagStore, "", "")
	fs.StringVar(&cfg.storeDir, FlagStoreShort, "", "")
	fs.StringVar(&cfg.storeName, FlagName, "", "")
	fs.StringVar(&cfg.storeName, FlagNameShort, "", "")
	fs.StringVar(&cfg.dataJSON, FlagData, "", "")
	fs.StringVar(&cfg.dataJSON, FlagDataShort, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFile, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFileShort, "", "")
	fs.StringVar(&cfg.outputPath, FlagOutput, FlagDefaultOutput, "")
	fs.StringVar(&cfg.outputPath, FlagOutputShort, FlagDefaultOutput, "")
	fs.BoolVar(&cfg.debug, FlagDebug, false, "")
	fs.BoolVar(&cfg.verbose, FlagVerbose, false, "")
	fs.BoolVar(&cfg.verbose, FlagVerboseShort, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch {
	case cfg.templatePath != "" && cfg.storeDir != "":
		return nil, errors.New(ErrMsgTemplateAndStore)
	case cfg.storeDir != "" && cfg.storeName == "":
		return nil, errors.New(ErrMsgStoreNeedsName)
	case cfg.templatePath == "" && cfg.storeDir == "":
		return nil, errors.New(ErrMsgMissingTemplate)
	}

	return cfg, nil
}
