package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/itsatony/go-webtmpl"
	"go.uber.org/zap"
)

type watchConfig struct {
	templatePath string
	dataFilePath string
	outputPath   string
	debug        bool
	verbose      bool
}

func runWatch(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseWatchFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watch(ctx, cfg, stdout, stderr)
}

// watch renders once, then again after every write to the template or data file,
// until ctx is done.
func watch(ctx context.Context, cfg *watchConfig, stdout, stderr io.Writer) int {
	logger := newLogger(cfg.verbose, stderr)
	defer func() { _ = logger.Sync() }()

	watched, err := watchedFiles(cfg)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWatcherFailed, err)
		return ExitCodeInputError
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWatcherFailed, err)
		return ExitCodeError
	}
	defer watcher.Close()

	dirs := make(map[string]bool)
	for path := range watched {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWatcherFailed, err)
			return ExitCodeInputError
		}
		dirs[dir] = true
	}

	renderWatched(cfg, logger, stdout, stderr)
	fmt.Fprintf(stdout, WatchTextWatching+FmtNewline, cfg.templatePath)

	// Events closer together than WatchDebounce collapse into one render.
	debounce := time.NewTimer(WatchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return ExitCodeSuccess
		case event, ok := <-watcher.Events:
			if !ok {
				return ExitCodeSuccess
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			logger.Debug(LogMsgFileChanged, zap.String(LogFieldPath, abs))
			debounce.Reset(WatchDebounce)
		case <-debounce.C:
			renderWatched(cfg, logger, stdout, stderr)
		case err, ok := <-watcher.Errors:
			if !ok {
				return ExitCodeSuccess
			}
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWatcherFailed, err)
		}
	}
}

// renderWatched renders with a fresh engine each pass.
// Failures are reported and the watch carries on.
func renderWatched(cfg *watchConfig, logger *zap.Logger, stdout, stderr io.Writer) {
	engine, err := webtmpl.New(webtmpl.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgEngineFailed, err)
		return
	}

	if err := engine.LoadFile(cfg.templatePath); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return
	}

	data, err := loadData("", cfg.dataFilePath)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidData, err)
		return
	}
	if data != nil {
		if err := engine.Apply(data); err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidData, err)
			return
		}
	}

	if err := engine.RenderFile(cfg.outputPath, cfg.debug); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return
	}
	fmt.Fprintf(stdout, WatchTextRendered+FmtNewline, cfg.templatePath, cfg.outputPath)
}

// watchedFiles returns the absolute paths whose changes trigger a render
func watchedFiles(cfg *watchConfig) (map[string]bool, error) {
	watched := make(map[string]bool)
	for _, path := range []string{cfg.templatePath, cfg.dataFilePath} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		watched[abs] = true
	}
	return watched, nil
}

func parseWatchFlags(args []string) (*watchConfig, error) {
	fs := flag.NewFlagSet(CmdNameWatch, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &watchConfig{}
	fs.StringVar(&cfg.templatePath, FlagTemplate, "", "")
	fs.StringVar(&cfg.templatePath, FlagTemplateShort, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFile, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFileShort, "", "")
	fs.StringVar(&cfg.outputPath, FlagOutput, "", "")
	fs.StringVar(&cfg.outputPath, FlagOutputShort, "", "")
	fs.BoolVar(&cfg.debug, FlagDebug, false, "")
	fs.BoolVar(&cfg.verbose, FlagVerbose, false, "")
	fs.BoolVar(&cfg.verbose, FlagVerboseShort, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.templatePath == "" || cfg.templatePath == InputSourceStdin ||
		cfg.outputPath == "" || cfg.outputPath == FlagDefaultOutput {
		return nil, errors.New(ErrMsgWatchNeedsFiles)
	}

	return cfg, nil
}
