package main

import (
	"io"
	"os"
	"strings"

	"github.com/itsatony/go-webtmpl"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// readInput reads content from a file or stdin
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == InputSourceStdin {
		return io.ReadAll(stdin)
	}

	return os.ReadFile(path)
}

// renderOutput renders to stdout, or atomically replaces the output file
func renderOutput(engine *webtmpl.Engine, path string, debug bool, stdout io.Writer) error {
	if path != FlagDefaultOutput {
		return engine.RenderFile(path, debug)
	}
	if debug {
		return engine.RenderWithDiagnostics(stdout)
	}
	return engine.Render(stdout)
}

// loadData decodes a data document from a file or an inline JSON string.
// Returns nil when neither is given.
func loadData(jsonStr, filePath string) (*webtmpl.Data, error) {
	switch {
	case filePath != "":
		return webtmpl.LoadDataFile(filePath)
	case jsonStr != "":
		return webtmpl.DecodeData(strings.NewReader(jsonStr), webtmpl.DataFormatJSON)
	default:
		return nil, nil
	}
}

// newLogger returns a development console logger on stderr when verbose, a no-op logger otherwise
func newLogger(verbose bool, stderr io.Writer) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(stderr),
		zap.DebugLevel,
	)
	return zap.New(core)
}
