package webtmpl

import (
	"os"
	"time"

	"go.uber.org/zap"
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	openDelim    string
	closeDelim   string
	trailerTitle string
	fileMode     os.FileMode
	clock        func() time.Time
	logger       *zap.Logger
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		openDelim:    DefaultOpenDelim,
		closeDelim:   DefaultCloseDelim,
		trailerTitle: DefaultTrailerTitle,
		fileMode:     DefaultFileMode,
		clock:        time.Now,
		logger:       nil,
	}
}

// WithDelimiters sets custom delimiters for template tags.
// Default: "{{" and "}}"
func WithDelimiters(open, close string) Option {
	return func(c *engineConfig) {
		if open != "" {
			c.openDelim = open
		}
		if close != "" {
			c.closeDelim = close
		}
	}
}

// WithClock sets the time source for %DATE and %TIME.
// Default: time.Now
func WithClock(clock func() time.Time) Option {
	return func(c *engineConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithTrailerTitle sets the title printed at the top of the diagnostic trailer.
// Default: "webtmpl"
func WithTrailerTitle(title string) Option {
	return func(c *engineConfig) {
		if title != "" {
			c.trailerTitle = title
		}
	}
}

// WithFileMode sets the permissions of files written by RenderFile.
// Default: 0644
func WithFileMode(mode os.FileMode) Option {
	return func(c *engineConfig) {
		c.fileMode = mode
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}
