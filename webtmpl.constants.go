package webtmpl

import (
	"os"
	"time"
)

// Delimiter constants
const (
	DefaultOpenDelim  = "{{"
	DefaultCloseDelim = "}}"
)

// Source identifiers reported in the diagnostic trailer
const (
	SourceNameString = "string"
	SourceNameNone   = "none"
)

// Defaults
const (
	DefaultTrailerTitle = "webtmpl"
	DefaultFileMode     = os.FileMode(0644)
	DefaultDirMode      = os.FileMode(0755)
)

// Data document formats
const (
	DataFormatJSON = "json"
	DataFormatYAML = "yaml"
)

// Data document file extensions
const (
	ExtYAML = ".yaml"
	ExtYML  = ".yml"
	ExtJSON = ".json"
)

// Storage driver names
const (
	StorageDriverNameMemory     = "memory"
	StorageDriverNameFilesystem = "filesystem"
	StorageDriverNamePostgres   = "postgres"
)

// Template ID prefix for stored templates
const (
	TemplateIDPrefix = "tmpl_"
)

// Storage cache defaults
const (
	DefaultCacheTTL         = 5 * time.Minute
	DefaultCacheMaxEntries  = 1000
	DefaultCacheNegativeTTL = 30 * time.Second
)

// Filesystem storage layout
const (
	FilesystemVersionPrefix = "v"
	FilesystemVersionExt    = ".tmpl"
)

// PostgreSQL storage defaults
const (
	PostgresTablePrefix            = "webtmpl_"
	PostgresDefaultMaxOpenConns    = 25
	PostgresDefaultMaxIdleConns    = 5
	PostgresDefaultConnMaxLifetime = 5 * time.Minute
	PostgresDefaultConnMaxIdleTime = 5 * time.Minute
	PostgresDefaultQueryTimeout    = 30 * time.Second
	PostgresDriverName             = "postgres"
)

// Log message constants
const (
	LogMsgEngineCreated     = "engine created"
	LogMsgTemplateLoaded    = "template loaded"
	LogMsgTemplateLoadError = "template load failed"
	LogMsgDataApplied       = "data document applied"
	LogMsgFileRendered      = "rendered to file"
)

// Log field names
const (
	LogFieldSource = "source"
	LogFieldBytes  = "bytes"
	LogFieldPath   = "path"
	LogFieldLoops  = "loops"
	LogFieldValues = "values"
	LogFieldDriver = "driver"
	LogFieldName   = "name"
)
