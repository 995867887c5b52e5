package webtmpl

import (
	"strconv"

	"github.com/itsatony/go-cuserr"
)

// Error message constants
const (
	// Loading errors
	ErrMsgLoadFailed     = "template load failed"
	ErrMsgEmptySource    = "template source name cannot be empty"
	ErrMsgStorageMissing = "template storage is nil"

	// Binding errors
	ErrMsgLoopNotDefined = "loop not defined"
	ErrMsgEmptyLoopName  = "loop name cannot be empty"

	// Render errors
	ErrMsgRenderFailed = "template render failed"
	ErrMsgWriteFailed  = "writing rendered output failed"

	// Data document errors
	ErrMsgDataDecodeFailed  = "data document decoding failed"
	ErrMsgDataReadFailed    = "data document read failed"
	ErrMsgDataInvalidFormat = "unsupported data document format"
	ErrMsgDataInvalidValue  = "data value must be a scalar"
	ErrMsgDataNil           = "data document is nil"
	ErrMsgDataFieldsMissing = "loop with list rows must declare fields"
)

// Error code constants for categorization
const (
	ErrCodeLoad    = "WEBTMPL_LOAD"
	ErrCodeBinding = "WEBTMPL_BINDING"
	ErrCodeRender  = "WEBTMPL_RENDER"
	ErrCodeData    = "WEBTMPL_DATA"
)

// Metadata key constants
const (
	MetaKeySource = "source"
	MetaKeyPath   = "path"
	MetaKeyLoop   = "loop"
	MetaKeyField  = "field"
	MetaKeyFormat = "format"
	MetaKeyBytes  = "bytes"
	MetaKeyDriver = "driver"
	MetaKeyName   = "name"
)

// NewLoadError creates an error for a template source that could not be read
func NewLoadError(source string, cause error) error {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, ErrCodeLoad, ErrMsgLoadFailed)
	} else {
		err = cuserr.NewValidationError(ErrCodeLoad, ErrMsgLoadFailed)
	}
	return err.WithMetadata(MetaKeySource, source)
}

// NewEmptySourceError creates an error for a load call without a source name
func NewEmptySourceError() error {
	return cuserr.NewValidationError(ErrCodeLoad, ErrMsgEmptySource)
}

// NewStorageMissingError creates an error for loading from a nil storage
func NewStorageMissingError() error {
	return cuserr.NewValidationError(ErrCodeLoad, ErrMsgStorageMissing)
}

// NewLoopNotDefinedError creates an error for a row appended to an undefined loop
func NewLoopNotDefinedError(loop string) error {
	return cuserr.NewNotFoundError(MetaKeyLoop, ErrMsgLoopNotDefined).
		WithMetadata(MetaKeyLoop, loop)
}

// NewEmptyLoopNameError creates an error for a loop defined without a name
func NewEmptyLoopNameError() error {
	return cuserr.NewValidationError(ErrCodeBinding, ErrMsgEmptyLoopName)
}

// NewWriteError creates an error for a sink that rejected rendered output
func NewWriteError(written int, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeRender, ErrMsgWriteFailed).
		WithMetadata(MetaKeyBytes, strconv.Itoa(written))
}

// NewRenderFileError creates an error for a render-to-file that failed
func NewRenderFileError(path string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeRender, ErrMsgRenderFailed).
		WithMetadata(MetaKeyPath, path)
}

// NewDataDecodeError creates an error for a malformed data document
func NewDataDecodeError(format string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeData, ErrMsgDataDecodeFailed).
		WithMetadata(MetaKeyFormat, format)
}

// NewDataReadError creates an error for a data document that could not be read
func NewDataReadError(path string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeData, ErrMsgDataReadFailed).
		WithMetadata(MetaKeyPath, path)
}

// NewDataFormatError creates an error for an unknown data document format
func NewDataFormatError(format string) error {
	return cuserr.NewValidationError(ErrCodeData, ErrMsgDataInvalidFormat).
		WithMetadata(MetaKeyFormat, format)
}

// NewDataValueError creates an error for a non-scalar value in a data document
func NewDataValueError(name string) error {
	return cuserr.NewValidationError(ErrCodeData, ErrMsgDataInvalidValue).
		WithMetadata(MetaKeyName, name)
}

// NewDataFieldsError creates an error for a loop whose list rows have no declared fields
func NewDataFieldsError(loop string) error {
	return cuserr.NewValidationError(ErrCodeData, ErrMsgDataFieldsMissing).
		WithMetadata(MetaKeyLoop, loop)
}

// NewDataNilError creates an error for applying a nil data document
func NewDataNilError() error {
	return cuserr.NewValidationError(ErrCodeData, ErrMsgDataNil)
}
