package webtmpl

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TemplateID is a unique identifier for a stored template version, e.g. "tmpl_<uuid>".
type TemplateID string

// StoredTemplate is one version of a named template in a storage backend.
type StoredTemplate struct {
	ID        TemplateID `json:"id"`
	Name      string     `json:"name"`
	Source    string     `json:"source"`
	Version   int        `json:"version"` // 1, 2, 3, ... higher is newer
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TemplateStorage is the interface for pluggable template storage backends.
// Implementations must be safe for concurrent use.
type TemplateStorage interface {
	// Get retrieves the latest version of a template by name.
	// Returns an error wrapping ErrTemplateNotFound if the template doesn't exist.
	Get(ctx context.Context, name string) (*StoredTemplate, error)

	// Save stores a template as a new version. ID, Version, CreatedAt and
	// UpdatedAt are set by the storage and written back to tmpl.
	Save(ctx context.Context, tmpl *StoredTemplate) error

	// Delete removes all versions of a template by name.
	Delete(ctx context.Context, name string) error

	// List returns the latest version of every template, ordered by name.
	List(ctx context.Context) ([]*StoredTemplate, error)

	// Exists checks if a template with the given name exists.
	Exists(ctx context.Context, name string) (bool, error)

	// Close releases any resources held by the storage.
	Close() error
}

// StorageDriver is a factory for storage instances.
// Drivers register themselves during init().
type StorageDriver interface {
	// Open creates a storage instance. The connection string is driver-specific.
	Open(connectionString string) (TemplateStorage, error)
}

// Storage driver registry
var (
	storageDriversMu sync.RWMutex
	storageDrivers   = make(map[string]StorageDriver)
)

// RegisterStorageDriver registers a storage driver by name.
// Panics if the driver is nil or the name is taken.
func RegisterStorageDriver(name string, driver StorageDriver) {
	storageDriversMu.Lock()
	defer storageDriversMu.Unlock()

	if driver == nil {
		panic(ErrMsgNilStorageDriver)
	}
	if _, exists := storageDrivers[name]; exists {
		panic(ErrMsgDriverAlreadyRegistered + ": " + name)
	}
	storageDrivers[name] = driver
}

// OpenStorage opens a storage using the named driver.
//
//	storage, err := webtmpl.OpenStorage("memory", "")
//	storage, err := webtmpl.OpenStorage("filesystem", "/srv/templates")
func OpenStorage(driverName, connectionString string) (TemplateStorage, error) {
	storageDriversMu.RLock()
	driver, ok := storageDrivers[driverName]
	storageDriversMu.RUnlock()

	if !ok {
		return nil, NewStorageDriverNotFoundError(driverName)
	}
	return driver.Open(connectionString)
}

// ListStorageDrivers returns the names of all registered storage drivers, sorted.
func ListStorageDrivers() []string {
	storageDriversMu.RLock()
	defer storageDriversMu.RUnlock()

	names := make([]string, 0, len(storageDrivers))
	for name := range storageDrivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Storage error message constants
const (
	ErrMsgNilStorageDriver        = "storage driver is nil"
	ErrMsgDriverAlreadyRegistered = "storage driver already registered"
	ErrMsgStorageDriverNotFound   = "storage driver not found"
	ErrMsgStorageClosed           = "storage is closed"
	ErrMsgTemplateNotFound        = "template not found"
	ErrMsgInvalidTemplateName     = "invalid template name"
	ErrMsgStorageOperation        = "storage operation failed"
)

// ErrTemplateNotFound is wrapped by every storage error for a missing template.
var ErrTemplateNotFound = errors.New(ErrMsgTemplateNotFound)

// StorageError represents a storage-related error.
type StorageError struct {
	Message string
	Name    string
	Version int
	Cause   error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	msg := e.Message
	if e.Name != "" {
		msg += ": " + e.Name
		if e.Version > 0 {
			msg += " v" + strconv.Itoa(e.Version)
		}
	}
	if e.Cause != nil && e.Cause != ErrTemplateNotFound {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageDriverNotFoundError creates an error for a missing storage driver.
func NewStorageDriverNotFoundError(name string) error {
	return &StorageError{Message: ErrMsgStorageDriverNotFound, Name: name}
}

// NewStorageTemplateNotFoundError creates an error for a template missing from storage.
func NewStorageTemplateNotFoundError(name string) error {
	return &StorageError{Message: ErrMsgTemplateNotFound, Name: name, Cause: ErrTemplateNotFound}
}

// NewStorageClosedError creates an error for operations on a closed storage.
func NewStorageClosedError() error {
	return &StorageError{Message: ErrMsgStorageClosed}
}

// NewStorageInvalidNameError creates an error for a template name the backend cannot store.
func NewStorageInvalidNameError(name string) error {
	return &StorageError{Message: ErrMsgInvalidTemplateName, Name: name}
}

// NewStorageOperationError wraps a backend failure.
func NewStorageOperationError(name string, cause error) error {
	return &StorageError{Message: ErrMsgStorageOperation, Name: name, Cause: cause}
}

// generateTemplateID returns a new unique template version ID.
func generateTemplateID() TemplateID {
	return TemplateID(TemplateIDPrefix + uuid.NewString())
}

func copyStoredTemplate(t *StoredTemplate) *StoredTemplate {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
