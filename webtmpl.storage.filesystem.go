package webtmpl

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

// FilesystemStorage stores each template version as a plain template file,
// so stored templates stay editable with any text editor.
//
// Directory structure:
//
//	<root>/
//	  <template-name>/
//	    v1.tmpl
//	    v2.tmpl
//	    meta.json  # version -> ID and timestamps
//
// A version file without a meta.json entry is still served; its timestamps
// come from the file modification time.
type FilesystemStorage struct {
	mu     sync.RWMutex
	root   string
	closed bool
}

// Filesystem storage file names and permissions
const (
	filesystemMetaFile        = "meta.json"
	FilesystemDirPermissions  = DefaultDirMode
	FilesystemFilePermissions = DefaultFileMode
)

// Filesystem storage error messages
const (
	ErrMsgInvalidStorageRoot    = "invalid storage root directory"
	ErrMsgCreateStorageDir      = "failed to create storage directory"
	ErrMsgReadStorageDir        = "failed to read storage directory"
	ErrMsgReadTemplate          = "failed to read template file"
	ErrMsgWriteTemplate         = "failed to write template file"
	ErrMsgPathTraversalDetected = "path traversal detected in template name"
)

// filesystemMeta is the content of meta.json
type filesystemMeta struct {
	Versions map[string]filesystemMetaEntry `json:"versions"`
}

type filesystemMetaEntry struct {
	ID        TemplateID `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
}

// FilesystemStorageDriver is the driver for creating FilesystemStorage instances.
type FilesystemStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNameFilesystem, &FilesystemStorageDriver{})
}

// Open creates a new FilesystemStorage. The connection string is the root directory.
func (d *FilesystemStorageDriver) Open(connectionString string) (TemplateStorage, error) {
	return NewFilesystemStorage(connectionString)
}

// NewFilesystemStorage creates a filesystem template storage rooted at root,
// creating the directory if needed.
func NewFilesystemStorage(root string) (*FilesystemStorage, error) {
	if root == "" {
		return nil, &StorageError{Message: ErrMsgInvalidStorageRoot}
	}
	if err := os.MkdirAll(root, FilesystemDirPermissions); err != nil {
		return nil, &StorageError{Message: ErrMsgCreateStorageDir, Name: root, Cause: err}
	}
	return &FilesystemStorage{root: root}, nil
}

// Root returns the storage root directory.
func (s *FilesystemStorage) Root() string {
	return s.root
}

// Get retrieves the latest version of a template by name.
func (s *FilesystemStorage) Get(ctx context.Context, name string) (*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateTemplateNameForFilesystem(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	versions, err := s.listVersions(name)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, NewStorageTemplateNotFoundError(name)
	}
	return s.loadTemplate(name, versions[0])
}

// Save stores a template as a new version file.
func (s *FilesystemStorage) Save(ctx context.Context, tmpl *StoredTemplate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tmpl == nil {
		return NewStorageInvalidNameError("")
	}
	if err := validateTemplateNameForFilesystem(tmpl.Name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	dir := filepath.Join(s.root, tmpl.Name)
	if err := os.MkdirAll(dir, FilesystemDirPermissions); err != nil {
		return &StorageError{Message: ErrMsgCreateStorageDir, Name: dir, Cause: err}
	}

	versions, err := s.listVersions(tmpl.Name)
	if err != nil {
		return err
	}
	next := 1
	if len(versions) > 0 {
		next = versions[0] + 1
	}

	path := s.versionPath(tmpl.Name, next)
	if err := atomic.WriteFile(path, strings.NewReader(tmpl.Source)); err != nil {
		return &StorageError{Message: ErrMsgWriteTemplate, Name: tmpl.Name, Version: next, Cause: err}
	}

	now := time.Now()
	meta := s.loadMeta(tmpl.Name)
	entry := filesystemMetaEntry{ID: generateTemplateID(), CreatedAt: now}
	meta.Versions[strconv.Itoa(next)] = entry
	if err := s.saveMeta(tmpl.Name, meta); err != nil {
		return err
	}

	tmpl.ID = entry.ID
	tmpl.Version = next
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now
	return nil
}

// Delete removes all versions of a template by name.
func (s *FilesystemStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateTemplateNameForFilesystem(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	dir := filepath.Join(s.root, name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewStorageTemplateNotFoundError(name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return NewStorageOperationError(name, err)
	}
	return nil
}

// List returns the latest version of every template, ordered by name.
func (s *FilesystemStorage) List(ctx context.Context) ([]*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &StorageError{Message: ErrMsgReadStorageDir, Name: s.root, Cause: err}
	}

	var out []*StoredTemplate
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		versions, err := s.listVersions(entry.Name())
		if err != nil || len(versions) == 0 {
			continue
		}
		tmpl, err := s.loadTemplate(entry.Name(), versions[0])
		if err != nil {
			return nil, err
		}
		out = append(out, tmpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Exists checks if a template with the given name exists.
func (s *FilesystemStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateTemplateNameForFilesystem(name); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStorageClosedError()
	}

	versions, err := s.listVersions(name)
	if err != nil {
		return false, err
	}
	return len(versions) > 0, nil
}

// Close marks the storage as closed.
func (s *FilesystemStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func (s *FilesystemStorage) versionPath(name string, version int) string {
	return filepath.Join(s.root, name, FilesystemVersionPrefix+strconv.Itoa(version)+FilesystemVersionExt)
}

// listVersions returns the stored version numbers of a template, newest first.
func (s *FilesystemStorage) listVersions(name string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Message: ErrMsgReadStorageDir, Name: name, Cause: err}
	}

	var versions []int
	for _, entry := range entries {
		filename := entry.Name()
		if entry.IsDir() ||
			!strings.HasPrefix(filename, FilesystemVersionPrefix) ||
			!strings.HasSuffix(filename, FilesystemVersionExt) {
			continue
		}
		digits := strings.TrimSuffix(strings.TrimPrefix(filename, FilesystemVersionPrefix), FilesystemVersionExt)
		version, err := strconv.Atoi(digits)
		if err != nil || version <= 0 {
			continue
		}
		versions = append(versions, version)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	return versions, nil
}

func (s *FilesystemStorage) loadTemplate(name string, version int) (*StoredTemplate, error) {
	path := s.versionPath(name, version)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewStorageTemplateNotFoundError(name)
		}
		return nil, &StorageError{Message: ErrMsgReadTemplate, Name: name, Version: version, Cause: err}
	}

	tmpl := &StoredTemplate{
		Name:    name,
		Source:  string(data),
		Version: version,
	}
	if info, err := os.Stat(path); err == nil {
		tmpl.CreatedAt = info.ModTime()
		tmpl.UpdatedAt = info.ModTime()
	}
	if entry, ok := s.loadMeta(name).Versions[strconv.Itoa(version)]; ok {
		tmpl.ID = entry.ID
		tmpl.CreatedAt = entry.CreatedAt
	}
	return tmpl, nil
}

// loadMeta reads meta.json, returning an empty index when it is missing or unreadable.
func (s *FilesystemStorage) loadMeta(name string) *filesystemMeta {
	meta := &filesystemMeta{}
	data, err := os.ReadFile(filepath.Join(s.root, name, filesystemMetaFile))
	if err == nil {
		_ = json.Unmarshal(data, meta)
	}
	if meta.Versions == nil {
		meta.Versions = make(map[string]filesystemMetaEntry)
	}
	return meta
}

func (s *FilesystemStorage) saveMeta(name string, meta *filesystemMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return NewStorageOperationError(name, err)
	}
	if err := atomic.WriteFile(filepath.Join(s.root, name, filesystemMetaFile), bytes.NewReader(data)); err != nil {
		return NewStorageOperationError(name, err)
	}
	return nil
}

func validateTemplateNameForFilesystem(name string) error {
	if name == "" {
		return NewStorageInvalidNameError(name)
	}
	if strings.Contains(name, "..") {
		return &StorageError{Message: ErrMsgPathTraversalDetected, Name: name}
	}
	if strings.ContainsAny(name, "/\\:*?\"<>|") {
		return NewStorageInvalidNameError(name)
	}
	return nil
}
