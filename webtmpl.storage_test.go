package webtmpl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storageFactories returns a fresh instance of every local backend
func storageFactories(t *testing.T) map[string]func() TemplateStorage {
	return map[string]func() TemplateStorage{
		StorageDriverNameMemory: func() TemplateStorage {
			return NewMemoryStorage()
		},
		StorageDriverNameFilesystem: func() TemplateStorage {
			s, err := NewFilesystemStorage(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}
}

func TestStorage_Contract(t *testing.T) {
	for name, factory := range storageFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			storage := factory()
			defer storage.Close()

			_, err := storage.Get(ctx, "page")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTemplateNotFound))

			first := &StoredTemplate{Name: "page", Source: "v1 {{$x}}"}
			require.NoError(t, storage.Save(ctx, first))
			assert.Equal(t, 1, first.Version)
			assert.Contains(t, string(first.ID), TemplateIDPrefix)
			assert.False(t, first.CreatedAt.IsZero())

			second := &StoredTemplate{Name: "page", Source: "v2 {{$x}}"}
			require.NoError(t, storage.Save(ctx, second))
			assert.Equal(t, 2, second.Version)
			assert.NotEqual(t, first.ID, second.ID)

			got, err := storage.Get(ctx, "page")
			require.NoError(t, err)
			assert.Equal(t, "v2 {{$x}}", got.Source)
			assert.Equal(t, 2, got.Version)
			assert.Equal(t, second.ID, got.ID)

			require.NoError(t, storage.Save(ctx, &StoredTemplate{Name: "about", Source: "a"}))
			list, err := storage.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "about", list[0].Name)
			assert.Equal(t, "page", list[1].Name)
			assert.Equal(t, 2, list[1].Version)

			exists, err := storage.Exists(ctx, "page")
			require.NoError(t, err)
			assert.True(t, exists)

			require.NoError(t, storage.Delete(ctx, "page"))
			exists, err = storage.Exists(ctx, "page")
			require.NoError(t, err)
			assert.False(t, exists)

			err = storage.Delete(ctx, "page")
			assert.True(t, errors.Is(err, ErrTemplateNotFound))

			require.Error(t, storage.Save(ctx, &StoredTemplate{}))
		})
	}
}

func TestStorage_Closed(t *testing.T) {
	for name, factory := range storageFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			storage := factory()
			require.NoError(t, storage.Close())

			_, err := storage.Get(ctx, "x")
			assert.Contains(t, err.Error(), ErrMsgStorageClosed)
			assert.Error(t, storage.Save(ctx, &StoredTemplate{Name: "x"}))
			_, err = storage.List(ctx)
			assert.Error(t, err)
			_, err = storage.Exists(ctx, "x")
			assert.Error(t, err)
			assert.Error(t, storage.Delete(ctx, "x"))
		})
	}
}

func TestStorage_CancelledContext(t *testing.T) {
	for name, factory := range storageFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			storage := factory()

			_, err := storage.Get(ctx, "x")
			assert.ErrorIs(t, err, context.Canceled)
			assert.ErrorIs(t, storage.Save(ctx, &StoredTemplate{Name: "x"}), context.Canceled)
		})
	}
}

func TestStorage_ConcurrentSaves(t *testing.T) {
	for name, factory := range storageFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			storage := factory()

			const writers = 10
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, storage.Save(ctx, &StoredTemplate{Name: "shared", Source: "x"}))
				}()
			}
			wg.Wait()

			got, err := storage.Get(ctx, "shared")
			require.NoError(t, err)
			assert.Equal(t, writers, got.Version)
		})
	}
}

func TestFilesystemStorage_Layout(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	storage, err := NewFilesystemStorage(root)
	require.NoError(t, err)
	assert.Equal(t, root, storage.Root())

	require.NoError(t, storage.Save(ctx, &StoredTemplate{Name: "page", Source: "hello"}))

	data, err := os.ReadFile(filepath.Join(root, "page", "v1.tmpl"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.FileExists(t, filepath.Join(root, "page", filesystemMetaFile))
}

func TestFilesystemStorage_HandWrittenVersion(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "manual"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "manual", "v3.tmpl"), []byte("by hand"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "manual", "notes.txt"), []byte("ignored"), 0o644))

	storage, err := NewFilesystemStorage(root)
	require.NoError(t, err)

	got, err := storage.Get(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, "by hand", got.Source)
	assert.Empty(t, got.ID)
	assert.False(t, got.CreatedAt.IsZero())

	next := &StoredTemplate{Name: "manual", Source: "next"}
	require.NoError(t, storage.Save(ctx, next))
	assert.Equal(t, 4, next.Version)
}

func TestFilesystemStorage_InvalidNames(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../escape", "a/b", `a\b`, "a:b"} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, storage.Save(ctx, &StoredTemplate{Name: name, Source: "x"}))
			_, err := storage.Get(ctx, name)
			assert.Error(t, err)
		})
	}
}

func TestNewFilesystemStorage_EmptyRoot(t *testing.T) {
	_, err := NewFilesystemStorage("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgInvalidStorageRoot)
}

func TestStorageRegistry(t *testing.T) {
	drivers := ListStorageDrivers()
	assert.Contains(t, drivers, StorageDriverNameMemory)
	assert.Contains(t, drivers, StorageDriverNameFilesystem)

	storage, err := OpenStorage(StorageDriverNameMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, storage)

	storage, err = OpenStorage(StorageDriverNameFilesystem, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FilesystemStorage{}, storage)

	_, err = OpenStorage("nope", "")
	require.Error(t, err)
	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, ErrMsgStorageDriverNotFound, storageErr.Message)
	assert.Equal(t, "nope", storageErr.Name)
}

func TestRegisterStorageDriver_Panics(t *testing.T) {
	assert.Panics(t, func() { RegisterStorageDriver("nil-driver", nil) })
	assert.Panics(t, func() { RegisterStorageDriver(StorageDriverNameMemory, &MemoryStorageDriver{}) })
}

func TestStorageError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *StorageError
		want string
	}{
		{"message only", &StorageError{Message: "m"}, "m"},
		{"with name", &StorageError{Message: "m", Name: "n"}, "m: n"},
		{"with version", &StorageError{Message: "m", Name: "n", Version: 2}, "m: n v2"},
		{"with cause", &StorageError{Message: "m", Cause: errors.New("c")}, "m: c"},
		{"not found hides sentinel", &StorageError{Message: "m", Name: "n", Cause: ErrTemplateNotFound}, "m: n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
