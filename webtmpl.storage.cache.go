package webtmpl

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CachedStorage wraps a TemplateStorage and keeps the latest version of recently
// read templates in memory. Writes through the wrapper invalidate the affected name;
// writes made to the underlying storage directly are seen once the entry expires.
type CachedStorage struct {
	storage TemplateStorage
	config  CacheConfig
	now     func() time.Time

	mu     sync.Mutex
	cache  map[string]*cacheEntry
	closed bool
}

// CacheConfig configures a CachedStorage. Zero fields take the defaults.
type CacheConfig struct {
	// TTL is how long a fetched template is served from memory.
	TTL time.Duration

	// MaxEntries bounds the cache; the least recently read entry is evicted first.
	MaxEntries int

	// NegativeTTL is how long a "not found" answer is remembered. Negative disables it.
	NegativeTTL time.Duration
}

// CacheStats is a snapshot of a CachedStorage.
type CacheStats struct {
	Entries         int
	ValidEntries    int
	NegativeEntries int
}

type cacheEntry struct {
	name       string
	template   *StoredTemplate
	notFound   bool
	cachedAt   time.Time
	accessedAt time.Time
}

// DefaultCacheConfig returns the default caching configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:         DefaultCacheTTL,
		MaxEntries:  DefaultCacheMaxEntries,
		NegativeTTL: DefaultCacheNegativeTTL,
	}
}

func (c CacheConfig) withDefaults() CacheConfig {
	def := DefaultCacheConfig()
	if c.TTL == 0 {
		c.TTL = def.TTL
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = def.MaxEntries
	}
	if c.NegativeTTL == 0 {
		c.NegativeTTL = def.NegativeTTL
	}
	return c
}

// NewCachedStorage wraps storage with caching.
func NewCachedStorage(storage TemplateStorage, config CacheConfig) *CachedStorage {
	return &CachedStorage{
		storage: storage,
		config:  config.withDefaults(),
		now:     time.Now,
		cache:   make(map[string]*cacheEntry),
	}
}

// Get returns the latest version of name, from memory when a fresh entry exists.
func (s *CachedStorage) Get(ctx context.Context, name string) (*StoredTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, NewStorageClosedError()
	}
	if entry, ok := s.cache[name]; ok && s.fresh(entry) {
		entry.accessedAt = s.now()
		s.mu.Unlock()
		if entry.notFound {
			return nil, NewStorageTemplateNotFoundError(name)
		}
		return copyStoredTemplate(entry.template), nil
	}
	s.mu.Unlock()

	tmpl, err := s.storage.Get(ctx, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, NewStorageClosedError()
	}

	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) && s.config.NegativeTTL > 0 {
			s.add(name, nil)
		}
		return nil, err
	}

	s.add(name, copyStoredTemplate(tmpl))
	return tmpl, nil
}

// Save stores a new version and drops the cached entry for its name.
func (s *CachedStorage) Save(ctx context.Context, tmpl *StoredTemplate) error {
	if err := s.storage.Save(ctx, tmpl); err != nil {
		return err
	}
	s.Invalidate(tmpl.Name)
	return nil
}

// Delete removes every version of name and drops the cached entry.
func (s *CachedStorage) Delete(ctx context.Context, name string) error {
	if err := s.storage.Delete(ctx, name); err != nil {
		return err
	}
	s.Invalidate(name)
	return nil
}

// List always reads through.
func (s *CachedStorage) List(ctx context.Context) ([]*StoredTemplate, error) {
	return s.storage.List(ctx)
}

// Exists answers from a fresh cache entry when there is one.
func (s *CachedStorage) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, NewStorageClosedError()
	}
	if entry, ok := s.cache[name]; ok && s.fresh(entry) {
		s.mu.Unlock()
		return !entry.notFound, nil
	}
	s.mu.Unlock()

	return s.storage.Exists(ctx, name)
}

// Close drops the cache and closes the underlying storage.
func (s *CachedStorage) Close() error {
	s.mu.Lock()
	s.closed = true
	s.cache = nil
	s.mu.Unlock()

	return s.storage.Close()
}

// Invalidate drops the cached entry for name.
func (s *CachedStorage) Invalidate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}

// InvalidateAll empties the cache.
func (s *CachedStorage) InvalidateAll() {
	s.mu.Lock()
	if !s.closed {
		s.cache = make(map[string]*cacheEntry)
	}
	s.mu.Unlock()
}

// Stats returns cache statistics.
func (s *CachedStorage) Stats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := CacheStats{Entries: len(s.cache)}
	for _, entry := range s.cache {
		if !s.fresh(entry) {
			continue
		}
		if entry.notFound {
			stats.NegativeEntries++
		} else {
			stats.ValidEntries++
		}
	}
	return stats
}

// fresh reports whether entry is within its TTL. Caller must hold mu.
func (s *CachedStorage) fresh(entry *cacheEntry) bool {
	ttl := s.config.TTL
	if entry.notFound {
		ttl = s.config.NegativeTTL
	}
	return s.now().Sub(entry.cachedAt) < ttl
}

// add stores an entry, evicting the least recently read one when full.
// A nil template records a negative entry. Caller must hold mu.
func (s *CachedStorage) add(name string, tmpl *StoredTemplate) {
	if _, exists := s.cache[name]; !exists && len(s.cache) >= s.config.MaxEntries {
		s.evictOldest()
	}

	now := s.now()
	s.cache[name] = &cacheEntry{
		name:       name,
		template:   tmpl,
		notFound:   tmpl == nil,
		cachedAt:   now,
		accessedAt: now,
	}
}

func (s *CachedStorage) evictOldest() {
	var oldest *cacheEntry
	for _, entry := range s.cache {
		if oldest == nil || entry.accessedAt.Before(oldest.accessedAt) {
			oldest = entry
		}
	}
	if oldest != nil {
		delete(s.cache, oldest.name)
	}
}
