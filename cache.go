package vfskit

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// ============================================================================
// Files Cache Interface
// ============================================================================

// FilesCache stores resolved file objects per file system, keyed by name.
// Implementations must be safe for concurrent use.
type FilesCache interface {
	// PutFile stores file, replacing any entry with the same name.
	PutFile(file FileObject)

	// PutFileIfAbsent stores file unless an entry exists. It reports whether it stored.
	PutFileIfAbsent(file FileObject) bool

	// GetFile returns the cached file for name in fs, or nil.
	GetFile(fs FileSystem, name *FileName) FileObject

	// RemoveFile drops the entry for name in fs.
	RemoveFile(fs FileSystem, name *FileName)

	// Clear drops every entry of fs.
	Clear(fs FileSystem)

	// Close drops every entry.
	Close() error
}

// CacheStrategy controls when cached file objects are refreshed.
type CacheStrategy int

const (
	// CacheOnResolve refreshes a file each time it is resolved.
	CacheOnResolve CacheStrategy = iota
	// CacheOnCall refreshes a file before every operation on it.
	CacheOnCall
	// CacheManual never refreshes; callers use FileObject.Refresh.
	CacheManual
)

func (s CacheStrategy) String() string {
	switch s {
	case CacheOnResolve:
		return "on_resolve"
	case CacheOnCall:
		return "on_call"
	case CacheManual:
		return "manual"
	default:
		return fmt.Sprintf("CacheStrategy(%d)", int(s))
	}
}

// ParseCacheStrategy parses the names produced by CacheStrategy.String.
func ParseCacheStrategy(s string) (CacheStrategy, error) {
	switch strings.ToLower(s) {
	case "on_resolve", "onresolve", "":
		return CacheOnResolve, nil
	case "on_call", "oncall":
		return CacheOnCall, nil
	case "manual":
		return CacheManual, nil
	}
	return CacheOnResolve, fmt.Errorf("unknown cache strategy %q", s)
}

// CacheStats provides statistics about cache usage.
type CacheStats interface {
	Stats() CacheStatistics
}

// CacheStatistics contains cache performance metrics.
type CacheStatistics struct {
	Hits      int64
	Misses    int64
	Size      int64
	Evictions int64
	HitRate   float64
}

func newStatistics(hits, misses, size, evictions int64) CacheStatistics {
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return CacheStatistics{Hits: hits, Misses: misses, Size: size, Evictions: evictions, HitRate: hitRate}
}

// ============================================================================
// DefaultFilesCache
// ============================================================================

const cacheShards = 16

type cacheShard struct {
	mu      sync.RWMutex
	entries map[FileSystem]map[string]FileObject
}

// DefaultFilesCache is an unbounded cache split into shards selected by the
// name hash, so lookups for different names rarely contend.
type DefaultFilesCache struct {
	shards [cacheShards]cacheShard
	hits   atomic.Int64
	misses atomic.Int64
}

// NewDefaultFilesCache creates an empty cache.
func NewDefaultFilesCache() *DefaultFilesCache {
	c := &DefaultFilesCache{}
	for i := range c.shards {
		c.shards[i].entries = make(map[FileSystem]map[string]FileObject)
	}
	return c
}

func (c *DefaultFilesCache) shard(name *FileName) *cacheShard {
	return &c.shards[name.Hash()%cacheShards]
}

func (c *DefaultFilesCache) PutFile(file FileObject) {
	c.put(file, true)
}

func (c *DefaultFilesCache) PutFileIfAbsent(file FileObject) bool {
	return c.put(file, false)
}

func (c *DefaultFilesCache) put(file FileObject, replace bool) bool {
	name := file.Name()
	s := c.shard(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	files := s.entries[file.FileSystem()]
	if files == nil {
		files = make(map[string]FileObject)
		s.entries[file.FileSystem()] = files
	}
	if _, ok := files[name.Key()]; ok && !replace {
		return false
	}
	files[name.Key()] = file
	return true
}

func (c *DefaultFilesCache) GetFile(fs FileSystem, name *FileName) FileObject {
	s := c.shard(name)
	s.mu.RLock()
	file := s.entries[fs][name.Key()]
	s.mu.RUnlock()
	if file == nil {
		c.misses.Add(1)
		return nil
	}
	c.hits.Add(1)
	return file
}

func (c *DefaultFilesCache) RemoveFile(fs FileSystem, name *FileName) {
	s := c.shard(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if files := s.entries[fs]; files != nil {
		delete(files, name.Key())
		if len(files) == 0 {
			delete(s.entries, fs)
		}
	}
}

func (c *DefaultFilesCache) Clear(fs FileSystem) {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		delete(s.entries, fs)
		s.mu.Unlock()
	}
}

func (c *DefaultFilesCache) Close() error {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		clear(s.entries)
		s.mu.Unlock()
	}
	return nil
}

// Stats returns cache statistics.
func (c *DefaultFilesCache) Stats() CacheStatistics {
	var size int64
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		for _, files := range s.entries {
			size += int64(len(files))
		}
		s.mu.RUnlock()
	}
	return newStatistics(c.hits.Load(), c.misses.Load(), size, 0)
}

// ============================================================================
// LRUFilesCache
// ============================================================================

// DefaultLRUSize is the per-file-system capacity used when none is given.
const DefaultLRUSize = 100

type lruEntry struct {
	key  string
	file FileObject
}

type lruList struct {
	order *list.List
	index map[string]*list.Element
}

// LRUFilesCache keeps at most size files per file system, evicting the least
// recently used.
type LRUFilesCache struct {
	size int

	mu        sync.Mutex
	caches    map[FileSystem]*lruList
	hits      int64
	misses    int64
	evictions int64
}

// NewLRUFilesCache creates a cache holding up to size files per file system.
func NewLRUFilesCache(size int) *LRUFilesCache {
	if size <= 0 {
		size = DefaultLRUSize
	}
	return &LRUFilesCache{size: size, caches: make(map[FileSystem]*lruList)}
}

func (c *LRUFilesCache) list(fs FileSystem) *lruList {
	l := c.caches[fs]
	if l == nil {
		l = &lruList{order: list.New(), index: make(map[string]*list.Element)}
		c.caches[fs] = l
	}
	return l
}

func (c *LRUFilesCache) PutFile(file FileObject) {
	c.put(file, true)
}

func (c *LRUFilesCache) PutFileIfAbsent(file FileObject) bool {
	return c.put(file, false)
}

func (c *LRUFilesCache) put(file FileObject, replace bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.list(file.FileSystem())
	key := file.Name().Key()
	if el, ok := l.index[key]; ok {
		if !replace {
			return false
		}
		el.Value.(*lruEntry).file = file
		l.order.MoveToFront(el)
		return true
	}
	l.index[key] = l.order.PushFront(&lruEntry{key: key, file: file})
	for l.order.Len() > c.size {
		oldest := l.order.Back()
		l.order.Remove(oldest)
		delete(l.index, oldest.Value.(*lruEntry).key)
		c.evictions++
	}
	return true
}

func (c *LRUFilesCache) GetFile(fs FileSystem, name *FileName) FileObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.caches[fs]
	if l == nil {
		c.misses++
		return nil
	}
	el, ok := l.index[name.Key()]
	if !ok {
		c.misses++
		return nil
	}
	c.hits++
	l.order.MoveToFront(el)
	return el.Value.(*lruEntry).file
}

func (c *LRUFilesCache) RemoveFile(fs FileSystem, name *FileName) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.caches[fs]
	if l == nil {
		return
	}
	if el, ok := l.index[name.Key()]; ok {
		l.order.Remove(el)
		delete(l.index, name.Key())
	}
}

func (c *LRUFilesCache) Clear(fs FileSystem) {
	c.mu.Lock()
	delete(c.caches, fs)
	c.mu.Unlock()
}

func (c *LRUFilesCache) Close() error {
	c.mu.Lock()
	clear(c.caches)
	c.mu.Unlock()
	return nil
}

// Stats returns cache statistics.
func (c *LRUFilesCache) Stats() CacheStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	var size int64
	for _, l := range c.caches {
		size += int64(l.order.Len())
	}
	return newStatistics(c.hits, c.misses, size, c.evictions)
}

// ============================================================================
// NullFilesCache
// ============================================================================

// NullFilesCache caches nothing; every resolution creates a new file object.
type NullFilesCache struct{}

func (NullFilesCache) PutFile(FileObject)                      {}
func (NullFilesCache) PutFileIfAbsent(FileObject) bool         { return false }
func (NullFilesCache) GetFile(FileSystem, *FileName) FileObject { return nil }
func (NullFilesCache) RemoveFile(FileSystem, *FileName)         {}
func (NullFilesCache) Clear(FileSystem)                         {}
func (NullFilesCache) Close() error                             { return nil }

// NewFilesCache builds a cache by kind: "default", "lru" or "null".
func NewFilesCache(kind string, lruSize int) (FilesCache, error) {
	switch strings.ToLower(kind) {
	case "", "default":
		return NewDefaultFilesCache(), nil
	case "lru":
		return NewLRUFilesCache(lruSize), nil
	case "null", "none":
		return NullFilesCache{}, nil
	}
	return nil, fmt.Errorf("unknown files cache %q", kind)
}

var (
	_ FilesCache = (*DefaultFilesCache)(nil)
	_ FilesCache = (*LRUFilesCache)(nil)
	_ FilesCache = NullFilesCache{}
	_ CacheStats = (*DefaultFilesCache)(nil)
	_ CacheStats = (*LRUFilesCache)(nil)
)
