package vfskit

import (
	"context"
	"sync"
	"sync/atomic"
)

// BaseFileSystem implements the driver-independent part of a FileSystem:
// file object caching, reference counting, events and lifecycle. Drivers
// embed it and supply a FileSystemHooks to create backends.
//
//	type fileSystem struct {
//	    *vfskit.BaseFileSystem
//	    client *Client
//	}
//
//	fs := &fileSystem{client: c}
//	fs.BaseFileSystem = vfskit.NewBaseFileSystem(root, nil, opts, fs, vfskit.CapRead)
type BaseFileSystem struct {
	BaseComponent

	rootName    *FileName
	rootURI     string
	parentLayer FileObject
	options     *FileSystemOptions
	hooks       FileSystemHooks
	self        FileSystem
	caps        map[Capability]bool

	// mu serialises file object creation.
	mu sync.Mutex

	keyMu    sync.Mutex
	cacheKey FileSystemKey
	hasKey   bool

	useCount atomic.Int64
	closed   atomic.Bool

	localCacheOnce sync.Once
	localCache     FilesCache

	listenersMu sync.RWMutex
	listeners   map[string]map[int]FileListener
	nextID      int
	tokens      map[string]*CallbackChangeToken
}

// NewBaseFileSystem creates the base for a driver file system. When hooks
// is itself a FileSystem it becomes the identity seen by file objects and
// caches.
func NewBaseFileSystem(root *FileName, parentLayer FileObject, opts *FileSystemOptions, hooks FileSystemHooks, caps ...Capability) *BaseFileSystem {
	if opts == nil {
		opts = emptyOptions
	}
	fs := &BaseFileSystem{
		rootName:    root,
		rootURI:     root.RootURI(),
		parentLayer: parentLayer,
		options:     opts,
		hooks:       hooks,
		caps:        make(map[Capability]bool, len(caps)),
		listeners:   make(map[string]map[int]FileListener),
		tokens:      make(map[string]*CallbackChangeToken),
	}
	for _, c := range caps {
		fs.caps[c] = true
	}
	if self, ok := hooks.(FileSystem); ok {
		fs.self = self
	} else {
		fs.self = fs
	}
	return fs
}

func (fs *BaseFileSystem) base() *BaseFileSystem { return fs }

// RootName implements FileSystem
func (fs *BaseFileSystem) RootName() *FileName { return fs.rootName }

// RootURI implements FileSystem
func (fs *BaseFileSystem) RootURI() string { return fs.rootURI }

// Options implements FileSystem
func (fs *BaseFileSystem) Options() *FileSystemOptions { return fs.options }

// ParentLayer implements FileSystem
func (fs *BaseFileSystem) ParentLayer() FileObject { return fs.parentLayer }

// HasCapability implements FileSystem
func (fs *BaseFileSystem) HasCapability(c Capability) bool { return fs.caps[c] }

// CacheKey implements FileSystem
func (fs *BaseFileSystem) CacheKey() (FileSystemKey, bool) {
	fs.keyMu.Lock()
	defer fs.keyMu.Unlock()
	return fs.cacheKey, fs.hasKey
}

func (fs *BaseFileSystem) setCacheKey(key FileSystemKey) {
	fs.keyMu.Lock()
	fs.cacheKey = key
	fs.hasKey = true
	fs.keyMu.Unlock()
}

func (fs *BaseFileSystem) filesCache() FilesCache {
	if vctx := fs.Context(); vctx != nil {
		if c := vctx.FilesCache(); c != nil {
			return c
		}
	}
	fs.localCacheOnce.Do(func() { fs.localCache = NewDefaultFilesCache() })
	return fs.localCache
}

func (fs *BaseFileSystem) cacheStrategy() CacheStrategy {
	if vctx := fs.Context(); vctx != nil {
		return vctx.CacheStrategy()
	}
	return CacheOnResolve
}

// Root implements FileSystem
func (fs *BaseFileSystem) Root(ctx context.Context) (FileObject, error) {
	return fs.ResolveFile(ctx, fs.rootName)
}

// ResolveFile implements FileSystem. The returned handle is counted until
// its Close is called.
func (fs *BaseFileSystem) ResolveFile(ctx context.Context, name *FileName) (FileObject, error) {
	if fs.closed.Load() {
		return nil, newError(KindClosed, fs.rootName)
	}
	if name.RootURI() != fs.rootURI {
		return nil, newError(KindMismatchedFSForName, name, fs.rootName)
	}

	cache := fs.filesCache()
	fs.mu.Lock()
	file := cache.GetFile(fs.self, name)
	if file == nil {
		backend, err := fs.hooks.CreateFile(ctx, name)
		if err != nil {
			fs.mu.Unlock()
			return nil, err
		}
		file = fs.decorate(newBaseFileObject(name, fs, backend))
		cache.PutFile(file)
	}
	fs.mu.Unlock()

	if fs.cacheStrategy() == CacheOnResolve {
		file.Refresh()
	}
	fs.fileObjectHanded()
	return file, nil
}

// ResolveFileString implements FileSystem
func (fs *BaseFileSystem) ResolveFileString(ctx context.Context, path string) (FileObject, error) {
	name, err := resolveName(fs.Context(), fs.rootName, path, ScopeFileSystem)
	if err != nil {
		return nil, err
	}
	return fs.ResolveFile(ctx, name)
}

func (fs *BaseFileSystem) decorate(file FileObject) FileObject {
	if fs.cacheStrategy() == CacheOnCall {
		return &onCallFileObject{FileObject: file}
	}
	return file
}

func (fs *BaseFileSystem) fileObjectHanded() {
	fs.useCount.Add(1)
}

func (fs *BaseFileSystem) fileObjectDestroyed() {
	for {
		n := fs.useCount.Load()
		if n <= 0 || fs.useCount.CompareAndSwap(n, n-1) {
			return
		}
	}
}

// UseCount implements FileSystem
func (fs *BaseFileSystem) UseCount() int64 {
	return fs.useCount.Load()
}

// IsReleasable implements FileSystem
func (fs *BaseFileSystem) IsReleasable() bool {
	return fs.useCount.Load() < 1
}

// CloseCommunicationLink implements FileSystem
func (fs *BaseFileSystem) CloseCommunicationLink() {
	lc, ok := fs.hooks.(LinkCloser)
	if !ok {
		return
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := lc.CloseLink(); err != nil {
		fs.Logger().Warn("closing communication link failed", "root", fs.rootName, "error", err)
	}
}

// Close implements Component. It drops the cached files, the communication
// link and the handle on the parent layer.
func (fs *BaseFileSystem) Close() error {
	if fs.closed.Swap(true) {
		return nil
	}
	fs.CloseCommunicationLink()
	fs.filesCache().Clear(fs.self)
	if fs.parentLayer != nil {
		fs.parentLayer.Close()
	}

	fs.listenersMu.Lock()
	clear(fs.listeners)
	tokens := fs.tokens
	fs.tokens = make(map[string]*CallbackChangeToken)
	fs.listenersMu.Unlock()
	for _, t := range tokens {
		t.SignalChange()
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (fs *BaseFileSystem) IsClosed() bool {
	return fs.closed.Load()
}

// ============================================================================
// Events
// ============================================================================

// AddListener implements FileSystem
func (fs *BaseFileSystem) AddListener(name *FileName, l FileListener) (remove func()) {
	key := name.Key()
	fs.listenersMu.Lock()
	id := fs.nextID
	fs.nextID++
	if fs.listeners[key] == nil {
		fs.listeners[key] = make(map[int]FileListener)
	}
	fs.listeners[key][id] = l
	fs.listenersMu.Unlock()

	return func() {
		fs.listenersMu.Lock()
		defer fs.listenersMu.Unlock()
		delete(fs.listeners[key], id)
		if len(fs.listeners[key]) == 0 {
			delete(fs.listeners, key)
		}
	}
}

// Watch implements FileSystem
func (fs *BaseFileSystem) Watch(name *FileName) ChangeToken {
	key := name.Key()
	fs.listenersMu.Lock()
	defer fs.listenersMu.Unlock()
	t := fs.tokens[key]
	if t == nil {
		t = NewCallbackChangeToken()
		fs.tokens[key] = t
	}
	return t
}

// FireFileCreated notifies listeners that name was created.
func (fs *BaseFileSystem) FireFileCreated(name *FileName) {
	fs.fire(EventCreated, name)
}

// FireFileDeleted notifies listeners that name was deleted.
func (fs *BaseFileSystem) FireFileDeleted(name *FileName) {
	fs.fire(EventDeleted, name)
}

// FireFileChanged notifies listeners that the content of name changed.
func (fs *BaseFileSystem) FireFileChanged(name *FileName) {
	fs.fire(EventChanged, name)
}

// fire refreshes the cached object for name, if any, then notifies the
// listeners and signals the watch token of name and of its parent.
func (fs *BaseFileSystem) fire(kind EventKind, name *FileName) {
	file := fs.filesCache().GetFile(fs.self, name)
	if file != nil {
		file.Refresh()
	}
	parent := name.Parent()
	if parent != nil && kind != EventChanged {
		if p := fs.filesCache().GetFile(fs.self, parent); p != nil {
			p.Refresh()
		}
	}

	ev := FileChangeEvent{Kind: kind, Name: name, File: file}
	key := name.Key()

	fs.listenersMu.Lock()
	listeners := make([]FileListener, 0, len(fs.listeners[key]))
	for _, l := range fs.listeners[key] {
		listeners = append(listeners, l)
	}
	var tokens []*CallbackChangeToken
	for _, k := range []string{key, parentKey(parent)} {
		if t, ok := fs.tokens[k]; ok {
			tokens = append(tokens, t)
			delete(fs.tokens, k)
		}
	}
	fs.listenersMu.Unlock()

	for _, l := range listeners {
		l.FileEvent(ev)
	}
	for _, t := range tokens {
		t.SignalChange()
	}
}

func parentKey(parent *FileName) string {
	if parent == nil {
		return ""
	}
	return parent.Key()
}

// ============================================================================
// On-call decoration
// ============================================================================

// onCallFileObject refreshes its file before each operation.
type onCallFileObject struct {
	FileObject
}

func (f *onCallFileObject) Type(ctx context.Context) (FileType, error) {
	f.FileObject.Refresh()
	return f.FileObject.Type(ctx)
}

func (f *onCallFileObject) Exists(ctx context.Context) (bool, error) {
	f.FileObject.Refresh()
	return f.FileObject.Exists(ctx)
}

func (f *onCallFileObject) Info(ctx context.Context) (FileInfo, error) {
	f.FileObject.Refresh()
	return f.FileObject.Info(ctx)
}

func (f *onCallFileObject) Children(ctx context.Context) ([]FileObject, error) {
	f.FileObject.Refresh()
	return f.FileObject.Children(ctx)
}
