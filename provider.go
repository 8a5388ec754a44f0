package vfskit

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CreateFileSystemFunc creates the file system for a root name. It is
// called at most once per (root, options) pair while the result is cached.
type CreateFileSystemFunc func(ctx context.Context, root *FileName, opts *FileSystemOptions) (FileSystem, error)

// CreateLayeredFunc creates a file system over the content of file.
type CreateLayeredFunc func(ctx context.Context, scheme string, file FileObject, opts *FileSystemOptions) (FileSystem, error)

type fsEntry struct {
	key FileSystemKey
	fs  FileSystem
}

// BaseProvider holds the file systems created by a provider, ordered by
// FileSystemKey. The registry lock covers map access only; concurrent
// creation of one key is collapsed into a single call and unrelated roots
// never wait for each other.
type BaseProvider struct {
	Container

	parser FileNameParser
	caps   []Capability

	mu       sync.Mutex
	registry []fsEntry
	group    singleflight.Group
}

// SetParser sets the parser used by ParseURI.
func (p *BaseProvider) SetParser(parser FileNameParser) {
	p.parser = parser
}

// Parser returns the provider's name parser.
func (p *BaseProvider) Parser() FileNameParser {
	return p.parser
}

// ParseURI implements FileProvider
func (p *BaseProvider) ParseURI(base *FileName, uri string) (*FileName, error) {
	if p.parser == nil {
		return nil, ErrFileNameParserMissing
	}
	return p.parser.ParseURI(p.Context(), base, uri)
}

// Capabilities implements FileProvider
func (p *BaseProvider) Capabilities() []Capability {
	return slices.Clone(p.caps)
}

// CreateFileSystem implements FileProvider. Only layered providers support it.
func (p *BaseProvider) CreateFileSystem(context.Context, string, FileObject, *FileSystemOptions) (FileObject, error) {
	return nil, ErrNotLayeredFS
}

func compareEntry(e fsEntry, key FileSystemKey) int {
	return e.key.Compare(key)
}

// FindFileSystem returns the cached file system for root and opts, or nil.
func (p *BaseProvider) FindFileSystem(root RootKey, opts *FileSystemOptions) FileSystem {
	key := NewFileSystemKey(root, opts)
	p.mu.Lock()
	defer p.mu.Unlock()
	if i, ok := slices.BinarySearchFunc(p.registry, key, compareEntry); ok {
		return p.registry[i].fs
	}
	return nil
}

// AddFileSystem initialises fs as a component of the provider and caches it
// under root and the options of fs.
func (p *BaseProvider) AddFileSystem(ctx context.Context, root RootKey, fs FileSystem) error {
	if err := p.AddComponent(ctx, fs); err != nil {
		return err
	}
	key := NewFileSystemKey(root, fs.Options())
	fs.base().setCacheKey(key)

	p.mu.Lock()
	i, ok := slices.BinarySearchFunc(p.registry, key, compareEntry)
	if ok {
		p.registry[i].fs = fs
	} else {
		p.registry = slices.Insert(p.registry, i, fsEntry{key: key, fs: fs})
	}
	p.mu.Unlock()

	p.Logger().Debug("file system added", "root", fs.RootName(), "options", fs.Options().Len())
	return nil
}

// FileSystems returns a snapshot of the cached file systems in key order.
func (p *BaseProvider) FileSystems() []FileSystem {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]FileSystem, len(p.registry))
	for i, e := range p.registry {
		out[i] = e.fs
	}
	return out
}

// CloseFileSystem implements FileProvider. A file system that was never
// cached is closed all the same.
func (p *BaseProvider) CloseFileSystem(fs FileSystem) error {
	if key, ok := fs.CacheKey(); ok {
		p.mu.Lock()
		if i, found := slices.BinarySearchFunc(p.registry, key, compareEntry); found && p.registry[i].fs == fs {
			p.registry = slices.Delete(p.registry, i, i+1)
		}
		p.mu.Unlock()
	}
	p.RemoveComponent(fs)
	return fs.Close()
}

// FreeUnusedResources implements FileProvider. Links are closed outside the
// registry lock; the file systems stay cached and reconnect on demand.
func (p *BaseProvider) FreeUnusedResources() {
	for _, fs := range p.FileSystems() {
		if fs.IsReleasable() {
			p.Logger().Debug("closing idle link", "root", fs.RootName())
			fs.CloseCommunicationLink()
		}
	}
}

// Close drops the registry and closes every file system.
func (p *BaseProvider) Close() error {
	p.mu.Lock()
	p.registry = nil
	p.mu.Unlock()
	return p.Container.Close()
}

// findOrCreate returns the cached file system for root and opts, creating
// and caching it on a miss. A failed creation caches nothing.
func (p *BaseProvider) findOrCreate(ctx context.Context, root RootKey, opts *FileSystemOptions, create func() (FileSystem, error)) (FileSystem, error) {
	if fs := p.FindFileSystem(root, opts); fs != nil {
		return fs, nil
	}
	key := NewFileSystemKey(root, opts)
	v, err, _ := p.group.Do(key.String(), func() (any, error) {
		if fs := p.FindFileSystem(root, opts); fs != nil {
			return fs, nil
		}
		fs, err := create()
		if err != nil {
			return nil, wrapError(err, KindCreateFileSystemFailure, displayRoot(root))
		}
		if err := p.AddFileSystem(ctx, root, fs); err != nil {
			fs.Close()
			return nil, wrapError(err, KindCreateFileSystemFailure, displayRoot(root))
		}
		return fs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(FileSystem), nil
}

func displayRoot(root RootKey) string {
	if s, ok := root.(fmt.Stringer); ok {
		return s.String()
	}
	return root.Key()
}

// ============================================================================
// Originating providers
// ============================================================================

// OriginatingProvider serves schemes whose file systems are rooted at a
// name, such as local disk or a remote host.
type OriginatingProvider struct {
	BaseProvider
	create CreateFileSystemFunc
}

// NewOriginatingProvider creates a provider that parses URIs with parser
// and creates file systems with create.
func NewOriginatingProvider(parser FileNameParser, create CreateFileSystemFunc, caps ...Capability) *OriginatingProvider {
	p := &OriginatingProvider{create: create}
	p.parser = parser
	p.caps = caps
	return p
}

// FindFile implements FileProvider
func (p *OriginatingProvider) FindFile(ctx context.Context, base FileObject, uri string, opts *FileSystemOptions) (FileObject, error) {
	var baseName *FileName
	if base != nil {
		baseName = base.Name()
	}
	name, err := p.ParseURI(baseName, uri)
	if err != nil {
		return nil, wrapError(err, KindInvalidAbsoluteURI, uri)
	}
	return p.FindFileByName(ctx, name, opts)
}

// FindFileByName resolves an already parsed name.
func (p *OriginatingProvider) FindFileByName(ctx context.Context, name *FileName, opts *FileSystemOptions) (FileObject, error) {
	fs, err := p.GetFileSystem(ctx, name.Root(), opts)
	if err != nil {
		return nil, err
	}
	return fs.ResolveFile(ctx, name)
}

// GetFileSystem returns the file system for root, creating it on first use.
func (p *OriginatingProvider) GetFileSystem(ctx context.Context, root *FileName, opts *FileSystemOptions) (FileSystem, error) {
	return p.findOrCreate(ctx, root, opts, func() (FileSystem, error) {
		return p.create(ctx, root, opts)
	})
}

// ============================================================================
// Layered providers
// ============================================================================

// LayeredProvider serves schemes whose file systems live inside another
// file, such as archives. File systems are keyed by the name of that file.
type LayeredProvider struct {
	BaseProvider
	create CreateLayeredFunc
}

// NewLayeredProvider creates a provider that parses scheme:outer!/path URIs
// and creates file systems with create.
func NewLayeredProvider(create CreateLayeredFunc, caps ...Capability) *LayeredProvider {
	p := &LayeredProvider{create: create}
	p.parser = layeredParser
	p.caps = caps
	return p
}

// FindFile implements FileProvider
func (p *LayeredProvider) FindFile(ctx context.Context, base FileObject, uri string, opts *FileSystemOptions) (FileObject, error) {
	var baseName *FileName
	if base != nil {
		baseName = base.Name()
	}
	name, err := p.ParseURI(baseName, uri)
	if err != nil {
		return nil, wrapError(err, KindInvalidAbsoluteURI, uri)
	}

	vctx := p.Context()
	if vctx == nil {
		return nil, newError(KindInvalidAbsoluteURI, uri)
	}
	file, err := vctx.ResolveFile(ctx, base, name.OuterName().URI(), opts)
	if err != nil {
		return nil, err
	}

	root, err := p.CreateFileSystem(ctx, name.Scheme(), file, opts)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	fs := root.FileSystem()
	if name.RootURI() == fs.RootURI() {
		return fs.ResolveFile(ctx, name)
	}
	return root.ResolveFile(ctx, name.Path(), ScopeFileSystem)
}

// CreateFileSystem implements FileProvider. The returned root holds one
// handle. When a new file system is created it keeps the handle on file as
// its parent layer; otherwise that handle is released.
func (p *LayeredProvider) CreateFileSystem(ctx context.Context, scheme string, file FileObject, opts *FileSystemOptions) (FileObject, error) {
	built := false
	fs, err := p.findOrCreate(ctx, file.Name(), opts, func() (FileSystem, error) {
		fs, err := p.create(ctx, scheme, file, opts)
		built = err == nil
		return fs, err
	})
	// Once built, the file system owns the handle, even if caching it failed.
	if !built {
		file.Close()
	}
	if err != nil {
		return nil, err
	}
	return fs.Root(ctx)
}

var (
	_ FileProvider = (*OriginatingProvider)(nil)
	_ FileProvider = (*LayeredProvider)(nil)
)
