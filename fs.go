package vfskit

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// FileInfo is the metadata a backend reports when a file is attached.
type FileInfo struct {
	Type        FileType
	Size        int64
	ModTime     time.Time
	ContentType string
}

// ============================================================================
// Core Interfaces
// ============================================================================

// FileObject is a handle to a file or folder in a file system.
//
// Handles returned by resolution are counted by their file system. Close
// releases one such reference; it does not invalidate the object, which may
// be shared through the files cache.
type FileObject interface {
	// Name returns the name of the file.
	Name() *FileName

	// FileSystem returns the file system the file belongs to.
	FileSystem() FileSystem

	// Type attaches the file if needed and returns its type.
	Type(ctx context.Context) (FileType, error)

	// Exists reports whether the file exists in the backend.
	Exists(ctx context.Context) (bool, error)

	// Info returns the attached metadata.
	Info(ctx context.Context) (FileInfo, error)

	// Parent returns the containing folder, or nil for the root.
	Parent(ctx context.Context) (FileObject, error)

	// Children lists the direct children of a folder.
	Children(ctx context.Context) ([]FileObject, error)

	// Child returns the direct child with the given base name.
	Child(ctx context.Context, name string) (FileObject, error)

	// ResolveFile resolves path relative to this file, restricted to scope.
	ResolveFile(ctx context.Context, path string, scope NameScope) (FileObject, error)

	// Open returns a stream over the content of a file.
	Open(ctx context.Context) (io.ReadCloser, error)

	// LocalPath returns the OS path of the file when the backend has one.
	LocalPath() (string, bool)

	// Refresh discards attached state so the next call consults the backend.
	Refresh()

	// IsAttached reports whether backend state is currently held.
	IsAttached() bool

	// Close releases one reference to the file.
	Close() error
}

// FileSystem is a tree of files under one root, created by a provider.
type FileSystem interface {
	Component

	// RootName returns the name of the root folder.
	RootName() *FileName

	// RootURI returns the URI of the root folder.
	RootURI() string

	// Options returns the options the file system was created with.
	Options() *FileSystemOptions

	// ParentLayer returns the file a layered file system was created from.
	ParentLayer() FileObject

	// Root resolves the root folder.
	Root(ctx context.Context) (FileObject, error)

	// ResolveFile returns the file object for a name under this root.
	ResolveFile(ctx context.Context, name *FileName) (FileObject, error)

	// ResolveFileString resolves a path relative to the root.
	ResolveFileString(ctx context.Context, path string) (FileObject, error)

	// HasCapability reports whether the file system supports c.
	HasCapability(c Capability) bool

	// AddListener registers l for events on name and returns a function
	// that unregisters it.
	AddListener(name *FileName, l FileListener) (remove func())

	// Watch returns a token that is signalled on the next event for name.
	Watch(name *FileName) ChangeToken

	// UseCount returns the number of unreleased file handles.
	UseCount() int64

	// IsReleasable reports whether no file handles are outstanding.
	IsReleasable() bool

	// CloseCommunicationLink drops any connection to the backend. The
	// file system stays usable and reconnects on demand.
	CloseCommunicationLink()

	// CacheKey returns the key the owning provider cached the file system under.
	CacheKey() (FileSystemKey, bool)

	base() *BaseFileSystem
}

// FileProvider creates and caches the file systems for one or more schemes.
type FileProvider interface {
	Component

	// FindFile resolves uri, relative to base when base is not nil.
	FindFile(ctx context.Context, base FileObject, uri string, opts *FileSystemOptions) (FileObject, error)

	// ParseURI parses uri into a name without resolving it.
	ParseURI(base *FileName, uri string) (*FileName, error)

	// CreateFileSystem creates a layered file system over file and returns
	// its root. Originating providers fail with KindNotLayeredFS.
	CreateFileSystem(ctx context.Context, scheme string, file FileObject, opts *FileSystemOptions) (FileObject, error)

	// Capabilities lists the capabilities of the provider's file systems.
	Capabilities() []Capability

	// FreeUnusedResources closes the links of file systems with no handles.
	FreeUnusedResources()

	// CloseFileSystem removes fs from the cache and closes it.
	CloseFileSystem(fs FileSystem) error
}

// Context is what components see of the manager that owns them.
type Context interface {
	// ResolveFile resolves name relative to base.
	ResolveFile(ctx context.Context, base FileObject, name string, opts *FileSystemOptions) (FileObject, error)

	// ResolveFileURI resolves an absolute URI.
	ResolveFileURI(ctx context.Context, uri string, opts *FileSystemOptions) (FileObject, error)

	// ParseURI parses an absolute URI with the provider for its scheme.
	ParseURI(uri string) (*FileName, error)

	// ResolveName resolves name against base within scope.
	ResolveName(base *FileName, name string, scope NameScope) (*FileName, error)

	// ToFileObject resolves an OS path through the local provider.
	ToFileObject(ctx context.Context, osPath string) (FileObject, error)

	Replicator() Replicator
	TemporaryFileStore() TemporaryFileStore
	Manager() *Manager
	FilesCache() FilesCache
	CacheStrategy() CacheStrategy
	URIStyle() bool
	Cryptor() Cryptor
	Logger() *slog.Logger
}

// ============================================================================
// Backend Interfaces
// ============================================================================

// FileBackend is the per-file part a driver implements. The base file
// object handles caching, naming and reference counting around it.
type FileBackend interface {
	// Attach fetches metadata. A missing file reports TypeImaginary.
	Attach(ctx context.Context) (FileInfo, error)

	// ListChildren returns the base names of the children of a folder.
	ListChildren(ctx context.Context) ([]string, error)

	// Open returns the content of a file.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Detacher is implemented by backends that hold state between Attach calls.
type Detacher interface {
	Detach()
}

// LocalFiler is implemented by backends whose files live on the local disk.
type LocalFiler interface {
	LocalFile() string
}

// FileSystemHooks is implemented by drivers to create backends for names.
type FileSystemHooks interface {
	CreateFile(ctx context.Context, name *FileName) (FileBackend, error)
}

// LinkCloser is implemented by drivers holding a connection that can be
// dropped and re-established on demand.
type LinkCloser interface {
	CloseLink() error
}

// Replicator makes a local copy of a file.
type Replicator interface {
	ReplicateFile(ctx context.Context, file FileObject) (string, error)
}

// TemporaryFileStore allocates local scratch files.
type TemporaryFileStore interface {
	AllocateFile(baseName string) (string, error)
}

// ============================================================================
// Events
// ============================================================================

// EventKind is the kind of a file change.
type EventKind int

const (
	EventCreated EventKind = iota
	EventDeleted
	EventChanged
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventDeleted:
		return "deleted"
	default:
		return "changed"
	}
}

// FileChangeEvent describes a change to a file. File is nil when the file was
// not cached at the time of the event.
type FileChangeEvent struct {
	Kind EventKind
	Name *FileName
	File FileObject
}

// FileListener receives change events.
type FileListener interface {
	FileEvent(ev FileChangeEvent)
}

// FileListenerFunc adapts a function to FileListener.
type FileListenerFunc func(ev FileChangeEvent)

// FileEvent implements FileListener
func (f FileListenerFunc) FileEvent(ev FileChangeEvent) { f(ev) }
