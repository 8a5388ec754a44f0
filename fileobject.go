package vfskit

import (
	"context"
	"io"
	"sync"
)

// BaseFileObject is the FileObject handed out by BaseFileSystem. It attaches
// lazily: backend metadata is fetched on first use and kept until Refresh.
type BaseFileObject struct {
	name    *FileName
	fs      *BaseFileSystem
	backend FileBackend

	mu       sync.Mutex
	attached bool
	info     FileInfo
}

func newBaseFileObject(name *FileName, fs *BaseFileSystem, backend FileBackend) *BaseFileObject {
	return &BaseFileObject{name: name, fs: fs, backend: backend}
}

// Name implements FileObject
func (f *BaseFileObject) Name() *FileName { return f.name }

// FileSystem implements FileObject
func (f *BaseFileObject) FileSystem() FileSystem { return f.fs.self }

// Backend returns the driver backend of the file.
func (f *BaseFileObject) Backend() FileBackend { return f.backend }

func (f *BaseFileObject) attach(ctx context.Context) (FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attached {
		return f.info, nil
	}
	info, err := f.backend.Attach(ctx)
	if err != nil {
		return FileInfo{}, err
	}
	if info.Type != TypeImaginary {
		if err := f.name.setType(info.Type); err != nil {
			return FileInfo{}, err
		}
		if info.ContentType == "" && info.Type.HasContent() {
			info.ContentType = GuessContentType(f.name.BaseName())
		}
	}
	f.info = info
	f.attached = true
	return info, nil
}

// Type implements FileObject
func (f *BaseFileObject) Type(ctx context.Context) (FileType, error) {
	info, err := f.attach(ctx)
	if err != nil {
		return TypeImaginary, err
	}
	return info.Type, nil
}

// Exists implements FileObject
func (f *BaseFileObject) Exists(ctx context.Context) (bool, error) {
	t, err := f.Type(ctx)
	if err != nil {
		return false, err
	}
	return t != TypeImaginary, nil
}

// Info implements FileObject
func (f *BaseFileObject) Info(ctx context.Context) (FileInfo, error) {
	return f.attach(ctx)
}

// IsAttached implements FileObject
func (f *BaseFileObject) IsAttached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attached
}

// Refresh implements FileObject
func (f *BaseFileObject) Refresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.attached {
		return
	}
	f.attached = false
	f.info = FileInfo{}
	if d, ok := f.backend.(Detacher); ok {
		d.Detach()
	}
}

// Parent implements FileObject
func (f *BaseFileObject) Parent(ctx context.Context) (FileObject, error) {
	parent := f.name.Parent()
	if parent == nil {
		return nil, nil
	}
	return f.fs.ResolveFile(ctx, parent)
}

// Children implements FileObject
func (f *BaseFileObject) Children(ctx context.Context) ([]FileObject, error) {
	t, err := f.Type(ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case t == TypeImaginary:
		return nil, newError(KindNotFound, f.name)
	case !t.HasChildren():
		return nil, newError(KindNotFolder, f.name)
	}

	names, err := f.backend.ListChildren(ctx)
	if err != nil {
		return nil, err
	}
	children := make([]FileObject, 0, len(names))
	for _, n := range names {
		child, err := f.Child(ctx, n)
		if err != nil {
			for _, c := range children {
				c.Close()
			}
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// Child implements FileObject
func (f *BaseFileObject) Child(ctx context.Context, name string) (FileObject, error) {
	return f.ResolveFile(ctx, Encode(name, '?', '!'), ScopeChild)
}

// ResolveFile implements FileObject
func (f *BaseFileObject) ResolveFile(ctx context.Context, path string, scope NameScope) (FileObject, error) {
	name, err := resolveName(f.fs.Context(), f.name, path, scope)
	if err != nil {
		return nil, err
	}
	return f.fs.ResolveFile(ctx, name)
}

// Open implements FileObject
func (f *BaseFileObject) Open(ctx context.Context) (io.ReadCloser, error) {
	t, err := f.Type(ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case t == TypeImaginary:
		return nil, newError(KindNotFound, f.name)
	case !t.HasContent():
		return nil, newError(KindNotFile, f.name)
	}
	return f.backend.Open(ctx)
}

// LocalPath implements FileObject
func (f *BaseFileObject) LocalPath() (string, bool) {
	if lf, ok := f.backend.(LocalFiler); ok {
		return lf.LocalFile(), true
	}
	return "", false
}

// Close implements FileObject
func (f *BaseFileObject) Close() error {
	f.fs.fileObjectDestroyed()
	return nil
}

var _ FileObject = (*BaseFileObject)(nil)
