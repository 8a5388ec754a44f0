package vfskit

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testScheme = "test"

// fakeFS is an in-memory file system whose backends read a map of paths.
type fakeFS struct {
	*BaseFileSystem

	mu    sync.Mutex
	files map[string]string
	dirs  map[string]bool

	creates  atomic.Int64
	attaches atomic.Int64
	links    atomic.Int64
}

func newFakeFS(root *FileName, parentLayer FileObject, opts *FileSystemOptions) *fakeFS {
	fs := &fakeFS{
		files: make(map[string]string),
		dirs:  map[string]bool{rootPath: true},
	}
	fs.BaseFileSystem = NewBaseFileSystem(root, parentLayer, opts, fs, CapRead, CapListChildren)
	return fs
}

// put stores a file and creates its parent folders.
func (fs *fakeFS) put(path, content string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = content
	for dir := parentPath(path); dir != ""; dir = parentPath(dir) {
		fs.dirs[dir] = true
	}
}

func (fs *fakeFS) mkdir(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for dir := path; dir != ""; dir = parentPath(dir) {
		fs.dirs[dir] = true
	}
}

func parentPath(p string) string {
	if p == rootPath {
		return ""
	}
	i := strings.LastIndexByte(p, separatorChar)
	if i <= 0 {
		return rootPath
	}
	return p[:i]
}

func (fs *fakeFS) CreateFile(_ context.Context, name *FileName) (FileBackend, error) {
	fs.creates.Add(1)
	return &fakeBackend{fs: fs, path: trimTrailer(name.Path())}, nil
}

func (fs *fakeFS) CloseLink() error {
	fs.links.Add(1)
	return nil
}

type fakeBackend struct {
	fs   *fakeFS
	path string
}

func (b *fakeBackend) Attach(context.Context) (FileInfo, error) {
	b.fs.attaches.Add(1)
	b.fs.mu.Lock()
	defer b.fs.mu.Unlock()
	if content, ok := b.fs.files[b.path]; ok {
		return FileInfo{Type: TypeFile, Size: int64(len(content)), ModTime: time.Unix(0, 0)}, nil
	}
	if b.fs.dirs[b.path] {
		return FileInfo{Type: TypeFolder}, nil
	}
	return FileInfo{Type: TypeImaginary}, nil
}

func (b *fakeBackend) ListChildren(context.Context) ([]string, error) {
	b.fs.mu.Lock()
	defer b.fs.mu.Unlock()
	prefix := b.path
	if prefix != rootPath {
		prefix += separator
	}
	var names []string
	add := func(p string) {
		if p == b.path || !strings.HasPrefix(p, prefix) {
			return
		}
		if rest := p[len(prefix):]; !strings.Contains(rest, separator) {
			names = append(names, rest)
		}
	}
	for p := range b.fs.files {
		add(p)
	}
	for p := range b.fs.dirs {
		add(p)
	}
	slices.Sort(names)
	return names, nil
}

func (b *fakeBackend) Open(context.Context) (io.ReadCloser, error) {
	b.fs.mu.Lock()
	defer b.fs.mu.Unlock()
	return io.NopCloser(strings.NewReader(b.fs.files[b.path])), nil
}

// fakeProvider creates fakeFS file systems and records them.
type fakeProvider struct {
	*OriginatingProvider

	mu       sync.Mutex
	created  []*fakeFS
	populate func(*fakeFS)
	fail     error
}

func newFakeProvider(populate func(*fakeFS)) *fakeProvider {
	p := &fakeProvider{populate: populate}
	p.OriginatingProvider = NewOriginatingProvider(NewGenericFileNameParser(testScheme),
		func(_ context.Context, root *FileName, opts *FileSystemOptions) (FileSystem, error) {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.fail != nil {
				return nil, p.fail
			}
			fs := newFakeFS(root, nil, opts)
			if p.populate != nil {
				p.populate(fs)
			}
			p.created = append(p.created, fs)
			return fs, nil
		}, CapRead, CapListChildren)
	return p
}

func (p *fakeProvider) createdCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.created)
}

func (p *fakeProvider) setFail(err error) {
	p.mu.Lock()
	p.fail = err
	p.mu.Unlock()
}

// newLayeredFakeProvider serves fakeFS file systems layered over a file.
func newLayeredFakeProvider(populate func(*fakeFS)) *LayeredProvider {
	return NewLayeredProvider(func(ctx context.Context, scheme string, file FileObject, opts *FileSystemOptions) (FileSystem, error) {
		exists, err := file.Exists(ctx)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errors.New("outer file is missing")
		}
		root := NewLayeredFileName(scheme, file.Name(), rootPath, TypeFolder, WithURIStyle(file.Name().URIStyle()))
		fs := newFakeFS(root, file, opts)
		if populate != nil {
			populate(fs)
		}
		return fs, nil
	})
}

// sampleTree is the tree most tests resolve against.
func sampleTree(fs *fakeFS) {
	fs.put("/a.txt", "hello")
	fs.put("/b.go", "package b\n")
	fs.put("/sub/c.go", "package c\n")
	fs.put("/sub/deep/d.txt", "deep")
	fs.mkdir("/empty")
}

// newTestManager returns an initialised manager with a fake provider for
// the test scheme.
func newTestManager(t testing.TB, opts ...ManagerOption) (*Manager, *fakeProvider) {
	t.Helper()
	ctx := context.Background()
	m := NewManager(append([]ManagerOption{WithTempDir(t.TempDir())}, opts...)...)
	if err := m.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	p := newFakeProvider(sampleTree)
	if err := m.AddProvider(ctx, p, testScheme); err != nil {
		t.Fatalf("AddProvider() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, p
}

func mustResolve(t testing.TB, m *Manager, uri string) FileObject {
	t.Helper()
	f, err := m.Resolve(context.Background(), uri)
	if err != nil {
		t.Fatalf("Resolve(%q) error = %v", uri, err)
	}
	return f
}

func fakeOf(t testing.TB, f FileObject) *fakeFS {
	t.Helper()
	fs, ok := f.FileSystem().(*fakeFS)
	if !ok {
		t.Fatalf("file system of %s is %T", f.Name(), f.FileSystem())
	}
	return fs
}
