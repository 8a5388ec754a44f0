// Package memory provides the ram scheme: file systems held in memory,
// one per root and option set. Useful for testing and caching scenarios.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/vfskit"
)

// Scheme is the URI scheme served by this package.
const Scheme = "ram"

const optMaxSize = "maxSize"

// WithMaxSize limits the total content size of a file system in bytes.
// Zero means unlimited.
func WithMaxSize(n int) vfskit.FSOption {
	return vfskit.SetOption(Scheme, optMaxSize, n)
}

var capabilities = []vfskit.Capability{
	vfskit.CapRead,
	vfskit.CapWrite,
	vfskit.CapListChildren,
	vfskit.CapGetType,
	vfskit.CapLastModified,
	vfskit.CapURI,
}

// NewProvider creates the ram provider.
func NewProvider() *vfskit.OriginatingProvider {
	return vfskit.NewOriginatingProvider(
		vfskit.NewGenericFileNameParser(Scheme),
		func(_ context.Context, root *vfskit.FileName, opts *vfskit.FileSystemOptions) (vfskit.FileSystem, error) {
			return NewFileSystem(root, opts), nil
		},
		capabilities...,
	)
}

// memoryFile represents a file stored in memory
type memoryFile struct {
	content []byte
	modTime time.Time
}

// FileSystem is an in-memory tree. Paths are decoded absolute paths.
type FileSystem struct {
	*vfskit.BaseFileSystem

	mu      sync.RWMutex
	files   map[string]*memoryFile
	dirs    map[string]time.Time
	maxSize int64 // Maximum total storage size (0 = unlimited)
	size    int64 // Current total size
}

// NewFileSystem creates an empty file system rooted at root.
func NewFileSystem(root *vfskit.FileName, opts *vfskit.FileSystemOptions) *FileSystem {
	fs := &FileSystem{
		files:   make(map[string]*memoryFile),
		dirs:    map[string]time.Time{"/": time.Now()},
		maxSize: int64(opts.GetInt(Scheme, optMaxSize, 0)),
	}
	fs.BaseFileSystem = vfskit.NewBaseFileSystem(root, nil, opts, fs, capabilities...)
	return fs
}

// CreateFile implements vfskit.FileSystemHooks
func (fs *FileSystem) CreateFile(_ context.Context, name *vfskit.FileName) (vfskit.FileBackend, error) {
	p, err := name.PathDecoded()
	if err != nil {
		return nil, err
	}
	return &backend{fs: fs, path: trimSlash(p)}, nil
}

// WriteFile stores data at path, creating missing parent folders.
func (fs *FileSystem) WriteFile(ctx context.Context, path string, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if p == "/" {
		return fmt.Errorf("write %s: is the root folder", path)
	}

	fs.mu.Lock()
	if _, isDir := fs.dirs[p]; isDir {
		fs.mu.Unlock()
		return fmt.Errorf("write %s: %w", path, vfskit.ErrNotFile)
	}
	var oldSize int64
	existing, exists := fs.files[p]
	if exists {
		oldSize = int64(len(existing.content))
	}
	if fs.maxSize > 0 && fs.size-oldSize+int64(len(data)) > fs.maxSize {
		fs.mu.Unlock()
		return fmt.Errorf("write %s: storage limit of %d bytes exceeded", path, fs.maxSize)
	}
	created := fs.ensureParentDirs(p)
	fs.files[p] = &memoryFile{content: bytes.Clone(data), modTime: time.Now()}
	fs.size += int64(len(data)) - oldSize
	fs.mu.Unlock()

	for _, dir := range created {
		fs.FireFileCreated(fs.nameOf(dir, vfskit.TypeFolder))
	}
	if exists {
		fs.FireFileChanged(fs.nameOf(p, vfskit.TypeFile))
	} else {
		fs.FireFileCreated(fs.nameOf(p, vfskit.TypeFile))
	}
	return nil
}

// Mkdir creates the folder at path and any missing parents.
func (fs *FileSystem) Mkdir(_ context.Context, path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	if _, isFile := fs.files[p]; isFile {
		fs.mu.Unlock()
		return fmt.Errorf("mkdir %s: file exists", path)
	}
	created := fs.ensureParentDirs(p)
	if _, ok := fs.dirs[p]; !ok {
		fs.dirs[p] = time.Now()
		created = append(created, p)
	}
	fs.mu.Unlock()

	for _, dir := range created {
		fs.FireFileCreated(fs.nameOf(dir, vfskit.TypeFolder))
	}
	return nil
}

// Delete removes the file or folder tree at path.
func (fs *FileSystem) Delete(_ context.Context, path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	if p == "/" {
		return fmt.Errorf("delete %s: is the root folder", path)
	}

	fs.mu.Lock()
	var deleted []string
	if f, ok := fs.files[p]; ok {
		fs.size -= int64(len(f.content))
		delete(fs.files, p)
		deleted = append(deleted, p)
	} else if _, ok := fs.dirs[p]; ok {
		prefix := p + "/"
		for fp, f := range fs.files {
			if strings.HasPrefix(fp, prefix) {
				fs.size -= int64(len(f.content))
				delete(fs.files, fp)
				deleted = append(deleted, fp)
			}
		}
		for dp := range fs.dirs {
			if dp == p || strings.HasPrefix(dp, prefix) {
				delete(fs.dirs, dp)
				deleted = append(deleted, dp)
			}
		}
	}
	fs.mu.Unlock()

	if len(deleted) == 0 {
		return fmt.Errorf("delete %s: %w", path, vfskit.ErrNotFound)
	}
	// Deepest first, so folders follow their contents.
	slices.SortFunc(deleted, func(a, b string) int { return strings.Compare(b, a) })
	for _, d := range deleted {
		fs.FireFileDeleted(fs.nameOf(d, vfskit.TypeFile))
	}
	return nil
}

// Size returns the total content size in bytes.
func (fs *FileSystem) Size() int64 {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.size
}

// FileCount returns the number of files.
func (fs *FileSystem) FileCount() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.files)
}

// ensureParentDirs creates the missing ancestors of p and returns them,
// outermost first. The caller holds mu.
func (fs *FileSystem) ensureParentDirs(p string) []string {
	var created []string
	for i := 1; i < len(p); i++ {
		if p[i] != '/' {
			continue
		}
		dir := p[:i]
		if _, ok := fs.dirs[dir]; !ok {
			fs.dirs[dir] = time.Now()
			created = append(created, dir)
		}
	}
	return created
}

func (fs *FileSystem) nameOf(p string, t vfskit.FileType) *vfskit.FileName {
	return fs.RootName().CreateName(vfskit.Encode(p), t)
}

func cleanPath(path string) (string, error) {
	p, _ := vfskit.FixSeparators(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p, _, err := vfskit.NormalisePath(p, false)
	if err != nil {
		return "", err
	}
	return p, nil
}

func trimSlash(p string) string {
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		return p[:len(p)-1]
	}
	return p
}

// backend is the view of one path of a FileSystem.
type backend struct {
	fs   *FileSystem
	path string
}

func (b *backend) Attach(ctx context.Context) (vfskit.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return vfskit.FileInfo{}, err
	}
	b.fs.mu.RLock()
	defer b.fs.mu.RUnlock()
	if f, ok := b.fs.files[b.path]; ok {
		head := f.content[:min(len(f.content), 512)]
		return vfskit.FileInfo{
			Type:        vfskit.TypeFile,
			Size:        int64(len(f.content)),
			ModTime:     f.modTime,
			ContentType: vfskit.DetectContentType(baseName(b.path), head),
		}, nil
	}
	if modTime, ok := b.fs.dirs[b.path]; ok {
		return vfskit.FileInfo{Type: vfskit.TypeFolder, ModTime: modTime}, nil
	}
	return vfskit.FileInfo{Type: vfskit.TypeImaginary}, nil
}

func (b *backend) ListChildren(context.Context) ([]string, error) {
	prefix := b.path
	if prefix != "/" {
		prefix += "/"
	}
	b.fs.mu.RLock()
	var names []string
	collect := func(p string) {
		if p != prefix && strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], "/") {
			names = append(names, p[len(prefix):])
		}
	}
	for p := range b.fs.files {
		collect(p)
	}
	for p := range b.fs.dirs {
		collect(p)
	}
	b.fs.mu.RUnlock()
	slices.Sort(names)
	return names, nil
}

func (b *backend) Open(context.Context) (io.ReadCloser, error) {
	b.fs.mu.RLock()
	f, ok := b.fs.files[b.path]
	b.fs.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("open %s: %w", b.path, vfskit.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(f.content)), nil
}

func baseName(p string) string {
	return p[strings.LastIndexByte(p, '/')+1:]
}

var _ vfskit.FileSystem = (*FileSystem)(nil)
