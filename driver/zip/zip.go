// Package zip provides the zip scheme: read-only file systems layered over
// a ZIP archive held by any other file system, addressed as
// zip:outerURI!/path/in/archive.
package zip

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/gobeaver/vfskit"
)

// Scheme is the URI scheme served by this package.
const Scheme = "zip"

var capabilities = []vfskit.Capability{
	vfskit.CapRead,
	vfskit.CapListChildren,
	vfskit.CapGetType,
	vfskit.CapLastModified,
	vfskit.CapURI,
	vfskit.CapCompress,
	vfskit.CapVirtual,
}

// NewProvider creates the zip provider. Archives without a local path are
// copied to local disk with the manager's replicator first.
func NewProvider() *vfskit.LayeredProvider {
	var p *vfskit.LayeredProvider
	p = vfskit.NewLayeredProvider(func(ctx context.Context, scheme string, file vfskit.FileObject, opts *vfskit.FileSystemOptions) (vfskit.FileSystem, error) {
		return NewFileSystem(ctx, p.Context(), scheme, file, opts)
	}, capabilities...)
	return p
}

// entry is a file or folder of the archive
type entry struct {
	file    *zip.File // nil for folders
	modTime time.Time
}

// FileSystem is the content of one archive.
type FileSystem struct {
	*vfskit.BaseFileSystem

	reader   *zip.ReadCloser
	entries  map[string]*entry
	children map[string][]string
}

// NewFileSystem opens the archive held by file. On success the file system
// owns file and closes it with itself.
func NewFileSystem(ctx context.Context, vctx vfskit.Context, scheme string, file vfskit.FileObject, opts *vfskit.FileSystemOptions) (*FileSystem, error) {
	path, ok := file.LocalPath()
	if !ok {
		if vctx == nil || vctx.Replicator() == nil {
			return nil, fmt.Errorf("zip: %s has no local path and no replicator is available", file.Name())
		}
		var err error
		if path, err = vctx.Replicator().ReplicateFile(ctx, file); err != nil {
			return nil, err
		}
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}

	var nameOpts []vfskit.NameOption
	if vctx != nil {
		nameOpts = append(nameOpts, vfskit.WithURIStyle(vctx.URIStyle()))
	}
	root := vfskit.NewLayeredFileName(scheme, file.Name(), "/", vfskit.TypeFolder, nameOpts...)

	fs := &FileSystem{
		reader:   reader,
		entries:  map[string]*entry{"/": {}},
		children: make(map[string][]string),
	}
	fs.index()
	fs.BaseFileSystem = vfskit.NewBaseFileSystem(root, file, opts, fs, capabilities...)
	return fs, nil
}

// index builds the entry table, adding folders that the archive only
// implies through the paths of their files.
func (fs *FileSystem) index() {
	for _, f := range fs.reader.File {
		p, ok := normalizePath(f.Name)
		if !ok {
			continue
		}
		e := &entry{modTime: f.Modified}
		if !f.FileInfo().IsDir() {
			e.file = f
		}
		if existing, found := fs.entries[p]; found && existing.file == nil && e.file == nil {
			existing.modTime = e.modTime
			continue
		}
		fs.add(p, e)
	}
	for _, names := range fs.children {
		slices.Sort(names)
	}
}

func (fs *FileSystem) add(p string, e *entry) {
	if _, exists := fs.entries[p]; !exists {
		parent := parentOf(p)
		if _, ok := fs.entries[parent]; !ok {
			fs.add(parent, &entry{})
		}
		fs.children[parent] = append(fs.children[parent], p[strings.LastIndexByte(p, '/')+1:])
	}
	fs.entries[p] = e
}

// Close closes the archive and the file system.
func (fs *FileSystem) Close() error {
	err := fs.BaseFileSystem.Close()
	if cerr := fs.reader.Close(); err == nil {
		err = cerr
	}
	return err
}

// CreateFile implements vfskit.FileSystemHooks
func (fs *FileSystem) CreateFile(_ context.Context, name *vfskit.FileName) (vfskit.FileBackend, error) {
	p, err := name.PathDecoded()
	if err != nil {
		return nil, err
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return &backend{fs: fs, path: p}, nil
}

func normalizePath(p string) (string, bool) {
	p, _ = vfskit.FixSeparators(p)
	p, _, err := vfskit.NormalisePath("/"+p, false)
	if err != nil || p == "/" {
		return "", false
	}
	return p, true
}

func parentOf(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i <= 0 {
		return "/"
	}
	return p[:i]
}

// backend is the view of one archive path. The archive is immutable, so
// nothing is held between calls.
type backend struct {
	fs   *FileSystem
	path string
}

func (b *backend) Attach(ctx context.Context) (vfskit.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return vfskit.FileInfo{}, err
	}
	e, ok := b.fs.entries[b.path]
	switch {
	case !ok:
		return vfskit.FileInfo{Type: vfskit.TypeImaginary}, nil
	case e.file == nil:
		return vfskit.FileInfo{Type: vfskit.TypeFolder, ModTime: e.modTime}, nil
	}
	return vfskit.FileInfo{
		Type:    vfskit.TypeFile,
		Size:    int64(e.file.UncompressedSize64),
		ModTime: e.modTime,
	}, nil
}

func (b *backend) ListChildren(context.Context) ([]string, error) {
	return slices.Clone(b.fs.children[b.path]), nil
}

func (b *backend) Open(context.Context) (io.ReadCloser, error) {
	e, ok := b.fs.entries[b.path]
	if !ok || e.file == nil {
		return nil, fmt.Errorf("open %s: %w", b.path, vfskit.ErrNotFound)
	}
	return e.file.Open()
}

var _ vfskit.FileSystem = (*FileSystem)(nil)
