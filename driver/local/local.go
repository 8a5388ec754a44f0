// Package local provides the file scheme: the local disk, addressed as
// file:///absolute/path.
package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/gobeaver/vfskit"
)

// Scheme is the URI scheme served by this package.
const Scheme = vfskit.LocalScheme

const optMonitor = "monitor"

// WithMonitor turns on change monitoring for a file system. Listeners and
// watch tokens then see changes made outside the process.
func WithMonitor(enabled bool) vfskit.FSOption {
	return vfskit.SetOption(Scheme, optMonitor, enabled)
}

// Config configures the provider.
type Config struct {
	// Monitor enables change monitoring when the options don't say otherwise.
	Monitor bool
}

var capabilities = []vfskit.Capability{
	vfskit.CapRead,
	vfskit.CapListChildren,
	vfskit.CapGetType,
	vfskit.CapLastModified,
	vfskit.CapURI,
	vfskit.CapMonitor,
}

// NewProvider creates the local provider.
func NewProvider(cfg ...Config) *vfskit.OriginatingProvider {
	var c Config
	if len(cfg) > 0 {
		c = cfg[0]
	}
	return vfskit.NewOriginatingProvider(
		vfskit.NewGenericFileNameParser(Scheme),
		func(_ context.Context, root *vfskit.FileName, opts *vfskit.FileSystemOptions) (vfskit.FileSystem, error) {
			return NewFileSystem(root, opts, opts.GetBool(Scheme, optMonitor, c.Monitor))
		},
		capabilities...,
	)
}

// FileSystem is a view of the local disk under a root name.
type FileSystem struct {
	*vfskit.BaseFileSystem
	monitor *monitor
}

// NewFileSystem creates a local file system. When monitored, changes on
// disk are reported to listeners.
func NewFileSystem(root *vfskit.FileName, opts *vfskit.FileSystemOptions, monitored bool) (*FileSystem, error) {
	fs := &FileSystem{}
	fs.BaseFileSystem = vfskit.NewBaseFileSystem(root, nil, opts, fs, capabilities...)
	if monitored {
		m, err := newMonitor(fs)
		if err != nil {
			return nil, err
		}
		fs.monitor = m
	}
	return fs, nil
}

// CreateFile implements vfskit.FileSystemHooks
func (fs *FileSystem) CreateFile(_ context.Context, name *vfskit.FileName) (vfskit.FileBackend, error) {
	p, err := name.PathDecoded()
	if err != nil {
		return nil, err
	}
	return &backend{path: toOSPath(p)}, nil
}

// AddListener registers l and, when monitoring, watches the folder of name.
func (fs *FileSystem) AddListener(name *vfskit.FileName, l vfskit.FileListener) (remove func()) {
	fs.watch(name)
	return fs.BaseFileSystem.AddListener(name, l)
}

// Watch returns a change token for name and, when monitoring, watches the
// folder of name.
func (fs *FileSystem) Watch(name *vfskit.FileName) vfskit.ChangeToken {
	fs.watch(name)
	return fs.BaseFileSystem.Watch(name)
}

func (fs *FileSystem) watch(name *vfskit.FileName) {
	if fs.monitor == nil {
		return
	}
	p, err := name.PathDecoded()
	if err != nil {
		return
	}
	fs.monitor.add(toOSPath(p))
}

// Close stops the monitor and closes the file system.
func (fs *FileSystem) Close() error {
	if fs.monitor != nil {
		fs.monitor.close()
	}
	return fs.BaseFileSystem.Close()
}

// nameOf converts an OS path reported by the monitor to a name.
func (fs *FileSystem) nameOf(osPath string) *vfskit.FileName {
	p := filepath.ToSlash(osPath)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return fs.RootName().CreateName(vfskit.Encode(p), vfskit.TypeFile)
}

// toOSPath converts a decoded absolute path to the OS form. On Windows
// "/C:/dir" becomes "C:\dir".
func toOSPath(p string) string {
	if runtime.GOOS == "windows" && len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

// backend is the view of one local path.
type backend struct {
	path string
}

func (b *backend) Attach(ctx context.Context) (vfskit.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return vfskit.FileInfo{}, err
	}
	info, err := os.Stat(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return vfskit.FileInfo{Type: vfskit.TypeImaginary}, nil
		}
		return vfskit.FileInfo{}, err
	}
	if info.IsDir() {
		return vfskit.FileInfo{Type: vfskit.TypeFolder, ModTime: info.ModTime()}, nil
	}
	return vfskit.FileInfo{
		Type:    vfskit.TypeFile,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (b *backend) ListChildren(context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

func (b *backend) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(b.path)
}

// LocalFile implements vfskit.LocalFiler
func (b *backend) LocalFile() string {
	return b.path
}

var (
	_ vfskit.FileSystem = (*FileSystem)(nil)
	_ vfskit.LocalFiler = (*backend)(nil)
)
