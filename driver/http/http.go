// Package http provides read-only access to web resources through the http
// and https schemes. Every URI names a file; there are no folders.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gobeaver/vfskit"
)

const (
	// SchemeHTTP is the plain text scheme.
	SchemeHTTP = "http"
	// SchemeHTTPS is the TLS scheme.
	SchemeHTTPS = "https"
)

const (
	optUserAgent = "userAgent"
	optTimeout   = "timeout"
)

// WithUserAgent sets the User-Agent header sent by a file system.
func WithUserAgent(ua string) vfskit.FSOption {
	return vfskit.SetOption(SchemeHTTP, optUserAgent, ua)
}

// WithTimeout sets the request timeout of a file system.
func WithTimeout(d time.Duration) vfskit.FSOption {
	return vfskit.SetOption(SchemeHTTP, optTimeout, d)
}

// Config holds the defaults applied when the file system options don't
// set a value.
type Config struct {
	Timeout   time.Duration
	UserAgent string

	// Transport is used by every client. Nil means http.DefaultTransport.
	Transport http.RoundTripper
}

var capabilities = []vfskit.Capability{
	vfskit.CapRead,
	vfskit.CapGetType,
	vfskit.CapLastModified,
	vfskit.CapURI,
}

// DefaultPort returns the port used for scheme when a URI has none.
func DefaultPort(scheme string) int {
	if scheme == SchemeHTTPS {
		return 443
	}
	return 80
}

// NewProvider creates a provider for scheme, http or https.
func NewProvider(scheme string, cfg ...Config) *vfskit.OriginatingProvider {
	var c Config
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "vfskit"
	}
	return vfskit.NewOriginatingProvider(
		vfskit.NewURLFileNameParser(DefaultPort(scheme)),
		func(_ context.Context, root *vfskit.FileName, opts *vfskit.FileSystemOptions) (vfskit.FileSystem, error) {
			return NewFileSystem(root, opts, c), nil
		},
		capabilities...,
	)
}

// FileSystem is the set of resources on one host.
type FileSystem struct {
	*vfskit.BaseFileSystem

	client    *http.Client
	userAgent string
}

// NewFileSystem creates a file system for root. Options override the
// matching fields of cfg.
func NewFileSystem(root *vfskit.FileName, opts *vfskit.FileSystemOptions, cfg Config) *FileSystem {
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	fs := &FileSystem{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.GetDuration(SchemeHTTP, optTimeout, cfg.Timeout),
		},
		userAgent: opts.GetString(SchemeHTTP, optUserAgent, cfg.UserAgent),
	}
	fs.BaseFileSystem = vfskit.NewBaseFileSystem(root, nil, opts, fs, capabilities...)
	return fs
}

// CreateFile implements vfskit.FileSystemHooks
func (fs *FileSystem) CreateFile(_ context.Context, name *vfskit.FileName) (vfskit.FileBackend, error) {
	return &backend{fs: fs, name: name}, nil
}

// CloseLink implements vfskit.LinkCloser. Idle keep-alive connections are
// closed; new requests open fresh ones.
func (fs *FileSystem) CloseLink() error {
	fs.client.CloseIdleConnections()
	return nil
}

func (fs *FileSystem) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fs.userAgent)
	return fs.client.Do(req)
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
}

func missing(code int) bool {
	return code == http.StatusNotFound || code == http.StatusGone
}

// backend is one resource. Its metadata comes from a HEAD request.
type backend struct {
	fs   *FileSystem
	name *vfskit.FileName
}

func (b *backend) Attach(ctx context.Context) (vfskit.FileInfo, error) {
	resp, err := b.fs.do(ctx, http.MethodHead, b.name.URI())
	if err != nil {
		return vfskit.FileInfo{}, err
	}
	resp.Body.Close()

	switch {
	case missing(resp.StatusCode):
		return vfskit.FileInfo{Type: vfskit.TypeImaginary}, nil
	case resp.StatusCode != http.StatusOK:
		return vfskit.FileInfo{}, &StatusError{Method: http.MethodHead, URL: b.name.FriendlyURI(), Code: resp.StatusCode}
	}

	info := vfskit.FileInfo{
		Type:        vfskit.TypeFile,
		Size:        max(resp.ContentLength, 0),
		ContentType: resp.Header.Get("Content-Type"),
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			info.ModTime = t
		}
	}
	return info, nil
}

func (b *backend) ListChildren(context.Context) ([]string, error) {
	return nil, errors.New("http: resources have no children")
}

func (b *backend) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := b.fs.do(ctx, http.MethodGet, b.name.URI())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if missing(resp.StatusCode) {
			return nil, fmt.Errorf("open %s: %w", b.name.FriendlyURI(), vfskit.ErrNotFound)
		}
		return nil, &StatusError{Method: http.MethodGet, URL: b.name.FriendlyURI(), Code: resp.StatusCode}
	}
	return resp.Body, nil
}

var (
	_ vfskit.FileSystem = (*FileSystem)(nil)
	_ vfskit.LinkCloser = (*FileSystem)(nil)
)
