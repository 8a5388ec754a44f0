// Package sftp provides the sftp scheme, addressed as
// sftp://[user[:password]@]host[:port]/path. Connections are opened on
// first use, dropped when the file system is idle and re-opened on demand.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/gobeaver/vfskit"
)

// Scheme is the URI scheme served by this package.
const Scheme = "sftp"

// DefaultPort is the port used when a URI has none.
const DefaultPort = 22

const (
	optTimeout    = "timeout"
	optKnownHosts = "knownHosts"
	optPrivateKey = "privateKey"
)

// WithTimeout sets the connection timeout of a file system.
func WithTimeout(d time.Duration) vfskit.FSOption {
	return vfskit.SetOption(Scheme, optTimeout, d)
}

// WithKnownHosts sets the known_hosts file used to verify host keys.
func WithKnownHosts(path string) vfskit.FSOption {
	return vfskit.SetOption(Scheme, optKnownHosts, path)
}

// WithPrivateKey sets the PEM private key file used to authenticate.
func WithPrivateKey(path string) vfskit.FSOption {
	return vfskit.SetOption(Scheme, optPrivateKey, path)
}

// Config holds the defaults applied when the file system options don't
// set a value.
type Config struct {
	Timeout    time.Duration
	KnownHosts string // known_hosts file; host keys are not verified when empty
	PrivateKey string // PEM encoded private key file

	dial dialFunc
}

// link is an open connection.
type link struct {
	client *sftp.Client
	closer io.Closer // the ssh connection under client, if any
}

// Close shuts the transport first. The client waits for its reader to see
// the connection end, which a peer might never do on its own.
func (l *link) Close() error {
	var err error
	if l.closer != nil {
		err = l.closer.Close()
	}
	if cerr := l.client.Close(); err == nil {
		err = cerr
	}
	return err
}

// dialFunc opens a connection for a root name.
type dialFunc func(ctx context.Context, root *vfskit.FileName, cfg Config) (*link, error)

var capabilities = []vfskit.Capability{
	vfskit.CapRead,
	vfskit.CapListChildren,
	vfskit.CapGetType,
	vfskit.CapLastModified,
	vfskit.CapURI,
}

// NewProvider creates the sftp provider.
func NewProvider(cfg ...Config) *vfskit.OriginatingProvider {
	var c Config
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.dial == nil {
		c.dial = dialSSH
	}
	return vfskit.NewOriginatingProvider(
		vfskit.NewHostFileNameParser(DefaultPort),
		func(_ context.Context, root *vfskit.FileName, opts *vfskit.FileSystemOptions) (vfskit.FileSystem, error) {
			return NewFileSystem(root, opts, c), nil
		},
		capabilities...,
	)
}

// FileSystem is a tree on an SFTP server.
type FileSystem struct {
	*vfskit.BaseFileSystem

	cfg Config

	mu   sync.Mutex
	link *link
}

// NewFileSystem creates a file system for root. Options override the
// matching fields of cfg. No connection is made until a file is used.
func NewFileSystem(root *vfskit.FileName, opts *vfskit.FileSystemOptions, cfg Config) *FileSystem {
	cfg.Timeout = opts.GetDuration(Scheme, optTimeout, cfg.Timeout)
	cfg.KnownHosts = opts.GetString(Scheme, optKnownHosts, cfg.KnownHosts)
	cfg.PrivateKey = opts.GetString(Scheme, optPrivateKey, cfg.PrivateKey)
	if cfg.dial == nil {
		cfg.dial = dialSSH
	}

	fs := &FileSystem{cfg: cfg}
	fs.BaseFileSystem = vfskit.NewBaseFileSystem(root, nil, opts, fs, capabilities...)
	return fs
}

// CreateFile implements vfskit.FileSystemHooks
func (fs *FileSystem) CreateFile(_ context.Context, name *vfskit.FileName) (vfskit.FileBackend, error) {
	p, err := name.PathDecoded()
	if err != nil {
		return nil, err
	}
	return &backend{fs: fs, path: path.Clean(p)}, nil
}

// client returns the open client, connecting if needed.
func (fs *FileSystem) client(ctx context.Context) (*sftp.Client, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.link != nil {
		return fs.link.client, nil
	}
	l, err := fs.cfg.dial(ctx, fs.RootName(), fs.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", fs.RootName(), err)
	}
	fs.link = l
	fs.Logger().Debug("sftp connected", "root", fs.RootName())
	return l.client, nil
}

// do runs op with a connected client. A lost connection is re-opened once.
func (fs *FileSystem) do(ctx context.Context, op func(*sftp.Client) error) error {
	for attempt := 0; ; attempt++ {
		c, err := fs.client(ctx)
		if err != nil {
			return err
		}
		err = op(c)
		if attempt > 0 || !isConnectionLost(err) {
			return err
		}
		fs.drop(c)
	}
}

// drop closes the link if it still wraps c.
func (fs *FileSystem) drop(c *sftp.Client) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.link != nil && fs.link.client == c {
		fs.link.Close()
		fs.link = nil
	}
}

// Connected reports whether a connection is open.
func (fs *FileSystem) Connected() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.link != nil
}

// CloseLink implements vfskit.LinkCloser
func (fs *FileSystem) CloseLink() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.link == nil {
		return nil
	}
	err := fs.link.Close()
	fs.link = nil
	fs.Logger().Debug("sftp disconnected", "root", fs.RootName())
	return err
}

func isConnectionLost(err error) bool {
	return errors.Is(err, sftp.ErrSSHFxConnectionLost) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// dialSSH connects over SSH with the credentials of root.
func dialSSH(ctx context.Context, root *vfskit.FileName, cfg Config) (*link, error) {
	sshConfig := &ssh.ClientConfig{
		User:    root.UserName(),
		Timeout: cfg.Timeout,
	}

	if cfg.KnownHosts != "" {
		callback, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		sshConfig.HostKeyCallback = callback
	} else {
		sshConfig.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	// Add authentication method
	if cfg.PrivateKey != "" {
		keyData, err := os.ReadFile(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}
	if root.Password() != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(root.Password()))
	}
	if len(sshConfig.Auth) == 0 {
		return nil, errors.New("no authentication method provided")
	}

	addr := net.JoinHostPort(root.HostName(), strconv.Itoa(root.Port()))
	d := net.Dialer{Timeout: cfg.Timeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SSH: %w", err)
	}
	conn, chans, reqs, err := ssh.NewClientConn(nc, addr, sshConfig)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to connect to SSH: %w", err)
	}
	sshClient := ssh.NewClient(conn, chans, reqs)

	// Create SFTP client
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}
	return &link{client: client, closer: sshClient}, nil
}

// backend is the view of one remote path.
type backend struct {
	fs   *FileSystem
	path string
}

func (b *backend) Attach(ctx context.Context) (vfskit.FileInfo, error) {
	var info os.FileInfo
	err := b.fs.do(ctx, func(c *sftp.Client) error {
		var err error
		info, err = c.Stat(b.path)
		return err
	})
	switch {
	case isNotExist(err):
		return vfskit.FileInfo{Type: vfskit.TypeImaginary}, nil
	case err != nil:
		return vfskit.FileInfo{}, fmt.Errorf("stat %s: %w", b.path, err)
	case info.IsDir():
		return vfskit.FileInfo{Type: vfskit.TypeFolder, ModTime: info.ModTime()}, nil
	}
	return vfskit.FileInfo{
		Type:    vfskit.TypeFile,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (b *backend) ListChildren(ctx context.Context) ([]string, error) {
	var entries []os.FileInfo
	err := b.fs.do(ctx, func(c *sftp.Client) error {
		var err error
		entries, err = c.ReadDir(b.path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", b.path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

func (b *backend) Open(ctx context.Context) (io.ReadCloser, error) {
	var f *sftp.File
	err := b.fs.do(ctx, func(c *sftp.Client) error {
		var err error
		f, err = c.Open(b.path)
		return err
	})
	if isNotExist(err) {
		return nil, fmt.Errorf("open %s: %w", b.path, vfskit.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", b.path, err)
	}
	return f, nil
}

func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
		return true
	}
	var status *sftp.StatusError
	return errors.As(err, &status) && status.FxCode() == sftp.ErrSSHFxNoSuchFile
}

var (
	_ vfskit.FileSystem = (*FileSystem)(nil)
	_ vfskit.LinkCloser = (*FileSystem)(nil)
)
