package vfskit

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// LocalScheme is the scheme that absolute OS paths resolve through.
const LocalScheme = "file"

// Manager resolves URIs through the provider registered for their scheme. It
// is the Context of every provider and file system it owns.
type Manager struct {
	Container

	mu              sync.RWMutex
	providers       map[string]FileProvider
	defaultProvider FileProvider
	baseFile        FileObject

	filesCache    FilesCache
	cacheStrategy CacheStrategy
	uriStyle      bool
	cryptor       Cryptor
	logger        *slog.Logger
	replicator    Replicator
	tempStore     TemporaryFileStore
	tempDir       string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithFilesCache sets the cache shared by all file systems of the manager.
func WithFilesCache(c FilesCache) ManagerOption {
	return func(m *Manager) { m.filesCache = c }
}

// WithCacheStrategy sets when cached file objects are refreshed.
func WithCacheStrategy(s CacheStrategy) ManagerOption {
	return func(m *Manager) { m.cacheStrategy = s }
}

// WithURIStyleNames makes folder names carry a trailing separator.
func WithURIStyleNames(enabled bool) ManagerOption {
	return func(m *Manager) { m.uriStyle = enabled }
}

// WithCryptor sets the cryptor used for {encrypted} passwords.
func WithCryptor(c Cryptor) ManagerOption {
	return func(m *Manager) { m.cryptor = c }
}

// WithLogger sets the logger handed to components.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithReplicator replaces the default replicator.
func WithReplicator(r Replicator) ManagerOption {
	return func(m *Manager) { m.replicator = r }
}

// WithTemporaryFileStore replaces the default temporary file store.
func WithTemporaryFileStore(s TemporaryFileStore) ManagerOption {
	return func(m *Manager) { m.tempStore = s }
}

// WithTempDir sets the parent directory of the default temporary store.
func WithTempDir(dir string) ManagerOption {
	return func(m *Manager) { m.tempDir = dir }
}

// NewManager creates a manager with no providers. Call Init before use.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		providers:     make(map[string]FileProvider),
		cacheStrategy: CacheOnResolve,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.filesCache == nil {
		m.filesCache = NewDefaultFilesCache()
	}
	if m.cryptor == nil {
		m.cryptor = DefaultCryptor()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.SetContext(m)
	return m
}

// Init creates the default temporary store and replicator unless they were
// supplied.
func (m *Manager) Init(ctx context.Context) error {
	if m.tempStore == nil {
		m.tempStore = NewTemporaryFileStore(m.tempDir)
	}
	if err := m.AddComponent(ctx, m.tempStore); err != nil {
		return err
	}
	if m.replicator == nil {
		m.replicator = NewDefaultReplicator()
	}
	return m.AddComponent(ctx, m.replicator)
}

// AddProvider registers p for the given schemes.
func (m *Manager) AddProvider(ctx context.Context, p FileProvider, schemes ...string) error {
	if len(schemes) == 0 {
		return fmt.Errorf("vfskit: no schemes given for provider")
	}
	m.mu.Lock()
	for _, s := range schemes {
		if _, ok := m.providers[s]; ok {
			m.mu.Unlock()
			return fmt.Errorf("vfskit: multiple providers for scheme %q", s)
		}
	}
	m.mu.Unlock()

	if err := m.AddComponent(ctx, p); err != nil {
		return err
	}

	m.mu.Lock()
	for _, s := range schemes {
		m.providers[s] = p
	}
	m.mu.Unlock()
	m.logger.Debug("provider added", "schemes", schemes)
	return nil
}

// SetDefaultProvider sets the provider used for URIs with an unknown scheme.
func (m *Manager) SetDefaultProvider(ctx context.Context, p FileProvider) error {
	if err := m.AddComponent(ctx, p); err != nil {
		return err
	}
	m.mu.Lock()
	m.defaultProvider = p
	m.mu.Unlock()
	return nil
}

// HasProvider reports whether a provider is registered for scheme.
func (m *Manager) HasProvider(scheme string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.providers[scheme]
	return ok
}

// Provider returns the provider registered for scheme.
func (m *Manager) Provider(scheme string) (FileProvider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[scheme]
	return p, ok
}

// Schemes returns the registered schemes in sorted order.
func (m *Manager) Schemes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.providers))
	for s := range m.providers {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// SetBaseFile sets the file that relative names resolve against.
func (m *Manager) SetBaseFile(f FileObject) {
	m.mu.Lock()
	m.baseFile = f
	m.mu.Unlock()
}

// BaseFile returns the file that relative names resolve against.
func (m *Manager) BaseFile() FileObject {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baseFile
}

// provider returns the provider for the scheme of uri, or nil with the
// scheme when none is registered. Absolute OS paths have no scheme.
func (m *Manager) providerFor(uri string) (FileProvider, string) {
	scheme, _, ok := ExtractScheme(uri)
	if !ok {
		return nil, ""
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[scheme], scheme
}

func (m *Manager) getDefaultProvider() FileProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultProvider
}

func isAbsoluteLocalName(uri string) bool {
	return filepath.IsAbs(uri)
}

// ============================================================================
// Resolution
// ============================================================================

// ResolveFileURI implements Context. Relative names resolve against the base file.
func (m *Manager) ResolveFileURI(ctx context.Context, uri string, opts *FileSystemOptions) (FileObject, error) {
	return m.ResolveFile(ctx, m.BaseFile(), uri, opts)
}

// Resolve resolves uri with no options.
func (m *Manager) Resolve(ctx context.Context, uri string) (FileObject, error) {
	return m.ResolveFileURI(ctx, uri, nil)
}

// ResolveFile implements Context. uri may be an absolute URI, an absolute OS
// path or a name relative to base.
func (m *Manager) ResolveFile(ctx context.Context, base FileObject, uri string, opts *FileSystemOptions) (FileObject, error) {
	if _, err := Decode(uri); err != nil {
		return nil, err
	}

	p, scheme := m.providerFor(uri)
	if p != nil {
		return p.FindFile(ctx, base, uri, opts)
	}
	if isAbsoluteLocalName(uri) {
		return m.findLocalFile(ctx, uri)
	}
	if scheme != "" {
		dp := m.getDefaultProvider()
		if dp == nil {
			return nil, newError(KindUnknownScheme, scheme, uri)
		}
		return dp.FindFile(ctx, base, uri, opts)
	}
	if base == nil {
		return nil, newError(KindInvalidAbsoluteURI, uri)
	}
	return base.ResolveFile(ctx, uri, ScopeFileSystem)
}

// ToFileObject implements Context
func (m *Manager) ToFileObject(ctx context.Context, osPath string) (FileObject, error) {
	abs, err := filepath.Abs(osPath)
	if err != nil {
		return nil, err
	}
	return m.findLocalFile(ctx, abs)
}

func (m *Manager) findLocalFile(ctx context.Context, osPath string) (FileObject, error) {
	p, ok := m.Provider(LocalScheme)
	if !ok {
		return nil, newError(KindUnknownScheme, LocalScheme, osPath)
	}
	path := filepath.ToSlash(osPath)
	if !strings.HasPrefix(path, separator) {
		path = separator + path
	}
	return p.FindFile(ctx, nil, path, nil)
}

// ParseURI implements Context. Relative names resolve against the base file.
func (m *Manager) ParseURI(uri string) (*FileName, error) {
	p, scheme := m.providerFor(uri)
	if p != nil {
		return p.ParseURI(nil, uri)
	}
	if isAbsoluteLocalName(uri) {
		if lp, ok := m.Provider(LocalScheme); ok {
			return lp.ParseURI(nil, filepath.ToSlash(uri))
		}
	}
	if scheme != "" {
		dp := m.getDefaultProvider()
		if dp == nil {
			return nil, newError(KindUnknownScheme, scheme, uri)
		}
		return dp.ParseURI(nil, uri)
	}
	base := m.BaseFile()
	if base == nil {
		return nil, newError(KindInvalidAbsoluteURI, uri)
	}
	return resolveName(m, base.Name(), uri, ScopeFileSystem)
}

// ResolveName implements Context
func (m *Manager) ResolveName(base *FileName, name string, scope NameScope) (*FileName, error) {
	return resolveName(m, base, name, scope)
}

// CreateFileSystem creates a layered file system of the given scheme over file
// and returns its root.
func (m *Manager) CreateFileSystem(ctx context.Context, scheme string, file FileObject) (FileObject, error) {
	p, ok := m.Provider(scheme)
	if !ok {
		return nil, newError(KindUnknownScheme, scheme, file.Name())
	}
	return p.CreateFileSystem(ctx, scheme, file, file.FileSystem().Options())
}

// CloseFileSystem closes fs through the provider of its scheme.
func (m *Manager) CloseFileSystem(fs FileSystem) error {
	if p, ok := m.Provider(fs.RootName().Scheme()); ok {
		return p.CloseFileSystem(fs)
	}
	return fs.Close()
}

// FreeUnusedResources closes the links of idle file systems across all
// providers.
func (m *Manager) FreeUnusedResources(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range m.uniqueProviders() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.FreeUnusedResources()
			return nil
		})
	}
	return g.Wait()
}

func (m *Manager) uniqueProviders() []FileProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []FileProvider
	for _, p := range m.providers {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	if m.defaultProvider != nil && !slices.Contains(out, m.defaultProvider) {
		out = append(out, m.defaultProvider)
	}
	return out
}

// Close closes every provider, with their file systems, and the files cache.
func (m *Manager) Close() error {
	var result *multierror.Error
	if err := m.Container.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := m.filesCache.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	m.mu.Lock()
	clear(m.providers)
	m.defaultProvider = nil
	m.baseFile = nil
	m.mu.Unlock()
	return result.ErrorOrNil()
}

// ============================================================================
// Context
// ============================================================================

// Manager implements Context
func (m *Manager) Manager() *Manager { return m }

// Replicator implements Context
func (m *Manager) Replicator() Replicator { return m.replicator }

// TemporaryFileStore implements Context
func (m *Manager) TemporaryFileStore() TemporaryFileStore { return m.tempStore }

// FilesCache implements Context
func (m *Manager) FilesCache() FilesCache { return m.filesCache }

// CacheStrategy implements Context
func (m *Manager) CacheStrategy() CacheStrategy { return m.cacheStrategy }

// URIStyle implements Context
func (m *Manager) URIStyle() bool { return m.uriStyle }

// Cryptor implements Context
func (m *Manager) Cryptor() Cryptor { return m.cryptor }

// Logger implements Context
func (m *Manager) Logger() *slog.Logger { return m.logger }

var _ Context = (*Manager)(nil)
