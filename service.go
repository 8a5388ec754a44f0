package vfskit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gobeaver/beaver-kit/config"
)

// Global instance
var (
	defaultManager *Manager
	defaultOnce    sync.Once
	defaultErr     error
	defaultMu      sync.RWMutex
)

// Builder provides a way to create Manager instances with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the global Manager instance using the builder's prefix
func (b *Builder) Init() error {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return err
	}
	return Init(cfg)
}

// New creates a new Manager instance using the builder's prefix
func (b *Builder) New() (*Manager, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return New(cfg)
}

// Init initializes the global manager
func Init(configs ...*Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		m, err := New(cfg)
		defaultMu.Lock()
		defaultManager, defaultErr = m, err
		defaultMu.Unlock()
	})

	return defaultErr
}

// New creates a manager from config with a provider for every enabled,
// registered scheme.
func New(cfg *Config) (*Manager, error) {
	opts, err := managerOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx := context.Background()
	m := NewManager(opts...)
	if err := m.Init(ctx); err != nil {
		return nil, err
	}

	for _, scheme := range enabledSchemes(cfg) {
		p, err := CreateProvider(scheme, cfg)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to create provider: %w", err)
		}
		if err := m.AddProvider(ctx, p, scheme); err != nil {
			m.Close()
			return nil, err
		}
	}

	if cfg.DefaultScheme != "" {
		p, ok := m.Provider(cfg.DefaultScheme)
		if !ok {
			m.Close()
			return nil, fmt.Errorf("default scheme %s is not enabled", cfg.DefaultScheme)
		}
		if err := m.SetDefaultProvider(ctx, p); err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}

// managerOptions validates cfg and converts it to manager options.
func managerOptions(cfg *Config) ([]ManagerOption, error) {
	strategy, err := ParseCacheStrategy(cfg.CacheStrategy)
	if err != nil {
		return nil, err
	}
	cache, err := NewFilesCache(cfg.FilesCache, cfg.LRUSize)
	if err != nil {
		return nil, err
	}
	opts := []ManagerOption{
		WithCacheStrategy(strategy),
		WithFilesCache(cache),
		WithURIStyleNames(cfg.URIStyle),
		WithTempDir(cfg.TempDir),
	}
	if cfg.CryptorKey != "" {
		c, err := NewAESCryptor([]byte(cfg.CryptorKey))
		if err != nil {
			return nil, errors.New("cryptor key must be 16, 24 or 32 bytes")
		}
		opts = append(opts, WithCryptor(c))
	}
	return opts, nil
}

func enabledSchemes(cfg *Config) []string {
	registered := RegisteredSchemes()
	if strings.TrimSpace(cfg.Providers) == "" {
		return registered
	}
	var schemes []string
	for _, s := range strings.Split(cfg.Providers, ",") {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(schemes, s) {
			schemes = append(schemes, s)
		}
	}
	return schemes
}

// VFS returns the global manager
func VFS() *Manager {
	defaultMu.RLock()
	m := defaultManager
	defaultMu.RUnlock()
	if m == nil {
		_ = Init()
		defaultMu.RLock()
		m = defaultManager
		defaultMu.RUnlock()
	}
	return m
}

// Default returns the global instance, initializing if needed with error handling
func Default() (*Manager, error) {
	if m := VFS(); m != nil {
		return m, nil
	}
	if defaultErr != nil {
		return nil, defaultErr
	}
	return nil, errors.New("vfskit: default manager not initialized")
}

// SetDefault replaces the global manager.
func SetDefault(m *Manager) {
	defaultOnce.Do(func() {})
	defaultMu.Lock()
	defaultManager, defaultErr = m, nil
	defaultMu.Unlock()
}

// NewFromEnv creates instance from environment variables (convenience constructor)
func NewFromEnv() (*Manager, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultMu.Lock()
	defaultManager = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
	defaultMu.Unlock()
}
