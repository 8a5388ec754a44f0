package vfskit

import (
	"context"
	"testing"
)

func registerTestProvider() {
	RegisterProvider(testScheme, func(*Config) (FileProvider, error) {
		return newFakeProvider(sampleTree), nil
	})
}

func TestNew(t *testing.T) {
	registerTestProvider()
	ctx := context.Background()

	m, err := New(&Config{Providers: testScheme, DefaultScheme: testScheme, TempDir: t.TempDir(), CacheStrategy: "manual"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()
	if !m.HasProvider(testScheme) || m.CacheStrategy() != CacheManual {
		t.Fatalf("New() = schemes %v, strategy %v", m.Schemes(), m.CacheStrategy())
	}
	f, err := m.Resolve(ctx, "other:///a.txt")
	if err != nil {
		t.Fatalf("Resolve() through the default provider error = %v", err)
	}
	f.Close()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"unregistered provider", Config{Providers: "nope"}},
		{"default scheme not enabled", Config{Providers: testScheme, DefaultScheme: "other"}},
		{"unknown files cache", Config{Providers: testScheme, FilesCache: "bogus"}},
		{"bad cryptor key", Config{Providers: testScheme, CryptorKey: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.TempDir = t.TempDir()
			if m, err := New(&tt.cfg); err == nil {
				m.Close()
				t.Error("New() succeeded")
			}
		})
	}
}

func TestNewWithCryptorKey(t *testing.T) {
	registerTestProvider()
	m, err := New(&Config{Providers: testScheme, TempDir: t.TempDir(), CryptorKey: "0123456789abcdef"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()
	if m.Cryptor() == DefaultCryptor() {
		t.Error("configured key was ignored")
	}
}

func TestGlobalManager(t *testing.T) {
	registerTestProvider()
	Reset()
	t.Cleanup(Reset)

	cfg := &Config{Providers: testScheme, TempDir: t.TempDir()}
	if err := Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	m := VFS()
	if m == nil || !m.HasProvider(testScheme) {
		t.Fatal("VFS() did not return the initialised manager")
	}
	t.Cleanup(func() { m.Close() })

	if err := Init(&Config{Providers: "nope"}); err != nil {
		t.Errorf("second Init() was not ignored: %v", err)
	}
	if d, err := Default(); err != nil || d != m {
		t.Errorf("Default() = %p, %v", d, err)
	}

	replacement := NewManager()
	SetDefault(replacement)
	if VFS() != replacement {
		t.Error("SetDefault() did not replace the manager")
	}

	Reset()
	if err := Init(&Config{Providers: "nope"}); err == nil {
		t.Error("Init() after Reset ignored the new config")
	}
	if _, err := Default(); err == nil {
		t.Error("Default() succeeded after a failed Init")
	}
}
