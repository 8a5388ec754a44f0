package vfskit

import (
	"os"
	"testing"
)

func TestGetConfig(t *testing.T) {
	defaults := Config{
		FilesCache:    "default",
		LRUSize:       100,
		CacheStrategy: "on_resolve",
		SFTPTimeout:   30,
		HTTPTimeout:   30,
		HTTPUserAgent: "vfskit",
	}

	tests := []struct {
		name    string
		envVars map[string]string
		want    func(c *Config)
	}{
		{
			name:    "default values",
			envVars: map[string]string{},
			want:    func(*Config) {},
		},
		{
			name: "cache configuration",
			envVars: map[string]string{
				"BEAVER_VFS_FILES_CACHE":    "lru",
				"BEAVER_VFS_LRU_SIZE":       "16",
				"BEAVER_VFS_CACHE_STRATEGY": "on_call",
				"BEAVER_VFS_URI_STYLE":      "true",
			},
			want: func(c *Config) {
				c.FilesCache = "lru"
				c.LRUSize = 16
				c.CacheStrategy = "on_call"
				c.URIStyle = true
			},
		},
		{
			name: "provider selection",
			envVars: map[string]string{
				"BEAVER_VFS_PROVIDERS":      "file,zip",
				"BEAVER_VFS_DEFAULT_SCHEME": "file",
				"BEAVER_VFS_TEMP_DIR":       "/var/tmp",
			},
			want: func(c *Config) {
				c.Providers = "file,zip"
				c.DefaultScheme = "file"
				c.TempDir = "/var/tmp"
			},
		},
		{
			name: "driver configuration",
			envVars: map[string]string{
				"BEAVER_VFS_LOCAL_MONITOR":    "true",
				"BEAVER_VFS_SFTP_TIMEOUT":     "5",
				"BEAVER_VFS_SFTP_KNOWN_HOSTS": "/home/me/.ssh/known_hosts",
				"BEAVER_VFS_SFTP_PRIVATE_KEY": "/home/me/.ssh/id_ed25519",
				"BEAVER_VFS_HTTP_TIMEOUT":     "10",
				"BEAVER_VFS_HTTP_USER_AGENT":  "crawler/1.0",
				"BEAVER_VFS_CRYPTOR_KEY":      "0123456789abcdef",
			},
			want: func(c *Config) {
				c.LocalMonitor = true
				c.SFTPTimeout = 5
				c.SFTPKnownHosts = "/home/me/.ssh/known_hosts"
				c.SFTPPrivateKey = "/home/me/.ssh/id_ed25519"
				c.HTTPTimeout = 10
				c.HTTPUserAgent = "crawler/1.0"
				c.CryptorKey = "0123456789abcdef"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				os.Setenv(k, v)
				t.Cleanup(func() { os.Unsetenv(k) })
			}

			cfg, err := GetConfig()
			if err != nil {
				t.Fatalf("GetConfig() error = %v", err)
			}

			want := defaults
			tt.want(&want)
			if *cfg != want {
				t.Errorf("GetConfig() = %+v, want %+v", *cfg, want)
			}
		})
	}
}

func TestManagerOptions(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{FilesCache: "default", CacheStrategy: "on_resolve"}},
		{name: "lru", cfg: Config{FilesCache: "lru", LRUSize: 4, CacheStrategy: "manual"}},
		{name: "unknown cache", cfg: Config{FilesCache: "redis", CacheStrategy: "on_resolve"}, wantErr: true},
		{name: "unknown strategy", cfg: Config{FilesCache: "default", CacheStrategy: "sometimes"}, wantErr: true},
		{name: "short key", cfg: Config{FilesCache: "default", CacheStrategy: "on_resolve", CryptorKey: "short"}, wantErr: true},
		{name: "aes key", cfg: Config{FilesCache: "default", CacheStrategy: "on_resolve", CryptorKey: "0123456789abcdef"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := managerOptions(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("managerOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnabledSchemes(t *testing.T) {
	got := enabledSchemes(&Config{Providers: " file, zip ,file,,ram"})
	want := []string{"file", "zip", "ram"}
	if len(got) != len(want) {
		t.Fatalf("enabledSchemes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("enabledSchemes()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
