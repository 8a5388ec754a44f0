package vfskit

import (
	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Files cache implementation (default, lru, null)
	FilesCache string `env:"VFS_FILES_CACHE,default:default"`
	LRUSize    int    `env:"VFS_LRU_SIZE,default:100"` // per file system

	// When cached files are refreshed (on_resolve, on_call, manual)
	CacheStrategy string `env:"VFS_CACHE_STRATEGY,default:on_resolve"`

	// Folder names end with a separator
	URIStyle bool `env:"VFS_URI_STYLE,default:false"`

	// Key for {encrypted} passwords, 16, 24 or 32 bytes. Empty uses the built-in key.
	CryptorKey string `env:"VFS_CRYPTOR_KEY"`

	// Parent of the temporary directory, os.TempDir when empty
	TempDir string `env:"VFS_TEMP_DIR"`

	// Schemes to enable, comma-separated. Empty enables every registered provider.
	Providers string `env:"VFS_PROVIDERS"`

	// Scheme whose provider handles URIs with an unregistered scheme
	DefaultScheme string `env:"VFS_DEFAULT_SCHEME"`

	// Local driver configuration
	LocalMonitor bool `env:"VFS_LOCAL_MONITOR,default:false"`

	// SFTP driver configuration
	SFTPTimeout    int    `env:"VFS_SFTP_TIMEOUT,default:30"` // seconds
	SFTPKnownHosts string `env:"VFS_SFTP_KNOWN_HOSTS"`        // Path to known_hosts, empty skips host key checks
	SFTPPrivateKey string `env:"VFS_SFTP_PRIVATE_KEY"`        // Path to private key file

	// HTTP driver configuration
	HTTPTimeout   int    `env:"VFS_HTTP_TIMEOUT,default:30"` // seconds
	HTTPUserAgent string `env:"VFS_HTTP_USER_AGENT,default:vfskit"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
