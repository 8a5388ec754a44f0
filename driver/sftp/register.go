package sftp

import (
	"time"

	"github.com/gobeaver/vfskit"
)

func init() {
	vfskit.RegisterProvider(Scheme, func(cfg *vfskit.Config) (vfskit.FileProvider, error) {
		return NewProvider(Config{
			Timeout:    time.Duration(cfg.SFTPTimeout) * time.Second,
			KnownHosts: cfg.SFTPKnownHosts,
			PrivateKey: cfg.SFTPPrivateKey,
		}), nil
	})
}
