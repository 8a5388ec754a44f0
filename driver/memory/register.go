package memory

import "github.com/gobeaver/vfskit"

func init() {
	vfskit.RegisterProvider(Scheme, func(cfg *vfskit.Config) (vfskit.FileProvider, error) {
		return NewProvider(), nil
	})
}
