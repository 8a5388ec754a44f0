package http

import (
	"time"

	"github.com/gobeaver/vfskit"
)

func init() {
	for _, scheme := range []string{SchemeHTTP, SchemeHTTPS} {
		vfskit.RegisterProvider(scheme, func(cfg *vfskit.Config) (vfskit.FileProvider, error) {
			return NewProvider(scheme, Config{
				Timeout:   time.Duration(cfg.HTTPTimeout) * time.Second,
				UserAgent: cfg.HTTPUserAgent,
			}), nil
		})
	}
}
