package vfskit

import (
	"context"
	"io"
	"os"
)

// CopyContent writes the content of file to w.
func CopyContent(ctx context.Context, file FileObject, w io.Writer) (int64, error) {
	r, err := file.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return io.Copy(w, r)
}

// ReadAll returns the content of file.
func ReadAll(ctx context.Context, file FileObject) ([]byte, error) {
	r, err := file.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// copyToLocal writes the content of file to a new local file at path.
func copyToLocal(ctx context.Context, file FileObject, path string) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := CopyContent(ctx, file, out); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}
