package vfskit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// ============================================================================
// Temporary files
// ============================================================================

// TempFileStore allocates scratch files in a private directory created by
// Init and removed by Close.
type TempFileStore struct {
	BaseComponent

	parent string
	next   atomic.Int64

	mu  sync.Mutex
	dir string
}

// NewTemporaryFileStore creates a store under parent, or under os.TempDir
// when parent is empty.
func NewTemporaryFileStore(parent string) *TempFileStore {
	return &TempFileStore{parent: parent}
}

// Init implements Component
func (s *TempFileStore) Init(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		return nil
	}
	dir, err := os.MkdirTemp(s.parent, "vfskit-")
	if err != nil {
		return fmt.Errorf("failed to create temporary directory: %w", err)
	}
	s.dir = dir
	return nil
}

// Dir returns the directory holding allocated files.
func (s *TempFileStore) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// AllocateFile implements TemporaryFileStore. The file is not created.
func (s *TempFileStore) AllocateFile(baseName string) (string, error) {
	dir := s.Dir()
	if dir == "" {
		return "", newError(KindClosed, "temporary file store")
	}
	base := filepath.Base(filepath.FromSlash(baseName))
	if base == "." || base == string(filepath.Separator) {
		base = "file"
	}
	return filepath.Join(dir, fmt.Sprintf("tmp_%d_%s", s.next.Add(1), base)), nil
}

// Close implements Component
func (s *TempFileStore) Close() error {
	s.mu.Lock()
	dir := s.dir
	s.dir = ""
	s.mu.Unlock()
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}

// ============================================================================
// Replication
// ============================================================================

// DefaultReplicator copies files into the temporary store of its context.
// Files that already have a local path are not copied, and each file is
// copied at most once.
type DefaultReplicator struct {
	BaseComponent

	mu     sync.Mutex
	copies map[string]string
}

// NewDefaultReplicator creates a replicator. It needs a context with a
// temporary file store.
func NewDefaultReplicator() *DefaultReplicator {
	return &DefaultReplicator{copies: make(map[string]string)}
}

// ReplicateFile implements Replicator
func (r *DefaultReplicator) ReplicateFile(ctx context.Context, file FileObject) (string, error) {
	if p, ok := file.LocalPath(); ok {
		return p, nil
	}
	key := file.Name().Key()

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.copies[key]; ok {
		return p, nil
	}

	vctx := r.Context()
	if vctx == nil || vctx.TemporaryFileStore() == nil {
		return "", fmt.Errorf("replicate %s: no temporary file store", file.Name())
	}
	dst, err := vctx.TemporaryFileStore().AllocateFile(file.Name().BaseName())
	if err != nil {
		return "", err
	}
	if err := copyToLocal(ctx, file, dst); err != nil {
		return "", fmt.Errorf("replicate %s: %w", file.Name(), err)
	}
	r.copies[key] = dst
	r.Logger().Debug("file replicated", "file", file.Name(), "path", dst)
	return dst, nil
}

// Close removes the copies made by the replicator.
func (r *DefaultReplicator) Close() error {
	r.mu.Lock()
	copies := r.copies
	r.copies = make(map[string]string)
	r.mu.Unlock()

	var failed []string
	for _, p := range copies {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			failed = append(failed, p)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to remove replicated files: %s", strings.Join(failed, ", "))
	}
	return nil
}

var (
	_ TemporaryFileStore = (*TempFileStore)(nil)
	_ Replicator         = (*DefaultReplicator)(nil)
	_ Component          = (*TempFileStore)(nil)
	_ Component          = (*DefaultReplicator)(nil)
)
