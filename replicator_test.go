package vfskit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTempFileStore(t *testing.T) {
	ctx := context.Background()
	s := NewTemporaryFileStore(t.TempDir())

	if _, err := s.AllocateFile("x"); !IsKind(err, KindClosed) {
		t.Fatalf("AllocateFile() before Init error = %v", err)
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	dir := s.Dir()
	if err := s.Init(ctx); err != nil || s.Dir() != dir {
		t.Fatalf("second Init() changed the directory: %v", err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("temporary directory missing: %v", err)
	}

	a, err := s.AllocateFile("nested/name.txt")
	if err != nil {
		t.Fatalf("AllocateFile() error = %v", err)
	}
	b, _ := s.AllocateFile("nested/name.txt")
	if a == b {
		t.Error("AllocateFile() returned the same path twice")
	}
	if filepath.Dir(a) != dir || !strings.HasSuffix(a, "_name.txt") {
		t.Errorf("AllocateFile() = %q", a)
	}
	if _, err := os.Stat(a); !os.IsNotExist(err) {
		t.Error("AllocateFile() created the file")
	}
	if root, _ := s.AllocateFile("/"); !strings.HasSuffix(root, "_file") {
		t.Errorf("AllocateFile(/) = %q", root)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Close() left the directory behind")
	}
}

func TestDefaultReplicator(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	f := mustResolve(t, m, "test:///a.txt")
	defer f.Close()

	path, err := m.Replicator().ReplicateFile(ctx, f)
	if err != nil {
		t.Fatalf("ReplicateFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello" {
		t.Fatalf("replica = %q, %v", data, err)
	}
	again, err := m.Replicator().ReplicateFile(ctx, f)
	if err != nil || again != path {
		t.Errorf("second ReplicateFile() = %q, %v, want %q", again, err, path)
	}

	dir := mustResolve(t, m, "test:///sub")
	defer dir.Close()
	if _, err := m.Replicator().ReplicateFile(ctx, dir); err == nil {
		t.Error("ReplicateFile() of a folder succeeded")
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Close() left the replica behind")
	}
}

func TestReplicatorWithoutStore(t *testing.T) {
	m, _ := newTestManager(t)
	f := mustResolve(t, m, "test:///a.txt")
	defer f.Close()
	if _, err := NewDefaultReplicator().ReplicateFile(context.Background(), f); err == nil {
		t.Error("ReplicateFile() without a context succeeded")
	}
}
