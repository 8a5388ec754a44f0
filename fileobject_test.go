package vfskit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func childNames(t *testing.T, f FileObject) []string {
	t.Helper()
	children, err := f.Children(context.Background())
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.Name().BaseName()
		c.Close()
	}
	return names
}

func TestFileObjectChildren(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	root := mustResolve(t, m, "test:///")
	if diff := cmp.Diff([]string{"a.txt", "b.go", "empty", "sub"}, childNames(t, root)); diff != "" {
		t.Errorf("Children() mismatch (-want +got):\n%s", diff)
	}
	empty := mustResolve(t, m, "test:///empty")
	if got := childNames(t, empty); len(got) != 0 {
		t.Errorf("Children() of an empty folder = %v", got)
	}

	file := mustResolve(t, m, "test:///a.txt")
	if _, err := file.Children(ctx); !errors.Is(err, ErrNotFolder) {
		t.Errorf("Children() of a file error = %v", err)
	}
	missing := mustResolve(t, m, "test:///missing")
	if _, err := missing.Children(ctx); !IsNotFound(err) {
		t.Errorf("Children() of a missing file error = %v", err)
	}

	sub := mustResolve(t, m, "test:///sub")
	child, err := sub.Child(ctx, "c.go")
	if err != nil {
		t.Fatalf("Child() error = %v", err)
	}
	if got := child.Name().URI(); got != "test:///sub/c.go" {
		t.Errorf("Child() = %q", got)
	}

	for _, f := range []FileObject{root, empty, file, missing, sub, child} {
		f.Close()
	}
	if got := root.FileSystem().UseCount(); got != 0 {
		t.Errorf("UseCount() = %d after closing every handle", got)
	}
}

func TestFileObjectParent(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	f := mustResolve(t, m, "test:///sub/deep/d.txt")
	defer f.Close()
	parent, err := f.Parent(ctx)
	if err != nil {
		t.Fatalf("Parent() error = %v", err)
	}
	defer parent.Close()
	if got := parent.Name().URI(); got != "test:///sub/deep" {
		t.Errorf("Parent() = %q", got)
	}

	root := mustResolve(t, m, "test:///")
	defer root.Close()
	if p, err := root.Parent(ctx); p != nil || err != nil {
		t.Errorf("Parent() of the root = %v, %v", p, err)
	}
}

func TestFileObjectAttach(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	f := mustResolve(t, m, "test:///a.txt")
	defer f.Close()
	if f.IsAttached() {
		t.Fatal("file attached before use")
	}
	info, err := f.Info(ctx)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	want := FileInfo{Type: TypeFile, Size: 5, ModTime: info.ModTime, ContentType: MIMETypeTextPlain}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("Info() mismatch (-want +got):\n%s", diff)
	}
	if f.Name().Type() != TypeFile {
		t.Errorf("name type = %v after attach", f.Name().Type())
	}

	dir := mustResolve(t, m, "test:///sub")
	defer dir.Close()
	if dir.Name().Type() != TypeFile {
		t.Fatalf("unattached name type = %v", dir.Name().Type())
	}
	if typ, _ := dir.Type(ctx); typ != TypeFolder || dir.Name().Type() != TypeFolder {
		t.Errorf("Type() = %v, name type %v", typ, dir.Name().Type())
	}
	if info, _ := dir.Info(ctx); info.ContentType != "" {
		t.Errorf("folder content type = %q", info.ContentType)
	}

	missing := mustResolve(t, m, "test:///missing.txt")
	defer missing.Close()
	if exists, err := missing.Exists(ctx); exists || err != nil {
		t.Errorf("Exists() = %v, %v", exists, err)
	}
	if missing.Name().Type() != TypeFile {
		t.Errorf("an imaginary file changed its name type to %v", missing.Name().Type())
	}
	if _, ok := f.LocalPath(); ok {
		t.Error("LocalPath() reported a path for an in-memory file")
	}
}

func TestFileObjectOpen(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	f := mustResolve(t, m, "test:///sub/deep/d.txt")
	defer f.Close()
	data, err := ReadAll(ctx, f)
	if err != nil || string(data) != "deep" {
		t.Errorf("ReadAll() = %q, %v", data, err)
	}

	dir := mustResolve(t, m, "test:///sub")
	defer dir.Close()
	if _, err := dir.Open(ctx); !errors.Is(err, ErrNotFile) {
		t.Errorf("Open() of a folder error = %v", err)
	}
	missing := mustResolve(t, m, "test:///missing.txt")
	defer missing.Close()
	if _, err := missing.Open(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open() of a missing file error = %v", err)
	}
}
