package vfskit

import (
	"context"
	"strings"
	"testing"
)

func TestFileSystemErrorsHidePassword(t *testing.T) {
	ctx := context.Background()
	root := NewHostFileName("sftp", HostInfo{HostName: "h", DefaultPort: 22, UserName: "u", Password: "secret"}, "/", TypeFolder)
	fs := newFakeFS(root, nil, nil)

	other := NewHostFileName("sftp", HostInfo{HostName: "other", DefaultPort: 22, UserName: "u", Password: "secret"}, "/x", TypeFile)
	_, err := fs.ResolveFile(ctx, other)
	if !IsKind(err, KindMismatchedFSForName) {
		t.Fatalf("ResolveFile() of a foreign name error = %v", err)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("error exposes the password: %v", err)
	}
	if !strings.Contains(err.Error(), "sftp://u:***@h/") {
		t.Errorf("error does not name the file system: %v", err)
	}

	fs.Close()
	_, err = fs.ResolveFile(ctx, root)
	if !IsKind(err, KindClosed) {
		t.Fatalf("ResolveFile() after Close error = %v", err)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("error exposes the password: %v", err)
	}
}

func TestFileNameFriendlyRootURI(t *testing.T) {
	n := NewHostFileName("sftp", HostInfo{HostName: "h", Port: 2222, DefaultPort: 22, UserName: "u", Password: "secret"}, "/a/b", TypeFile)
	if got, want := n.FriendlyRootURI(), "sftp://u:***@h:2222/"; got != want {
		t.Errorf("FriendlyRootURI() = %q, want %q", got, want)
	}
	if got, want := n.RootURI(), "sftp://u:secret@h:2222/"; got != want {
		t.Errorf("RootURI() = %q, want %q", got, want)
	}

	layered := NewLayeredFileName("zip", n, "/in", TypeFile)
	if got, want := layered.FriendlyRootURI(), "zip:sftp://u:***@h:2222/a/b!/"; got != want {
		t.Errorf("FriendlyRootURI() = %q, want %q", got, want)
	}
}
