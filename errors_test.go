package vfskit

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{newError(KindNotFound, "/a"), `file "/a" does not exist`},
		{newError(KindUnknownScheme, "x", "x:/a"), `unknown scheme "x" in URI "x:/a"`},
		{newError(KindUnknownScheme, "x"), `unknown scheme "x" in URI ""`},
		{newError(KindNotLayeredFS), "provider does not support layered file systems"},
		{newError(KindNotFound), "file does not exist"},
		{newError(KindClosed), "is closed"},
		{wrapError(errors.New("dial tcp: refused"), KindCreateFileSystemFailure, "sftp://h/"), `could not create file system for "sftp://h/": dial tcp: refused`},
		{&Error{Kind: "custom"}, "custom"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestErrorMatching(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("resolve: %w", wrapError(cause, KindCreateFileSystemFailure, "r"))

	if !errors.Is(err, cause) {
		t.Error("errors.Is() lost the cause")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("errors.Is() matched a different kind")
	}
	if KindOf(err) != KindCreateFileSystemFailure {
		t.Errorf("KindOf() = %q", KindOf(err))
	}
	if KindOf(cause) != "" {
		t.Errorf("KindOf() of a plain error = %q", KindOf(cause))
	}

	nested := wrapError(newError(KindNotFound, "/x"), KindCreateFileSystemFailure, "r")
	if !IsKind(nested, KindNotFound) || !IsNotFound(nested) || !errors.Is(nested, ErrNotFound) {
		t.Error("nested kind not found")
	}
	if IsKind(nil, KindNotFound) || IsKind(cause, KindNotFound) {
		t.Error("IsKind() matched a non-vfs error")
	}
}
