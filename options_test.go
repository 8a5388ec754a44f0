package vfskit

import (
	"testing"
	"time"
)

func TestFileSystemOptionsEquality(t *testing.T) {
	a := NewFileSystemOptions(
		SetOption("sftp", "timeout", 5*time.Second),
		SetOption("sftp", "knownHosts", "/etc/ssh/known_hosts"),
	)
	b := NewFileSystemOptions(
		SetOption("sftp", "knownHosts", "/etc/ssh/known_hosts"),
		SetOption("sftp", "timeout", 5*time.Second),
	)
	c := NewFileSystemOptions(SetOption("sftp", "timeout", 6*time.Second))
	d := NewFileSystemOptions(SetOption("http", "timeout", 5*time.Second))

	if !a.Equal(b) || a.Compare(b) != 0 {
		t.Error("options with the same entries differ")
	}
	if a.Canonical() != b.Canonical() || a.Fingerprint() != b.Fingerprint() {
		t.Error("canonical form depends on insertion order")
	}
	if a.Equal(c) || c.Equal(d) {
		t.Error("options with different entries are equal")
	}
	if c.Compare(d) == 0 || c.Compare(d) != -d.Compare(c) {
		t.Error("Compare() is not antisymmetric")
	}
	if a.Compare(c) <= 0 {
		t.Error("larger option sets must sort after smaller ones")
	}
}

func TestFileSystemOptionsEmpty(t *testing.T) {
	var nilOpts *FileSystemOptions
	empty := NewFileSystemOptions()

	if !nilOpts.Equal(empty) || !empty.Equal(nilOpts) {
		t.Error("nil and empty options differ")
	}
	if nilOpts.Len() != 0 || nilOpts.Has("a", "b") {
		t.Error("nil options have entries")
	}
	if nilOpts.Canonical() != "" {
		t.Errorf("Canonical() = %q", nilOpts.Canonical())
	}
	if got := nilOpts.GetString("a", "b", "def"); got != "def" {
		t.Errorf("GetString() = %q", got)
	}
}

func TestSetOptionOnZeroValue(t *testing.T) {
	var o FileSystemOptions
	SetOption("sftp", "timeout", time.Second)(&o)
	if got := o.GetDuration("sftp", "timeout", 0); got != time.Second {
		t.Errorf("GetDuration() = %v, want %v", got, time.Second)
	}
	if o.Len() != 1 {
		t.Errorf("Len() = %d, want 1", o.Len())
	}
}

func TestFileSystemOptionsGetters(t *testing.T) {
	o := NewFileSystemOptions(
		SetOption("s", "str", "value"),
		SetOption("s", "bool", true),
		SetOption("s", "int", 42),
		SetOption("s", "dur", time.Minute),
	)

	if got := o.GetString("s", "str", ""); got != "value" {
		t.Errorf("GetString() = %q", got)
	}
	if got := o.GetBool("s", "bool", false); !got {
		t.Error("GetBool() = false")
	}
	if got := o.GetInt("s", "int", 0); got != 42 {
		t.Errorf("GetInt() = %d", got)
	}
	if got := o.GetDuration("s", "dur", 0); got != time.Minute {
		t.Errorf("GetDuration() = %s", got)
	}
	if got := o.GetInt("s", "str", 7); got != 7 {
		t.Errorf("GetInt() on a string = %d, want the default", got)
	}
	if got := o.GetBool("other", "bool", true); !got {
		t.Error("GetBool() on a missing key ignored the default")
	}
}

func TestFileSystemOptionsWith(t *testing.T) {
	base := NewFileSystemOptions(SetOption("s", "a", 1))
	derived := base.With(SetOption("s", "b", 2))

	if base.Len() != 1 || derived.Len() != 2 {
		t.Errorf("Len() = %d, %d", base.Len(), derived.Len())
	}
	if base.Has("s", "b") {
		t.Error("With() modified the receiver")
	}

	var nilOpts *FileSystemOptions
	if got := nilOpts.With(SetOption("s", "a", 1)); !got.Equal(base) {
		t.Error("With() on nil options")
	}
}

func TestFileSystemOptionsCanonical(t *testing.T) {
	o := NewFileSystemOptions(SetOption("b", "x", 1), SetOption("a", "y", "s"))
	want := `a.y=string:"s";b.x=int:"1"`
	if got := o.Canonical(); got != want {
		t.Errorf("Canonical() = %q, want %q", got, want)
	}

	// Equal printed values of different types are different options.
	s := NewFileSystemOptions(SetOption("a", "x", "1"))
	i := NewFileSystemOptions(SetOption("a", "x", 1))
	if s.Equal(i) {
		t.Error("string and int values compare equal")
	}
}

func TestFileSystemKey(t *testing.T) {
	root := NewFileName("test", "/", TypeFolder)
	sameRoot := NewFileName("test", "/", TypeFolder)
	otherRoot := NewHostFileName("sftp", HostInfo{HostName: "h", DefaultPort: 22}, "/", TypeFolder)
	opts := NewFileSystemOptions(SetOption("s", "a", 1))

	k1 := NewFileSystemKey(root, nil)
	k2 := NewFileSystemKey(sameRoot, NewFileSystemOptions())
	k3 := NewFileSystemKey(root, opts)
	k4 := NewFileSystemKey(otherRoot, nil)

	if !k1.Equal(k2) || k1.String() != k2.String() {
		t.Error("keys for the same root and empty options differ")
	}
	if k1.Equal(k3) || k1.String() == k3.String() {
		t.Error("options do not distinguish keys")
	}
	if k1.Equal(k4) {
		t.Error("roots do not distinguish keys")
	}
	if k1.RootKey() != "test:///" || k3.Options() != opts {
		t.Errorf("RootKey() = %q", k1.RootKey())
	}
	if k4.Compare(k1) >= 0 {
		t.Error("keys are not ordered by root first")
	}
	if !(FileSystemKey{}).IsZero() || k1.IsZero() {
		t.Error("IsZero()")
	}
}
