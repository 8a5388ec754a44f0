package vfskit

import "fmt"

// FileType is the kind of node a FileName refers to.
type FileType int32

const (
	// TypeImaginary is reported for files that do not exist. It is never stored on a FileName.
	TypeImaginary FileType = iota
	TypeFolder
	TypeFile
	TypeFileOrFolder
)

// HasChildren reports whether files of this type can contain other files.
func (t FileType) HasChildren() bool {
	return t == TypeFolder || t == TypeFileOrFolder
}

// HasContent reports whether files of this type have readable content.
func (t FileType) HasContent() bool {
	return t == TypeFile || t == TypeFileOrFolder
}

// HasAttributes reports whether files of this type carry attributes.
func (t FileType) HasAttributes() bool {
	return t != TypeImaginary
}

func (t FileType) valid() bool {
	return t >= TypeImaginary && t <= TypeFileOrFolder
}

func (t FileType) String() string {
	switch t {
	case TypeImaginary:
		return "imaginary"
	case TypeFolder:
		return "folder"
	case TypeFile:
		return "file"
	case TypeFileOrFolder:
		return "file-or-folder"
	default:
		return fmt.Sprintf("FileType(%d)", int32(t))
	}
}

// NameScope restricts which names are accepted by ancestor and descendant checks.
type NameScope int

const (
	// ScopeFileSystem accepts any name in the same file system.
	ScopeFileSystem NameScope = iota
	// ScopeChild accepts direct children only.
	ScopeChild
	// ScopeDescendent accepts any name strictly below the base.
	ScopeDescendent
	// ScopeDescendentOrSelf accepts the base itself and anything below it.
	ScopeDescendentOrSelf
)

func (s NameScope) String() string {
	switch s {
	case ScopeFileSystem:
		return "filesystem"
	case ScopeChild:
		return "child"
	case ScopeDescendent:
		return "descendent"
	case ScopeDescendentOrSelf:
		return "descendent_or_self"
	default:
		return fmt.Sprintf("NameScope(%d)", int(s))
	}
}

// ParseNameScope parses the String form of a scope.
func ParseNameScope(s string) (NameScope, error) {
	for _, scope := range []NameScope{ScopeFileSystem, ScopeChild, ScopeDescendent, ScopeDescendentOrSelf} {
		if scope.String() == s {
			return scope, nil
		}
	}
	return ScopeFileSystem, fmt.Errorf("unknown name scope %q", s)
}

// Capability is an optional feature a file system may support.
type Capability string

const (
	CapRead         Capability = "read"
	CapWrite        Capability = "write"
	CapListChildren Capability = "list-children"
	CapGetType      Capability = "get-type"
	CapLastModified Capability = "last-modified"
	CapURI          Capability = "uri"
	CapVirtual      Capability = "virtual"
	CapCompress     Capability = "compress"
	CapDirectory    Capability = "directory-read"
	CapMonitor      Capability = "monitor"
)
