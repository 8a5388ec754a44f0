package vfskit

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// FSOption sets one entry of a FileSystemOptions.
type FSOption func(*FileSystemOptions)

type optionKey struct {
	scope string
	name  string
}

// FileSystemOptions holds provider-specific settings for a file system. Two
// option sets with the same content select the same cached file system.
//
// An options value is not modified after construction; With returns a copy.
// A nil *FileSystemOptions behaves as the empty set.
type FileSystemOptions struct {
	entries   map[optionKey]any
	canonical memo
}

var emptyOptions = &FileSystemOptions{}

// NewFileSystemOptions builds an option set.
func NewFileSystemOptions(opts ...FSOption) *FileSystemOptions {
	o := &FileSystemOptions{entries: make(map[optionKey]any)}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetOption returns an FSOption storing value under scope and name.
// Drivers wrap this in typed helpers.
func SetOption(scope, name string, value any) FSOption {
	return func(o *FileSystemOptions) {
		if o.entries == nil {
			o.entries = make(map[optionKey]any)
		}
		o.entries[optionKey{scope, name}] = value
	}
}

// With returns a copy of o with opts applied.
func (o *FileSystemOptions) With(opts ...FSOption) *FileSystemOptions {
	c := &FileSystemOptions{entries: make(map[optionKey]any, o.Len()+len(opts))}
	if o != nil {
		for k, v := range o.entries {
			c.entries[k] = v
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under scope and name.
func (o *FileSystemOptions) Get(scope, name string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.entries[optionKey{scope, name}]
	return v, ok
}

// Has reports whether a value is stored under scope and name.
func (o *FileSystemOptions) Has(scope, name string) bool {
	_, ok := o.Get(scope, name)
	return ok
}

// Len returns the number of entries.
func (o *FileSystemOptions) Len() int {
	if o == nil {
		return 0
	}
	return len(o.entries)
}

// GetString returns a string option or def.
func (o *FileSystemOptions) GetString(scope, name, def string) string {
	if v, ok := o.Get(scope, name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// GetBool returns a boolean option or def.
func (o *FileSystemOptions) GetBool(scope, name string, def bool) bool {
	if v, ok := o.Get(scope, name); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// GetInt returns an integer option or def.
func (o *FileSystemOptions) GetInt(scope, name string, def int) int {
	if v, ok := o.Get(scope, name); ok {
		if i, ok := v.(int); ok {
			return i
		}
	}
	return def
}

// GetDuration returns a duration option or def.
func (o *FileSystemOptions) GetDuration(scope, name string, def time.Duration) time.Duration {
	if v, ok := o.Get(scope, name); ok {
		if d, ok := v.(time.Duration); ok {
			return d
		}
	}
	return def
}

// Canonical returns a deterministic encoding of the entries, sorted by key.
func (o *FileSystemOptions) Canonical() string {
	if o == nil {
		o = emptyOptions
	}
	return o.canonical.get(func() string {
		keys := make([]optionKey, 0, len(o.entries))
		for k := range o.entries {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, func(a, b optionKey) int {
			return cmp.Or(strings.Compare(a.scope, b.scope), strings.Compare(a.name, b.name))
		})
		var b strings.Builder
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(';')
			}
			v := o.entries[k]
			b.WriteString(k.scope)
			b.WriteByte('.')
			b.WriteString(k.name)
			b.WriteByte('=')
			b.WriteString(fmt.Sprintf("%T:", v))
			b.WriteString(strconv.Quote(fmt.Sprint(v)))
		}
		return b.String()
	})
}

// Fingerprint returns the xxhash of the canonical encoding.
func (o *FileSystemOptions) Fingerprint() uint64 {
	return xxhash.Sum64String(o.Canonical())
}

// Compare orders option sets by size, then fingerprint, then canonical
// encoding. It returns 0 only when both sets hold the same entries.
func (o *FileSystemOptions) Compare(other *FileSystemOptions) int {
	if o == other {
		return 0
	}
	if c := cmp.Compare(o.Len(), other.Len()); c != 0 {
		return c
	}
	if o.Len() == 0 {
		return 0
	}
	if c := cmp.Compare(o.Fingerprint(), other.Fingerprint()); c != 0 {
		return c
	}
	return strings.Compare(o.Canonical(), other.Canonical())
}

// Equal reports whether both sets hold the same entries.
func (o *FileSystemOptions) Equal(other *FileSystemOptions) bool {
	return o.Compare(other) == 0
}

// ============================================================================
// FileSystemKey
// ============================================================================

// RootKey identifies the root of a file system. *FileName implements it.
type RootKey interface {
	Key() string
}

// FileSystemKey identifies a cached file system by root and options.
type FileSystemKey struct {
	rootKey string
	options *FileSystemOptions
}

// NewFileSystemKey creates a key. Nil options are replaced by the empty set.
func NewFileSystemKey(root RootKey, options *FileSystemOptions) FileSystemKey {
	if options == nil {
		options = emptyOptions
	}
	return FileSystemKey{rootKey: root.Key(), options: options}
}

// RootKey returns the root identity.
func (k FileSystemKey) RootKey() string { return k.rootKey }

// Options returns the option set.
func (k FileSystemKey) Options() *FileSystemOptions { return k.options }

// Compare orders keys by root identity, then by options.
func (k FileSystemKey) Compare(other FileSystemKey) int {
	if c := strings.Compare(k.rootKey, other.rootKey); c != 0 {
		return c
	}
	return k.options.Compare(other.options)
}

// Equal reports whether both keys select the same file system.
func (k FileSystemKey) Equal(other FileSystemKey) bool {
	return k.Compare(other) == 0
}

// IsZero reports whether k was never assigned.
func (k FileSystemKey) IsZero() bool {
	return k.rootKey == "" && k.options == nil
}

// String returns a string that is equal for equal keys.
func (k FileSystemKey) String() string {
	return k.rootKey + "\x00" + k.options.Canonical()
}
