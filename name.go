package vfskit

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// NameKind discriminates the payload carried by a FileName.
type NameKind int

const (
	// NameGeneric names a file under a fixed root prefix (local disk, ram).
	NameGeneric NameKind = iota
	// NameHost names a file on a host: scheme://[user[:password]@]host[:port]/path.
	NameHost
	// NameURL is a host name that also carries a query string.
	NameURL
	// NameLayered names a file inside another file, such as an archive entry.
	NameLayered
)

func (k NameKind) String() string {
	switch k {
	case NameGeneric:
		return "generic"
	case NameHost:
		return "host"
	case NameURL:
		return "url"
	case NameLayered:
		return "layered"
	default:
		return "NameKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// HostInfo is the authority part of host and URL names.
type HostInfo struct {
	HostName    string
	Port        int
	DefaultPort int
	UserName    string
	Password    string
}

// reservedURIChars are legal in file names but must be escaped in URIs.
var reservedURIChars = []byte{'#', ' '}

// memo caches a derived string. Concurrent first computations race to store
// the same value.
type memo struct {
	p atomic.Pointer[string]
}

func (m *memo) get(compute func() string) string {
	if v := m.p.Load(); v != nil {
		return *v
	}
	s := compute()
	m.p.Store(&s)
	return s
}

// FileName is a parsed, normalized absolute name within a file system root.
//
// A FileName is immutable except for its type, which starts from the
// trailing-separator convention and is later replaced by the type the backend
// reports. Equality, hashing and ordering use the URI only.
type FileName struct {
	kind     NameKind
	scheme   string
	absPath  string
	rootFile string
	uriStyle bool
	host     HostInfo
	query    string
	hasQuery bool
	outer    *FileName

	typ atomic.Int32

	uri          memo
	friendlyURI  memo
	rootURI      memo
	friendlyRoot memo
	baseName     memo
	extension    memo
	decodedPath  memo
}

// NameOption configures a FileName at construction.
type NameOption func(*FileName)

// WithURIStyle makes folder paths carry a trailing separator.
func WithURIStyle(enabled bool) NameOption {
	return func(n *FileName) {
		n.uriStyle = enabled
	}
}

// WithRootFile sets the text written between "scheme://" and the path of a
// generic name.
func WithRootFile(rootFile string) NameOption {
	return func(n *FileName) {
		n.rootFile = rootFile
	}
}

func newName(kind NameKind, scheme, absPath string, t FileType, opts []NameOption) *FileName {
	n := &FileName{kind: kind, scheme: scheme}
	for _, opt := range opts {
		opt(n)
	}
	switch {
	case absPath == "":
		absPath = rootPath
	case len(absPath) > 1 && absPath[len(absPath)-1] == separatorChar:
		absPath = absPath[:len(absPath)-1]
	}
	n.absPath = absPath
	n.typ.Store(int32(t))
	return n
}

// NewFileName creates a generic name whose URI is scheme://rootFile/path.
func NewFileName(scheme, absPath string, t FileType, opts ...NameOption) *FileName {
	return newName(NameGeneric, scheme, absPath, t, opts)
}

// NewHostFileName creates a host-based name. A port <= 0 resolves to the default port.
func NewHostFileName(scheme string, host HostInfo, absPath string, t FileType, opts ...NameOption) *FileName {
	n := newName(NameHost, scheme, absPath, t, opts)
	if host.Port <= 0 {
		host.Port = host.DefaultPort
	}
	n.host = host
	return n
}

// NewURLFileName creates a host-based name with a query string. An empty
// query is treated as absent.
func NewURLFileName(scheme string, host HostInfo, absPath string, t FileType, query string, opts ...NameOption) *FileName {
	n := NewHostFileName(scheme, host, absPath, t, opts...)
	n.kind = NameURL
	n.query = query
	n.hasQuery = query != ""
	return n
}

// NewLayeredFileName creates a name inside the file named by outer.
func NewLayeredFileName(scheme string, outer *FileName, absPath string, t FileType, opts ...NameOption) *FileName {
	n := newName(NameLayered, scheme, absPath, t, opts)
	n.outer = outer
	return n
}

// CreateName returns a name with the same root and payload as n but a
// different path and type.
func (n *FileName) CreateName(absPath string, t FileType) *FileName {
	c := newName(n.kind, n.scheme, absPath, t, nil)
	c.rootFile = n.rootFile
	c.uriStyle = n.uriStyle
	c.host = n.host
	c.query = n.query
	c.hasQuery = n.hasQuery
	c.outer = n.outer
	return c
}

// Kind returns the name variant.
func (n *FileName) Kind() NameKind { return n.kind }

// Scheme returns the URI scheme.
func (n *FileName) Scheme() string { return n.scheme }

// URIStyle reports whether folder paths carry a trailing separator.
func (n *FileName) URIStyle() bool { return n.uriStyle }

// Type returns the current type of the name.
func (n *FileName) Type() FileType {
	return FileType(n.typ.Load())
}

// setType records the type observed by the backend.
func (n *FileName) setType(t FileType) error {
	if t != TypeFolder && t != TypeFile && t != TypeFileOrFolder {
		return newError(KindInvalidFileNameType, t)
	}
	n.typ.Store(int32(t))
	return nil
}

// IsFile reports whether the name currently denotes a file.
func (n *FileName) IsFile() bool {
	return n.Type() == TypeFile
}

// Path returns the absolute path. In URI style a folder path ends with a separator.
func (n *FileName) Path() string {
	if n.uriStyle && n.absPath != rootPath && n.Type().HasChildren() {
		return n.absPath + separator
	}
	return n.absPath
}

// PathDecoded returns the path with escapes decoded.
func (n *FileName) PathDecoded() (string, error) {
	if v := n.decodedPath.p.Load(); v != nil {
		return *v, nil
	}
	s, err := Decode(n.Path())
	if err != nil {
		return "", err
	}
	n.decodedPath.p.Store(&s)
	return s, nil
}

// BaseName returns the last element of the path.
func (n *FileName) BaseName() string {
	return n.baseName.get(func() string {
		p := n.Path()
		if i := strings.LastIndexByte(p, separatorChar); i >= 0 {
			return p[i+1:]
		}
		return p
	})
}

// Extension returns the text after the last '.' of the base name. Names that
// start or end with their only dot have no extension.
func (n *FileName) Extension() string {
	return n.extension.get(func() string {
		base := n.BaseName()
		pos := strings.LastIndexByte(base, '.')
		if pos < 1 || pos == len(base)-1 {
			return ""
		}
		return base[pos+1:]
	})
}

// Depth returns the number of path elements. The root has depth 0.
func (n *FileName) Depth() int {
	p := n.absPath
	if p == "" || p == rootPath {
		return 0
	}
	return strings.Count(p[1:], separator) + 1
}

// Parent returns the name of the containing folder, or nil for the root.
func (n *FileName) Parent() *FileName {
	p := n.absPath
	i := strings.LastIndexByte(p, separatorChar)
	if i < 0 || i == len(p)-1 {
		return nil
	}
	parent := rootPath
	if i > 0 {
		parent = p[:i]
	}
	return n.CreateName(parent, TypeFolder)
}

// Root returns the name of the file system root.
func (n *FileName) Root() *FileName {
	if n.absPath == rootPath {
		return n
	}
	return n.CreateName(rootPath, TypeFolder)
}

// RelativeName returns the path of other relative to n, using ".." to climb
// out of n where needed. Both names are expected to share a root.
func (n *FileName) RelativeName(other *FileName) string {
	path := other.Path()
	basePath := n.Path()
	baseLen, pathLen := len(basePath), len(path)

	if baseLen == 1 && pathLen == 1 {
		return "."
	}
	if baseLen == 1 {
		return path[1:]
	}

	maxLen := min(baseLen, pathLen)
	pos := 0
	for pos < maxLen && basePath[pos] == path[pos] {
		pos++
	}

	if pos == baseLen && pos == pathLen {
		return "."
	}
	if pos == baseLen && pos < pathLen && path[pos] == separatorChar {
		return path[pos+1:]
	}

	var suffix string
	if pathLen > 1 && (pos < pathLen || basePath[pos] != separatorChar) {
		pos = lastIndexFrom(basePath, separatorChar, pos)
		suffix = path[pos:]
	}

	var b strings.Builder
	for i := indexFrom(basePath, separatorChar, pos+1); i >= 0; i = indexFrom(basePath, separatorChar, i+1) {
		b.WriteString("../")
	}
	b.WriteString("..")
	b.WriteString(suffix)
	return b.String()
}

func indexFrom(s string, c byte, from int) int {
	if from >= len(s) {
		return -1
	}
	if i := strings.IndexByte(s[from:], c); i >= 0 {
		return from + i
	}
	return -1
}

func lastIndexFrom(s string, c byte, from int) int {
	if from >= len(s) {
		from = len(s) - 1
	}
	return strings.LastIndexByte(s[:from+1], c)
}

// IsAncestor reports whether ancestor is a folder above n in the same file system.
func (n *FileName) IsAncestor(ancestor *FileName) bool {
	if ancestor.RootURI() != n.RootURI() {
		return false
	}
	return checkName(ancestor.Path(), n.Path(), ScopeDescendent, n.uriStyle)
}

// IsDescendent reports whether descendent lies below n within the given scope.
func (n *FileName) IsDescendent(descendent *FileName, scope NameScope) bool {
	if descendent.RootURI() != n.RootURI() {
		return false
	}
	return checkName(n.Path(), descendent.Path(), scope, n.uriStyle)
}

// CheckName reports whether path is related to basePath within scope.
// It panics on an unknown scope.
func CheckName(basePath, path string, scope NameScope) bool {
	return checkName(basePath, path, scope, false)
}

func checkName(basePath, path string, scope NameScope, uriStyle bool) bool {
	if scope == ScopeFileSystem {
		return true
	}
	if uriStyle {
		basePath = trimTrailer(basePath)
		path = trimTrailer(path)
	}
	if !strings.HasPrefix(path, basePath) {
		return false
	}
	baseLen := len(basePath)
	switch scope {
	case ScopeChild:
		return len(path) != baseLen &&
			(baseLen <= 1 || path[baseLen] == separatorChar) &&
			indexFrom(path, separatorChar, baseLen+1) == -1
	case ScopeDescendent:
		return len(path) != baseLen &&
			(baseLen <= 1 || path[baseLen] == separatorChar)
	case ScopeDescendentOrSelf:
		return baseLen <= 1 || len(path) <= baseLen || path[baseLen] == separatorChar
	}
	panic("vfskit: invalid name scope " + scope.String())
}

func trimTrailer(p string) string {
	if len(p) > 1 && p[len(p)-1] == separatorChar {
		return p[:len(p)-1]
	}
	return p
}

// URI returns the absolute URI, including any password.
func (n *FileName) URI() string {
	return n.uri.get(func() string { return n.createURI(true) })
}

// FriendlyURI returns the URI with any password replaced by "***".
func (n *FileName) FriendlyURI() string {
	return n.friendlyURI.get(func() string { return n.createURI(false) })
}

// RootURI returns the URI of the file system root, ending with a separator.
func (n *FileName) RootURI() string {
	return n.rootURI.get(func() string {
		var b strings.Builder
		n.appendRootURI(&b, true)
		b.WriteByte(separatorChar)
		return b.String()
	})
}

// FriendlyRootURI is RootURI with any password replaced by "***".
func (n *FileName) FriendlyRootURI() string {
	return n.friendlyRoot.get(func() string {
		var b strings.Builder
		n.appendRootURI(&b, false)
		b.WriteByte(separatorChar)
		return b.String()
	})
}

// Key is the identity of the name, equal to its URI.
func (n *FileName) Key() string {
	return n.URI()
}

// Hash returns a 64-bit hash of the key.
func (n *FileName) Hash() uint64 {
	return xxhash.Sum64String(n.Key())
}

// Equal reports whether both names have the same URI.
func (n *FileName) Equal(other *FileName) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	return n.Key() == other.Key()
}

// Compare orders names by URI.
func (n *FileName) Compare(other *FileName) int {
	return strings.Compare(n.Key(), other.Key())
}

// String returns the friendly URI so that names can be logged safely.
func (n *FileName) String() string {
	return n.FriendlyURI()
}

func (n *FileName) createURI(includePassword bool) string {
	var b strings.Builder
	n.appendRootURI(&b, includePassword)
	b.WriteString(n.encodedPath())
	if n.kind == NameURL && n.hasQuery {
		b.WriteByte('?')
		b.WriteString(n.query)
	}
	return b.String()
}

// encodedPath re-encodes characters such as '#' and space that may appear in
// file names but not in URIs, plus the separators of the name's own syntax:
// '?' for URL names and '!' for layered names. Paths that fail to decode are
// returned unchanged.
func (n *FileName) encodedPath() string {
	p := n.Path()
	if p == "" {
		return p
	}
	decoded, err := Decode(p)
	if err != nil {
		return p
	}
	switch n.kind {
	case NameURL:
		return Encode(decoded, append(reservedURIChars, '?')...)
	case NameLayered:
		return Encode(decoded, append(reservedURIChars, '!')...)
	}
	return Encode(decoded, reservedURIChars...)
}

func (n *FileName) appendRootURI(b *strings.Builder, includePassword bool) {
	switch n.kind {
	case NameHost, NameURL:
		b.WriteString(n.scheme)
		b.WriteString("://")
		n.appendCredentials(b, includePassword)
		b.WriteString(n.host.HostName)
		if n.host.Port > 0 && n.host.Port != n.host.DefaultPort {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(n.host.Port))
		}
	case NameLayered:
		b.WriteString(n.scheme)
		b.WriteByte(':')
		if includePassword {
			b.WriteString(n.outer.URI())
		} else {
			b.WriteString(n.outer.FriendlyURI())
		}
		b.WriteByte('!')
	default:
		b.WriteString(n.scheme)
		b.WriteString("://")
		b.WriteString(n.rootFile)
	}
}

func (n *FileName) appendCredentials(b *strings.Builder, includePassword bool) {
	if n.host.UserName == "" {
		return
	}
	b.WriteString(encodeUserInfo(n.host.UserName))
	if n.host.Password != "" {
		b.WriteByte(':')
		if includePassword {
			b.WriteString(encodeUserInfo(n.host.Password))
		} else {
			b.WriteString("***")
		}
	}
	b.WriteByte('@')
}

func userInfoUnescaped(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'();:&=+$,", ch) >= 0
}

// encodeUserInfo escapes user info per the RFC 2396 userinfo production.
func encodeUserInfo(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if userInfoUnescaped(ch) {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[ch>>4])
		b.WriteByte(upperHex[ch&0x0f])
	}
	return b.String()
}

const upperHex = "0123456789ABCDEF"

// HostName returns the lower-cased host of a host or URL name.
func (n *FileName) HostName() string { return n.host.HostName }

// Port returns the effective port of a host or URL name.
func (n *FileName) Port() int { return n.host.Port }

// DefaultPort returns the scheme's default port.
func (n *FileName) DefaultPort() int { return n.host.DefaultPort }

// UserName returns the decoded user name, if any.
func (n *FileName) UserName() string { return n.host.UserName }

// Password returns the decoded, decrypted password, if any.
func (n *FileName) Password() string { return n.host.Password }

// QueryString returns the query of a URL name.
func (n *FileName) QueryString() (string, bool) {
	return n.query, n.hasQuery
}

// PathQuery returns the path followed by "?query" when a query is present.
func (n *FileName) PathQuery() string {
	if !n.hasQuery {
		return n.Path()
	}
	return n.Path() + "?" + n.query
}

// PathQueryEncoded is PathQuery with URI special characters escaped in the path.
func (n *FileName) PathQueryEncoded() string {
	p := n.encodedPath()
	if !n.hasQuery {
		return p
	}
	return p + "?" + n.query
}

// OuterName returns the name of the file containing a layered name.
func (n *FileName) OuterName() *FileName { return n.outer }
