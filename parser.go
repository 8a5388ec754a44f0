package vfskit

import (
	"strconv"
	"strings"
)

// FileNameParser turns URI strings into names for one family of schemes.
type FileNameParser interface {
	// ParseURI parses uri, optionally relative to base. ctx may be nil.
	ParseURI(ctx Context, base *FileName, uri string) (*FileName, error)

	// EncodeCharacter reports whether ch must stay percent-encoded in paths.
	EncodeCharacter(ch byte) bool
}

func uriStyleOf(ctx Context) bool {
	return ctx != nil && ctx.URIStyle()
}

func nameOptions(ctx Context) []NameOption {
	return []NameOption{WithURIStyle(uriStyleOf(ctx))}
}

func cryptorOf(ctx Context) Cryptor {
	if ctx != nil {
		if c := ctx.Cryptor(); c != nil {
			return c
		}
	}
	return DefaultCryptor()
}

// finishPath canonicalizes, fixes separators and normalises a path buffer.
func finishPath(ctx Context, b *pathBuffer, encodeCharacter CharPredicate) (string, FileType, error) {
	if err := b.canonicalize(0, len(*b), encodeCharacter); err != nil {
		return "", TypeImaginary, err
	}
	b.fixSeparators()
	t, err := b.normalise(uriStyleOf(ctx))
	if err != nil {
		return "", TypeImaginary, err
	}
	return b.String(), t, nil
}

// ============================================================================
// Host names
// ============================================================================

// HostFileNameParser parses scheme://[user[:password]@]host[:port][/path].
type HostFileNameParser struct {
	defaultPort int
	encode      CharPredicate
}

// NewHostFileNameParser creates a parser that fills in defaultPort when a URI has no port.
func NewHostFileNameParser(defaultPort int) *HostFileNameParser {
	return &HostFileNameParser{defaultPort: defaultPort}
}

// DefaultPort returns the port used when a URI does not name one.
func (p *HostFileNameParser) DefaultPort() int {
	return p.defaultPort
}

// EncodeCharacter implements FileNameParser
func (p *HostFileNameParser) EncodeCharacter(ch byte) bool {
	return p.encode.match(ch)
}

// ParseURI implements FileNameParser
func (p *HostFileNameParser) ParseURI(ctx Context, base *FileName, uri string) (*FileName, error) {
	scheme, host, b, err := p.extractToPath(ctx, uri)
	if err != nil {
		return nil, err
	}
	path, t, err := finishPath(ctx, &b, p.EncodeCharacter)
	if err != nil {
		return nil, err
	}
	return NewHostFileName(scheme, host, path, t, nameOptions(ctx)...), nil
}

// extractToPath consumes the scheme and authority of uri and returns the
// remaining path in a buffer.
func (p *HostFileNameParser) extractToPath(ctx Context, uri string) (string, HostInfo, pathBuffer, error) {
	host := HostInfo{DefaultPort: p.defaultPort}
	scheme, rest, _ := ExtractScheme(uri)
	b := pathBuffer(rest)

	if len(b) < 2 || b[0] != '/' || b[1] != '/' {
		return "", host, nil, newError(KindMissingDoubleSlashes, uri)
	}
	b.deleteRange(0, 2)

	if userInfo, ok := extractUserInfo(&b); ok {
		userName, password, hasPassword := strings.Cut(userInfo, ":")
		var err error
		if host.UserName, err = Decode(userName); err != nil {
			return "", host, nil, err
		}
		if hasPassword {
			if host.Password, err = Decode(password); err != nil {
				return "", host, nil, err
			}
		}
	}

	if pw := host.Password; len(pw) >= 2 && pw[0] == '{' && pw[len(pw)-1] == '}' {
		plain, err := cryptorOf(ctx).Decrypt(pw[1 : len(pw)-1])
		if err != nil {
			return "", host, nil, wrapError(err, KindDecryptFailure, host.UserName)
		}
		host.Password = plain
	}

	hostName, ok := extractHostName(&b)
	if !ok {
		return "", host, nil, newError(KindMissingHostname, uri)
	}
	host.HostName = strings.ToLower(hostName)

	port, err := extractPort(&b, uri)
	if err != nil {
		return "", host, nil, err
	}
	host.Port = port

	if len(b) > 0 && b[0] != separatorChar {
		return "", host, nil, newError(KindMissingHostnamePathSep, uri)
	}
	return scheme, host, b, nil
}

func extractUserInfo(b *pathBuffer) (string, bool) {
	p := *b
	for i, ch := range p {
		switch ch {
		case '@':
			info := string(p[:i])
			b.deleteRange(0, i+1)
			return info, true
		case '/', '?':
			return "", false
		}
	}
	return "", false
}

func extractHostName(b *pathBuffer) (string, bool) {
	p := *b
	pos := 0
	for ; pos < len(p); pos++ {
		if strings.IndexByte("/;?:@&=+$,", p[pos]) >= 0 {
			break
		}
	}
	if pos == 0 {
		return "", false
	}
	hostName := string(p[:pos])
	b.deleteRange(0, pos)
	return hostName, true
}

func extractPort(b *pathBuffer, uri string) (int, error) {
	p := *b
	if len(p) < 1 || p[0] != ':' {
		return -1, nil
	}
	pos := 1
	for pos < len(p) && '0' <= p[pos] && p[pos] <= '9' {
		pos++
	}
	digits := string(p[1:pos])
	b.deleteRange(0, pos)
	if digits == "" {
		return -1, newError(KindMissingPort, uri)
	}
	port, err := strconv.Atoi(digits)
	if err != nil {
		return -1, wrapError(err, KindMissingPort, uri)
	}
	return port, nil
}

// ============================================================================
// URL names
// ============================================================================

// URLFileNameParser is a host parser that also splits off a query string.
type URLFileNameParser struct {
	HostFileNameParser
}

// NewURLFileNameParser creates a URL parser with the given default port.
func NewURLFileNameParser(defaultPort int) *URLFileNameParser {
	return &URLFileNameParser{HostFileNameParser{defaultPort: defaultPort, encode: Reserve('?')}}
}

// ParseURI implements FileNameParser
func (p *URLFileNameParser) ParseURI(ctx Context, base *FileName, uri string) (*FileName, error) {
	scheme, host, b, err := p.extractToPath(ctx, uri)
	if err != nil {
		return nil, err
	}
	query, _ := b.extractQueryString()
	path, t, err := finishPath(ctx, &b, p.EncodeCharacter)
	if err != nil {
		return nil, err
	}
	return NewURLFileName(scheme, host, path, t, query, nameOptions(ctx)...), nil
}

// ============================================================================
// Layered names
// ============================================================================

// LayeredFileNameParser parses scheme:outerURI!/inner/path.
type LayeredFileNameParser struct {
	encode CharPredicate
}

var layeredParser = &LayeredFileNameParser{encode: Reserve('!')}

// NewLayeredFileNameParser returns the shared layered parser.
func NewLayeredFileNameParser() *LayeredFileNameParser {
	return layeredParser
}

// EncodeCharacter implements FileNameParser
func (p *LayeredFileNameParser) EncodeCharacter(ch byte) bool {
	return p.encode.match(ch)
}

// ParseURI implements FileNameParser. The outer URI is parsed through ctx,
// which is therefore required.
func (p *LayeredFileNameParser) ParseURI(ctx Context, base *FileName, uri string) (*FileName, error) {
	scheme, rest, ok := ExtractScheme(uri)
	if !ok || ctx == nil {
		return nil, newError(KindInvalidAbsoluteURI, uri)
	}
	b := pathBuffer(rest)
	outerURI := b.extractRootName()
	outer, err := ctx.ParseURI(outerURI)
	if err != nil {
		return nil, err
	}
	path, t, err := finishPath(ctx, &b, p.EncodeCharacter)
	if err != nil {
		return nil, err
	}
	return NewLayeredFileName(scheme, outer, path, t, nameOptions(ctx)...), nil
}

// ============================================================================
// Generic names
// ============================================================================

// GenericFileNameParser parses absolute paths with an optional scheme prefix,
// as used by the local and in-memory file systems.
type GenericFileNameParser struct {
	scheme string
	encode CharPredicate
}

// NewGenericFileNameParser creates a parser that assumes scheme when a URI has none.
func NewGenericFileNameParser(scheme string) *GenericFileNameParser {
	return &GenericFileNameParser{scheme: scheme}
}

// EncodeCharacter implements FileNameParser
func (p *GenericFileNameParser) EncodeCharacter(ch byte) bool {
	return p.encode.match(ch)
}

// ParseURI implements FileNameParser
func (p *GenericFileNameParser) ParseURI(ctx Context, base *FileName, uri string) (*FileName, error) {
	scheme, rest, ok := ExtractScheme(uri)
	if !ok {
		scheme, rest = p.scheme, uri
	}
	b := pathBuffer(rest)
	if err := b.canonicalize(0, len(b), p.EncodeCharacter); err != nil {
		return nil, err
	}
	b.fixSeparators()
	if len(b) == 0 || b[0] != separatorChar {
		return nil, newError(KindInvalidAbsoluteURI, uri)
	}
	t, err := b.normalise(uriStyleOf(ctx))
	if err != nil {
		return nil, err
	}
	return NewFileName(scheme, b.String(), t, nameOptions(ctx)...), nil
}
