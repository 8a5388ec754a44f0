package vfskit

import (
	"bytes"
	"runtime"
)

const (
	separatorChar = '/'
	separator     = "/"
	rootPath      = "/"
)

const hexDigits = "0123456789abcdef"

var onWindows = runtime.GOOS == "windows"

// CharPredicate reports whether a byte must stay percent-encoded in a path.
// Parsers compose their reserved sets with Or.
type CharPredicate func(ch byte) bool

// Reserve returns a predicate matching exactly the given bytes.
func Reserve(chars ...byte) CharPredicate {
	var set [256]bool
	for _, c := range chars {
		set[c] = true
	}
	return func(ch byte) bool { return set[ch] }
}

// Or returns a predicate matching bytes accepted by either p or q.
func (p CharPredicate) Or(q CharPredicate) CharPredicate {
	switch {
	case p == nil:
		return q
	case q == nil:
		return p
	}
	return func(ch byte) bool { return p(ch) || q(ch) }
}

func (p CharPredicate) match(ch byte) bool {
	return p != nil && p(ch)
}

// pathBuffer is the mutable working buffer shared by the parsing routines.
// Every routine edits the buffer in place and returns the piece it extracted.
type pathBuffer []byte

func (b pathBuffer) String() string { return string(b) }

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (b *pathBuffer) deleteRange(start, end int) {
	p := *b
	if end > len(p) {
		end = len(p)
	}
	*b = append(p[:start], p[end:]...)
}

// insertEscape replaces the byte at index with its %xx form.
func (b *pathBuffer) insertEscape(index int) {
	p := *b
	ch := p[index]
	n := len(p)
	p = append(p, 0, 0)
	copy(p[index+3:], p[index+1:n])
	p[index] = '%'
	p[index+1] = hexDigits[ch>>4]
	p[index+2] = hexDigits[ch&0x0f]
	*b = p
}

func (b pathBuffer) escapeAt(index, count int) (byte, error) {
	if count < 3 {
		return 0, newError(KindInvalidEscapeSequence, string(b[index:index+count]))
	}
	d1, ok1 := unhex(b[index+1])
	d2, ok2 := unhex(b[index+2])
	if !ok1 || !ok2 {
		return 0, newError(KindInvalidEscapeSequence, string(b[index:index+3]))
	}
	return d1<<4 | d2, nil
}

func (b *pathBuffer) decode(offset, length int) error {
	index, count := offset, length
	for ; count > 0; index, count = index+1, count-1 {
		if (*b)[index] != '%' {
			continue
		}
		value, err := b.escapeAt(index, count)
		if err != nil {
			return err
		}
		(*b)[index] = value
		b.deleteRange(index+1, index+3)
		count -= 2
	}
	return nil
}

func (b *pathBuffer) encode(offset, length int, reserved CharPredicate) {
	index, count := offset, length
	for ; count > 0; index, count = index+1, count-1 {
		ch := (*b)[index]
		if ch != '%' && !reserved.match(ch) {
			continue
		}
		b.insertEscape(index)
		index += 2
	}
}

func (b *pathBuffer) canonicalize(offset, length int, encodeCharacter CharPredicate) error {
	index, count := offset, length
	for ; count > 0; index, count = index+1, count-1 {
		ch := (*b)[index]
		if ch == '%' {
			value, err := b.escapeAt(index, count)
			if err != nil {
				return err
			}
			if value == '%' || encodeCharacter.match(value) {
				index += 2
				count -= 2
				continue
			}
			(*b)[index] = value
			b.deleteRange(index+1, index+3)
			count -= 2
		} else if encodeCharacter.match(ch) {
			b.insertEscape(index)
			index += 2
		}
	}
	return nil
}

func (b pathBuffer) fixSeparators() bool {
	changed := false
	for i, ch := range b {
		if ch == '\\' {
			b[i] = separatorChar
			changed = true
		}
	}
	return changed
}

func (b *pathBuffer) extractFirstElement() (string, bool) {
	p := *b
	if len(p) == 0 {
		return "", false
	}
	start := 0
	if p[0] == separatorChar {
		start = 1
	}
	if i := bytes.IndexByte(p[start:], separatorChar); i >= 0 {
		elem := string(p[start : start+i])
		b.deleteRange(start, start+i+1)
		return elem, true
	}
	elem := string(p[start:])
	*b = p[:0]
	return elem, true
}

func (b *pathBuffer) extractQueryString() (string, bool) {
	p := *b
	i := bytes.IndexByte(p, '?')
	if i < 0 {
		return "", false
	}
	query := string(p[i+1:])
	*b = p[:i]
	return query, true
}

// extractRootName splits a layered remainder at its last '!'. Without one the
// whole remainder names the outer file and the inner path becomes empty.
func (b *pathBuffer) extractRootName() string {
	p := *b
	i := bytes.LastIndexByte(p, '!')
	if i < 0 {
		root := string(p)
		*b = p[:0]
		return root
	}
	root := string(p[:i])
	b.deleteRange(0, i+1)
	return root
}

func (b *pathBuffer) normalise(uriStyle bool) (FileType, error) {
	p := *b
	fileType := TypeFolder
	if len(p) == 0 {
		return fileType, nil
	}
	if p[len(p)-1] != separatorChar {
		fileType = TypeFile
	}

	startFirst := 0
	if p[0] == separatorChar {
		if len(p) == 1 {
			return fileType, nil
		}
		startFirst = 1
	}

	start := startFirst
	for start < len(p) {
		end := start
		for end < len(p) && p[end] != separatorChar {
			end++
		}
		switch n := end - start; {
		case n == 0:
			b.deleteRange(end, end+1)
			p = *b
			continue
		case n == 1 && p[start] == '.':
			b.deleteRange(start, end+1)
			p = *b
			continue
		case n == 2 && p[start] == '.' && p[start+1] == '.':
			if start == startFirst {
				return fileType, newError(KindInvalidRelativePath, string(p))
			}
			pos := start - 2
			for pos >= 0 && p[pos] != separatorChar {
				pos--
			}
			start = pos + 1
			b.deleteRange(start, end+1)
			p = *b
			continue
		}
		start = end + 1
	}

	if !uriStyle && len(p) > 1 && p[len(p)-1] == separatorChar {
		*b = p[:len(p)-1]
	}
	return fileType, nil
}

// extractScheme returns the scheme prefix of uri and the remainder after the
// colon. When guardDrive is set a single letter is treated as a drive letter.
func extractScheme(uri string, guardDrive bool) (string, string, bool) {
	for i := 0; i < len(uri); i++ {
		ch := uri[i]
		if ch == ':' {
			if i == 0 || (i == 1 && guardDrive) {
				return "", uri, false
			}
			return uri[:i], uri[i+1:], true
		}
		if 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' {
			continue
		}
		if i > 0 && ('0' <= ch && ch <= '9' || ch == '+' || ch == '-' || ch == '.') {
			continue
		}
		break
	}
	return "", uri, false
}

// ExtractScheme splits uri into its scheme and the text after the colon.
// ok is false when uri does not start with a syntactically valid scheme. On
// Windows a single-letter scheme is rejected so that drive letters are not
// mistaken for schemes.
func ExtractScheme(uri string) (scheme, rest string, ok bool) {
	return extractScheme(uri, onWindows)
}

// Decode replaces %xx escapes in s with the bytes they encode.
func Decode(s string) (string, error) {
	if s == "" {
		return s, nil
	}
	b := pathBuffer(s)
	if err := b.decode(0, len(b)); err != nil {
		return "", err
	}
	return string(b), nil
}

// Encode percent-encodes '%' and every reserved byte in s.
func Encode(s string, reserved ...byte) string {
	if s == "" {
		return s
	}
	b := pathBuffer(s)
	b.encode(0, len(b), Reserve(reserved...))
	return string(b)
}

// CanonicalizePath decodes every escape in s except those whose byte is '%'
// or is accepted by encodeCharacter, and escapes every literal byte that
// encodeCharacter accepts.
func CanonicalizePath(s string, encodeCharacter CharPredicate) (string, error) {
	b := pathBuffer(s)
	if err := b.canonicalize(0, len(b), encodeCharacter); err != nil {
		return "", err
	}
	return string(b), nil
}

// NormalisePath removes empty and "." segments from path and resolves ".."
// against the preceding segment. The returned type is TypeFolder when path
// ends with a separator and TypeFile otherwise. A ".." that would climb above
// the first segment fails with KindInvalidRelativePath.
func NormalisePath(path string, uriStyle bool) (string, FileType, error) {
	b := pathBuffer(path)
	t, err := b.normalise(uriStyle)
	if err != nil {
		return "", t, err
	}
	return string(b), t, nil
}

// ExtractFirstElement returns the first segment of path and the path with that
// segment and its trailing separator removed.
func ExtractFirstElement(path string) (first, rest string, ok bool) {
	b := pathBuffer(path)
	first, ok = b.extractFirstElement()
	return first, string(b), ok
}

// ExtractQueryString splits s at the first '?'.
func ExtractQueryString(s string) (path, query string, ok bool) {
	b := pathBuffer(s)
	query, ok = b.extractQueryString()
	return string(b), query, ok
}

// FixSeparators converts backslashes to forward slashes.
func FixSeparators(s string) (string, bool) {
	b := pathBuffer(s)
	changed := b.fixSeparators()
	return string(b), changed
}
