package vfskit

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind identifies the category of a file system error.
type ErrorKind string

// Error kinds raised while parsing names and resolving files.
const (
	KindMissingDoubleSlashes    ErrorKind = "missing-double-slashes"
	KindMissingHostname         ErrorKind = "missing-hostname"
	KindMissingPort             ErrorKind = "missing-port"
	KindMissingHostnamePathSep  ErrorKind = "missing-hostname-path-sep"
	KindInvalidEscapeSequence   ErrorKind = "invalid-escape-sequence"
	KindInvalidRelativePath     ErrorKind = "invalid-relative-path"
	KindInvalidFileNameType     ErrorKind = "invalid-filename-type"
	KindNotLayeredFS            ErrorKind = "not-layered-fs"
	KindFileNameParserMissing   ErrorKind = "filename-parser-missing"
	KindMismatchedFSForName     ErrorKind = "mismatched-fs-for-name"
	KindInvalidAbsoluteURI      ErrorKind = "invalid-absolute-uri"
	KindDecryptFailure          ErrorKind = "decrypt-failure"
	KindUnknownScheme           ErrorKind = "unknown-scheme"
	KindNotFound                ErrorKind = "not-found"
	KindNotFolder               ErrorKind = "not-folder"
	KindNotFile                 ErrorKind = "not-file"
	KindClosed                  ErrorKind = "closed"
	KindInvalidDescendentName   ErrorKind = "invalid-descendent-name"
	KindCreateFileSystemFailure ErrorKind = "create-filesystem-failure"
)

var messages = map[ErrorKind]string{
	KindMissingDoubleSlashes:    "expecting // to follow the scheme in URI %q",
	KindMissingHostname:         "hostname expected in URI %q",
	KindMissingPort:             "port number expected in URI %q",
	KindMissingHostnamePathSep:  "expecting / to follow the hostname in URI %q",
	KindInvalidEscapeSequence:   "invalid URI escape sequence %q",
	KindInvalidRelativePath:     "invalid relative path %q",
	KindInvalidFileNameType:     "invalid file name type %v",
	KindNotLayeredFS:            "provider does not support layered file systems",
	KindFileNameParserMissing:   "no file name parser configured for this provider",
	KindMismatchedFSForName:     "file %q does not belong to file system %q",
	KindInvalidAbsoluteURI:      "invalid absolute URI %q",
	KindDecryptFailure:          "unable to decrypt password for %q",
	KindUnknownScheme:           "unknown scheme %q in URI %q",
	KindNotFound:                "file %q does not exist",
	KindNotFolder:               "file %q is not a folder",
	KindNotFile:                 "file %q has no content",
	KindClosed:                  "%s is closed",
	KindInvalidDescendentName:   "invalid descendent file name %q",
	KindCreateFileSystemFailure: "could not create file system for %q",
}

// Sentinel errors for use with errors.Is. Any *Error of the same kind matches.
var (
	ErrMissingDoubleSlashes   = &Error{Kind: KindMissingDoubleSlashes}
	ErrMissingHostname        = &Error{Kind: KindMissingHostname}
	ErrMissingPort            = &Error{Kind: KindMissingPort}
	ErrMissingHostnamePathSep = &Error{Kind: KindMissingHostnamePathSep}
	ErrInvalidEscapeSequence  = &Error{Kind: KindInvalidEscapeSequence}
	ErrInvalidRelativePath    = &Error{Kind: KindInvalidRelativePath}
	ErrInvalidFileNameType    = &Error{Kind: KindInvalidFileNameType}
	ErrNotLayeredFS           = &Error{Kind: KindNotLayeredFS}
	ErrFileNameParserMissing  = &Error{Kind: KindFileNameParserMissing}
	ErrMismatchedFSForName    = &Error{Kind: KindMismatchedFSForName}
	ErrInvalidAbsoluteURI     = &Error{Kind: KindInvalidAbsoluteURI}
	ErrDecryptFailure         = &Error{Kind: KindDecryptFailure}
	ErrUnknownScheme          = &Error{Kind: KindUnknownScheme}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrNotFolder              = &Error{Kind: KindNotFolder}
	ErrNotFile                = &Error{Kind: KindNotFile}
	ErrClosed                 = &Error{Kind: KindClosed}
)

// Error is the single error type reported by the naming and resolution layer.
// Params are substituted into the kind's message template.
type Error struct {
	Kind   ErrorKind
	Params []any
	Err    error
}

func newError(kind ErrorKind, params ...any) *Error {
	return &Error{Kind: kind, Params: params}
}

func wrapError(err error, kind ErrorKind, params ...any) *Error {
	return &Error{Kind: kind, Params: params, Err: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	tmpl, ok := messages[e.Kind]
	switch {
	case !ok:
		b.WriteString(string(e.Kind))
	case len(e.Params) == 0:
		b.WriteString(strings.NewReplacer(" %q", "", " %v", "", " %s", "", "%s ", "").Replace(tmpl))
	default:
		b.WriteString(fmt.Sprintf(tmpl, padParams(tmpl, e.Params)...))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// padParams makes the parameter list match the verb count of the template so
// that a short list never renders as %!q(MISSING).
func padParams(tmpl string, params []any) []any {
	verbs := strings.Count(tmpl, "%") - 2*strings.Count(tmpl, "%%")
	if len(params) >= verbs {
		return params[:verbs]
	}
	out := make([]any, verbs)
	copy(out, params)
	for i := len(params); i < verbs; i++ {
		out[i] = ""
	}
	return out
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// IsNotFound reports whether an error indicates that a file does not exist
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}
