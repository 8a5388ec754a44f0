package vfskit

import (
	"mime"
	"net/http"
	"strings"
)

// Common MIME types
const (
	MIMETypeTextPlain       = "text/plain"
	MIMETypeApplicationJSON = "application/json"
	MIMETypeApplicationXML  = "application/xml"
	MIMETypeApplicationZip  = "application/zip"
	MIMETypeOctetStream     = "application/octet-stream"
)

// Extensions whose type differs between platforms' mime tables or is missing
// from them.
var extensionToMIME = map[string]string{
	"txt":  MIMETypeTextPlain,
	"log":  MIMETypeTextPlain,
	"md":   "text/markdown",
	"csv":  "text/csv",
	"json": MIMETypeApplicationJSON,
	"xml":  MIMETypeApplicationXML,
	"js":   "text/javascript",
	"zip":  MIMETypeApplicationZip,
	"jar":  "application/java-archive",
	"gz":   "application/gzip",
	"tgz":  "application/gzip",
	"tar":  "application/x-tar",
	"yaml": "application/yaml",
	"yml":  "application/yaml",
}

// GuessContentType returns the MIME type for a file name from its extension,
// or application/octet-stream when the extension is unknown.
func GuessContentType(baseName string) string {
	ext := extensionOf(baseName)
	if ext == "" {
		return MIMETypeOctetStream
	}
	if contentType, ok := extensionToMIME[ext]; ok {
		return contentType
	}
	if contentType := mime.TypeByExtension("." + ext); contentType != "" {
		return contentType
	}
	return MIMETypeOctetStream
}

// DetectContentType is GuessContentType with a fallback to sniffing head,
// the first bytes of the content.
func DetectContentType(baseName string, head []byte) string {
	if contentType := GuessContentType(baseName); contentType != MIMETypeOctetStream || len(head) == 0 {
		return contentType
	}
	return http.DetectContentType(head)
}

// IsTextFile returns true if the file is a text file based on its MIME type
func IsTextFile(contentType string) bool {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return strings.HasPrefix(contentType, "text/") ||
		contentType == MIMETypeApplicationJSON ||
		contentType == MIMETypeApplicationXML ||
		contentType == "application/yaml" ||
		contentType == "application/javascript"
}

// extensionOf follows the extension rule of FileName.Extension.
func extensionOf(baseName string) string {
	pos := strings.LastIndexByte(baseName, '.')
	if pos < 1 || pos == len(baseName)-1 {
		return ""
	}
	return strings.ToLower(baseName[pos+1:])
}
