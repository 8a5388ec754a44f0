// Package vfskit provides a virtual file system for Go: one API for naming,
// resolving and reading files across local disk, SFTP servers, HTTP
// resources, zip archives and memory.
//
// Files are addressed by URI. A [Manager] picks the [FileProvider]
// registered for the scheme, the provider parses the URI into a [FileName],
// finds or creates the [FileSystem] for the name's root and the file system
// hands out a [FileObject], consulting its [FilesCache] first.
//
// # Storage Backends
//
//   - Local filesystem, scheme file (github.com/gobeaver/vfskit/driver/local)
//   - In-memory, scheme ram (github.com/gobeaver/vfskit/driver/memory)
//   - SFTP, scheme sftp (github.com/gobeaver/vfskit/driver/sftp)
//   - HTTP, schemes http and https (github.com/gobeaver/vfskit/driver/http)
//   - ZIP archives, scheme zip, layered over any other file (github.com/gobeaver/vfskit/driver/zip)
//
// Drivers register themselves on import:
//
//	import (
//	    "github.com/gobeaver/vfskit"
//	    _ "github.com/gobeaver/vfskit/driver/local"
//	    _ "github.com/gobeaver/vfskit/driver/zip"
//	)
//
//	m, err := vfskit.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	f, err := m.Resolve(ctx, "zip:file:///data/site.zip!/index.html")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//	data, err := vfskit.ReadAll(ctx, f)
//
// # URI Syntax
//
// Host based schemes use scheme://[user[:password]@]host[:port]/path, with
// an optional ?query for URL schemes. A password written as {HEX} is
// decrypted with the manager's [Cryptor]; see [WrapPassword]. Layered
// schemes use scheme:outerURI!/path, where the outer URI names the file the
// layer is read from. Without a '!' the URI names the root of the layer.
//
// # Names
//
// A [FileName] is a parsed, normalised absolute path under a root URI. Its
// type starts from the trailing separator convention and is replaced by the
// backend's answer once the file is attached. Names compare and hash by URI.
//
//	base := f.Name()
//	rel := base.RelativeName(other)                          // "../x"
//	child, err := m.ResolveName(base, "a/b", vfskit.ScopeDescendent)
//
// # Caching
//
// Each provider caches its file systems by [FileSystemKey], the root plus
// the [FileSystemOptions]. Resolving the same root with equal options returns
// the same file system; different options give a different one. File systems
// count the handles they hand out, and [Manager.FreeUnusedResources] closes
// the connections of file systems with none outstanding.
//
// # Configuration
//
// [Config] is loaded from BEAVER_ prefixed environment variables:
//
//	BEAVER_VFS_FILES_CACHE      default, lru or null
//	BEAVER_VFS_LRU_SIZE         files per file system for the lru cache
//	BEAVER_VFS_CACHE_STRATEGY   on_resolve, on_call or manual
//	BEAVER_VFS_URI_STYLE        folder names end with '/'
//	BEAVER_VFS_CRYPTOR_KEY      key for {encrypted} passwords
//	BEAVER_VFS_PROVIDERS        schemes to enable, all registered when empty
//
// # Error Handling
//
// All naming and resolution failures are *[Error] values carrying an
// [ErrorKind]:
//
//	if vfskit.IsKind(err, vfskit.KindInvalidRelativePath) {
//	    // ".." climbed above the root
//	}
//
//	if errors.Is(err, vfskit.ErrNotFound) {
//	    // file doesn't exist
//	}
package vfskit
