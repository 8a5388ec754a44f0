// Command vfsctl parses, resolves and reads files through vfskit.
//
//	vfsctl parse sftp://user@host/dir/file.txt
//	vfsctl ls --glob '**/*.go' file:///src/project
//	vfsctl cat zip:file:///tmp/site.zip!/index.html
//
// Configuration comes from the BEAVER_VFS_* environment variables.
package main

import (
	"os"

	_ "github.com/gobeaver/vfskit/driver/http"
	_ "github.com/gobeaver/vfskit/driver/local"
	_ "github.com/gobeaver/vfskit/driver/memory"
	_ "github.com/gobeaver/vfskit/driver/sftp"
	_ "github.com/gobeaver/vfskit/driver/zip"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}
