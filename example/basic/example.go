package example

import (
	"embed"
	"io/fs"

	"github.com/datapact/cddl"
)

//go:embed *.cddl
var schemafs embed.FS

// CompileAll compiles every embedded schema; projects typically call this
// from an init-time check or a test so schema drift fails the build.
func CompileAll() ([]string, error) {
	return cddl.CompileFilesystems([]fs.FS{schemafs})
}
