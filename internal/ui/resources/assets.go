// Package resources provides static asset handling for the UI server.
package resources

import (
	"io/fs"
	"strings"
)

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/ui/resources/static"

// StaticPath returns the URL path for a static asset.
func StaticPath(path string) string {
	return "/static/" + strings.TrimPrefix(path, "/")
}

// Exists reports whether a static asset is available.
func Exists(path string) bool {
	_, err := fs.Stat(FS(), strings.TrimPrefix(path, "/"))
	return err == nil
}
