package filepathparser

import (
	"os"
	"path/filepath"
	"strings"
)

// ParsePath expands a leading ~ to the user's home directory and makes the
// path absolute. The workspace folder flag accepts both forms.
func ParsePath(path string) (string, error) {
	if path == "~" {
		if dirname, err := os.UserHomeDir(); err == nil {
			path = dirname
		}
	} else if strings.HasPrefix(path, "~/") {
		dirname, _ := os.UserHomeDir()
		path = filepath.Join(dirname, path[2:])
	}

	return filepath.Abs(path)
}
