// Package locate resolves user-supplied file paths against the working
// directory and the configuration file's directory.
package locate

import (
	"os"
	"path/filepath"
)

// File tries the path as given, then relative to baseDir, and returns the
// absolute path of the first that exists. The boolean reports whether a file
// was found.
func File(path, baseDir string) (string, bool) {
	if exists(path) {
		if abs, err := filepath.Abs(path); err == nil {
			return abs, true
		}
		return path, true
	}

	alternate := filepath.Join(baseDir, path)
	if exists(alternate) {
		if abs, err := filepath.Abs(alternate); err == nil {
			return abs, true
		}
		return alternate, true
	}

	return "", false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
