package manager

import (
	"os"
	"path/filepath"
	"strings"
)

// scanArtifacts lists model artifacts in dir matching ext, in directory-listing
// order. A missing directory is reported as an error so the caller can decide
// to create it and acquire a default artifact.
func scanArtifacts(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}
