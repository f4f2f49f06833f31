package takeout

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultSuffix selects the documents a takeout export is made of.
const DefaultSuffix = ".html"

// Walk returns every file under root ending in suffix, in lexical order so
// that runs over the same export process documents in the same order.
func Walk(root, suffix string) ([]string, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(strings.ToLower(path), strings.ToLower(suffix)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	slices.Sort(paths)
	return paths, nil
}
