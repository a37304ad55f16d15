package rename

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/yookoala/realpath"
)

// ListDirs returns the subdirectories of root, sorted by name. Symlinks to
// directories are followed; entries resolving to the same real path are
// listed once.
func ListDirs(root string) ([]string, error) {
	return list(root, func(fi os.FileInfo) bool { return fi.IsDir() })
}

// ListFiles returns the regular files directly inside root, sorted by name,
// deduplicated by real path like ListDirs.
func ListFiles(root string) ([]string, error) {
	return list(root, func(fi os.FileInfo) bool { return fi.Mode().IsRegular() })
}

func list(root string, keep func(os.FileInfo) bool) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	visited := make(map[string]bool, len(entries))
	var out []string
	for _, e := range entries {
		p := filepath.Join(root, e.Name())
		fi, err := os.Stat(p)
		if err != nil || !keep(fi) {
			continue
		}
		rpath, err := realpath.Realpath(p)
		if err != nil {
			return nil, fmt.Errorf("cannot get real path of %s: %w", p, err)
		}
		if visited[rpath] {
			continue
		}
		visited[rpath] = true
		out = append(out, p)
	}

	sort.Strings(out)
	return out, nil
}
