package gamesvc

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

var sizeUnits = []string{"B", "K", "M", "G", "T"}

// FormatSize renders a byte count with binary scaling and one decimal,
// stopping at the first unit where the value drops below 1024.
func FormatSize(n int64) string {
	size := float64(n)
	for _, unit := range sizeUnits {
		if size < 1024 {
			return fmt.Sprintf("%.1f%s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1fP", size)
}

// DirUsage counts regular files under dir and sums their sizes. Files whose
// base name is in skip are ignored. Files that vanish or cannot be stat'ed
// during the walk are skipped.
func DirUsage(dir string, skip ...string) (files int, bytes int64, err error) {
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dir {
				return walkErr
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		for _, name := range skip {
			if d.Name() == name && filepath.Dir(path) == filepath.Clean(dir) {
				return nil
			}
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		files++
		bytes += info.Size()
		return nil
	})
	return files, bytes, err
}
