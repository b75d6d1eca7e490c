// Package ingest finds menu documents on disk for batch previews.
package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/menu-importer/constants"
)

type DirStats struct {
	Scanned     uint32
	Matched     uint32
	Unsupported uint32
	Failed      uint32
}

// ScanOptions controls ScanDirectory. A nil Formats accepts every supported format.
type ScanOptions struct {
	Recursive  bool
	SkipHidden bool
	Formats    []constants.SourceFormat
}

// ScanDirectory walks root and returns the supported menu documents under it, sorted by
// path. Unreadable entries are counted as failures and skipped.
func ScanDirectory(root string, opts ScanOptions) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var want map[constants.SourceFormat]bool
	if len(opts.Formats) > 0 {
		want = make(map[constants.SourceFormat]bool, len(opts.Formats))
		for _, f := range opts.Formats {
			want[f] = true
		}
	}

	var (
		paths []string
		stats DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Failed++
			return nil
		}
		if path == root {
			return nil
		}
		if opts.SkipHidden && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		stats.Scanned++
		format, ok := constants.FormatForExt(filepath.Ext(path))
		if !ok || (want != nil && !want[format]) {
			stats.Unsupported++
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, stats, nil
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
