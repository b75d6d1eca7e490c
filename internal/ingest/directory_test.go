package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/menu-importer/constants"
)

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, r)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "b.csv", "a.xlsx", "notes.exe", ".hidden.csv", "wine/list.pdf", ".cache/x.json")

	tests := []struct {
		name  string
		opts  ScanOptions
		want  []string
		stats DirStats
	}{
		{
			name:  "top level",
			opts:  ScanOptions{SkipHidden: true},
			want:  []string{"a.xlsx", "b.csv"},
			stats: DirStats{Scanned: 3, Matched: 2, Unsupported: 1},
		},
		{
			name:  "recursive",
			opts:  ScanOptions{Recursive: true, SkipHidden: true},
			want:  []string{"a.xlsx", "b.csv", "wine/list.pdf"},
			stats: DirStats{Scanned: 4, Matched: 3, Unsupported: 1},
		},
		{
			name:  "hidden included",
			opts:  ScanOptions{},
			want:  []string{".hidden.csv", "a.xlsx", "b.csv"},
			stats: DirStats{Scanned: 4, Matched: 3, Unsupported: 1},
		},
		{
			name:  "format filter",
			opts:  ScanOptions{Recursive: true, SkipHidden: true, Formats: []constants.SourceFormat{constants.FormatPDF}},
			want:  []string{"wine/list.pdf"},
			stats: DirStats{Scanned: 4, Matched: 1, Unsupported: 3},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			paths, stats, err := ScanDirectory(root, tc.opts)
			if err != nil {
				t.Fatal(err)
			}
			var rel []string
			for _, p := range paths {
				r, _ := filepath.Rel(root, p)
				rel = append(rel, filepath.ToSlash(r))
			}
			if diff := cmp.Diff(tc.want, rel); diff != "" {
				t.Errorf("paths (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.stats, stats); diff != "" {
				t.Errorf("stats (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScanDirectoryMissingRoot(t *testing.T) {
	if _, _, err := ScanDirectory(filepath.Join(t.TempDir(), "nope"), ScanOptions{}); err == nil {
		t.Fatal("expected an error for a missing root")
	}
	if _, _, err := ScanDirectory(" ", ScanOptions{}); err == nil {
		t.Fatal("expected an error for an empty root")
	}
}
