package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeArchiver struct {
	paths []string
	err   error
}

func (f *fakeArchiver) Archive(_ context.Context, path string) (string, error) {
	f.paths = append(f.paths, path)
	return "key/" + filepath.Base(path), f.err
}

func TestSaveAndRelease(t *testing.T) {
	dir := t.TempDir()
	arch := &fakeArchiver{}
	s := NewSources(dir, nil, WithArchiver(arch))

	path, err := s.Save(strings.NewReader("name,price\nSoup,5\n"), "../../evil/menu.csv", 0)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Dir(path) != s.Dir() || !strings.HasSuffix(path, "_menu.csv") {
		t.Fatalf("saved to %s", path)
	}
	if !s.Owns(path) {
		t.Fatal("upload not owned")
	}
	if err := s.Release(context.Background(), path); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file still present: %v", err)
	}
	if len(arch.paths) != 1 {
		t.Fatalf("archived %d files", len(arch.paths))
	}
}

func TestReleaseLeavesForeignFiles(t *testing.T) {
	s := NewSources(t.TempDir(), nil)
	outside := filepath.Join(t.TempDir(), "menu.csv")
	if err := os.WriteFile(outside, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Release(context.Background(), outside); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("foreign file removed: %v", err)
	}
	if NewSources("", nil).Owns(outside) {
		t.Fatal("disabled store owns files")
	}
}

func TestReleaseKeepsFileWhenArchiveFails(t *testing.T) {
	arch := &fakeArchiver{err: errors.New("bucket unavailable")}
	s := NewSources(t.TempDir(), nil, WithArchiver(arch))
	path, _ := s.Save(strings.NewReader("x"), "menu.json", 0)
	if err := s.Release(context.Background(), path); err == nil {
		t.Fatal("expected archive error")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file removed after failed archive: %v", err)
	}
}

func TestSaveEnforcesLimit(t *testing.T) {
	s := NewSources(t.TempDir(), nil)
	if _, err := s.Save(strings.NewReader("0123456789"), "menu.txt", 5); err == nil {
		t.Fatal("expected size error")
	}
	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 0 {
		t.Fatalf("%d partial files left", len(entries))
	}
}

func TestObjectKey(t *testing.T) {
	a := &S3Archiver{prefix: "menu-sources", now: func() time.Time { return time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC) }}
	if got := a.ObjectKey("/tmp/uploads/abc_menu.pdf"); got != "menu-sources/2026/03/01/abc_menu.pdf" {
		t.Fatalf("ObjectKey = %q", got)
	}
	if contentType("x.DOCX") != "application/vnd.openxmlformats-officedocument.wordprocessingml.document" {
		t.Fatal("docx content type")
	}
}
