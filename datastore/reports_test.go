package datastore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReportRepositorySaveListDelete(t *testing.T) {
	repo := NewReportRepository(filepath.Join(t.TempDir(), "reports"))

	saved, err := repo.Save("news_digest_20260101_080000.csv", []byte("source,title\n"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.SizeBytes == 0 {
		t.Error("saved report has zero size")
	}

	files, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 1 || files[0].Name != "news_digest_20260101_080000.csv" {
		t.Fatalf("List = %+v, want the single saved report", files)
	}

	if err := repo.Delete("news_digest_20260101_080000.csv"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	files, err = repo.List()
	if err != nil {
		t.Fatalf("List after delete failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("List after delete = %+v, want empty", files)
	}
}

func TestReportRepositoryListMissingDirIsEmpty(t *testing.T) {
	repo := NewReportRepository(filepath.Join(t.TempDir(), "never-created"))
	files, err := repo.List()
	if err != nil {
		t.Fatalf("List on a missing directory failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("List = %+v, want empty slice", files)
	}
}

func TestReportRepositoryRejectsTraversal(t *testing.T) {
	repo := NewReportRepository(t.TempDir())

	for _, name := range []string{"", ".", "..", "../etc/passwd", "a/b.csv", `a\b.csv`} {
		if _, err := repo.Resolve(name); !errors.Is(err, ErrInvalidReportName) {
			t.Errorf("Resolve(%q) error = %v, want ErrInvalidReportName", name, err)
		}
	}
}

func TestReportRepositoryResolveMissingFile(t *testing.T) {
	repo := NewReportRepository(t.TempDir())
	if _, err := repo.Resolve("nope.pdf"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Resolve on a missing file = %v, want fs.ErrNotExist", err)
	}
}

func TestReportRepositorySweepOlderThan(t *testing.T) {
	dir := t.TempDir()
	repo := NewReportRepository(dir)

	if _, err := repo.Save("old.csv", []byte("x")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := repo.Save("new.csv", []byte("y")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Age one file past the sweep cutoff.
	past := time.Now().Add(-8 * 24 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "old.csv"), past, past); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	removed, err := repo.SweepOlderThan(7 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("SweepOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("sweep removed %d files, want 1", removed)
	}

	files, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 1 || files[0].Name != "new.csv" {
		t.Errorf("List after sweep = %+v, want only new.csv", files)
	}
}
