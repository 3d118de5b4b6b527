package datastore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cbarlow/newsbrief/models"
)

// ErrInvalidReportName marks report names that could escape the reports
// directory or are otherwise not plain file names.
var ErrInvalidReportName = errors.New("invalid report name")

// ReportRepository handles file operations for generated reports: listing,
// resolving for download, deleting, and the age-based sweep. Reports are
// immutable once written.
type ReportRepository struct {
	dir string
}

func NewReportRepository(dir string) *ReportRepository {
	return &ReportRepository{dir: dir}
}

// Dir returns the directory reports live in.
func (r *ReportRepository) Dir() string {
	return r.dir
}

// PathFor validates name and returns the path a new report may be written
// to, creating the reports directory on first use.
func (r *ReportRepository) PathFor(name string) (string, error) {
	if err := validateReportName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory '%s': %w", r.dir, err)
	}
	return filepath.Join(r.dir, name), nil
}

// Save writes data as a new report file and returns its metadata.
func (r *ReportRepository) Save(name string, data []byte) (models.ReportFile, error) {
	path, err := r.PathFor(name)
	if err != nil {
		return models.ReportFile{}, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return models.ReportFile{}, fmt.Errorf("failed to save report '%s': %w", name, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return models.ReportFile{}, fmt.Errorf("failed to stat report '%s': %w", name, err)
	}
	return models.ReportFile{Name: name, SizeBytes: info.Size(), CreatedAt: info.ModTime().UTC()}, nil
}

// Stat returns metadata for one existing report.
func (r *ReportRepository) Stat(name string) (models.ReportFile, error) {
	path, err := r.Resolve(name)
	if err != nil {
		return models.ReportFile{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return models.ReportFile{}, err
	}
	return models.ReportFile{Name: name, SizeBytes: info.Size(), CreatedAt: info.ModTime().UTC()}, nil
}

// Resolve validates name and returns the path of an existing report. A
// missing file surfaces as an error wrapping fs.ErrNotExist.
func (r *ReportRepository) Resolve(name string) (string, error) {
	if err := validateReportName(name); err != nil {
		return "", err
	}
	path := filepath.Join(r.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// List returns all report files, newest first.
func (r *ReportRepository) List() ([]models.ReportFile, error) {
	dirEntries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.ReportFile{}, nil
		}
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	files := []models.ReportFile{}
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, models.ReportFile{
			Name:      entry.Name(),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].CreatedAt.After(files[j].CreatedAt)
		}
		return files[i].Name > files[j].Name
	})
	return files, nil
}

// Delete removes a report by name.
func (r *ReportRepository) Delete(name string) error {
	path, err := r.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete report '%s': %w", name, err)
	}
	return nil
}

// SweepOlderThan deletes reports older than maxAge and returns how many
// were removed.
func (r *ReportRepository) SweepOlderThan(maxAge time.Duration) (int, error) {
	files, err := r.List()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, file := range files {
		if file.CreatedAt.After(cutoff) {
			continue
		}
		if err := r.Delete(file.Name); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func validateReportName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidReportName, name)
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidReportName, name)
	}
	return nil
}
