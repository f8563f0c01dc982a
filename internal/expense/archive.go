package expense

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Archiver defines the interface for the durable receipt file archive.
type Archiver interface {
	// Store files a copy of the source under a standardized name and
	// returns the archive-relative path.
	Store(srcPath string, record *Record) (string, error)

	// Exists reports whether an archived file is present.
	Exists(relPath string) bool

	// Read returns the bytes of an archived file.
	Read(relPath string) ([]byte, error)

	// Delete removes an archived file.
	Delete(relPath string) error
}

// Archive implements Archiver on the local filesystem, organized by
// year subfolder: <base>/<year>/<date>_<provider>_<amount><ext>.
type Archive struct {
	basePath string
}

// NewArchive creates an Archive rooted at basePath.
func NewArchive(basePath string) (*Archive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &Archive{basePath: basePath}, nil
}

// Store copies the source file into the archive. The archived name is
// derived from the record fields, so re-filing the same receipt
// overwrites rather than accumulates.
func (a *Archive) Store(srcPath string, record *Record) (string, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("reading source file: %w", err)
	}

	year := fmt.Sprintf("%d", record.Date.Year())
	if err := os.MkdirAll(filepath.Join(a.basePath, year), 0755); err != nil {
		return "", fmt.Errorf("creating archive year directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s%s",
		record.Date.Format(DateLayout),
		providerSlug(record.Provider),
		FormatAmount(record.Amount),
		strings.ToLower(filepath.Ext(srcPath)),
	)
	relPath := filepath.Join(year, name)

	if err := os.WriteFile(filepath.Join(a.basePath, relPath), data, 0644); err != nil {
		return "", fmt.Errorf("writing archive file: %w", err)
	}
	return relPath, nil
}

// Exists reports whether an archived file is present.
func (a *Archive) Exists(relPath string) bool {
	_, err := os.Stat(filepath.Join(a.basePath, relPath))
	return err == nil
}

// Read returns the bytes of an archived file.
func (a *Archive) Read(relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(a.basePath, relPath))
	if err != nil {
		return nil, fmt.Errorf("reading archived file: %w", err)
	}
	return data, nil
}

// Delete removes an archived file.
func (a *Archive) Delete(relPath string) error {
	if err := os.Remove(filepath.Join(a.basePath, relPath)); err != nil {
		return fmt.Errorf("deleting archived file: %w", err)
	}
	return nil
}

// providerSlug lowercases the provider and replaces anything that is
// not alphanumeric with an underscore, capped at 30 characters.
func providerSlug(provider string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(provider) {
		if 'a' <= r && r <= 'z' || '0' <= r && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
		if b.Len() >= 30 {
			break
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
