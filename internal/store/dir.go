// Package store persists normalized price tables as one CSV per ticker.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rustyeddy/carteira/internal/frame"
)

// Dir is an output directory holding <TICKER>.csv files.
type Dir struct {
	Path string
}

// New returns a Dir rooted at path. Nothing is created until EnsureDir.
func New(path string) *Dir {
	return &Dir{Path: path}
}

// EnsureDir creates the directory and any parents. It is safe to call when
// the directory already exists.
func (d *Dir) EnsureDir() error {
	if d.Path == "" {
		return fmt.Errorf("store: missing output directory")
	}
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("store: create %s: %w", d.Path, err)
	}
	return nil
}

// PathFor is the file a ticker is written to.
func (d *Dir) PathFor(ticker string) string {
	return filepath.Join(d.Path, ticker+".csv")
}

// Save writes the table to PathFor(ticker), replacing any earlier file.
// The data goes to a temp file first and is renamed into place, so a failed
// write leaves the previous file untouched.
func (d *Dir) Save(ticker string, t *frame.Table) (string, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" || strings.ContainsAny(ticker, `/\`) {
		return "", fmt.Errorf("store: invalid ticker %q", ticker)
	}

	path := d.PathFor(ticker)
	tmp, err := os.CreateTemp(d.Path, "."+ticker+"-*.csv.tmp")
	if err != nil {
		return "", fmt.Errorf("store: create temp for %s: %w", ticker, err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if err := t.WriteCSV(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("store: close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("store: chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store: rename into %s: %w", path, err)
	}
	return path, nil
}
