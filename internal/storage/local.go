package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalDisk stores files under a root directory on the local filesystem
type LocalDisk struct {
	root    string
	baseURL string
	create  func(name string) (io.WriteCloser, error)
}

// NewLocalDisk creates a LocalDisk rooted at root. Relative roots resolve
// against the working directory.
func NewLocalDisk(root, baseURL string) *LocalDisk {
	if !filepath.IsAbs(root) {
		cwd, _ := os.Getwd()
		root = filepath.Join(cwd, root)
	}
	return &LocalDisk{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		create: func(name string) (io.WriteCloser, error) {
			return os.Create(name)
		},
	}
}

// Root returns the absolute directory files are written to
func (d *LocalDisk) Root() string {
	return d.root
}

func (d *LocalDisk) abs(path string) string {
	return filepath.Join(d.root, filepath.FromSlash(filepath.Clean("/"+path)))
}

// Put writes r to path. A failed write or close removes the partial file.
func (d *LocalDisk) Put(_ context.Context, path string, r io.Reader, _ string) (err error) {
	full := d.abs(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage/local: mkdir: %w", err)
	}
	f, err := d.create(full)
	if err != nil {
		return fmt.Errorf("storage/local: create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("storage/local: close %s: %w", path, closeErr)
		}
		if err != nil {
			os.Remove(full)
		}
	}()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("storage/local: write %s: %w", path, err)
	}
	return nil
}

func (d *LocalDisk) URL(path string) string {
	return d.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(path), "/")
}
