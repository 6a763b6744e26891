// Package storage keeps uploaded product images on a configurable disk.
//
// Two drivers are available:
//   - "local" writes under a directory that the HTTP server exposes at /uploads
//   - "s3" writes to an S3-compatible bucket (AWS S3, MinIO, R2)
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"steel-store/internal/config"
	"steel-store/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Disk is the driver interface every storage backend implements
type Disk interface {
	// Put writes r to path, replacing any existing object.
	Put(ctx context.Context, path string, r io.Reader, contentType string) error

	// URL returns the public URL clients use to fetch path.
	URL(path string) string
}

var ErrUnsupportedImage = fmt.Errorf("%w: unsupported image type", domain.ErrInvalidInput)

// allowedImages maps permitted file extensions to the content types their
// bytes must sniff as
var allowedImages = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// sniffLen is how many leading bytes are inspected to detect the content type
const sniffLen = 3072

// New selects the disk driver named in configuration
func New(ctx context.Context, cfg config.StorageConfig, publicURL string) (Disk, error) {
	switch cfg.Disk {
	case "", "local":
		return NewLocalDisk(cfg.LocalRoot, publicURL+"/uploads"), nil
	case "s3":
		return NewS3Disk(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("storage: unknown disk %q", cfg.Disk)
	}
}

// ImageStore validates uploaded images and saves them under generated names
type ImageStore struct {
	disk Disk
}

// NewImageStore creates an ImageStore writing to disk
func NewImageStore(disk Disk) *ImageStore {
	return &ImageStore{disk: disk}
}

// Save checks the upload's extension and sniffed content type against the
// allow-list, stores it under a fresh UUID name and returns its public URL.
// Previously stored files are never removed.
func (s *ImageStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	want, ok := allowedImages[ext]
	if !ok {
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedImage, ext)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if !detected.Is(want) {
		return "", fmt.Errorf("%w: content is %s", ErrUnsupportedImage, detected.String())
	}

	name := uuid.NewString() + ext
	if err := s.disk.Put(ctx, name, io.MultiReader(bytes.NewReader(head), r), want); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	return s.disk.URL(name), nil
}
