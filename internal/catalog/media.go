// ABOUTME: Product image storage on the local filesystem
// ABOUTME: Validates type by extension, caps upload size, names files by UUID

package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrImageTooLarge is returned when an upload exceeds the size cap.
	ErrImageTooLarge = errors.New("image exceeds maximum upload size")
	// ErrUnsupportedImage is returned for file types outside the allow list.
	ErrUnsupportedImage = errors.New("unsupported image type")
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// MediaStore writes uploaded product images under a single directory.
// Stored names are UUIDs so original filenames never reach the filesystem.
type MediaStore struct {
	dir      string
	maxBytes int64
}

// NewMediaStore creates the media directory if needed.
func NewMediaStore(dir string, maxBytes int64) (*MediaStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}
	return &MediaStore{dir: dir, maxBytes: maxBytes}, nil
}

// Save stores an uploaded image and returns its relative path. The original
// filename is used only to pick the extension.
func (m *MediaStore) Save(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedImageExts[ext] {
		return "", ErrUnsupportedImage
	}

	name := uuid.New().String() + ext
	path := filepath.Join(m.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	defer f.Close()

	// Read one byte past the cap to detect oversize uploads
	n, err := io.Copy(f, io.LimitReader(r, m.maxBytes+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing image: %w", err)
	}
	if n > m.maxBytes {
		os.Remove(path)
		return "", ErrImageTooLarge
	}

	return name, nil
}

// Open returns a reader for a stored image. The name is cleaned and must
// not escape the media directory.
func (m *MediaStore) Open(name string) (*os.File, error) {
	cleaned := filepath.Base(filepath.Clean(name))
	if cleaned != name || cleaned == "." || cleaned == ".." {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(m.dir, cleaned))
}

// Remove deletes a stored image. Missing files are not an error.
func (m *MediaStore) Remove(name string) error {
	cleaned := filepath.Base(filepath.Clean(name))
	if cleaned != name {
		return nil
	}
	err := os.Remove(filepath.Join(m.dir, cleaned))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Dir returns the media directory path.
func (m *MediaStore) Dir() string {
	return m.dir
}
