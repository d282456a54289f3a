package storage

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
)

var (
	// ErrUnsupportedFileType is returned for uploads that are not a JPEG, PNG or PDF
	ErrUnsupportedFileType = errors.New("file must be a JPEG, PNG or PDF")
	// ErrFileTooLarge is returned for uploads over MaxFileSize
	ErrFileTooLarge = errors.New("file exceeds the 10 MB limit")
)

// LocalStorage handles file storage on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// SaveProof stores a payment proof after checking its real content type, and returns
// its path relative to the storage root. The extension comes from the sniffed type,
// never from the client file name.
func (s *LocalStorage) SaveProof(r io.Reader, subDir string) (string, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(261)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	kind, err := filetype.Match(head)
	if err != nil || !IsValidContentType(kind.MIME.Value) {
		return "", ErrUnsupportedFileType
	}

	dir := filepath.Join(s.basePath, subDir, time.Now().Format("2006/01"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filePath := filepath.Join(dir, generateID()+"."+kind.Extension)
	dst, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	// one byte over the limit is enough to know it is too large
	n, err := io.Copy(dst, io.LimitReader(br, MaxFileSize()+1))
	if err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if n > MaxFileSize() {
		os.Remove(filePath)
		return "", ErrFileTooLarge
	}

	relPath, _ := filepath.Rel(s.basePath, filePath)
	return relPath, nil
}

// Open returns a stored file for reading
func (s *LocalStorage) Open(relativePath string) (*os.File, error) {
	return os.Open(s.GetFullPath(relativePath))
}

// Delete removes a file
func (s *LocalStorage) Delete(relativePath string) error {
	return os.Remove(s.GetFullPath(relativePath))
}

// Exists checks if a file exists
func (s *LocalStorage) Exists(relativePath string) bool {
	_, err := os.Stat(s.GetFullPath(relativePath))
	return err == nil
}

// GetFullPath returns the absolute path for serving files. Paths escaping the
// storage root are folded back inside it.
func (s *LocalStorage) GetFullPath(relativePath string) string {
	clean := filepath.Clean("/" + strings.TrimPrefix(relativePath, "/"))
	return filepath.Join(s.basePath, clean)
}

// generateID creates a unique identifier for filenames
func generateID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// ValidContentTypes returns allowed MIME types for uploads
func ValidContentTypes() map[string]bool {
	return map[string]bool{
		"application/pdf": true,
		"image/jpeg":      true,
		"image/png":       true,
	}
}

// MaxFileSize returns the maximum allowed file size (10MB)
func MaxFileSize() int64 {
	return 10 * 1024 * 1024
}

// IsValidContentType checks if the content type is allowed
func IsValidContentType(contentType string) bool {
	return ValidContentTypes()[contentType]
}
