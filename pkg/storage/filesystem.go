package storage

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage persists uploaded files on disk under a base directory.
type LocalStorage struct {
	baseDir      string
	maxSize      int64
	allowedMIMEs map[string]struct{}
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string, maxSize int64, allowedMIMEs []string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	allowed := make(map[string]struct{}, len(allowedMIMEs))
	for _, mime := range allowedMIMEs {
		allowed[strings.ToLower(mime)] = struct{}{}
	}
	return &LocalStorage{baseDir: baseDir, maxSize: maxSize, allowedMIMEs: allowed}, nil
}

// Save validates size and sniffed content type, then writes data under the relative path.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return "", fmt.Errorf("file exceeds %d bytes", s.maxSize)
	}
	if len(s.allowedMIMEs) > 0 {
		mime := strings.ToLower(strings.Split(http.DetectContentType(data), ";")[0])
		if _, ok := s.allowedMIMEs[mime]; !ok {
			return "", fmt.Errorf("content type %s not allowed", mime)
		}
	}
	path, err := s.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare storage directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return filename, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) resolve(filename string) (string, error) {
	clean := filepath.Clean("/" + filename)
	if clean == "/" {
		return "", fmt.Errorf("invalid file name")
	}
	return filepath.Join(s.baseDir, clean), nil
}
