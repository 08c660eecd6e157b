package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStorage keeps uploaded files until they are processed
type FileStorage interface {
	Store(ctx context.Context, src io.Reader, filename string) (string, error)
	GetReader(ctx context.Context, filePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, filePath string) error
	GetFileSize(filePath string) (int64, error)
	Exists(ctx context.Context, filePath string) (bool, error)
}

// StorageConfig holds configuration for file storage
type StorageConfig struct {
	BasePath    string // Base directory for local storage
	MaxFileSize int64  // Maximum file size in bytes
	ChunkSize   int    // Copy buffer size
}

// DefaultStorageConfig returns sensible defaults
func DefaultStorageConfig() *StorageConfig {
	return &StorageConfig{
		BasePath:    "uploads",
		MaxFileSize: 50 * 1024 * 1024, // 50MB
		ChunkSize:   1024 * 1024,      // 1MB
	}
}

// ErrFileTooLarge is returned when an upload exceeds MaxFileSize.
var ErrFileTooLarge = fmt.Errorf("file exceeds maximum upload size")

// LocalFileStorage implements FileStorage using local filesystem
type LocalFileStorage struct {
	config *StorageConfig
}

// NewLocalFileStorage creates a new local file storage instance
func NewLocalFileStorage(config *StorageConfig) *LocalFileStorage {
	if config == nil {
		config = DefaultStorageConfig()
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultStorageConfig().ChunkSize
	}
	return &LocalFileStorage{config: config}
}

// NewLocalFileStorageWithPath creates a new local file storage with a simple path
func NewLocalFileStorageWithPath(basePath string) *LocalFileStorage {
	config := DefaultStorageConfig()
	config.BasePath = basePath
	return NewLocalFileStorage(config)
}

// Store saves src under a uuid-based name that keeps the original extension.
func (s *LocalFileStorage) Store(ctx context.Context, src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.config.BasePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	filePath := filepath.Join(s.config.BasePath, uuid.New().String()+ext)

	destFile, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	if s.config.MaxFileSize > 0 {
		src = io.LimitReader(src, s.config.MaxFileSize+1)
	}
	buf := make([]byte, s.config.ChunkSize)
	n, err := io.CopyBuffer(destFile, src, buf)
	if err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to copy file contents: %w", err)
	}
	if s.config.MaxFileSize > 0 && n > s.config.MaxFileSize {
		os.Remove(filePath)
		return "", ErrFileTooLarge
	}

	return filePath, nil
}

// GetReader returns a reader for the stored file
func (s *LocalFileStorage) GetReader(ctx context.Context, filePath string) (io.ReadCloser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes a file from storage
func (s *LocalFileStorage) Delete(ctx context.Context, filePath string) error {
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists checks if a file exists in storage
func (s *LocalFileStorage) Exists(ctx context.Context, filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return true, nil
}

// GetFileSize returns the size of a stored file
func (s *LocalFileStorage) GetFileSize(filePath string) (int64, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to get file info: %w", err)
	}
	return info.Size(), nil
}
