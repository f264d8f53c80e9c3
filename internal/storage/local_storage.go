package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ahmedmiske/tabaro-sub002/internal/apptypes"
	"github.com/ahmedmiske/tabaro-sub002/internal/config"

	"github.com/google/uuid"
)

// LocalStorageService implements apptypes.StorageService on the local
// filesystem. It holds request attachments and avatars.
type LocalStorageService struct {
	basePath string // root directory for stored files, e.g. "./uploads"
	baseURL  string // URL prefix files are served under, e.g. "/uploads"
}

// NewLocalStorageService creates a new LocalStorageService, ensuring the
// storage directory exists.
func NewLocalStorageService(cfg config.StorageConfig, baseURL string) (apptypes.StorageService, error) {
	if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory '%s': %w", cfg.LocalPath, err)
	}
	return &LocalStorageService{
		basePath: cfg.LocalPath,
		baseURL:  baseURL,
	}, nil
}

// UploadFile saves the file under a random name, keeping the original
// extension.
func (s *LocalStorageService) UploadFile(ctx context.Context, reader io.Reader, fileSize int64, fileName string, mimeType string) (*apptypes.FileInfo, error) {
	ext := filepath.Ext(fileName)
	if ext == "" {
		extensions, _ := mime.ExtensionsByType(mimeType)
		if len(extensions) > 0 {
			ext = extensions[0]
		}
	}
	uniqueFileName := uuid.New().String() + ext

	dstPath := filepath.Join(s.basePath, uniqueFileName)

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file '%s': %w", dstPath, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, reader)
	if err != nil {
		os.Remove(dstPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if written != fileSize {
		os.Remove(dstPath)
		return nil, fmt.Errorf("file size mismatch: expected %d, wrote %d", fileSize, written)
	}

	fileURL := strings.TrimSuffix(s.baseURL, "/") + "/" + url.PathEscape(uniqueFileName)

	return &apptypes.FileInfo{
		URL:      fileURL,
		Path:     dstPath,
		Size:     fileSize,
		MimeType: mimeType,
		FileName: fileName,
	}, nil
}
