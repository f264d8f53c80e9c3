package apptypes

import (
	"context"
	"io"
)

// StorageService defines file storage operations (attachments, avatars).
// The interface lives in apptypes to break the cycle between the storage and
// services packages.
type StorageService interface {
	// UploadFile stores the reader's content and returns the resulting
	// FileInfo, including its access URL.
	UploadFile(ctx context.Context, reader io.Reader, fileSize int64, fileName string, mimeType string) (*FileInfo, error)
}
