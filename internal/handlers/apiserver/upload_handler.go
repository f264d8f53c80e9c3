package apiserver

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ahmedmiske/tabaro-sub002/internal/apptypes"
	"github.com/ahmedmiske/tabaro-sub002/internal/config"
)

const defaultMaxMemory = 32 << 20 // 32 MB for multipart form parsing

// UploadHandler stores request attachments (medical documents, photos) and
// avatars through the storage service.
type UploadHandler struct {
	storageService apptypes.StorageService
	cfg            config.StorageConfig
}

// NewUploadHandler creates a new UploadHandler instance.
func NewUploadHandler(storageService apptypes.StorageService, cfg config.StorageConfig) *UploadHandler {
	return &UploadHandler{
		storageService: storageService,
		cfg:            cfg,
	}
}

// UploadFileHandler accepts one multipart file under the "file" key.
func (h *UploadHandler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	maxUploadSize := h.cfg.MaxFileSizeMB << 20
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxMemory
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		if err.Error() == "http: request body too large" {
			writeJSONError(w, fmt.Sprintf("file too large, limit is %d MB", maxUploadSize>>20), http.StatusRequestEntityTooLarge)
		} else {
			writeJSONError(w, "failed to parse upload form", http.StatusBadRequest)
		}
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			writeJSONError(w, "missing 'file' field", http.StatusBadRequest)
		} else {
			writeJSONError(w, "failed to read uploaded file", http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	mimeType := handler.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	info, err := h.storageService.UploadFile(r.Context(), file, handler.Size, handler.Filename, mimeType)
	if err != nil {
		log.Printf("failed to store uploaded file %q: %v", handler.Filename, err)
		writeJSONError(w, "failed to store file", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusCreated, info)
}
