package apptypes

// FileInfo holds basic information and the access path for an uploaded file.
type FileInfo struct {
	URL      string `json:"url"`      // publicly reachable URL
	Path     string `json:"path"`     // path or identifier inside the storage system
	Size     int64  `json:"size"`     // size in bytes
	MimeType string `json:"mimeType"` // MIME type
	FileName string `json:"fileName"` // original file name
}
