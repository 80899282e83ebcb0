package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// allowedExtensions maps accepted lecture-document extensions to the MIME
// type passed on to the generation model.
var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".ppt":  "application/vnd.ms-powerpoint",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".csv":  "text/csv",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".ico":  "image/vnd.microsoft.icon",
	".webp": "image/webp",
}

// readUpload pulls the optional lecture document out of the multipart form.
// No file at all is fine; a file with a disallowed extension is not.
func readUpload(r *http.Request) ([]byte, string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	mime, ok := allowedExtensions[ext]
	if !ok {
		return nil, "", fmt.Errorf("file type %q is not supported", ext)
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxUploadBytes {
		return nil, "", fmt.Errorf("uploaded file exceeds %d bytes", maxUploadBytes)
	}
	return data, mime, nil
}
