package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// MaxFileSize is 50MB in bytes
	MaxFileSize = 50 * 1024 * 1024
	// MaxFilesPerRequest caps the number of attachments in one upload
	MaxFilesPerRequest = 10
)

// AllowedAttachmentTypes maps the accepted file extensions to their content type
var AllowedAttachmentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateAttachment checks the size and the extension of an uploaded file
// and returns the content type to store it with.
func ValidateAttachment(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > MaxFileSize {
		return "", &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}
	if fileHeader.Size == 0 {
		return "", &FileUploadError{
			Code:    "EMPTY_FILE",
			Message: fmt.Sprintf("File %s is empty", fileHeader.Filename),
		}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType, ok := AllowedAttachmentTypes[ext]
	if !ok {
		return "", &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: fmt.Sprintf("Files of type %q are not allowed", ext),
		}
	}
	return contentType, nil
}

// SanitizeFilename keeps the base name of filename with anything unusual replaced by "_"
func SanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Trim(unsafeFilenameChars.ReplaceAllString(base, "_"), "_.")
	if base == "" {
		return "attachment"
	}
	return base
}

// AttachmentPath builds the bucket path of an attachment: {customID}/{unixnano}_{filename}
func AttachmentPath(customID, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%d_%s", customID, now.UnixNano(), SanitizeFilename(filename))
}

// AttachmentBelongsTo reports whether path was stored under the folder of customID
func AttachmentBelongsTo(customID, path string) bool {
	if customID == "" || strings.Contains(path, "..") {
		return false
	}
	name := strings.TrimPrefix(path, customID+"/")
	return name != path && name != "" && !strings.Contains(name, "/")
}

// AttachmentName returns the display name of a stored attachment path
func AttachmentName(path string) string {
	name := path
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "_"); i > 0 && isDigits(name[:i]) {
		name = name[i+1:]
	}
	return name
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
