package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/kendall-kelly/customs-tracker-api/utils"
	"go.uber.org/zap"
)

// AttachmentService validates and stores the files attached to customs
type AttachmentService interface {
	// UploadAttachments validates every file, then uploads them and returns their paths in order.
	// Nothing stays stored when an upload fails.
	UploadAttachments(ctx context.Context, customID string, files []*multipart.FileHeader) ([]string, error)

	// AttachmentURL generates a download URL for a stored attachment
	AttachmentURL(ctx context.Context, path string) (string, error)

	// DeleteAttachments removes stored attachments
	DeleteAttachments(ctx context.Context, paths ...string) error
}

// BlobAttachmentService implements AttachmentService on a BlobStore
type BlobAttachmentService struct {
	blobs BlobStore
	clock utils.Clock
}

var attachmentServiceInstance AttachmentService

// InitAttachmentService initializes the attachment service with a blob backend
func InitAttachmentService(blobs BlobStore, clock utils.Clock) AttachmentService {
	attachmentServiceInstance = NewBlobAttachmentService(blobs, clock)
	return attachmentServiceInstance
}

// GetAttachmentService returns the initialized attachment service instance
func GetAttachmentService() AttachmentService {
	return attachmentServiceInstance
}

// SetAttachmentService sets the attachment service instance (primarily for testing)
func SetAttachmentService(service AttachmentService) {
	attachmentServiceInstance = service
}

func NewBlobAttachmentService(blobs BlobStore, clock utils.Clock) *BlobAttachmentService {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &BlobAttachmentService{blobs: blobs, clock: clock}
}

// UploadAttachments validates and uploads files under the custom's folder
func (s *BlobAttachmentService) UploadAttachments(ctx context.Context, customID string, files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return []string{}, nil
	}
	if len(files) > utils.MaxFilesPerRequest {
		return nil, &utils.FileUploadError{
			Code:    "TOO_MANY_FILES",
			Message: fmt.Sprintf("At most %d files can be uploaded at once", utils.MaxFilesPerRequest),
		}
	}

	contentTypes := make([]string, len(files))
	for i, fileHeader := range files {
		contentType, err := utils.ValidateAttachment(fileHeader)
		if err != nil {
			return nil, err
		}
		contentTypes[i] = contentType
	}

	now := s.clock.Now()
	paths := make([]string, 0, len(files))
	for i, fileHeader := range files {
		// one nanosecond apart so two files of the same name get distinct paths
		path := utils.AttachmentPath(customID, fileHeader.Filename, now.Add(time.Duration(i)))
		if err := s.upload(ctx, path, contentTypes[i], fileHeader); err != nil {
			if len(paths) > 0 {
				if rmErr := s.blobs.Remove(ctx, paths...); rmErr != nil {
					zap.L().Warn("failed to remove partially uploaded attachments",
						zap.Error(rmErr),
						zap.Strings("paths", paths),
					)
				}
			}
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *BlobAttachmentService) upload(ctx context.Context, path, contentType string, fileHeader *multipart.FileHeader) error {
	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			zap.L().Warn("failed to close uploaded file", zap.Error(closeErr))
		}
	}()

	if err := s.blobs.Upload(ctx, path, contentType, file); err != nil {
		return fmt.Errorf("failed to upload attachment: %w", err)
	}
	return nil
}

// AttachmentURL generates a presigned URL for an attachment
func (s *BlobAttachmentService) AttachmentURL(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", nil
	}

	url, err := s.blobs.PresignedURL(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to generate attachment URL: %w", err)
	}
	return url, nil
}

// DeleteAttachments removes attachments from the blob store
func (s *BlobAttachmentService) DeleteAttachments(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := s.blobs.Remove(ctx, paths...); err != nil {
		return fmt.Errorf("failed to delete attachments: %w", err)
	}
	return nil
}
