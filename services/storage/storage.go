package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// ErrDisabled is returned when no object storage is configured.
var ErrDisabled = errors.New("object storage is not configured")

// StorageService stores public images such as tutor avatars.
type StorageService interface {
	// UploadImage returns the public HTTPS URL and the id used to delete it.
	UploadImage(ctx context.Context, file io.Reader, folder string) (url, publicID string, err error)
	DeleteFile(ctx context.Context, publicID string) error
}

type CloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryStorage(cld *cloudinary.Cloudinary) StorageService {
	if cld == nil {
		return disabledStorage{}
	}
	return &CloudinaryStorage{cld: cld}
}

func (s *CloudinaryStorage) UploadImage(ctx context.Context, file io.Reader, folder string) (string, string, error) {
	result, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       folder,
		PublicID:     uuid.NewString(),
		ResourceType: "image",
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload image: %w", err)
	}
	if result.Error.Message != "" {
		return "", "", fmt.Errorf("cloudinary rejected upload: %s", result.Error.Message)
	}
	if result.PublicID == "" {
		return "", "", errors.New("no public ID returned")
	}
	return result.SecureURL, result.PublicID, nil
}

func (s *CloudinaryStorage) DeleteFile(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

type disabledStorage struct{}

func (disabledStorage) UploadImage(context.Context, io.Reader, string) (string, string, error) {
	return "", "", ErrDisabled
}

func (disabledStorage) DeleteFile(context.Context, string) error { return nil }
