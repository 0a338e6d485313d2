// Package storage keeps profile photo binaries outside the relational store.
// Backends return an opaque reference (a URL) that is stored on the profile.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/oggyb/vivah/internal/config"
	"github.com/oggyb/vivah/internal/db"
	svcErr "github.com/oggyb/vivah/internal/errors"
)

// PhotoStorage uploads and deletes photo binaries.
type PhotoStorage interface {
	Upload(ctx context.Context, ownerID, filename string, data []byte) (string, error)
	Delete(ctx context.Context, ref string) error
}

// New builds the backend selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg *config.Config) (PhotoStorage, error) {
	switch cfg.Storage.Driver {
	case "cloudinary":
		return NewCloudinaryStorage(
			cfg.Storage.CloudinaryName,
			cfg.Storage.CloudinaryAPIKey,
			cfg.Storage.CloudinaryAPISecret,
			cfg.Storage.Folder,
		)
	case "s3":
		return NewS3Storage(ctx, S3Options{
			Endpoint:  cfg.Storage.S3Endpoint,
			Region:    cfg.Storage.S3Region,
			Bucket:    cfg.Storage.S3Bucket,
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
			PathStyle: cfg.Storage.S3PathStyle,
			PublicURL: cfg.Storage.S3PublicURL,
			Folder:    cfg.Storage.Folder,
		})
	case "none", "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
}

// Disabled rejects uploads. Deletes succeed so stale references can be cleaned up.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, string, []byte) (string, error) {
	return "", svcErr.Validation("photo uploads unavailable")
}

func (Disabled) Delete(context.Context, string) error { return nil }

// allowedTypes maps sniffed content types to the extension we store.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// DetectImage sniffs data and returns its content type and extension, or a
// Validation error when it is not a supported image.
func DetectImage(data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", svcErr.Validation("photo is empty")
	}
	contentType = http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", "", svcErr.Validation("unsupported photo type %s", contentType)
	}
	return contentType, ext, nil
}

// objectName builds "<folder>/<owner>/<id><ext>".
func objectName(folder, ownerID, ext string) string {
	return path.Join(strings.Trim(folder, "/"), ownerID, db.NewID()+ext)
}
