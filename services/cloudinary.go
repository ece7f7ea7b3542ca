package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStorage keeps uploads on Cloudinary. Stored paths are the
// secure delivery URLs; the public id is recovered from them on delete.
type CloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryStorage(cloudinaryURL string) (*CloudinaryStorage, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary URL is required")
	}

	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStorage{cld: cld}, nil
}

func (cs *CloudinaryStorage) Put(ctx context.Context, dir, name string, r io.Reader) (string, error) {
	overwrite := false
	result, err := cs.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     strings.TrimSuffix(name, filepath.Ext(name)),
		Folder:       dir,
		Overwrite:    &overwrite,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload image: %s", result.Error.Message)
	}

	if result.SecureURL != "" {
		return forceHTTPS(result.SecureURL), nil
	}
	return forceHTTPS(result.URL), nil
}

func (cs *CloudinaryStorage) Exists(ctx context.Context, url string) (bool, error) {
	publicID := ExtractPublicID(url)
	if publicID == "" {
		return false, nil
	}

	asset, err := cs.cld.Admin.Asset(ctx, admin.AssetParams{PublicID: publicID})
	if err != nil {
		return false, fmt.Errorf("failed to look up image: %w", err)
	}
	return asset.Error.Message == "" && asset.PublicID != "", nil
}

func (cs *CloudinaryStorage) Delete(ctx context.Context, url string) error {
	publicID := ExtractPublicID(url)
	if publicID == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPath, url)
	}

	result, err := cs.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to delete image: %s", result.Error.Message)
	}
	return nil
}

// ExtractPublicID pulls the public id out of a delivery URL such as
// https://res.cloudinary.com/account/image/upload/v1234567890/folder/filename.jpg
func ExtractPublicID(url string) string {
	parts := strings.Split(url, "/")
	if len(parts) < 4 {
		return ""
	}

	for i, part := range parts {
		if part != "upload" || i+1 >= len(parts) {
			continue
		}
		rest := parts[i+1:]
		// drop the version segment
		if len(rest) > 1 && isVersion(rest[0]) {
			rest = rest[1:]
		}
		path := strings.Join(rest, "/")
		return strings.TrimSuffix(path, filepath.Ext(path))
	}
	return ""
}

func isVersion(segment string) bool {
	if len(segment) < 2 || segment[0] != 'v' {
		return false
	}
	for _, r := range segment[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// forceHTTPS ensures Cloudinary URLs use https scheme
func forceHTTPS(in string) string {
	out := strings.TrimSpace(in)
	return strings.Replace(out, "http://", "https://", 1)
}
