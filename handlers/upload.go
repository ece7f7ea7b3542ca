package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"catalog-server/logger"
	"catalog-server/metrics"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Storage directories per owner.
const (
	dirCategories = "categories"
	dirBrands     = "brands"
	dirProducts   = "products"
)

// allowedImages maps accepted content types to the stored extension.
var allowedImages = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// upload is an image file that passed validation.
type upload struct {
	header *multipart.FileHeader
	ext    string
}

// imageUpload validates the file in field. It returns nil when no file
// was sent or when the file was rejected; rejections are added to verr.
func (h *Handler) imageUpload(c *gin.Context, field string, required bool, verr *ValidationError) *upload {
	label := fieldLabel(field)

	fh, err := c.FormFile(field)
	if err != nil {
		// a plain text value under the file field is not an upload
		if c.PostForm(field) != "" {
			verr.Add(field, fmt.Sprintf("The %s must be an image.", label))
			return nil
		}
		if required {
			verr.Add(field, fmt.Sprintf("The %s field is required.", label))
		}
		return nil
	}

	if fh.Size > h.opts.MaxUploadKB*1024 {
		verr.Add(field, fmt.Sprintf("The %s may not be greater than %d kilobytes.", label, h.opts.MaxUploadKB))
		return nil
	}

	f, err := fh.Open()
	if err != nil {
		verr.Add(field, fmt.Sprintf("The %s failed to upload.", label))
		return nil
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		verr.Add(field, fmt.Sprintf("The %s failed to upload.", label))
		return nil
	}
	ext, ok := allowedImages[mt.String()]
	if !ok {
		verr.Add(field, fmt.Sprintf("The %s must be a file of type: jpeg, png, jpg, gif, webp.", label))
		return nil
	}
	return &upload{header: fh, ext: ext}
}

// store saves the upload under dir with a fresh name.
func (h *Handler) store(ctx context.Context, dir string, u *upload) (string, error) {
	f, err := u.header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	path, err := h.storage.Put(ctx, dir, uuid.NewString()+u.ext, f)
	metrics.ObserveStorage("put", err)
	if err != nil {
		return "", err
	}
	return path, nil
}

// removeFile deletes a stored file when it is still there.
func (h *Handler) removeFile(ctx context.Context, path string) error {
	exists, err := h.storage.Exists(ctx, path)
	metrics.ObserveStorage("exists", err)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	err = h.storage.Delete(ctx, path)
	metrics.ObserveStorage("delete", err)
	return err
}

// formOverhead is the room left next to the image for the other fields
// of a multipart request.
const formOverhead = 1 << 20

// limitBody caps the request body of routes that accept an image, so an
// oversized upload is refused before it is spooled to disk.
func (h *Handler) limitBody() gin.HandlerFunc {
	limit := h.opts.MaxUploadKB*1024 + formOverhead
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, Envelope{
				Message: fmt.Sprintf("The request may not be greater than %d kilobytes.", limit/1024),
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// discard removes files whose owning row is gone or was never written.
// Failures only leave an orphaned file behind, so they are logged.
func (h *Handler) discard(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := h.removeFile(ctx, p); err != nil {
			logger.FromContext(ctx, h.log).
				WithError(err).
				WithField("file", p).
				Warn("failed to remove stored file")
		}
	}
}
