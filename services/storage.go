package services

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidPath is returned for paths that escape the storage root.
var ErrInvalidPath = errors.New("invalid storage path")

// FileStorage keeps uploaded files under namespaced directories such as
// "categories" or "products". The returned path is what gets persisted
// on the owning row and is accepted back by Exists and Delete.
type FileStorage interface {
	Put(ctx context.Context, dir, name string, r io.Reader) (string, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}
