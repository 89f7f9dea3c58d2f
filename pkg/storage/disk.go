// Package storage stores uploaded objects on a local directory or an
// S3-compatible bucket (AWS S3, MinIO, R2, Spaces).
//
//	disk, err := storage.FromConfig(ctx)
//	err = disk.Put(ctx, "uploads/7/3f2c.png", data, "image/png")
//	data, err := disk.Get(ctx, "uploads/7/3f2c.png")
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned by Get for a missing object.
	ErrNotFound = errors.New("storage: object not found")
	// ErrInvalidPath rejects keys that are absolute or climb out of the root.
	ErrInvalidPath = errors.New("storage: invalid path")
)

// Disk is one storage backend.
type Disk interface {
	// Put writes content to key, replacing any existing object.
	Put(ctx context.Context, key string, content []byte, contentType string) error

	// Get returns the object's content or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for key.
	URL(key string) string
}

// cleanKey normalises key to a relative slash path inside the root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
