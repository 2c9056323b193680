// Package storage provides object storage clients used for audio uploads
// and the object-backed manifest store.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no object exists under the key.
// Callers treat it as a normal outcome, not a failure.
var ErrNotFound = errors.New("storage: object not found")

// Object describes a stored object.
type Object struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Client defines the object storage operations the pipeline consumes.
type Client interface {
	// Upload stores the file at localPath under key and returns its
	// public descriptor.
	Upload(ctx context.Context, localPath, key string) (*Object, error)
	// Put stores raw bytes under key.
	Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error)
	// Get retrieves the bytes stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
}
