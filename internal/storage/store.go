package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("document not found")
	ErrInvalidKey = errors.New("invalid storage key")
)

// Store persists opaque documents under string keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	// Usage reports the bytes occupied by all stored documents and keys.
	Usage(ctx context.Context) (int64, error)
	Close() error
}
