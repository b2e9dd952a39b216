// Package blob stores rendered artifacts under generated file names. Two
// backends exist: a local directory and an S3-compatible bucket.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound reports a missing blob.
var ErrNotFound = errors.New("blob not found")

// Storage is a flat key-value store over file names.
type Storage interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Get(ctx context.Context, name string) ([]byte, error)
	Remove(ctx context.Context, name string) error
}
