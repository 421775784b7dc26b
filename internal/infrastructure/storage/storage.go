// Package storage abstracts where uploaded media bytes land.
package storage

import (
	"context"
	"io"
)

// Store persists uploaded files and returns the public URL they are
// served from.
type Store interface {
	Save(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error)
}
