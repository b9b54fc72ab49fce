// Package storage is the destination for exported result sets.
package storage

import (
	"context"
	"io"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

// ObjectStore receives export files. Exports are write-once; reading them
// back is left to the tools of the target (a file browser, mc, aws s3).
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	// Location renders key as a user facing address such as s3://bucket/key.
	Location(key string) string
}
