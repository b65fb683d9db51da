// Package storage persists webcam images on local disk and optionally mirrors them to an S3-compatible store.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"webcamupload/internal/model"
)

var (
	// ErrIOFailure wraps any filesystem or object store failure.
	ErrIOFailure = errors.New("storage io failure")
	// ErrNotFound means no image has been stored yet. It is a normal state, not a fault.
	ErrNotFound = errors.New("no image stored")
)

// ImageStore is the durable home of uploaded images.
type ImageStore interface {
	// Store writes data under a filename derived from ts and returns the stored capture.
	// Readers never observe a partially written file.
	Store(ctx context.Context, data []byte, ts time.Time) (model.Capture, error)
	// Latest returns the URL path, relative to the storage root, of the most recent image.
	Latest(ctx context.Context) (string, error)
	// Check verifies the image directory is usable.
	Check(ctx context.Context) error
}

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known, or -1 to let the backend chunk.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// ObjectStore receives a copy of every stored image.
type ObjectStore interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
}
