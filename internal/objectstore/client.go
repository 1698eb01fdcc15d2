// Package objectstore defines the narrow client interface the migration
// engine uses to talk to an S3-compatible object store for LOB payloads
// (spec §4.D, §4.E "LOB sync"). Concrete backends live in subpackages,
// currently just s3.
package objectstore

import (
	"context"
	"io"
)

// Object describes one stored object's key and size, as returned by List.
type Object struct {
	Key  string
	Size int64
}

// Client is the object-store contract the LOB transfer and sync
// components depend on. A single bucket is fixed at construction; Key
// values are full object keys including any configured prefix.
type Client interface {
	// Put uploads body under key, replacing any existing object.
	Put(ctx context.Context, key string, body io.Reader, size int64) error
	// Get streams the object at key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List enumerates objects whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
	// Delete removes the objects named by keys.
	Delete(ctx context.Context, keys []string) error
	// Exists reports whether an object exists at key. The skip-nonempty
	// check of the LOB transfer uses List on the prefix, not Exists.
	Exists(ctx context.Context, key string) (bool, error)
}

// Config carries the connection parameters for an S3-compatible store
// (spec §6 "s3" connection config): a custom Endpoint and
// ForcePathStyle are what let this target MinIO and other
// S3-compatible stores in addition to AWS S3 itself.
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}
