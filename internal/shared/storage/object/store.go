package object

import (
	"context"
	"io"
	"time"
)

// ObjectStore defines the contract for saving and retrieving binary objects.
// Objects are addressed by storage keys inside the store and by opaque
// scheme://location URIs outside of it.
type ObjectStore interface {
	// SaveWithKey writes the reader contents at the given storage key. The
	// write is atomic from the caller's point of view: no partial object is
	// ever visible at the final key.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (sizeBytes int64, err error)
	// Open opens a stored object for reading.
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// Exists reports whether an object is present at the given storage key.
	Exists(ctx context.Context, storageKey string) (bool, error)
	// URI returns the canonical object URI for a storage key.
	URI(storageKey string) string
	// KeyFromURI maps an object URI back to a storage key. Returns false for
	// URIs that do not belong to this store.
	KeyFromURI(uri string) (string, bool)
}

// PresignedWriter is implemented by stores whose destinations support native
// expiring write credentials (e.g. S3 presigned PUT URLs).
type PresignedWriter interface {
	SignedWriteURL(ctx context.Context, storageKey string, contentType string, ttl time.Duration) (string, error)
}
