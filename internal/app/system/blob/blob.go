// Package blob stores uploaded media (document scans, face images,
// voice samples) behind a narrow interface so handlers don't care
// whether bytes land on local disk or in an S3-compatible bucket.
package blob

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Store is the surface the handlers use. Implementations: Minio for
// production, Local for development and tests.
type Store interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Key builds a collision-free object key of the form
// <purpose>/<ownerID>/<unixnano>-<name>. Uploads are never overwritten
// in place; stale objects are removed explicitly.
func Key(purpose, ownerID, name string) string {
	return fmt.Sprintf("%s/%s/%d-%s", purpose, ownerID, time.Now().UnixNano(), name)
}
