// Package storage uploads exported workbooks to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// XLSXContentType is the media type of exported workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PutObjectOptions are optional upload parameters. Size is the exact byte
// count, or -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is an object store client
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// WorkbookKey returns a fresh object key of the form <prefix>/<uuid>.xlsx
func WorkbookKey(prefix string) string {
	return path.Join(prefix, uuid.NewString()+".xlsx")
}

// UploadWorkbook stores an XLSX export under a new key
func UploadWorkbook(ctx context.Context, st Storage, prefix string, data []byte, meta map[string]string) (ObjectInfo, error) {
	key := WorkbookKey(prefix)
	info, err := st.Put(ctx, key, bytes.NewReader(data), PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: XLSXContentType,
		Metadata:    meta,
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("upload %s: %w", key, err)
	}
	return info, nil
}
