// Package storage stages intake attachments in an S3-compatible object store
// until the patient record is submitted. Objects are streamed, never spooled to
// local disk.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known, -1 otherwise.
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

// Storage is the object store used for staged attachments.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get returns a streaming reader; the caller closes it.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every object whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

const stagingRoot = "staging"

// StagingPrefix is the key prefix holding every attachment of one wizard.
func StagingPrefix(wizardID string) string {
	return stagingRoot + "/" + wizardID + "/"
}

// StagingKey returns a fresh object key for an attachment:
// staging/<wizardID>/<category>/<uuid><ext>.
func StagingKey(wizardID, category, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	return StagingPrefix(wizardID) + category + "/" + uuid.NewString() + ext
}
