/*
Package storage issues short-lived URLs for attachments kept in S3-compatible object storage.

Object keys are scoped to the user that uploaded them: <owner-id>/<random-id><ext>. The owner
prefix is what the HTTP layer checks before it hands out a download URL.
*/
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"anonchat/internal/app/user"
)

var (
	// ErrNotConfigured is returned by every operation when no object store is configured.
	ErrNotConfigured = errors.New("storage: not configured")

	// ErrOperationFailed wraps any failure reported by the object store.
	ErrOperationFailed = errors.New("storage: operation failed")
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Enabled reports whether an object store is configured.
func (c ServiceConfig) Enabled() bool {
	return c.S3BucketName != ""
}

// StorageService defines the public interface for the file storage service.
type StorageService interface {
	// PresignUpload generates a pre-signed URL for uploading a file.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// PresignDownload generates a pre-signed URL for downloading a file.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Upload streams a file to the store on behalf of clients that cannot use a presigned URL.
	Upload(ctx context.Context, key string, mimeType string, body io.Reader) error
}

// NewStorageService is the factory function for StorageService.
// Without a bucket it returns a service that rejects every call with ErrNotConfigured.
func NewStorageService(cfg ServiceConfig) (StorageService, error) {
	if !cfg.Enabled() {
		return disabled{}, nil
	}
	return newS3Client(cfg)
}

// NewObjectKey returns a fresh key owned by owner, keeping the lower-cased extension of fileName.
func NewObjectKey(owner user.ID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("%s/%s%s", owner, uuid.New().String(), ext)
}

// OwnerOf extracts the owner of a key produced by NewObjectKey.
func OwnerOf(key string) (user.ID, bool) {
	owner, rest, ok := strings.Cut(key, "/")
	if !ok || owner == "" || rest == "" || strings.Contains(rest, "/") {
		return user.NoPartner, false
	}
	return user.ID(owner), true
}

type disabled struct{}

func (disabled) PresignUpload(context.Context, string, string, int64, time.Duration) (string, error) {
	return "", ErrNotConfigured
}

func (disabled) PresignDownload(context.Context, string, time.Duration) (string, error) {
	return "", ErrNotConfigured
}

func (disabled) Upload(context.Context, string, string, io.Reader) error {
	return ErrNotConfigured
}
