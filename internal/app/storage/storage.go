/*
Package storage hands out presigned URLs for chat images kept in S3 compatible object storage.

The chat server never touches file bytes: clients upload and download directly with the
URLs issued here, and only the resulting object URL travels in an image message.
*/
package storage

import (
	"context"
	"time"
)

// Config holds the settings required to reach the bucket.
type Config struct {
	BucketName      string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Service issues presigned URLs.
type Service interface {
	// PresignUpload returns a URL that accepts one PUT of exactly fileSize bytes of mimeType.
	PresignUpload(ctx context.Context, key, mimeType string, fileSize int64, duration time.Duration) (string, error)

	// PresignDownload returns a URL that serves the object at key.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)
}

// New returns the S3 backed Service.
func New(ctx context.Context, cfg Config) (Service, error) {
	return newS3Client(ctx, cfg)
}
