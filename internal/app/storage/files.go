package storage

import (
	"path/filepath"
	"strings"
	"time"

	"linkchat/internal/pkg/errs"
	"linkchat/internal/pkg/randx"
)

const (
	// MaxFileSizeMB is the largest accepted image in megabytes.
	MaxFileSizeMB = 5

	// MaxFileSize is MaxFileSizeMB in bytes.
	MaxFileSize = MaxFileSizeMB * 1024 * 1024

	// PresignedURLDuration is how long an issued URL stays valid.
	PresignedURLDuration = 5 * time.Minute
)

// extToMIME lists the accepted image extensions and the MIME type each must be sent with.
var extToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ValidateFileSize rejects empty and oversized files.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if fileSize > MaxFileSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}
	return nil
}

// ValidateFileType accepts only images whose extension agrees with the declared MIME type.
func ValidateFileType(fileName, mimeType string) *errs.CustomError {
	expected, ok := extToMIME[strings.ToLower(filepath.Ext(fileName))]
	if !ok || expected != strings.ToLower(mimeType) {
		return errs.NewError(errs.ErrInvalidParams)
	}
	return nil
}

// ObjectKey returns a fresh key under the owner's prefix that keeps the file extension.
func ObjectKey(userID, fileName string) string {
	return userID + "/" + randx.NewID() + strings.ToLower(filepath.Ext(fileName))
}

// ParseObjectKey checks that key has the shape ObjectKey produces and returns its owner.
func ParseObjectKey(key string) (ownerID string, ok bool) {
	ownerID, name, found := strings.Cut(key, "/")
	if !found || !randx.IsValidID(ownerID) {
		return "", false
	}

	ext := filepath.Ext(name)
	if _, known := extToMIME[ext]; !known || !randx.IsValidID(strings.TrimSuffix(name, ext)) {
		return "", false
	}
	return ownerID, true
}

// OwnsKey reports whether key was issued to userID by ObjectKey.
func OwnsKey(userID, key string) bool {
	owner, ok := ParseObjectKey(key)
	return ok && owner == userID
}
