package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkchat/internal/pkg/errs"
	"linkchat/internal/pkg/logx"
	"linkchat/internal/pkg/randx"
)

func init() {
	logx.SetOutput(io.Discard)
}

func TestValidateFileSize(t *testing.T) {
	assert.Nil(t, ValidateFileSize(1))
	assert.Nil(t, ValidateFileSize(MaxFileSize))
	assert.Equal(t, errs.ErrInvalidParams, ValidateFileSize(0).Code)
	assert.Equal(t, errs.ErrFileSizeTooLarge, ValidateFileSize(MaxFileSize+1).Code)
}

func TestValidateFileType(t *testing.T) {
	assert.Nil(t, ValidateFileType("cat.PNG", "image/png"))
	assert.Nil(t, ValidateFileType("cat.jpeg", "IMAGE/JPEG"))

	for name, mime := range map[string]string{
		"cat.png":  "image/jpeg",
		"cat":      "image/png",
		"cat.svg":  "image/svg+xml",
		"cat.exe":  "application/octet-stream",
		".png.txt": "image/png",
	} {
		assert.NotNil(t, ValidateFileType(name, mime), name)
	}
}

func TestObjectKeyOwnership(t *testing.T) {
	owner := randx.NewID()

	key := ObjectKey(owner, "Holiday.JPG")
	assert.True(t, strings.HasPrefix(key, owner+"/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.True(t, OwnsKey(owner, key))

	assert.False(t, OwnsKey(randx.NewID(), key))
	assert.False(t, OwnsKey("", key))
	assert.False(t, OwnsKey(owner, owner+"/../other/file.jpg"))
	assert.False(t, OwnsKey(owner, owner+"/"+randx.NewID()+".exe"))

	parsed, ok := ParseObjectKey(key)
	assert.True(t, ok)
	assert.Equal(t, owner, parsed)

	_, ok = ParseObjectKey("room/" + randx.NewID() + ".png")
	assert.False(t, ok)
}

func TestPresignIsOffline(t *testing.T) {
	svc, err := New(context.Background(), Config{
		BucketName:      "chat",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	raw, err := svc.PresignUpload(context.Background(), "u/a.png", "image/png", 42, time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/chat/u/a.png", u.Path)
	assert.Equal(t, "60", u.Query().Get("X-Amz-Expires"))

	raw, err = svc.PresignDownload(context.Background(), "u/a.png", PresignedURLDuration)
	require.NoError(t, err)
	assert.Contains(t, raw, "X-Amz-Expires=300")
}
