package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/trainer-core/internal/config"
	"alcyxob/trainer-core/internal/logger"
)

func TestS3Storage_PresignedDownloadURL(t *testing.T) {
	ctx := context.Background()
	store, err := NewS3Storage(ctx, config.S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
		BucketName:      "reports",
	}, logger.NewNop())
	require.NoError(t, err)

	raw, err := store.GeneratePresignedDownloadURL(ctx, "reports/u1/load.json", 5*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	// path-style: bucket is the first path segment
	assert.Equal(t, "/reports/reports/u1/load.json", u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.True(t, strings.HasPrefix(u.Query().Get("X-Amz-Credential"), "minio/"))
}

func TestS3Storage_DefaultExpiry(t *testing.T) {
	ctx := context.Background()
	store, err := NewS3Storage(ctx, config.S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
		BucketName:      "reports",
	}, logger.NewNop())
	require.NoError(t, err)

	raw, err := store.GeneratePresignedDownloadURL(ctx, "k", 0)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
}
