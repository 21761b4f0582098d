package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"youth-cms-backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)
	return s
}

func TestLocalStorageRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	err := s.Upload(ctx, BucketUploads, "org-1/report.pdf", "application/pdf", strings.NewReader("pdf bytes"))
	require.NoError(t, err)

	rc, err := s.Download(ctx, BucketUploads, "org-1/report.pdf")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
}

func TestLocalStorageUploadReplaces(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, BucketUploads, "org-1/a.txt", "text/plain", strings.NewReader("first")))
	require.NoError(t, s.Upload(ctx, BucketUploads, "org-1/a.txt", "text/plain", strings.NewReader("second")))

	rc, err := s.Download(ctx, BucketUploads, "org-1/a.txt")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalStorageDownloadMissing(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Download(context.Background(), BucketUploads, "org-1/missing.txt")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLocalStorageDeleteIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, BucketUploads, "org-1/a.txt", "text/plain", strings.NewReader("x")))
	require.NoError(t, s.Delete(ctx, BucketUploads, "org-1/a.txt"))
	require.NoError(t, s.Delete(ctx, BucketUploads, "org-1/a.txt"))

	_, err := s.Download(ctx, BucketUploads, "org-1/a.txt")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	s := newTestStorage(t)

	err := s.Upload(context.Background(), BucketUploads, "../../etc/passwd", "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLocalStoragePublicURL(t *testing.T) {
	s := newTestStorage(t)
	assert.Equal(t, "http://localhost:8080/files/org-uploads/org-1/a.png", s.PublicURL(BucketUploads, "org-1/a.png"))
}
