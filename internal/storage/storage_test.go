package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jo-hoe/cubediary/internal/backend/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDatabase("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, "", "http://localhost:8080/")
}

func TestUploadDownloadDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "a_0.jpg", "image/jpeg", []byte("jpeg")))

	err := store.Upload(ctx, "a_0.jpg", "image/jpeg", []byte("again"))
	assert.True(t, errors.Is(err, ErrExists), "expected ErrExists, got %v", err)

	obj, err := store.Download(ctx, "a_0.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", obj.ContentType)
	assert.Equal(t, []byte("jpeg"), obj.Data)

	require.NoError(t, store.Delete(ctx, "a_0.jpg"))
	_, err = store.Download(ctx, "a_0.jpg")
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestInvalidPaths(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"", "/abs.jpg", "../escape.jpg", "a/../../b.jpg", `dir\file.jpg`} {
		err := store.Upload(ctx, p, "image/jpeg", nil)
		assert.True(t, errors.Is(err, ErrInvalidPath), "path %q: expected ErrInvalidPath, got %v", p, err)
	}
}

func TestPublicURLRoundTrip(t *testing.T) {
	store := newTestStore(t)

	u := store.PublicURL("dir/a b_1.jpg")
	assert.Equal(t, "http://localhost:8080/storage/cube-images/dir/a%20b_1.jpg", u)

	p, ok := store.PathFromURL(u)
	require.True(t, ok)
	assert.Equal(t, "dir/a b_1.jpg", p)

	_, ok = store.PathFromURL("https://picsum.photos/800/800?random=1")
	assert.False(t, ok)
}

func TestFaceObjectName(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9a-f-]{36}_4\.png$`)
	assert.Regexp(t, pattern, FaceObjectName(4, ".png"))
	assert.Regexp(t, regexp.MustCompile(`_0\.jpg$`), FaceObjectName(0, ""))
	assert.NotEqual(t, FaceObjectName(1, "jpg"), FaceObjectName(1, "jpg"))
}
