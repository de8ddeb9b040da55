package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutGetStatDelete(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "static", "qrcodes")

	s, err := NewLocal(root)
	require.NoError(t, err)

	info, err := s.Put(ctx, "C-001.png", strings.NewReader("png-bytes"), PutObjectOptions{Size: 9, ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "C-001.png", info.Key)
	assert.Equal(t, int64(9), info.Size)
	assert.Equal(t, "image/png", info.ContentType)

	onDisk, err := os.ReadFile(filepath.Join(root, "C-001.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(onDisk))

	rc, got, err := s.Get(ctx, "C-001.png")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png-bytes", string(body))
	assert.Equal(t, "image/png", got.ContentType)

	st, err := s.Stat(ctx, "C-001.png")
	require.NoError(t, err)
	assert.Equal(t, int64(9), st.Size)

	require.NoError(t, s.Delete(ctx, "C-001.png"))
	_, err = s.Stat(ctx, "C-001.png")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting twice is fine
	assert.NoError(t, s.Delete(ctx, "C-001.png"))
}

func TestLocalStorage_Overwrite(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "batch.csv", strings.NewReader("old"), PutObjectOptions{Size: -1})
	require.NoError(t, err)
	_, err = s.Put(ctx, "batch.csv", strings.NewReader("newer"), PutObjectOptions{Size: -1})
	require.NoError(t, err)

	rc, info, err := s.Get(ctx, "batch.csv")
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "newer", string(body))
	assert.Equal(t, int64(5), info.Size)
	assert.Contains(t, info.ContentType, "csv")
}

func TestLocalStorage_NotFound(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Get(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Stat(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../escape.png", "a/../../b.png", "..", ".", `..\win.png`} {
		_, err := s.Put(ctx, key, strings.NewReader("x"), PutObjectOptions{Size: 1})
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)

		_, _, err = s.Get(ctx, key)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestCleanKey(t *testing.T) {
	k, err := CleanKey("a/./b.png")
	require.NoError(t, err)
	assert.Equal(t, "a/b.png", k)

	_, err = CleanKey("a/../../b")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewLocal_EmptyRoot(t *testing.T) {
	_, err := NewLocal("")
	assert.Error(t, err)
}
