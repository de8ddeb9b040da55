package qrcode

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"testing"

	"certverify/internal/storage"
	storeMocks "certverify/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testURL = "http://localhost:5000/verify_download/C-001"

func TestEncode(t *testing.T) {
	a, err := Encode(testURL)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(a))
	require.NoError(t, err)

	b := img.Bounds()
	assert.Equal(t, b.Dx(), b.Dy())
	assert.Zero(t, b.Dx()%ModulePixels, "image edge should be a whole number of modules")

	again, err := Encode(testURL)
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestEncode_TooLong(t *testing.T) {
	_, err := Encode(string(bytes.Repeat([]byte("x"), 8000)))
	assert.Error(t, err)
}

func TestImageKey(t *testing.T) {
	assert.Equal(t, "C-001.png", ImageKey("C-001"))
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("stores png under identifier", func(t *testing.T) {
		store, err := storage.NewLocal(t.TempDir())
		require.NoError(t, err)

		g := NewGenerator(store)
		require.NoError(t, g.Generate(ctx, "C-001", testURL))

		rc, info, err := store.Get(ctx, "C-001.png")
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)

		_, err = png.Decode(bytes.NewReader(data))
		assert.NoError(t, err)
		assert.Equal(t, "image/png", info.ContentType)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Put", ctx, "C-002.png", mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
			return opt.ContentType == "image/png" && opt.Size > 0
		})).Return(storage.ObjectInfo{}, errors.New("disk full"))

		g := NewGenerator(mStore)
		err := g.Generate(ctx, "C-002", testURL)
		assert.ErrorContains(t, err, "store qr image C-002: disk full")
		mStore.AssertExpectations(t)
	})
}
