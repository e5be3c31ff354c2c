package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muzzleid/muzzle-go/internal/errors"
)

// encodeTestPNG renders a width x height PNG with an alpha gradient.
func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: uint8((x + y) % 256)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: 64, B: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (width, height int) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	return cfg.Width, cfg.Height
}

func TestNormalizeScalesDownLongSide(t *testing.T) {
	t.Parallel()

	codec := NewCodec(DefaultOptions())
	stored, thumb, err := codec.Normalize(encodeTestJPEG(t, 2048, 512))
	require.NoError(t, err)

	w, h := decodeDims(t, stored)
	assert.Equal(t, 1024, w)
	assert.Equal(t, 256, h)

	tw, th := decodeDims(t, thumb)
	assert.LessOrEqual(t, tw, 256)
	assert.LessOrEqual(t, th, 256)
}

func TestNormalizeNeverUpscales(t *testing.T) {
	t.Parallel()

	codec := NewCodec(DefaultOptions())
	stored, _, err := codec.Normalize(encodeTestJPEG(t, 320, 240))
	require.NoError(t, err)

	w, h := decodeDims(t, stored)
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
}

func TestNormalizeFlattensAlpha(t *testing.T) {
	t.Parallel()

	codec := NewCodec(DefaultOptions())
	stored, _, err := codec.Normalize(encodeTestPNG(t, 100, 100))
	require.NoError(t, err)

	// The stored payload must decode as plain JPEG, alpha gone.
	img, err := jpeg.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
}

func TestRenormalizeDoesNotEnlarge(t *testing.T) {
	t.Parallel()

	codec := NewCodec(DefaultOptions())
	stored, _, err := codec.Normalize(encodeTestJPEG(t, 1600, 1200))
	require.NoError(t, err)
	w1, h1 := decodeDims(t, stored)

	again, thumb, err := codec.Normalize(stored)
	require.NoError(t, err)
	w2, h2 := decodeDims(t, again)

	assert.LessOrEqual(t, w2, w1)
	assert.LessOrEqual(t, h2, h1)

	tw, th := decodeDims(t, thumb)
	assert.LessOrEqual(t, tw, 256)
	assert.LessOrEqual(t, th, 256)
}

func TestNormalizeRejectsUndecodableBytes(t *testing.T) {
	t.Parallel()

	codec := NewCodec(DefaultOptions())
	_, _, err := codec.Normalize([]byte("definitely not an image"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageProcessing))
}

func TestCustomThumbnailBound(t *testing.T) {
	t.Parallel()

	codec := NewCodec(Options{ThumbnailSize: 64})
	_, thumb, err := codec.Normalize(encodeTestJPEG(t, 800, 600))
	require.NoError(t, err)

	tw, th := decodeDims(t, thumb)
	assert.LessOrEqual(t, tw, 64)
	assert.LessOrEqual(t, th, 64)
}
