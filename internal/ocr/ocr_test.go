package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func rgbaFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepareFrameGrayscale(t *testing.T) {
	out, err := PrepareFrame(rgbaFrame(t, 20, 10), 0)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	gray, ok := img.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 20, 10), gray.Bounds())
	// Pure red has luma 0.299 * 255.
	assert.InDelta(t, 76, int(gray.GrayAt(5, 5).Y), 1)
}

func TestPrepareFrameScalesDown(t *testing.T) {
	out, err := PrepareFrame(rgbaFrame(t, 40, 20), 10)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
	assert.Equal(t, 5, img.Bounds().Dy())
}

func TestPrepareFrameRejectsNonBMP(t *testing.T) {
	_, err := PrepareFrame([]byte("not a bitmap"), 0)
	assert.Error(t, err)
}
