package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// gradient so the result has both black and white regions
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

func TestNormalizeUpscalesSmallImages(t *testing.T) {
	out := Normalize(testImage(200, 100))
	assert.Equal(t, 1000, out.Bounds().Dx())
	// aspect ratio preserved
	assert.Equal(t, 500, out.Bounds().Dy())
}

func TestNormalizeKeepsLargeImages(t *testing.T) {
	out := Normalize(testImage(1200, 400))
	assert.Equal(t, 1200, out.Bounds().Dx())
	assert.Equal(t, 400, out.Bounds().Dy())
}

func TestNormalizeOutputIsBinary(t *testing.T) {
	out := Normalize(testImage(300, 300))
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := out.GrayAt(x, y).Y
			if v != 0 && v != 255 {
				t.Fatalf("pixel (%d,%d) = %d, want 0 or 255", x, y, v)
			}
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(10, 10)))

	img, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not an image"))
	assert.Error(t, err)
}

func TestWriteTempPNG(t *testing.T) {
	path, cleanup, err := WriteTempPNG(testImage(10, 10))
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)

	cleanup()
	_, statErr = os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
