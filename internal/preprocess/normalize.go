// Package preprocess prepares raw receipt photos for OCR.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	// register decoders for the upload formats we accept
	_ "image/gif"
	_ "image/jpeg"
)

const (
	// minWidth is the upscaling floor; receipts photographed at phone
	// resolution are usually above it already.
	minWidth = 1000

	// contrastBoost corresponds to a 2.0x contrast enhancement.
	contrastBoost = 100

	// binarizeThreshold: gray values above it become white, the rest black.
	binarizeThreshold = 150
)

// Normalize converts an arbitrary raster image into the form the OCR
// engine works best on: single-channel grayscale, upscaled to at least
// minWidth, contrast-boosted, sharpened and hard-binarized.
//
// Normalize has no error paths; malformed input fails earlier, at decode.
func Normalize(src image.Image) *image.Gray {
	img := imaging.Grayscale(src)

	if img.Bounds().Dx() < minWidth {
		img = imaging.Resize(img, minWidth, 0, imaging.Lanczos)
	}

	img = imaging.AdjustContrast(img, contrastBoost)
	img = imaging.Sharpen(img, 1.0)

	return binarize(img)
}

// Decode reads a raster image from bytes. Kept next to Normalize so the
// pipeline has a single import for the image boundary.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// WriteTempPNG encodes img to a temporary PNG and returns its path and a
// cleanup func. Tesseract reads files, not streams.
func WriteTempPNG(img image.Image) (string, func(), error) {
	dir, err := os.MkdirTemp("", "spendscan-ocr-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, "normalized.png")
	f, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

var (
	pixelWhite = color.Gray{Y: 255}
	pixelBlack = color.Gray{Y: 0}
)

func binarize(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// grayscale NRGBA has R==G==B
			v := src.NRGBAAt(x, y).R
			if v > binarizeThreshold {
				out.SetGray(x-b.Min.X, y-b.Min.Y, pixelWhite)
			} else {
				out.SetGray(x-b.Min.X, y-b.Min.Y, pixelBlack)
			}
		}
	}
	return out
}
