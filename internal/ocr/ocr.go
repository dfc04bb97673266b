// Package ocr defines the text detector run over sampled video frames.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"plate-resolver/internal/video"
)

// Detection is one piece of text found in a frame.
type Detection struct {
	Box  image.Rectangle
	Text string
	// Confidence is in [0, 1].
	Confidence float64
}

// Engine detects text in frames. Engines are expensive to build; one is
// created per worker and reused for every file that worker handles.
type Engine interface {
	Detect(ctx context.Context, frame video.Frame) ([]Detection, error)
	Close() error
}

// Factory builds a fresh Engine.
type Factory func() (Engine, error)

// PrepareFrame decodes a BMP frame, converts it to grayscale, scales it down
// to maxWidth when it is wider (0 keeps the size) and returns it PNG-encoded.
func PrepareFrame(data []byte, maxWidth int) ([]byte, error) {
	src, err := bmp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	b := src.Bounds()

	dst := image.Rect(0, 0, b.Dx(), b.Dy())
	if maxWidth > 0 && b.Dx() > maxWidth {
		dst = image.Rect(0, 0, maxWidth, b.Dy()*maxWidth/b.Dx())
	}
	gray := image.NewGray(dst)
	if dst.Size() == b.Size() {
		draw.Draw(gray, dst, src, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(gray, dst, src, b, draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
