// Package tesseract is the gosseract-backed ocr.Engine.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"plate-resolver/internal/ocr"
	"plate-resolver/internal/video"
)

// DefaultWhitelist restricts recognition to plate characters.
const DefaultWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type Config struct {
	Languages []string
	Whitelist string
	// MaxWidth scales wide frames down before recognition; 0 keeps them as is.
	MaxWidth int
}

// Engine owns one tesseract client. It is not safe for concurrent use.
type Engine struct {
	client   *gosseract.Client
	maxWidth int
}

func New(cfg Config) (*Engine, error) {
	c := gosseract.NewClient()
	if len(cfg.Languages) > 0 {
		if err := c.SetLanguage(cfg.Languages...); err != nil {
			c.Close()
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if cfg.Whitelist != "" {
		if err := c.SetWhitelist(cfg.Whitelist); err != nil {
			c.Close()
			return nil, fmt.Errorf("set whitelist: %w", err)
		}
	}
	if err := c.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		c.Close()
		return nil, fmt.Errorf("set page segmentation: %w", err)
	}
	return &Engine{client: c, maxWidth: cfg.MaxWidth}, nil
}

// Factory returns an ocr.Factory building engines from cfg.
func Factory(cfg Config) ocr.Factory {
	return func() (ocr.Engine, error) {
		return New(cfg)
	}
}

func (e *Engine) Detect(ctx context.Context, frame video.Frame) ([]ocr.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := ocr.PrepareFrame(frame.Data, e.maxWidth)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", frame.Index, err)
	}
	if err := e.client.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize frame %d: %w", frame.Index, err)
	}

	out := make([]ocr.Detection, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		out = append(out, ocr.Detection{
			Box:        b.Box,
			Text:       text,
			Confidence: b.Confidence / 100.0,
		})
	}
	return out, nil
}

func (e *Engine) Close() error {
	return e.client.Close()
}
