// Package video opens recordings and walks their decoded frames in order.
package video

import "context"

// Frame is one decoded picture, BMP-encoded.
type Frame struct {
	Index int
	Data  []byte
}

// Handle walks the frames of one open recording. It is not safe for
// concurrent use.
type Handle interface {
	// FrameCount is the container's frame count, or 0 when unknown.
	FrameCount() int
	// Next returns the next frame; ok is false once the stream is exhausted.
	Next() (frame Frame, ok bool, err error)
	// Skip advances past the next frame without returning it; ok is false
	// once the stream is exhausted. Indexes of later frames are unaffected.
	Skip() (ok bool, err error)
	Close() error
}

type Source interface {
	Open(ctx context.Context, path string) (Handle, error)
}
