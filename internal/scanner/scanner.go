// Package scanner samples frames of a recording, runs OCR over them and
// aggregates the readings.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"plate-resolver/internal/aggregator"
	"plate-resolver/internal/metrics"
	"plate-resolver/internal/ocr"
	"plate-resolver/internal/video"
)

const DefaultStride = 3

// ErrOCRFailed is returned when recognition failed on every sampled frame.
var ErrOCRFailed = errors.New("ocr failed on every sampled frame")

type Stats struct {
	FrameCount int `json:"frame_count"`
	Frames     int `json:"frames"`
	Sampled    int `json:"sampled"`
	// FailedFrames counts sampled frames the engine could not read.
	FailedFrames int           `json:"failed_frames"`
	Detections   int           `json:"detections"`
	Duration     time.Duration `json:"duration"`
}

type Scanner struct {
	source video.Source
	stride int
	log    zerolog.Logger
}

func New(source video.Source, stride int, log zerolog.Logger) *Scanner {
	if stride < 1 {
		stride = DefaultStride
	}
	return &Scanner{source: source, stride: stride, log: log}
}

// Scan reads every frame of path, runs engine on every stride-th one and
// returns the frequency table of the admissible readings.
func (s *Scanner) Scan(ctx context.Context, engine ocr.Engine, path string) (*aggregator.Table, Stats, error) {
	var stats Stats
	started := time.Now()

	h, err := s.source.Open(ctx, path)
	if err != nil {
		return nil, stats, fmt.Errorf("open %s: %w", path, err)
	}
	defer h.Close()
	stats.FrameCount = h.FrameCount()

	var scanErr, lastOCRErr error
	texts := func(yield func(string) bool) {
		for {
			if err := ctx.Err(); err != nil {
				scanErr = err
				return
			}
			if stats.Frames%s.stride != 0 {
				ok, err := h.Skip()
				if err != nil {
					scanErr = fmt.Errorf("skip frame %d: %w", stats.Frames, err)
					return
				}
				if !ok {
					return
				}
				stats.Frames++
				continue
			}

			frame, ok, err := h.Next()
			if err != nil {
				scanErr = fmt.Errorf("read frame %d: %w", stats.Frames, err)
				return
			}
			if !ok {
				return
			}
			stats.Frames++
			stats.Sampled++
			metrics.FramesSampledTotal.Inc()

			detections, err := engine.Detect(ctx, frame)
			if err != nil {
				if ctx.Err() != nil {
					scanErr = ctx.Err()
					return
				}
				stats.FailedFrames++
				lastOCRErr = err
				s.log.Warn().Err(err).Str("path", path).Int("frame", frame.Index).Msg("ocr failed on frame")
				continue
			}
			for _, d := range detections {
				stats.Detections++
				if !yield(d.Text) {
					return
				}
			}
		}
	}

	table := aggregator.Build(texts)
	stats.Duration = time.Since(started)
	if scanErr != nil {
		return nil, stats, scanErr
	}
	if stats.Sampled > 0 && stats.FailedFrames == stats.Sampled {
		return nil, stats, fmt.Errorf("%w (%d frames): %w", ErrOCRFailed, stats.Sampled, lastOCRErr)
	}

	s.log.Debug().
		Str("path", path).
		Int("frames", stats.Frames).
		Int("sampled", stats.Sampled).
		Int("failed_frames", stats.FailedFrames).
		Int("tokens", table.Len()).
		Dur("duration", stats.Duration).
		Msg("scan complete")
	return table, stats, nil
}
