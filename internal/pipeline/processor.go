// Package pipeline runs recordings through scanning, search, persistence and
// archiving.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"plate-resolver/internal/aggregator"
	"plate-resolver/internal/domain/plate"
	"plate-resolver/internal/metadata"
	"plate-resolver/internal/notify"
	"plate-resolver/internal/ocr"
	"plate-resolver/internal/scanner"
	"plate-resolver/internal/search"
)

// Sink stores one car row per processed file.
type Sink interface {
	CreateCar(ctx context.Context, car *plate.Car) error
}

// Scanner produces the reading frequency table of one recording.
type Scanner interface {
	Scan(ctx context.Context, engine ocr.Engine, path string) (*aggregator.Table, scanner.Stats, error)
}

// Searcher runs one search session over a frequency table.
type Searcher interface {
	Run(ctx context.Context, table *aggregator.Table) *search.Session
}

type Config struct {
	RunID        uuid.UUID
	Jurisdiction string
	// ArchiveDir receives files once their row is stored; empty disables archiving.
	ArchiveDir string
	// ArchiveFailures also archives files whose search failed.
	ArchiveFailures bool
}

type Processor struct {
	extractor metadata.Extractor
	scanner   Scanner
	searcher  Searcher
	sink      Sink
	publisher notify.Publisher
	cfg       Config
	log       zerolog.Logger
}

func NewProcessor(extractor metadata.Extractor, sc Scanner, searcher Searcher, sink Sink, publisher notify.Publisher, cfg Config, log zerolog.Logger) *Processor {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &Processor{
		extractor: extractor,
		scanner:   sc,
		searcher:  searcher,
		sink:      sink,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// ProcessFile handles one recording end to end with the caller's engine. It
// never fails the batch; every problem is reported in the result.
func (p *Processor) ProcessFile(ctx context.Context, engine ocr.Engine, path string) plate.FileResult {
	started := time.Now()
	log := p.log.With().Str("file", filepath.Base(path)).Logger()
	res := plate.FileResult{File: path}

	capture, err := p.extractor.Extract(ctx, path)
	if err != nil {
		log.Warn().Err(err).Msg("unable to read recording metadata")
	}
	if capture == nil {
		capture = &plate.Capture{}
	}

	table, stats, err := p.scanner.Scan(ctx, engine, path)
	if err != nil {
		log.Error().Err(err).Msg("scan failed")
		res.Failure = fmt.Sprintf("scan: %v", err)
		res.Elapsed = time.Since(started)
		return res
	}
	log.Info().
		Int("sampled", stats.Sampled).
		Int("failed_frames", stats.FailedFrames).
		Int("detections", stats.Detections).
		Int("tokens", table.Len()).
		Msg("possible plates found")

	sess := p.searcher.Run(ctx, table)
	res.SessionID = sess.ID
	res.Success = sess.Success
	res.Plate = sess.Plate
	res.Phase = sess.Phase
	res.Attempts = sess.Attempt
	res.Record = sess.Record
	if sess.Err != nil {
		res.Failure = sess.Err.Error()
	}

	car := p.buildCar(path, capture, sess, time.Since(started))
	if err := p.sink.CreateCar(ctx, car); err != nil {
		log.Error().Err(err).Msg("failed to store car")
		res.Failure = joinFailure(res.Failure, fmt.Sprintf("store: %v", err))
	} else {
		res.Persisted = true
	}

	if res.Persisted && p.cfg.ArchiveDir != "" && (res.Success || p.cfg.ArchiveFailures) {
		dst, err := Archive(path, p.cfg.ArchiveDir)
		if err != nil {
			log.Error().Err(err).Msg("failed to archive recording")
			res.Failure = joinFailure(res.Failure, fmt.Sprintf("archive: %v", err))
		} else {
			res.ArchivedTo = dst
		}
	}

	res.Elapsed = time.Since(started)
	if err := p.publisher.Publish(ctx, p.message(res)); err != nil {
		log.Warn().Err(err).Msg("failed to publish result")
	}

	log.Info().
		Bool("success", res.Success).
		Str("plate", res.Plate).
		Int("attempts", res.Attempts).
		Dur("elapsed", res.Elapsed).
		Msg("finished processing file")
	return res
}

func (p *Processor) buildCar(path string, capture *plate.Capture, sess *search.Session, elapsed time.Duration) *plate.Car {
	car := &plate.Car{
		RunID:          p.cfg.RunID,
		CapturedAt:     capture.CapturedAt,
		LicensePlate:   sess.Plate,
		Latitude:       capture.Latitude,
		Longitude:      capture.Longitude,
		VideoPath:      filepath.Base(path),
		Jurisdiction:   p.cfg.Jurisdiction,
		Success:        sess.Success,
		ProcessSeconds: elapsed.Seconds(),
	}
	if r := sess.Record; r != nil {
		car.Year = r.Year
		car.Make = r.Make
		car.Model = r.Model
		car.VIN = r.VIN
		car.SourceURL = r.SourceURL
		car.OraclePayload = sess.Payload
	}
	return car
}

func (p *Processor) message(res plate.FileResult) notify.Message {
	return notify.Message{
		RunID:          p.cfg.RunID,
		SessionID:      res.SessionID,
		File:           filepath.Base(res.File),
		Success:        res.Success,
		Plate:          res.Plate,
		Phase:          res.Phase,
		Attempts:       res.Attempts,
		Jurisdiction:   p.cfg.Jurisdiction,
		Vehicle:        res.Record,
		Failure:        res.Failure,
		ElapsedSeconds: res.Elapsed.Seconds(),
	}
}

func joinFailure(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
