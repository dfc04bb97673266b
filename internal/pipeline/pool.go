package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"plate-resolver/internal/domain/plate"
	"plate-resolver/internal/metrics"
	"plate-resolver/internal/ocr"
)

const DefaultWorkers = 4

// FileProcessor is implemented by Processor.
type FileProcessor interface {
	ProcessFile(ctx context.Context, engine ocr.Engine, path string) plate.FileResult
}

// Pool spreads files over a fixed number of workers. Each worker builds one
// engine when it starts, uses it for every file it takes and closes it on exit.
type Pool struct {
	workers int
	engines ocr.Factory
	proc    FileProcessor
	log     zerolog.Logger
}

func NewPool(workers int, engines ocr.Factory, proc FileProcessor, log zerolog.Logger) *Pool {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Pool{workers: workers, engines: engines, proc: proc, log: log}
}

// Run processes files and returns their results sorted by file name. It fails
// only when an engine cannot be built; per-file failures are in the results.
func (p *Pool) Run(ctx context.Context, files []string) ([]plate.FileResult, error) {
	workers := min(p.workers, len(files))
	if workers == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan string)
	perWorker := make([][]plate.FileResult, workers)

	g.Go(func() error {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			log := p.log.With().Int("worker", w).Logger()
			engine, err := p.engines()
			if err != nil {
				return fmt.Errorf("worker %d: build ocr engine: %w", w, err)
			}
			defer func() {
				if err := engine.Close(); err != nil {
					log.Warn().Err(err).Msg("failed to close ocr engine")
				}
			}()
			log.Debug().Msg("worker started")

			for path := range jobs {
				res := p.proc.ProcessFile(ctx, engine, path)
				metrics.FilesProcessedTotal.WithLabelValues(metrics.Result(res.Success)).Inc()
				perWorker[w] = append(perWorker[w], res)
			}
			log.Debug().Int("files", len(perWorker[w])).Msg("worker finished")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := slices.Concat(perWorker...)
	slices.SortFunc(results, func(a, b plate.FileResult) int {
		return strings.Compare(a.File, b.File)
	})
	return results, nil
}
