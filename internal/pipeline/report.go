package pipeline

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"plate-resolver/internal/domain/plate"
)

// Report summarizes a batch run.
type Report struct {
	RunID       uuid.UUID          `json:"run_id"`
	Total       int                `json:"total"`
	Succeeded   int                `json:"succeeded"`
	Failed      int                `json:"failed"`
	SuccessRate float64            `json:"success_rate"`
	TotalTime   time.Duration      `json:"total_time"`
	AverageTime time.Duration      `json:"average_time"`
	Successes   []plate.FileResult `json:"successes"`
	Failures    []plate.FileResult `json:"failures"`
}

// NewReport builds the report of a run that took wall time. Both result lists
// are sorted by processing time, slowest first.
func NewReport(runID uuid.UUID, results []plate.FileResult, wall time.Duration) Report {
	r := Report{RunID: runID, Total: len(results), TotalTime: wall}
	for _, res := range results {
		if res.Success {
			r.Successes = append(r.Successes, res)
		} else {
			r.Failures = append(r.Failures, res)
		}
	}
	r.Succeeded = len(r.Successes)
	r.Failed = len(r.Failures)
	if r.Total > 0 {
		r.SuccessRate = float64(r.Succeeded) / float64(r.Total) * 100
		r.AverageTime = wall / time.Duration(r.Total)
	}

	slowestFirst := func(a, b plate.FileResult) int { return cmp.Compare(b.Elapsed, a.Elapsed) }
	slices.SortStableFunc(r.Successes, slowestFirst)
	slices.SortStableFunc(r.Failures, slowestFirst)
	return r
}

func (r Report) Log(log zerolog.Logger) {
	log.Info().
		Str("run_id", r.RunID.String()).
		Int("total", r.Total).
		Int("succeeded", r.Succeeded).
		Int("failed", r.Failed).
		Float64("success_rate", r.SuccessRate).
		Dur("total_time", r.TotalTime).
		Dur("average_time", r.AverageTime).
		Msg("run complete")

	for _, res := range r.Successes {
		log.Info().
			Str("file", res.File).
			Str("plate", res.Plate).
			Dur("elapsed", res.Elapsed).
			Msg("succeeded")
	}
	for _, res := range r.Failures {
		log.Warn().
			Str("file", res.File).
			Str("plate", res.Plate).
			Str("failure", res.Failure).
			Dur("elapsed", res.Elapsed).
			Msg("failed")
	}
}
