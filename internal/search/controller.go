// Package search drives the verification of one video's plate readings: the
// ranked variations of the seed token first, then the raw observed tokens.
package search

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"plate-resolver/internal/aggregator"
	"plate-resolver/internal/domain/plate"
	"plate-resolver/internal/metrics"
	"plate-resolver/internal/oracle"
	"plate-resolver/internal/schedule"
	"plate-resolver/internal/variation"
)

const (
	DefaultMaxVariations = 50
	DefaultPacing        = time.Second
)

var (
	ErrEmptyCandidateSet = errors.New("no admissible plate token was read")
	ErrExhausted         = errors.New("no candidate was verified")
)

// Verifier is the single lookup operation the controller needs.
type Verifier interface {
	Lookup(ctx context.Context, plateText, jurisdiction string) oracle.Result
}

type Config struct {
	Jurisdiction  string
	MaxVariations int
	Pacing        time.Duration
}

// Controller is shared by all workers; every Run owns its own Session.
type Controller struct {
	verifier  Verifier
	generator *variation.Generator
	pacer     schedule.Pacer
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
}

func NewController(v Verifier, g *variation.Generator, s schedule.Sleeper, cfg Config, log zerolog.Logger) *Controller {
	if cfg.MaxVariations <= 0 {
		cfg.MaxVariations = DefaultMaxVariations
	}
	if cfg.Pacing < 0 {
		cfg.Pacing = 0
	}
	if s == nil {
		s = schedule.TimerSleeper{}
	}
	return &Controller{
		verifier:  v,
		generator: g,
		pacer:     schedule.Pacer{Interval: cfg.Pacing, Sleeper: s},
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Run searches for a verified vehicle behind the readings in table and
// returns the terminal session. It never returns a non-terminal session; a
// cancelled ctx ends the session as a failure.
func (c *Controller) Run(ctx context.Context, table *aggregator.Table) *Session {
	s := &Session{
		ID:       uuid.New(),
		State:    StateInit,
		Seed:     table.Seed(),
		Fallback: table.Candidates(),
		started:  c.now(),
	}
	log := c.log.With().Str("session_id", s.ID.String()).Str("seed", s.Seed).Logger()

	if s.Seed == "" {
		log.Warn().Msg("no admissible plate text found, skipping variations")
		s.State = StateFallback
	} else {
		s.Variations = c.generator.Generate(s.Seed)
		s.State = StateSeedSearch
		log.Info().
			Int("variations", len(s.Variations)).
			Int("candidates", len(s.Fallback)).
			Int("seed_count", table.Count(s.Seed)).
			Msg("starting variation search")
	}

	if s.State == StateSeedSearch {
		limit := min(len(s.Variations), c.cfg.MaxVariations)
		candidates := make([]string, limit)
		for i := range candidates {
			candidates[i] = s.Variations[i].Value
		}
		if c.try(ctx, s, plate.PhaseSeed, candidates, len(s.Fallback) > 0, log) {
			return c.finish(ctx, s, log)
		}
		log.Info().Int("attempts", s.Attempt).Msg("variations exhausted, trying raw readings")
		s.State = StateFallback
	}

	if ctx.Err() == nil {
		c.try(ctx, s, plate.PhaseFallback, s.Fallback, false, log)
	}
	return c.finish(ctx, s, log)
}

// try verifies candidates in order and reports whether one matched. The pause
// between lookups is also taken after the last candidate when more follows.
func (c *Controller) try(ctx context.Context, s *Session, phase plate.Phase, candidates []string, moreFollows bool, log zerolog.Logger) bool {
	for i, candidate := range candidates {
		if ctx.Err() != nil {
			return false
		}
		s.Attempt++
		s.Phase = phase
		res := c.verifier.Lookup(ctx, candidate, c.cfg.Jurisdiction)
		s.Lookups = append(s.Lookups, Lookup{Plate: candidate, Phase: phase, Outcome: res.Outcome, Attempts: res.Attempts})

		if res.Outcome == oracle.OutcomeMatch && res.Record != nil {
			s.Record = res.Record
			s.Payload = res.Payload
			s.State = StateDone
			log.Info().
				Str("plate", candidate).
				Str("phase", string(phase)).
				Int("attempt", s.Attempt).
				Msg("verified plate")
			return true
		}

		ev := log.Debug()
		if res.Outcome == oracle.OutcomeUnavailable {
			ev = log.Warn()
		}
		ev.Str("plate", candidate).Str("outcome", res.Outcome.String()).Err(res.Err).Msg("candidate not verified")

		if i < len(candidates)-1 || moreFollows {
			if err := c.pacer.Wait(ctx); err != nil {
				return false
			}
		}
	}
	return false
}

func (c *Controller) finish(ctx context.Context, s *Session, log zerolog.Logger) *Session {
	s.State = StateDone
	s.Elapsed = c.now().Sub(s.started)
	switch {
	case s.Record != nil:
		s.Success = true
		s.Plate = s.Record.MatchedPlate
	case s.Seed == "" && len(s.Fallback) == 0:
		s.Err = ErrEmptyCandidateSet
	case ctx.Err() != nil:
		s.Plate = s.Seed
		s.Err = ctx.Err()
	default:
		s.Plate = s.Seed
		s.Err = ErrExhausted
	}

	phase := string(s.Phase)
	if phase == "" {
		phase = "none"
	}
	metrics.SessionsTotal.WithLabelValues(metrics.Result(s.Success), phase).Inc()
	metrics.SessionDurationSeconds.WithLabelValues(metrics.Result(s.Success)).Observe(s.Elapsed.Seconds())

	if !s.Success {
		log.Warn().Err(s.Err).Int("attempts", s.Attempt).Dur("elapsed", s.Elapsed).Msg("search failed")
	}
	return s
}
