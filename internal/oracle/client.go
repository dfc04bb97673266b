package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"plate-resolver/internal/domain/plate"
	"plate-resolver/internal/metrics"
	"plate-resolver/internal/schedule"
)

const (
	DefaultEndpoint    = "https://www.kbb.com/owners-argo/api/"
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 2 * time.Second

	maxBodyBytes = 1 << 20
)

var (
	ErrUnavailable       = errors.New("oracle unavailable")
	ErrMalformedResponse = errors.New("malformed oracle response")
	ErrInvalidPlate      = errors.New("invalid plate")
)

// StatusError is a non-200 answer from the oracle.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("oracle returned status %d: %s", e.Code, e.Body)
}

type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeMatch
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatch:
		return "match"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "not_found"
	}
}

// Result is the classified outcome of one logical lookup.
type Result struct {
	Outcome  Outcome
	Record   *plate.VehicleRecord
	Attempts int
	// Payload is the body of the response that was classified, if any.
	Payload []byte
	// Err explains Unavailable outcomes and malformed NotFound outcomes.
	Err error
}

type Config struct {
	Endpoint    string
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
	Cookie      string
	UserAgent   string
}

// Client looks plates up against the vehicle oracle. It keeps no state
// between calls.
type Client struct {
	endpoint   string
	httpClient *http.Client
	retry      schedule.Retry
	sleeper    schedule.Sleeper
	headers    http.Header
	log        zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithSleeper(s schedule.Sleeper) Option {
	return func(c *Client) { c.sleeper = s }
}

func NewClient(cfg Config, log zerolog.Logger, opts ...Option) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	headers := http.Header{}
	headers.Set("Accept", "*/*")
	headers.Set("Accept-Language", "en-US,en;q=0.9")
	headers.Set("Content-Type", "application/json")
	headers.Set("Origin", "https://www.kbb.com")
	headers.Set("Referer", "https://www.kbb.com/whats-my-car-worth/")
	if cfg.Cookie != "" {
		headers.Set("Cookie", cfg.Cookie)
	}
	if cfg.UserAgent != "" {
		headers.Set("User-Agent", cfg.UserAgent)
	}

	c := &Client{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      schedule.Retry{MaxAttempts: cfg.MaxAttempts, Delay: cfg.RetryDelay},
		sleeper:    schedule.TimerSleeper{},
		headers:    headers,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup issues one logical lookup of plateText in jurisdiction. Transport
// failures and non-200 answers are retried per the client's policy; running
// out of attempts yields OutcomeUnavailable. Responses that cannot be parsed
// are reported as OutcomeNotFound with ErrMalformedResponse.
func (c *Client) Lookup(ctx context.Context, plateText, jurisdiction string) Result {
	log := c.log.With().Str("plate", plateText).Str("jurisdiction", jurisdiction).Logger()

	if plateText == "" {
		return Result{Outcome: OutcomeNotFound, Err: fmt.Errorf("%w: empty plate", ErrInvalidPlate)}
	}

	body, err := json.Marshal(newLookupRequest(plateText, jurisdiction))
	if err != nil {
		return Result{Outcome: OutcomeNotFound, Err: fmt.Errorf("failed to encode lookup request: %w", err)}
	}

	log.Debug().Msg("looking up plate")

	var payload []byte
	attempts, err := c.retry.Run(ctx, c.sleeper, func(ctx context.Context, n int) error {
		b, err := c.post(ctx, body)
		if err != nil {
			label := "transport_error"
			var se *StatusError
			if errors.As(err, &se) {
				label = "http_error"
			}
			metrics.OracleAttemptsTotal.WithLabelValues(label).Inc()
			log.Warn().Err(err).Int("attempt", n).Msg("oracle attempt failed")
			return err
		}
		metrics.OracleAttemptsTotal.WithLabelValues("ok").Inc()
		payload = b
		return nil
	})
	if err != nil {
		metrics.OracleLookupsTotal.WithLabelValues(OutcomeUnavailable.String()).Inc()
		log.Error().Err(err).Int("attempts", attempts).Msg("oracle unavailable")
		return Result{
			Outcome:  OutcomeUnavailable,
			Attempts: attempts,
			Err:      fmt.Errorf("%w after %d attempts: %w", ErrUnavailable, attempts, err),
		}
	}

	record, err := parseLookup(payload)
	if err != nil {
		metrics.OracleMalformedTotal.Inc()
		metrics.OracleLookupsTotal.WithLabelValues(OutcomeNotFound.String()).Inc()
		log.Warn().Err(err).Msg("oracle response could not be parsed")
		return Result{Outcome: OutcomeNotFound, Attempts: attempts, Payload: payload, Err: err}
	}
	if record == nil {
		metrics.OracleLookupsTotal.WithLabelValues(OutcomeNotFound.String()).Inc()
		return Result{Outcome: OutcomeNotFound, Attempts: attempts, Payload: payload}
	}

	record.MatchedPlate = plateText
	metrics.OracleLookupsTotal.WithLabelValues(OutcomeMatch.String()).Inc()
	log.Info().
		Int("year", record.Year).
		Str("make", record.Make).
		Str("model", record.Model).
		Msg("found oracle entry for plate")
	return Result{Outcome: OutcomeMatch, Record: record, Attempts: attempts, Payload: payload}
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header = c.headers.Clone()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read oracle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: snippet}
	}
	return data, nil
}
