package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// OracleAttemptsTotal counts individual HTTP attempts against the lookup oracle.
	OracleAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plate_resolver",
		Subsystem: "oracle",
		Name:      "attempts_total",
		Help:      "Lookup oracle HTTP attempts, labeled by result (ok, http_error, transport_error).",
	}, []string{"result"})

	// OracleLookupsTotal counts logical lookups by classified outcome.
	OracleLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plate_resolver",
		Subsystem: "oracle",
		Name:      "lookups_total",
		Help:      "Logical oracle lookups, labeled by outcome (match, not_found, unavailable).",
	}, []string{"outcome"})

	// OracleMalformedTotal counts 200 responses whose body did not have the expected shape.
	OracleMalformedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "plate_resolver",
		Subsystem: "oracle",
		Name:      "malformed_responses_total",
		Help:      "Oracle responses that failed typed parsing and were classified as not found.",
	})

	// SessionsTotal counts terminal search sessions by result and the phase they ended in.
	SessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plate_resolver",
		Subsystem: "search",
		Name:      "sessions_total",
		Help:      "Terminal search sessions, labeled by result and phase.",
	}, []string{"result", "phase"})

	// SessionDurationSeconds is the wall-clock time of one search session.
	SessionDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "plate_resolver",
		Subsystem: "search",
		Name:      "session_duration_seconds",
		Help:      "Wall-clock duration of a search session.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"result"})

	// FramesSampledTotal counts frames handed to the OCR engine.
	FramesSampledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "plate_resolver",
		Subsystem: "scanner",
		Name:      "frames_sampled_total",
		Help:      "Video frames passed to OCR after stride sampling.",
	})

	// FilesProcessedTotal counts files finished by the worker pool.
	FilesProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plate_resolver",
		Subsystem: "pipeline",
		Name:      "files_processed_total",
		Help:      "Video files processed, labeled by result.",
	}, []string{"result"})
)

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			OracleAttemptsTotal,
			OracleLookupsTotal,
			OracleMalformedTotal,
			SessionsTotal,
			SessionDurationSeconds,
			FramesSampledTotal,
			FilesProcessedTotal,
		)
	})
}

func Result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
