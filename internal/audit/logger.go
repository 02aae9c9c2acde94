package audit

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "github.com/adonisja/tyche-finance-sub001/pkg/domain-errors"
)

var (
	appendDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tyche_audit_append_duration_ms",
		Help:    "Latency of audit entry appends in milliseconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
	})
	appendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tyche_audit_append_failures_total",
		Help: "Total number of failed primary-sink audit appends",
	})
	sinkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tyche_audit_sink_failures_total",
		Help: "Total number of swallowed secondary-sink publish failures",
	})
)

const defaultAppendTimeout = 5 * time.Second

// Logger appends immutable audit entries to a durable store and mirrors
// them to an optional best-effort sink.
//
// Concurrency: safe for use from any number of goroutines. Uniqueness of
// entry IDs is what avoids write conflicts between concurrent callers; no
// serialization happens around the store itself.
type Logger struct {
	store   Store
	sink    Sink
	log     *slog.Logger
	timeout time.Duration

	// entropyMu guards the monotonic entropy source, which is not safe for
	// concurrent readers.
	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// Option configures the Logger.
type Option func(*Logger)

// WithSink attaches a best-effort secondary sink. Publish failures are
// counted and logged, never surfaced to the caller.
func WithSink(sink Sink) Option {
	return func(l *Logger) { l.sink = sink }
}

// WithLogger sets a logger for sink failures and slow appends.
func WithLogger(log *slog.Logger) Option {
	return func(l *Logger) { l.log = log }
}

// WithTimeout bounds each primary-sink append. Timeouts surface as
// CodeAuditWrite like any other append failure.
func WithTimeout(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// NewLogger constructs an audit logger over the given primary store.
func NewLogger(store Store, opts ...Option) (*Logger, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "audit store is required")
	}
	l := &Logger{
		store:   store,
		log:     slog.Default(),
		timeout: defaultAppendTimeout,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Append assigns the entry its unique ID and retention metadata, persists
// it to the primary store, and mirrors it to the secondary sink.
//
// The write runs on a context detached from caller cancellation: an audit
// entry describes an attempt, and an aborted request must not lose it.
// Only the configured timeout bounds the write.
//
// Errors: CodeValidation for incomplete entries; CodeAuditWrite when the
// primary store rejects the write or times out. Secondary-sink failures
// are swallowed.
func (l *Logger) Append(ctx context.Context, entry Entry) error {
	if entry.TenantID == "" {
		return dErrors.New(dErrors.CodeValidation, "audit entry requires tenant id")
	}
	if entry.SubjectID == "" {
		return dErrors.New(dErrors.CodeValidation, "audit entry requires subject id")
	}
	if entry.Action == "" {
		return dErrors.New(dErrors.CodeValidation, "audit entry requires action")
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ExpiresAt.IsZero() {
		entry.ExpiresAt = entry.Timestamp.Add(RetentionWindow)
	}
	id, err := l.newID(entry.Timestamp)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeAuditWrite, "assign audit entry id")
	}
	entry.ID = id

	// Audit durability outlives the request: detach from caller
	// cancellation and bound the write by the configured timeout only.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	start := time.Now()
	err = l.store.Append(writeCtx, entry)
	appendDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		appendFailures.Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			return dErrors.Wrap(err, dErrors.CodeAuditWrite, "audit append timed out")
		}
		return dErrors.Wrap(err, dErrors.CodeAuditWrite, "append audit entry")
	}

	if l.sink != nil {
		if err := l.sink.Publish(writeCtx, entry); err != nil {
			sinkFailures.Inc()
			l.log.WarnContext(ctx, "audit sink publish failed",
				"entry_id", entry.ID,
				"action", entry.Action,
				"error", err,
			)
		}
	}
	return nil
}

// Query returns one tenant's entries in [from, to], ordered by entry ID,
// which is equivalent to timestamp order with stable tie-breaking.
func (l *Logger) Query(ctx context.Context, tenantID string, from, to time.Time, filter Filter) ([]Entry, error) {
	if tenantID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant id is required")
	}
	entries, err := l.store.Query(ctx, tenantID, from, to, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "query audit entries")
	}
	return entries, nil
}

// newID builds a ULID seeded from the entry timestamp. The monotonic
// entropy source guarantees distinct, ordered IDs even when concurrent
// callers land on the same millisecond.
func (l *Logger) newID(ts time.Time) (string, error) {
	l.entropyMu.Lock()
	defer l.entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(ts.UTC()), l.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
