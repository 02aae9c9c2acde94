package audit

import (
	"context"
	"time"
)

// Store is the durable primary sink. Its surface is append and query only;
// the absence of update and delete operations is what makes the trail
// append-only structurally rather than by convention.
type Store interface {
	// Append persists one entry under its unique ID. Implementations must
	// be idempotent on ID so caller retries cannot duplicate entries.
	Append(ctx context.Context, entry Entry) error

	// Query returns entries for one tenant whose timestamps fall in
	// [from, to], further narrowed by the filter, ordered by ID ascending.
	Query(ctx context.Context, tenantID string, from, to time.Time, filter Filter) ([]Entry, error)
}

// Sink receives a best-effort copy of every appended entry, e.g. a log
// stream for operational monitoring. Sink failures never fail the append.
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}
