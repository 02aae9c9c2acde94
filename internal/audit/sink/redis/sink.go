// Package redis mirrors audit entries onto a capped Redis stream for
// operational monitoring. The stream is a best-effort secondary sink: the
// durable record lives in the primary store, so publish failures are
// reported to the caller and swallowed there.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/adonisja/tyche-finance-sub001/internal/audit"
)

const (
	// StreamKey is where entries land; consumers tail it with XREAD.
	StreamKey = "audit:stream"

	// maxStreamLen caps the stream with approximate trimming so the
	// monitoring mirror cannot grow unbounded.
	maxStreamLen = 100_000
)

type Sink struct {
	client *redis.Client
}

func New(client *redis.Client) *Sink {
	return &Sink{client: client}
}

// Publish appends the entry to the stream. Values are flat strings so any
// stream consumer can read them without a schema.
func (s *Sink) Publish(ctx context.Context, entry audit.Entry) error {
	values := map[string]any{
		"id":         entry.ID,
		"tenant_id":  entry.TenantID,
		"subject_id": entry.SubjectID,
		"role":       string(entry.Role),
		"action":     string(entry.Action),
		"resource":   entry.Resource,
		"success":    entry.Success,
		"timestamp":  entry.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if entry.TargetSubjectID != "" {
		values["target_subject_id"] = entry.TargetSubjectID
	}
	if entry.ErrorMessage != "" {
		values["error"] = entry.ErrorMessage
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: values,
	}).Err()
}
