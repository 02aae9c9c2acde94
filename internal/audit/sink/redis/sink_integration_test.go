//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adonisja/tyche-finance-sub001/internal/audit"
	redissink "github.com/adonisja/tyche-finance-sub001/internal/audit/sink/redis"
	"github.com/adonisja/tyche-finance-sub001/pkg/domain"
	"github.com/adonisja/tyche-finance-sub001/pkg/testutil/containers"
)

func TestPublishAppendsToStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	sink := redissink.New(rc.Client)

	entry := audit.Entry{
		ID:        "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		TenantID:  "T1",
		SubjectID: "u1",
		Role:      domain.RoleAdmin,
		Action:    audit.ActionUserDataAccess,
		Resource:  "T1#USER#u2",
		Timestamp: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		Success:   true,
	}
	require.NoError(t, sink.Publish(ctx, entry))

	msgs, err := rc.Client.XRange(ctx, redissink.StreamKey, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Equal(t, entry.ID, msgs[0].Values["id"])
	assert.Equal(t, "T1", msgs[0].Values["tenant_id"])
	assert.Equal(t, string(audit.ActionUserDataAccess), msgs[0].Values["action"])
	_, hasErr := msgs[0].Values["error"]
	assert.False(t, hasErr, "successful entries carry no error field")
}

func TestPublishFailsWhenRedisDown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	sink := redissink.New(client)

	err := sink.Publish(context.Background(), audit.Entry{ID: "x", TenantID: "T1", SubjectID: "u1"})
	assert.Error(t, err, "the logger is what swallows this, not the sink")
}
