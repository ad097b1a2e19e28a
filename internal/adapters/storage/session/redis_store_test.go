package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRedisStore_Integration requires a running Redis on localhost:6379 and
// is skipped otherwise.
func TestRedisStore_Integration(t *testing.T) {
	client := NewRedisClient("localhost:6379", "", 0)
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}

	s := NewRedisStore(client, time.Minute)
	sid := "test-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() { client.Del(ctx, s.key(sid)) })

	require.NoError(t, s.Set(ctx, sid, "redline.lang", "en"))
	v, ok, err := s.Get(ctx, sid, "redline.lang")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "en", v)

	ttl, err := client.TTL(ctx, s.key(sid)).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, s.Clear(ctx, sid, "redline.lang"))
	_, ok, err = s.Get(ctx, sid, "redline.lang")
	require.NoError(t, err)
	require.False(t, ok)

	n, err := s.Purge(ctx, time.Now())
	require.NoError(t, err)
	require.Zero(t, n)
}
