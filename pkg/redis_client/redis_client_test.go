package redis_client

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("secret")

	client, err := NewRedisClient(context.Background(), mr.Addr(),
		WithPassword("secret"),
		WithDB(0),
		WithPoolSize(4),
		WithTimeout(time.Second),
	)
	require.NoError(t, err)
	defer client.Close()

	require.Equal(t, 4, client.Options().PoolSize)
	require.Equal(t, time.Second, client.Options().ReadTimeout)
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())

	v, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", v)
}

func TestNewRedisClientPingFails(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("secret")

	_, err := NewRedisClient(context.Background(), mr.Addr(), WithPassword("wrong"))
	require.Error(t, err)
}
