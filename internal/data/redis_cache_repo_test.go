package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/sensemaker/internal/testutil"
)

func TestRedisCacheRepo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)

	repo := NewRedisCacheRepo(client, "test:sensemaker:")
	ctx := context.Background()

	t.Run("set and get under prefix", func(t *testing.T) {
		ttl := 5 * time.Minute
		require.NoError(t, repo.Set(ctx, "context:Debate#1", []byte("header"), ttl))

		got, err := repo.Get(ctx, "context:Debate#1")
		require.NoError(t, err)
		assert.Equal(t, []byte("header"), got)

		raw, err := client.Get(ctx, "test:sensemaker:context:Debate#1").Bytes()
		require.NoError(t, err)
		assert.Equal(t, []byte("header"), raw)

		actualTTL := client.TTL(ctx, "test:sensemaker:context:Debate#1").Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl)
	})

	t.Run("missing key", func(t *testing.T) {
		got, err := repo.Get(ctx, "context:missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "context:Topic#3", []byte("x"), time.Minute))

		deleted, err := repo.Delete(ctx, "context:Topic#3")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, "context:Topic#3")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("delete matching", func(t *testing.T) {
		for _, k := range []string{"context:Poll#1", "context:Poll#2", "other:Poll#1"} {
			require.NoError(t, repo.Set(ctx, k, []byte("v"), time.Minute))
		}

		n, err := repo.DeleteMatching(ctx, "context:Poll#*")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		got, err := repo.Get(ctx, "other:Poll#1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)
	})

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, repo.Health(ctx))
	})

	t.Run("empty key", func(t *testing.T) {
		assert.Error(t, repo.Set(ctx, "", []byte("v"), time.Minute))
		_, err := repo.Get(ctx, "")
		assert.Error(t, err)
		_, err = repo.Delete(ctx, "")
		assert.Error(t, err)
		_, err = repo.DeleteMatching(ctx, "")
		assert.Error(t, err)
	})
}
