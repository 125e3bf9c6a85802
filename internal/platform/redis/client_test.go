package redis

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modwallet/internal/platform/config"
)

func TestNew(t *testing.T) {
	t.Run("empty URL disables redis", func(t *testing.T) {
		c, err := New(context.Background(), config.RedisConfig{})
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("bad URL", func(t *testing.T) {
		_, err := New(context.Background(), config.RedisConfig{URL: "http://nope", DialTimeout: time.Second})
		assert.ErrorContains(t, err, "parse redis URL")
	})
}

func TestPoolCollector(t *testing.T) {
	c := &Client{Client: goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})}
	defer c.Close()

	assert.Equal(t, 6, testutil.CollectAndCount(NewPoolCollector(c)))
}
