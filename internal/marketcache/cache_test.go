package marketcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, ok, err := c.Get(ctx, "binance")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "binance", []string{"BTC/USDT", "ETH/USDT"}, time.Minute))

	symbols, ok, err := c.Get(ctx, "binance")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, symbols)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "huobi", []string{"BTC/USDT"}, time.Minute))

	now = now.Add(59 * time.Second)
	_, ok, _ := c.Get(ctx, "huobi")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = c.Get(ctx, "huobi")
	assert.False(t, ok)
}

func TestMemory_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	src := []string{"BTC/USDT"}
	require.NoError(t, c.Set(ctx, "ftx", src, 0))
	src[0] = "mutated"

	got, ok, _ := c.Get(ctx, "ftx")
	require.True(t, ok)
	got[0] = "again"

	again, _, _ := c.Get(ctx, "ftx")
	assert.Equal(t, []string{"BTC/USDT"}, again)
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "markets:binance", redisKey("binance"))
}
