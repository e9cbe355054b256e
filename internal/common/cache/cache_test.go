package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qai-backend/internal/platform/redis/redistest"
)

type item struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

func TestGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewCacheService(redistest.NewFake())

	var got item
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", item{Name: "Gold", Price: "100"}, time.Minute))
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, item{Name: "Gold", Price: "100"}, got)
}

func TestGetOrSet_LoadsOnce(t *testing.T) {
	ctx := context.Background()
	c := NewCacheService(redistest.NewFake())
	calls := 0
	load := func() (interface{}, error) {
		calls++
		return []item{{Name: "Silver", Price: "50"}}, nil
	}

	for i := 0; i < 3; i++ {
		var got []item
		require.NoError(t, c.GetOrSet(ctx, "packages:all", &got, time.Minute, load))
		assert.Len(t, got, 1)
	}
	assert.Equal(t, 1, calls)
}

func TestGetOrSet_RedisDownStillLoads(t *testing.T) {
	fake := redistest.NewFake()
	fake.Err = errors.New("connection refused")
	c := NewCacheService(fake)

	var got item
	err := c.GetOrSet(context.Background(), "k", &got, time.Minute, func() (interface{}, error) {
		return item{Name: "Gold"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Gold", got.Name)
}

func TestGetOrSet_LoadError(t *testing.T) {
	c := NewCacheService(redistest.NewFake())
	var got item
	err := c.GetOrSet(context.Background(), "k", &got, time.Minute, func() (interface{}, error) {
		return nil, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
}

func TestDeletePattern(t *testing.T) {
	ctx := context.Background()
	fake := redistest.NewFake()
	c := NewCacheService(fake)
	require.NoError(t, c.Set(ctx, "packages:all", 1, 0))
	require.NoError(t, c.Set(ctx, "packages:list:1:10:", 1, 0))
	require.NoError(t, c.Set(ctx, "tree:referral:u1", 1, 0))

	require.NoError(t, c.DeletePattern(ctx, "packages:*"))
	assert.Equal(t, []string{"tree:referral:u1"}, fake.Keys())
}

func TestSetOnce(t *testing.T) {
	ctx := context.Background()
	fake := redistest.NewFake()
	c := NewCacheService(fake)

	first, err := c.SetOnce(ctx, "otp:used:u1:123456", time.Minute)
	require.NoError(t, err)
	second, err := c.SetOnce(ctx, "otp:used:u1:123456", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)

	fake.Advance(2 * time.Minute)
	third, err := c.SetOnce(ctx, "otp:used:u1:123456", time.Minute)
	require.NoError(t, err)
	assert.True(t, third)
}
