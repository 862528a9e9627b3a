package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values  map[string]string
	getErr  error
	setErr  error
	lastTTL time.Duration
	deleted []string
	delErr  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.lastTTL = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.values, k)
		f.deleted = append(f.deleted, k)
	}
	return redis.NewIntResult(int64(len(keys)), f.delErr)
}

func TestNewRedisCache_Validates(t *testing.T) {
	_, err := NewRedisCache(nil, time.Hour)
	require.Error(t, err)

	c, err := NewRedisCache(newFakeRedis(), 0)
	require.NoError(t, err)
	require.Equal(t, defaultTTL, c.ttl)
}

func TestRedisCache_PutThenGet(t *testing.T) {
	rdb := newFakeRedis()
	c, err := NewRedisCache(rdb, time.Hour)
	require.NoError(t, err)

	require.NoError(t, c.PutSummary(context.Background(), "How do Airplanes fly?", "Lift."))
	require.Equal(t, time.Hour, rdb.lastTTL)
	require.Contains(t, rdb.values, "eli5:summary:How do Airplanes fly?")

	got, ok, err := c.GetSummary(context.Background(), "  How do\tAirplanes fly? ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Lift.", got)
}

func TestRedisCache_KeysAreCaseSensitive(t *testing.T) {
	rdb := newFakeRedis()
	c, err := NewRedisCache(rdb, time.Hour)
	require.NoError(t, err)

	require.NoError(t, c.PutSummary(context.Background(), "US", "The United States."))
	_, ok, err := c.GetSummary(context.Background(), "Us")
	require.NoError(t, err)
	require.False(t, ok)

	got, ok, err := c.GetSummary(context.Background(), "US")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "The United States.", got)
}

func TestRedisCache_Miss(t *testing.T) {
	c, err := NewRedisCache(newFakeRedis(), time.Hour)
	require.NoError(t, err)
	_, ok, err := c.GetSummary(context.Background(), "go")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_CorruptEntryIsDropped(t *testing.T) {
	rdb := newFakeRedis()
	rdb.values["eli5:summary:go"] = "{not json"
	c, err := NewRedisCache(rdb, time.Hour)
	require.NoError(t, err)

	_, ok, err := c.GetSummary(context.Background(), "go")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, []string{"eli5:summary:go"}, rdb.deleted)
}

func TestRedisCache_CorruptEntryDeleteFailureIsLogged(t *testing.T) {
	rdb := newFakeRedis()
	rdb.values["eli5:summary:go"] = "{not json"
	rdb.delErr = errors.New("READONLY replica")
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c, err := NewRedisCache(rdb, time.Hour, WithLogger(logger))
	require.NoError(t, err)

	_, ok, err := c.GetSummary(context.Background(), "go")
	require.NoError(t, err)
	require.False(t, ok)
	require.Contains(t, buf.String(), "level=WARN")
	require.Contains(t, buf.String(), "READONLY replica")
}

func TestRedisCache_Errors(t *testing.T) {
	rdb := newFakeRedis()
	rdb.getErr = errors.New("connection reset")
	rdb.setErr = errors.New("read only replica")
	c, err := NewRedisCache(rdb, time.Hour)
	require.NoError(t, err)

	_, _, err = c.GetSummary(context.Background(), "go")
	require.ErrorContains(t, err, "connection reset")
	require.ErrorContains(t, c.PutSummary(context.Background(), "go", "Go."), "read only replica")
	require.Error(t, c.PutSummary(context.Background(), "go", ""))
}

func TestNewRedisClient(t *testing.T) {
	_, err := NewRedisClient(" ")
	require.Error(t, err)

	rdb, err := NewRedisClient("redis://localhost:6379/2")
	require.NoError(t, err)
	require.Equal(t, 2, rdb.Options().DB)
	require.NoError(t, rdb.Close())

	rdb, err = NewRedisClient("localhost:6380")
	require.NoError(t, err)
	require.Equal(t, "localhost:6380", rdb.Options().Addr)
	require.NoError(t, rdb.Close())
}
