package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/webhookharness/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptStub struct {
	redis.Scripter

	reply []interface{}
	err   error
	keys  []string
	args  []interface{}
}

func (s *scriptStub) EvalSha(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	s.keys = keys
	s.args = args
	cmd := redis.NewCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
		return cmd
	}
	cmd.SetVal(s.reply)
	return cmd
}

func TestTokenBucketAllow(t *testing.T) {
	stub := &scriptStub{reply: []interface{}{int64(1), "4", int64(1700000000000)}}
	bucket := NewTokenBucket(stub)

	res, err := bucket.Allow(context.Background(), "k", 2, 5)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 5, res.Limit)
	assert.Equal(t, 4, res.Remaining)
	assert.Zero(t, res.RetryAfter)
	assert.Equal(t, []string{"k"}, stub.keys)
	require.Len(t, stub.args, 3)
	assert.Equal(t, int64(5000), stub.args[2])
}

func TestTokenBucketDenied(t *testing.T) {
	stub := &scriptStub{reply: []interface{}{int64(0), "0.5", int64(1700000000000)}}
	bucket := NewTokenBucket(stub)

	res, err := bucket.Allow(context.Background(), "k", 1, 5)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 500*time.Millisecond, res.RetryAfter)
}

func TestTokenBucketValidation(t *testing.T) {
	var nilBucket *TokenBucket
	_, err := nilBucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)

	bucket := NewTokenBucket(&scriptStub{})
	_, err = bucket.Allow(context.Background(), "", 1, 1)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidRate)
	_, err = bucket.Allow(context.Background(), "k", 1, 0)
	assert.ErrorIs(t, err, ErrInvalidBurst)
}

func TestTokenBucketScriptError(t *testing.T) {
	boom := errors.New("connection refused")
	bucket := NewTokenBucket(&scriptStub{err: boom})

	res, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, boom)
	assert.False(t, res.Allowed)
}

func TestParseResultShortReply(t *testing.T) {
	_, err := parseResult([]interface{}{int64(1)}, 1, 1)
	assert.ErrorIs(t, err, errInvalidResponse)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, defaultBucketTTL(0, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(1000, 1))
	assert.Equal(t, 200*time.Second, defaultBucketTTL(1, 100))
}

func TestWebhookIngestLimiterKeysByClient(t *testing.T) {
	stub := &scriptStub{reply: []interface{}{int64(1), "9", int64(0)}}
	limiter := newWebhookIngestLimiter(stub, 5, 10)

	res, err := limiter.AllowClient(context.Background(), " 10.0.0.1 ")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, []string{"webhookharness:ingest:client:10.0.0.1"}, stub.keys)

	_, err = limiter.AllowClient(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"webhookharness:ingest:client:unknown"}, stub.keys)
}

func TestNilWebhookIngestLimiterAllows(t *testing.T) {
	var limiter *WebhookIngestLimiter
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowClient(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.NoError(t, limiter.Close())
}

func TestNewWebhookIngestLimiterConfig(t *testing.T) {
	limiter, err := NewWebhookIngestLimiter(config.Config{})
	require.NoError(t, err)
	assert.Nil(t, limiter)

	_, err = NewWebhookIngestLimiter(config.Config{
		RateLimit: config.RateLimitConfig{Enabled: true, Rate: 1, Burst: 1},
	})
	assert.Error(t, err)

	_, err = NewWebhookIngestLimiter(config.Config{
		Redis:     config.RedisConfig{Addr: "localhost:6379"},
		RateLimit: config.RateLimitConfig{Enabled: true},
	})
	assert.Error(t, err)

	limiter, err = NewWebhookIngestLimiter(config.Config{
		Redis:     config.RedisConfig{Addr: "localhost:6379"},
		RateLimit: config.RateLimitConfig{Enabled: true, Rate: 1, Burst: 1},
	})
	require.NoError(t, err)
	assert.True(t, limiter.Enabled())
	assert.NoError(t, limiter.Close())
}
