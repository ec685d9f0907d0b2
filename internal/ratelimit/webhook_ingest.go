package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/webhookharness/internal/config"
)

const keyWebhookIngestClient = "webhookharness:ingest:client:%s"

// WebhookIngestLimiter throttles deliveries to the ingest endpoint per
// client address. A nil limiter allows everything.
type WebhookIngestLimiter struct {
	bucket *TokenBucket
	closer func() error

	rate  float64
	burst int
}

func NewWebhookIngestLimiter(cfg config.Config) (*WebhookIngestLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if !cfg.Redis.Enabled() {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.Rate <= 0 || limitCfg.Burst <= 0 {
		return nil, errors.New("webhook ingest rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(cfg.Redis.Addr),
		Password: strings.TrimSpace(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})
	limiter := newWebhookIngestLimiter(client, limitCfg.Rate, limitCfg.Burst)
	limiter.closer = client.Close
	return limiter, nil
}

func newWebhookIngestLimiter(client redis.Scripter, rate float64, burst int) *WebhookIngestLimiter {
	return &WebhookIngestLimiter{
		bucket: NewTokenBucket(client),
		rate:   rate,
		burst:  burst,
	}
}

func (l *WebhookIngestLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *WebhookIngestLimiter) AllowClient(ctx context.Context, clientIP string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	clientIP = strings.TrimSpace(clientIP)
	if clientIP == "" {
		clientIP = "unknown"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyWebhookIngestClient, clientIP), l.rate, l.burst)
}

func (l *WebhookIngestLimiter) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer()
}
